package render

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBindAndValidate(t *testing.T) {
	t.Parallel()

	type PayRequest struct {
		Phone string `json:"phone" validate:"required,msisdn"`
	}

	bind := func(t *testing.T, body string) (PayRequest, *httptest.ResponseRecorder, error) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/pay", strings.NewReader(body))

		value, err := BindAndValidate[PayRequest](w, r)
		return value, w, err
	}

	t.Run("valid request", func(t *testing.T) {
		value, w, err := bind(t, `{"phone": "254712345678"}`)

		require.NoError(t, err)
		require.Equal(t, "254712345678", value.Phone)
		require.Empty(t, w.Body.String(), "nothing should be written for a valid request")
	})

	t.Run("plus prefix accepted", func(t *testing.T) {
		value, _, err := bind(t, `{"phone": "+254712345678"}`)

		require.NoError(t, err)
		require.Equal(t, "+254712345678", value.Phone)
	})

	t.Run("missing phone", func(t *testing.T) {
		_, w, err := bind(t, `{}`)

		require.Error(t, err)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.JSONEq(t, `
			{
				"success": false,
				"message": "phone: This field is required",
				"fields": {"phone": "This field is required"}
			}`, w.Body.String())
	})

	t.Run("invalid phone", func(t *testing.T) {
		tests := []struct {
			name  string
			phone string
		}{
			{"letters", "not-a-number"},
			{"too short", "07123"},
			{"too long", "2547123456789012345"},
			{"inner plus", "2547+2345678"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, w, err := bind(t, `{"phone": "`+tt.phone+`"}`)

				require.Error(t, err)
				require.Equal(t, http.StatusBadRequest, w.Code)
				require.Contains(t, w.Body.String(), `"success":false`)
			})
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		_, w, err := bind(t, `{"phone": 123`)

		require.Error(t, err)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), `"success":false`)
	})

	t.Run("wrong field type", func(t *testing.T) {
		_, w, err := bind(t, `{"phone": 254712345678}`)

		require.Error(t, err)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), "phone", "message should name the offending field")
	})
}

func TestServiceError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	ServiceError(w, "Payment failed", http.StatusInternalServerError)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	require.JSONEq(t, `
		{
			"success": false,
			"message": "Payment failed"
		}`, w.Body.String())
}

func TestJSON(t *testing.T) {
	t.Parallel()

	type Response struct {
		Success   bool   `json:"success"`
		AccessURL string `json:"accessUrl"`
	}

	w := httptest.NewRecorder()
	JSON(w, Response{Success: true, AccessURL: "https://example.com/"})

	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"success": true, "accessUrl": "https://example.com/"}`, string(body))
}
