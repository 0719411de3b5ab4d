package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

type Struct any

// ErrorResponse is the failure envelope every API error uses: a stable
// success flag plus a human readable message. Upstream diagnostic detail is
// deliberately not part of it, raw gateway bodies stay in the logs
type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, data any) {
	JSONWithStatus(w, data, http.StatusOK)
}

// Render service failure with the given status
func ServiceError(w http.ResponseWriter, message string, code int) {
	JSONWithStatus(w, ErrorResponse{Success: false, Message: message}, code)
}

// Render json decode failure
func DecodeError(w http.ResponseWriter, err error) {
	message := ""

	// Try to provide more specific error message based on error type
	switch err := err.(type) {
	case *json.UnmarshalTypeError:
		message = fmt.Sprintf("Invalid data type for field '%s'", err.Field)
	default:
		message = "Failed to parse JSON request body"
	}

	JSONWithStatus(w, ErrorResponse{Success: false, Message: message}, http.StatusBadRequest)
}

// Render validation failures with per-field messages
func ValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	response := ErrorResponse{
		Success: false,
		Message: "Request validation failed",
		Fields:  make(map[string]string, len(errs)),
	}

	for _, fieldError := range errs {
		var message string
		switch fieldError.Tag() {
		case "required":
			message = "This field is required"
		case "msisdn":
			message = "Must be a valid phone number"
		case "min":
			message = fmt.Sprintf("Value is too short (minimum %s)", fieldError.Param())
		default:
			message = "Invalid value"
		}

		response.Fields[fieldError.Field()] = message
	}

	// A single failing field makes a better top level message than the generic one
	if len(errs) == 1 {
		response.Message = fmt.Sprintf("%s: %s", errs[0].Field(), response.Fields[errs[0].Field()])
	}

	JSONWithStatus(w, response, http.StatusBadRequest)
}

// BindAndValidate decodes JSON request body into type T and validates it using
// struct tags. Writes the appropriate error response on decode or validation
// failure, the caller only has to return
func BindAndValidate[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	err := json.NewDecoder(r.Body).Decode(&value)
	if err != nil {
		DecodeError(w, err)
		return value, err
	}

	err = validate.Struct(value)
	if err != nil {
		// pretty sure cast will be ok cause expecting T is valid struct
		errs := err.(validator.ValidationErrors)
		ValidationErrors(w, errs)
		return value, err
	}

	return value, nil
}

// JSONWithStatus sends data as json and enforces status code
func JSONWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)

	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
