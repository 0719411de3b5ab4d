package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perontips/backend/internal/logger"
)

const (
	tokenPath   = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath = "/mpesa/stkpush/v1/processrequest"

	// Gateway convention for customer initiated paybill payments
	transactionType = "CustomerPayBillOnline"

	requestTimeout = 10 * time.Second
)

type Config struct {
	// Gateway base URL, sandbox or production
	BaseURL string

	// OAuth client credentials for the token endpoint
	ConsumerKey    string
	ConsumerSecret string

	// Paybill shortcode and its passkey, used to derive the request password
	Shortcode string
	Passkey   string

	// URL the gateway delivers the settlement callback to
	CallbackURL string
}

// Client talks to the Daraja gateway: token issuance and STK push initiation
type Client struct {
	cfg    Config
	client *http.Client
	logger logger.Logger

	now func() time.Time
}

func NewClient(cfg Config, l logger.Logger) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{},
		logger: l,
		now:    time.Now,
	}
}

// IssueToken requests a fresh access token using HTTP basic auth built from
// the consumer key and secret. Satisfies the issuer contract of TokenCache
func (c *Client) IssueToken(ctx context.Context) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return "", 0, NewError(CodeTransport, 0, "", fmt.Errorf("failed to create token request: %w", err))
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, NewError(CodeTransport, 0, "", fmt.Errorf("failed to send token request: %w", err))
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Token issuance rejected", "status_code", resp.StatusCode)
		return "", 0, NewError(CodeAuth, resp.StatusCode, "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode))
	}

	// The gateway reports the lifetime as a string of seconds
	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", 0, NewError(CodeTransport, resp.StatusCode, "", fmt.Errorf("failed to decode token response: %w", err))
	}

	expiresIn, err := strconv.Atoi(strings.TrimSpace(body.ExpiresIn))
	if err != nil {
		return "", 0, NewError(CodeTransport, resp.StatusCode, "", fmt.Errorf("unparsable expires_in %q: %w", body.ExpiresIn, err))
	}

	c.logger.Debug("Access token issued", "expires_in", expiresIn)
	return body.AccessToken, expiresIn, nil
}

// STKPushParams describe a single push payment to initiate
type STKPushParams struct {
	Phone            string
	Amount           decimal.Decimal
	AccountReference string
	Description      string
}

type stkPushPayload struct {
	BusinessShortCode string          `json:"BusinessShortCode"`
	Password          string          `json:"Password"`
	Timestamp         string          `json:"Timestamp"`
	TransactionType   string          `json:"TransactionType"`
	// The gateway wants a bare JSON number here, not the quoted form
	// decimal.Decimal marshals to
	Amount            json.Number     `json:"Amount"`
	PartyA            string          `json:"PartyA"`
	PartyB            string          `json:"PartyB"`
	PhoneNumber       string          `json:"PhoneNumber"`
	CallBackURL       string          `json:"CallBackURL"`
	AccountReference  string          `json:"AccountReference"`
	TransactionDesc   string          `json:"TransactionDesc"`
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type errorResponse struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// STKPush submits a push payment request, asking the gateway to prompt the
// phone for confirmation. A 2xx only means the request was accepted, the
// settlement outcome arrives later on the callback URL
func (c *Client) STKPush(ctx context.Context, token string, params STKPushParams) (STKPushResponse, error) {
	var pushed STKPushResponse

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	timestamp := Timestamp(c.now())
	payload := stkPushPayload{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          Password(c.cfg.Shortcode, c.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            json.Number(params.Amount.String()),
		PartyA:            params.Phone,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       params.Phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  params.AccountReference,
		TransactionDesc:   params.Description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return pushed, NewError(CodeTransport, 0, "", fmt.Errorf("failed to encode push payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+stkPushPath, bytes.NewReader(body))
	if err != nil {
		return pushed, NewError(CodeTransport, 0, "", fmt.Errorf("failed to create push request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return pushed, NewError(CodeTransport, 0, "", fmt.Errorf("failed to send push request: %w", err))
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return pushed, c.classifyPushError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(&pushed); err != nil {
		return pushed, NewError(CodeTransport, resp.StatusCode, "", fmt.Errorf("failed to decode push response: %w", err))
	}

	c.logger.Debug("STK push accepted",
		"checkout_request_id", pushed.CheckoutRequestID,
		"response_code", pushed.ResponseCode,
	)
	return pushed, nil
}

// classifyPushError tells invalid token rejections apart from everything else
func (c *Client) classifyPushError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		raw = nil
	}

	var upstream errorResponse
	_ = json.Unmarshal(raw, &upstream)

	code := CodeGateway
	if resp.StatusCode == http.StatusUnauthorized || strings.Contains(upstream.ErrorMessage, "Invalid Access Token") {
		code = CodeAuth
	}

	c.logger.Warn("STK push rejected",
		"status_code", resp.StatusCode,
		"error_code", upstream.ErrorCode,
		"request_id", upstream.RequestID,
	)

	detail := upstream.ErrorMessage
	if detail == "" {
		detail = string(raw)
	}
	return NewError(code, resp.StatusCode, detail, fmt.Errorf("push endpoint returned status %d", resp.StatusCode))
}

// Timestamp formats an instant in the gateway required compact form,
// 14 digits with no separators
func Timestamp(at time.Time) string {
	return at.Format("20060102150405")
}

// Password derives the request password the way the gateway documents it:
// base64 over shortcode, passkey and timestamp concatenated. This is a signing
// convention, not a cryptographic protection
func Password(shortcode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
}
