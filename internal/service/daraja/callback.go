package daraja

import (
	"encoding/json"
)

// CallbackEnvelope is the settlement notification the gateway POSTs to the
// callback URL after the customer confirms or rejects the prompt
type CallbackEnvelope struct {
	Body struct {
		STKCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int32             `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

// CallbackMetadata is a list of name/value items, present on success only
type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

type MetadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// Succeeded reports whether the customer completed the payment
func (c STKCallback) Succeeded() bool {
	return c.ResultCode == 0
}

// Receipt extracts the MpesaReceiptNumber metadata item, empty when absent
func (c STKCallback) Receipt() string {
	if c.CallbackMetadata == nil {
		return ""
	}

	for _, item := range c.CallbackMetadata.Item {
		if item.Name != "MpesaReceiptNumber" {
			continue
		}

		var receipt string
		if err := json.Unmarshal(item.Value, &receipt); err == nil {
			return receipt
		}
	}

	return ""
}
