package mpesa

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the gateway's fixed 14-digit transaction time format.
const TimestampLayout = "20060102150405"

// ResultCodeSuccess marks a settled STK transaction in callback payloads.
const ResultCodeSuccess = 0

// CallbackEnvelope is the raw body the gateway posts to the webhook.
type CallbackEnvelope struct {
	Body CallbackBody `json:"Body"`
}

type CallbackBody struct {
	STKCallback STKCallback `json:"stkCallback"`
}

// STKCallback reports the outcome of one STK push, correlated by the
// checkout request id issued at initiation time.
type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

type MetadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value,omitempty"`
}

// Succeeded reports whether the callback settles the payment.
func (c STKCallback) Succeeded() bool {
	return c.ResultCode == ResultCodeSuccess
}

// MetadataString extracts a named metadata item as a string.
func (c STKCallback) MetadataString(name string) (string, bool) {
	raw, ok := c.metadataValue(name)
	if !ok {
		return "", false
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, true
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String(), true
	}
	return "", false
}

func (c STKCallback) metadataValue(name string) (json.RawMessage, bool) {
	if c.CallbackMetadata == nil {
		return nil, false
	}
	for _, item := range c.CallbackMetadata.Item {
		if strings.EqualFold(item.Name, name) && len(item.Value) > 0 {
			return item.Value, true
		}
	}
	return nil, false
}

// ParseTransactionTime decodes the 14-digit YYYYMMDDHHMMSS settlement
// timestamp the gateway embeds in success callbacks.
func ParseTransactionTime(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) != len(TimestampLayout) {
		return time.Time{}, fmt.Errorf("transaction time %q is not 14 digits", value)
	}
	parsed, err := time.ParseInLocation(TimestampLayout, trimmed, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse transaction time %q: %w", value, err)
	}
	return parsed, nil
}
