package domain

import (
	"strings"
	"time"
)

// Transaction represents a single money movement in the analysis table.
type Transaction struct {
	// Core identifiers
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`

	// Parties
	SenderAccount   string `json:"senderAccount"`
	ReceiverAccount string `json:"receiverAccount"`

	// Financial details
	Amount           float64 `json:"amount"`
	PaymentCurrency  string  `json:"paymentCurrency"`
	ReceivedCurrency string  `json:"receivedCurrency"`

	// Bank locations, encoded as "<country>-<city>" (e.g. "US-NY")
	SenderLocation   string `json:"senderLocation"`
	ReceiverLocation string `json:"receiverLocation"`

	// Payment channel (e.g. "Wire", "ACH", "Card", "Cash")
	PaymentType string `json:"paymentType"`

	// Temporal
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`

	// Optional ground-truth label: 1 = laundering, 0 = clean, nil = unlabeled.
	Label *int `json:"label,omitempty"`

	// Laundering pattern name when labeled suspicious (synthetic data only).
	LaunderingType string `json:"launderingType,omitempty"`
}

// CountryCode extracts the country prefix from a location string.
// "US-NY" -> "US". A location without a separator is its own country code.
func CountryCode(location string) string {
	if i := strings.IndexByte(location, '-'); i >= 0 {
		return location[:i]
	}
	return location
}

// SenderCountry returns the sender bank's country prefix.
func (t *Transaction) SenderCountry() string {
	return CountryCode(t.SenderLocation)
}

// ReceiverCountry returns the receiver bank's country prefix.
func (t *Transaction) ReceiverCountry() string {
	return CountryCode(t.ReceiverLocation)
}

// CrossBorder reports whether sender and receiver banks sit in different countries.
func (t *Transaction) CrossBorder() bool {
	return t.SenderCountry() != t.ReceiverCountry()
}

// CurrencyMismatch reports whether the payment and received currencies differ.
func (t *Transaction) CurrencyMismatch() bool {
	return t.PaymentCurrency != t.ReceivedCurrency
}

// MinutesOfDay returns minutes since midnight for the transaction timestamp.
func (t *Transaction) MinutesOfDay() int {
	return t.Timestamp.Hour()*60 + t.Timestamp.Minute()
}

// Suspicious reports whether the transaction carries a positive laundering label.
func (t *Transaction) Suspicious() bool {
	return t.Label != nil && *t.Label == 1
}

// Labeled reports whether the transaction carries any ground-truth label.
func (t *Transaction) Labeled() bool {
	return t.Label != nil
}

// TransactionRequest is the API payload for a single ingested transaction.
type TransactionRequest struct {
	SenderAccount    string  `json:"senderAccount"`
	ReceiverAccount  string  `json:"receiverAccount"`
	Amount           float64 `json:"amount"`
	PaymentCurrency  string  `json:"paymentCurrency"`
	ReceivedCurrency string  `json:"receivedCurrency"`
	SenderLocation   string  `json:"senderLocation"`
	ReceiverLocation string  `json:"receiverLocation"`
	PaymentType      string  `json:"paymentType"`
	Date             string  `json:"date"` // "2006-01-02"
	Time             string  `json:"time"` // "15:04:05"
	Label            *int    `json:"label,omitempty"`
}
