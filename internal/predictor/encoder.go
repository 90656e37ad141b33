package predictor

import "sort"

// Categorical feature keys, matching the encoder map in a model bundle.
const (
	encPaymentType      = "payment_type"
	encSenderLocation   = "sender_location"
	encReceiverLocation = "receiver_location"
	encPaymentCurrency  = "payment_currency"
	encReceivedCurrency = "received_currency"
)

// unknownCode is reserved for category values unseen at fit time.
const unknownCode = 0

// fitEncoder assigns codes 1..k over the sorted distinct values; code 0
// stays reserved for unseen values at prediction time.
func fitEncoder(values []string) map[string]int {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		seen[v] = true
	}
	distinct := make([]string, 0, len(seen))
	for v := range seen {
		distinct = append(distinct, v)
	}
	sort.Strings(distinct)

	codes := make(map[string]int, len(distinct))
	for i, v := range distinct {
		codes[v] = i + 1
	}
	return codes
}

// encode maps a value through a fitted encoder, falling back to the
// unknown bucket for unseen values.
func encode(codes map[string]int, value string) int {
	if c, ok := codes[value]; ok {
		return c
	}
	return unknownCode
}
