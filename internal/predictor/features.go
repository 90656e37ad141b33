package predictor

import (
	"math"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// featureNames returns the engineered feature list in model order. A bundle
// trained against a different list is rejected at restore time.
func featureNames() []string {
	return []string{
		"log_amount",
		"hour",
		"day_of_week",
		"is_weekend",
		"is_night",
		"is_round_amount",
		"is_structuring_amount",
		"is_cross_border",
		"is_currency_mismatch",
		"sender_frequency",
		"receiver_frequency",
		"payment_type_code",
		"sender_location_code",
		"receiver_location_code",
		"payment_currency_code",
		"received_currency_code",
	}
}

// fitEncoders fits one label encoder per categorical feature over the
// training transactions.
func fitEncoders(txs []*domain.Transaction) map[string]map[string]int {
	collect := func(get func(*domain.Transaction) string) []string {
		values := make([]string, len(txs))
		for i, tx := range txs {
			values[i] = get(tx)
		}
		return values
	}
	return map[string]map[string]int{
		encPaymentType:      fitEncoder(collect(func(t *domain.Transaction) string { return t.PaymentType })),
		encSenderLocation:   fitEncoder(collect(func(t *domain.Transaction) string { return t.SenderLocation })),
		encReceiverLocation: fitEncoder(collect(func(t *domain.Transaction) string { return t.ReceiverLocation })),
		encPaymentCurrency:  fitEncoder(collect(func(t *domain.Transaction) string { return t.PaymentCurrency })),
		encReceivedCurrency: fitEncoder(collect(func(t *domain.Transaction) string { return t.ReceivedCurrency })),
	}
}

// accountFrequencies counts appearances per sender and receiver account
// across the dataset.
func accountFrequencies(txs []*domain.Transaction) (sender, receiver map[string]int) {
	sender = make(map[string]int)
	receiver = make(map[string]int)
	for _, tx := range txs {
		sender[tx.SenderAccount]++
		receiver[tx.ReceiverAccount]++
	}
	return sender, receiver
}

// featureRow builds the unscaled feature vector for one transaction.
// senderFreq/receiverFreq are dataset-wide counts at training time and 1
// for a standalone prediction.
func featureRow(tx *domain.Transaction, senderFreq, receiverFreq int,
	encoders map[string]map[string]int, structMin, structMax float64) []float64 {

	hour := float64(tx.Timestamp.Hour())

	boolF := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}
	weekday := tx.Timestamp.Weekday()

	return []float64{
		math.Log1p(tx.Amount),
		hour,
		float64(weekday),
		boolF(weekday == time.Saturday || weekday == time.Sunday),
		boolF(hour >= 22 || hour <= 5),
		boolF(math.Mod(tx.Amount, 1000) == 0),
		boolF(tx.Amount >= structMin && tx.Amount < structMax),
		boolF(tx.CrossBorder()),
		boolF(tx.CurrencyMismatch()),
		float64(senderFreq),
		float64(receiverFreq),
		float64(encode(encoders[encPaymentType], tx.PaymentType)),
		float64(encode(encoders[encSenderLocation], tx.SenderLocation)),
		float64(encode(encoders[encReceiverLocation], tx.ReceiverLocation)),
		float64(encode(encoders[encPaymentCurrency], tx.PaymentCurrency)),
		float64(encode(encoders[encReceivedCurrency], tx.ReceivedCurrency)),
	}
}
