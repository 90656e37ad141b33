package dataset

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Synthetic dataset vocabulary.
var (
	syntheticBanks = []string{
		"US-NY", "UK-LDN", "SG-SGP", "AE-DXB", "CH-ZRH",
		"HK-HKG", "JP-TYO", "DE-BER", "FR-PAR", "AU-SYD",
	}
	syntheticCurrencies = []string{"USD", "EUR", "GBP", "AED", "CHF", "SGD", "JPY", "AUD"}
	syntheticPayments   = []string{"Wire", "ACH", "Card", "Crypto", "Cash", "Check"}
	paymentWeights      = []float64{0.35, 0.25, 0.15, 0.10, 0.10, 0.05}
	launderingPatterns  = []string{
		"Structuring", "Smurfing", "Trade-based", "Shell-company", "Round-tripping",
	}
)

// Default population mix. Zero-valued Options fall back to these.
const (
	defaultLaunderingRate  = 0.15
	defaultCrossBorderRate = 0.40
)

// Options shape the generated population.
type Options struct {
	// LaunderingRate is the fraction of rows labeled suspicious.
	LaunderingRate float64

	// CrossBorderRate is the fraction of rows whose sender and receiver
	// banks sit in different countries.
	CrossBorderRate float64
}

func (o Options) withDefaults() Options {
	if o.LaunderingRate <= 0 {
		o.LaunderingRate = defaultLaunderingRate
	}
	if o.CrossBorderRate <= 0 {
		o.CrossBorderRate = defaultCrossBorderRate
	}
	return o
}

// Generator produces labeled synthetic transactions. The same seed always
// yields the same dataset.
type Generator struct {
	rng      *rand.Rand
	accounts []string
}

// NewGenerator builds a generator over a fixed 20-account population.
func NewGenerator(seed int64) *Generator {
	accounts := make([]string, 20)
	for i := range accounts {
		accounts[i] = fmt.Sprintf("ACC%04d", i+1)
	}
	return &Generator{
		rng:      rand.New(rand.NewSource(seed)),
		accounts: accounts,
	}
}

// Generate produces n labeled transactions for the tenant.
func (g *Generator) Generate(tenantID string, n int, opts Options) []*domain.Transaction {
	opts = opts.withDefaults()

	txs := make([]*domain.Transaction, 0, n)
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		laundering := g.rng.Float64() < opts.LaunderingRate

		sender := g.accounts[g.rng.Intn(len(g.accounts))]
		receiver := sender
		for receiver == sender {
			receiver = g.accounts[g.rng.Intn(len(g.accounts))]
		}

		label := 0
		launderingType := ""
		if laundering {
			label = 1
			launderingType = launderingPatterns[g.rng.Intn(len(launderingPatterns))]
		}

		ts := time.Date(2024,
			time.Month(1+g.rng.Intn(12)), 1+g.rng.Intn(28),
			g.rng.Intn(24), g.rng.Intn(60), g.rng.Intn(60), 0, time.UTC)

		// Every bank in the vocabulary sits in a distinct country, so a
		// domestic row reuses the sender's bank.
		senderLoc := syntheticBanks[g.rng.Intn(len(syntheticBanks))]
		receiverLoc := senderLoc
		if g.rng.Float64() < opts.CrossBorderRate {
			for receiverLoc == senderLoc {
				receiverLoc = syntheticBanks[g.rng.Intn(len(syntheticBanks))]
			}
		}

		txs = append(txs, &domain.Transaction{
			ID:               uuid.New().String(),
			TenantID:         tenantID,
			SenderAccount:    sender,
			ReceiverAccount:  receiver,
			Amount:           g.amount(laundering),
			PaymentCurrency:  syntheticCurrencies[g.rng.Intn(len(syntheticCurrencies))],
			ReceivedCurrency: syntheticCurrencies[g.rng.Intn(len(syntheticCurrencies))],
			SenderLocation:   senderLoc,
			ReceiverLocation: receiverLoc,
			PaymentType:      g.paymentType(),
			Timestamp:        ts,
			CreatedAt:        now,
			Label:            &label,
			LaunderingType:   launderingType,
		})
	}
	return txs
}

// amount draws from pattern-shaped bands: structuring-band and large amounts
// dominate laundering rows, small amounts dominate clean rows.
func (g *Generator) amount(laundering bool) float64 {
	if laundering {
		switch r := g.rng.Float64(); {
		case r < 0.4:
			return float64(9000 + g.rng.Intn(1000)) // structuring band
		case r < 0.7:
			return float64(50000 + g.rng.Intn(150000)) // large suspicious
		default:
			return float64(1000 + g.rng.Intn(14000)) // smurfing
		}
	}
	switch r := g.rng.Float64(); {
	case r < 0.6:
		return float64(100 + g.rng.Intn(4900))
	case r < 0.9:
		return float64(5000 + g.rng.Intn(25000))
	default:
		return float64(30000 + g.rng.Intn(70000))
	}
}

// paymentType draws a channel by weighted probability.
func (g *Generator) paymentType() string {
	r := g.rng.Float64()
	acc := 0.0
	for i, w := range paymentWeights {
		acc += w
		if r < acc {
			return syntheticPayments[i]
		}
	}
	return syntheticPayments[len(syntheticPayments)-1]
}
