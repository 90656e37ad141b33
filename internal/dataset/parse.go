// Package dataset parses and validates incoming transaction data and
// generates deterministic synthetic datasets for demonstrations and tests.
package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/domain"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// ParseRequest validates one API payload and converts it to a Transaction.
// Any missing required field or unparseable date/time wraps ErrSchema.
func ParseRequest(tenantID string, req *domain.TransactionRequest) (*domain.Transaction, error) {
	missing := missingFields(req)
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing fields %s", domain.ErrSchema, strings.Join(missing, ", "))
	}

	day, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q", domain.ErrSchema, req.Date)
	}
	clock, err := time.Parse(timeLayout, req.Time)
	if err != nil {
		return nil, fmt.Errorf("%w: bad time %q", domain.ErrSchema, req.Time)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: non-positive amount %v", domain.ErrSchema, req.Amount)
	}
	if req.Label != nil && *req.Label != 0 && *req.Label != 1 {
		return nil, fmt.Errorf("%w: label %d not in {0,1}", domain.ErrSchema, *req.Label)
	}

	ts := time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)

	return &domain.Transaction{
		ID:               uuid.New().String(),
		TenantID:         tenantID,
		SenderAccount:    req.SenderAccount,
		ReceiverAccount:  req.ReceiverAccount,
		Amount:           req.Amount,
		PaymentCurrency:  req.PaymentCurrency,
		ReceivedCurrency: req.ReceivedCurrency,
		SenderLocation:   req.SenderLocation,
		ReceiverLocation: req.ReceiverLocation,
		PaymentType:      req.PaymentType,
		Timestamp:        ts,
		CreatedAt:        time.Now().UTC(),
		Label:            req.Label,
	}, nil
}

// ParseRequests validates a batch. The whole batch is rejected on the first
// bad row so a partial table never reaches profiling.
func ParseRequests(tenantID string, reqs []*domain.TransactionRequest) ([]*domain.Transaction, error) {
	txs := make([]*domain.Transaction, 0, len(reqs))
	for i, req := range reqs {
		tx, err := ParseRequest(tenantID, req)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func missingFields(req *domain.TransactionRequest) []string {
	var missing []string
	check := func(name, v string) {
		if v == "" {
			missing = append(missing, name)
		}
	}
	check("senderAccount", req.SenderAccount)
	check("receiverAccount", req.ReceiverAccount)
	check("paymentCurrency", req.PaymentCurrency)
	check("receivedCurrency", req.ReceivedCurrency)
	check("senderLocation", req.SenderLocation)
	check("receiverLocation", req.ReceiverLocation)
	check("paymentType", req.PaymentType)
	check("date", req.Date)
	check("time", req.Time)
	return missing
}
