package dataset

import (
	"errors"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

func validRequest() *domain.TransactionRequest {
	return &domain.TransactionRequest{
		SenderAccount:    "ACC0001",
		ReceiverAccount:  "ACC0002",
		Amount:           2500,
		PaymentCurrency:  "USD",
		ReceivedCurrency: "USD",
		SenderLocation:   "US-NY",
		ReceiverLocation: "UK-LDN",
		PaymentType:      "Wire",
		Date:             "2024-03-15",
		Time:             "14:30:00",
	}
}

func TestParseRequest(t *testing.T) {
	tx, err := ParseRequest("tenant-1", validRequest())
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	if tx.ID == "" {
		t.Error("expected generated transaction ID")
	}
	if tx.TenantID != "tenant-1" {
		t.Errorf("expected tenant-1, got %s", tx.TenantID)
	}
	if !tx.CrossBorder() {
		t.Error("US-NY -> UK-LDN should be cross-border")
	}
	if got := tx.Timestamp.Format("2006-01-02 15:04:05"); got != "2024-03-15 14:30:00" {
		t.Errorf("unexpected timestamp: %s", got)
	}
	if tx.Labeled() {
		t.Error("request without label should produce unlabeled transaction")
	}
}

func TestParseRequestMissingField(t *testing.T) {
	req := validRequest()
	req.SenderAccount = ""
	if _, err := ParseRequest("tenant-1", req); !errors.Is(err, domain.ErrSchema) {
		t.Errorf("expected ErrSchema, got %v", err)
	}
}

func TestParseRequestBadDate(t *testing.T) {
	req := validRequest()
	req.Date = "15/03/2024"
	if _, err := ParseRequest("tenant-1", req); !errors.Is(err, domain.ErrSchema) {
		t.Errorf("expected ErrSchema, got %v", err)
	}
}

func TestParseRequestBadLabel(t *testing.T) {
	req := validRequest()
	bad := 2
	req.Label = &bad
	if _, err := ParseRequest("tenant-1", req); !errors.Is(err, domain.ErrSchema) {
		t.Errorf("expected ErrSchema, got %v", err)
	}
}

func TestParseRequestsRejectsWholeBatch(t *testing.T) {
	good := validRequest()
	bad := validRequest()
	bad.Time = "25:99:00"

	txs, err := ParseRequests("tenant-1", []*domain.TransactionRequest{good, bad})
	if !errors.Is(err, domain.ErrSchema) {
		t.Errorf("expected ErrSchema, got %v", err)
	}
	if txs != nil {
		t.Error("expected no partial batch on schema error")
	}
}

func TestGeneratorDeterministic(t *testing.T) {
	a := NewGenerator(42).Generate("tenant-1", 200, Options{})
	b := NewGenerator(42).Generate("tenant-1", 200, Options{})

	if len(a) != 200 || len(b) != 200 {
		t.Fatalf("expected 200 transactions, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i].SenderAccount != b[i].SenderAccount ||
			a[i].Amount != b[i].Amount ||
			!a[i].Timestamp.Equal(b[i].Timestamp) ||
			*a[i].Label != *b[i].Label {
			t.Fatalf("row %d differs between runs with the same seed", i)
		}
	}
}

func TestGeneratorShape(t *testing.T) {
	txs := NewGenerator(42).Generate("tenant-1", 500, Options{})

	suspicious := 0
	for _, tx := range txs {
		if !tx.Labeled() {
			t.Fatal("synthetic transactions must all be labeled")
		}
		if tx.SenderAccount == tx.ReceiverAccount {
			t.Fatalf("self-transfer generated: %s", tx.SenderAccount)
		}
		if tx.Amount <= 0 {
			t.Fatalf("non-positive amount: %v", tx.Amount)
		}
		if tx.Suspicious() {
			suspicious++
			if tx.LaunderingType == "" {
				t.Error("suspicious row missing laundering type")
			}
		} else if tx.LaunderingType != "" {
			t.Errorf("clean row carries laundering type %s", tx.LaunderingType)
		}
	}
	// About 15% of rows should be suspicious; allow a generous band.
	if suspicious < 40 || suspicious > 120 {
		t.Errorf("suspicious count %d outside expected band for 500 rows", suspicious)
	}
}

func TestGeneratorOptions(t *testing.T) {
	t.Run("laundering rate", func(t *testing.T) {
		txs := NewGenerator(42).Generate("tenant-1", 500, Options{LaunderingRate: 0.5})

		suspicious := 0
		for _, tx := range txs {
			if tx.Suspicious() {
				suspicious++
			}
		}
		// Half the rows should be suspicious; allow a generous band.
		if suspicious < 200 || suspicious > 300 {
			t.Errorf("suspicious count %d outside expected band for rate 0.5", suspicious)
		}
	})

	t.Run("all cross-border", func(t *testing.T) {
		txs := NewGenerator(42).Generate("tenant-1", 200, Options{CrossBorderRate: 1.0})
		for _, tx := range txs {
			if !tx.CrossBorder() {
				t.Fatalf("domestic row generated at cross-border rate 1.0: %s -> %s",
					tx.SenderLocation, tx.ReceiverLocation)
			}
		}
	})

	t.Run("cross-border fraction", func(t *testing.T) {
		txs := NewGenerator(42).Generate("tenant-1", 500, Options{CrossBorderRate: 0.2})

		crossBorder := 0
		for _, tx := range txs {
			if tx.CrossBorder() {
				crossBorder++
			}
		}
		if crossBorder < 60 || crossBorder > 140 {
			t.Errorf("cross-border count %d outside expected band for rate 0.2", crossBorder)
		}
	})
}
