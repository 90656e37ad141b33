package velocity

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/repository"
)

func newTestService(t *testing.T) (*Service, domain.Repository) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "harrier-velocity-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return NewService(repo, cache.NewLRUCache(100)), repo
}

func seedTransactions(t *testing.T, repo domain.Repository, tenantID, account string, n int, age time.Duration) {
	t.Helper()
	ctx := context.Background()
	ts := time.Now().UTC().Add(-age)
	for i := 0; i < n; i++ {
		tx := &domain.Transaction{
			ID:               fmt.Sprintf("tx-%s-%d-%d", account, age/time.Second, i),
			TenantID:         tenantID,
			SenderAccount:    account,
			ReceiverAccount:  "ACC-OTHER",
			Amount:           100,
			PaymentCurrency:  "USD",
			ReceivedCurrency: "USD",
			SenderLocation:   "US-NY",
			ReceiverLocation: "US-SF",
			PaymentType:      "Wire",
			Timestamp:        ts,
			CreatedAt:        time.Now().UTC(),
		}
		if err := repo.SaveTransaction(ctx, tenantID, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}
	}
}

func TestGetTransactionCount(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	// 3 recent, 2 outside the window
	seedTransactions(t, repo, tenantID, "ACC0001", 3, 5*time.Minute)
	seedTransactions(t, repo, tenantID, "ACC0001", 2, 2*time.Hour)

	count, err := svc.GetTransactionCount(ctx, tenantID, "ACC0001", 3600)
	if err != nil {
		t.Fatalf("GetTransactionCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 transactions inside the window, got %d", count)
	}

	// Widening the window picks up the older rows
	count, err = svc.GetTransactionCount(ctx, tenantID, "ACC0001", 3*3600)
	if err != nil {
		t.Fatalf("GetTransactionCount failed: %v", err)
	}
	if count != 5 {
		t.Errorf("expected 5 transactions inside the wider window, got %d", count)
	}
}

func TestGetTransactionCountValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.GetTransactionCount(ctx, "", "ACC0001", 3600); err == nil {
		t.Error("expected error for empty tenantID")
	}
	if _, err := svc.GetTransactionCount(ctx, "tenant-001", "", 3600); err == nil {
		t.Error("expected error for empty account")
	}
}

func TestGetTransactionCountTenantIsolation(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	seedTransactions(t, repo, "tenant-a", "ACC0001", 4, time.Minute)

	count, err := svc.GetTransactionCount(ctx, "tenant-b", "ACC0001", 3600)
	if err != nil {
		t.Fatalf("GetTransactionCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 transactions for other tenant, got %d", count)
	}
}

func TestGetTransactionCountUsesRecordedCounter(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	// Counter rows come from ingest; the repository stays empty so a
	// repo-backed count would return 0.
	for i := 0; i < 3; i++ {
		if _, err := svc.Record(ctx, tenantID, "ACC0001", DefaultWindow); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	count, err := svc.GetTransactionCount(ctx, tenantID, "ACC0001", int(DefaultWindow.Seconds()))
	if err != nil {
		t.Fatalf("GetTransactionCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected counter value 3, got %d", count)
	}

	// A non-default window cannot be served by the counter and counts
	// repository rows instead.
	seedTransactions(t, repo, tenantID, "ACC0001", 2, time.Minute)
	count, err = svc.GetTransactionCount(ctx, tenantID, "ACC0001", 600)
	if err != nil {
		t.Fatalf("GetTransactionCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 repository rows for the 10m window, got %d", count)
	}
}

func TestRecord(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	for want := int64(1); want <= 3; want++ {
		got, err := svc.Record(ctx, tenantID, "ACC0001", time.Hour)
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if got != want {
			t.Errorf("expected counter %d, got %d", want, got)
		}
	}

	// Another account keeps its own counter
	got, err := svc.Record(ctx, tenantID, "ACC0002", time.Hour)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if got != 1 {
		t.Errorf("expected fresh counter 1, got %d", got)
	}
}

func TestRecordWithoutCache(t *testing.T) {
	svc := NewService(nil, nil)

	got, err := svc.Record(context.Background(), "tenant-001", "ACC0001", time.Hour)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if got != 0 {
		t.Errorf("expected 0 without a cache, got %d", got)
	}
}
