package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestSQLiteRepository(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "harrier-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	tenantID := "tenant-001"
	ts := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

	label := 1

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetTransaction", func(t *testing.T) {
		tx := &domain.Transaction{
			ID:               "tx-001",
			SenderAccount:    "ACC0001",
			ReceiverAccount:  "ACC0002",
			Amount:           9500,
			PaymentCurrency:  "USD",
			ReceivedCurrency: "AED",
			SenderLocation:   "US-NY",
			ReceiverLocation: "AE-DXB",
			PaymentType:      "Wire",
			Timestamp:        ts,
			CreatedAt:        time.Now().UTC(),
			Label:            &label,
			LaunderingType:   "Structuring",
		}

		if err := repo.SaveTransaction(ctx, tenantID, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}

		got, err := repo.GetTransaction(ctx, tenantID, "tx-001")
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}
		if got.SenderAccount != "ACC0001" || got.Amount != 9500 {
			t.Errorf("unexpected transaction: %+v", got)
		}
		if got.Label == nil || *got.Label != 1 {
			t.Errorf("label lost on round-trip: %v", got.Label)
		}
		if got.LaunderingType != "Structuring" {
			t.Errorf("laundering type lost: %q", got.LaunderingType)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		_, err := repo.GetTransaction(ctx, "other-tenant", "tx-001")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for other tenant, got %v", err)
		}
	})

	t.Run("SaveTransactionsBatch", func(t *testing.T) {
		batch := []*domain.Transaction{
			{
				ID: "tx-002", SenderAccount: "ACC0002", ReceiverAccount: "ACC0003",
				Amount: 500, PaymentCurrency: "USD", ReceivedCurrency: "USD",
				SenderLocation: "US-NY", ReceiverLocation: "US-NY", PaymentType: "ACH",
				Timestamp: ts.Add(time.Hour), CreatedAt: time.Now().UTC(),
			},
			{
				ID: "tx-003", SenderAccount: "ACC0001", ReceiverAccount: "ACC0003",
				Amount: 750, PaymentCurrency: "USD", ReceivedCurrency: "USD",
				SenderLocation: "US-NY", ReceiverLocation: "US-NY", PaymentType: "Card",
				Timestamp: ts.Add(2 * time.Hour), CreatedAt: time.Now().UTC(),
			},
		}
		if err := repo.SaveTransactions(ctx, tenantID, batch); err != nil {
			t.Fatalf("SaveTransactions failed: %v", err)
		}

		count, err := repo.CountTransactions(ctx, tenantID)
		if err != nil {
			t.Fatalf("CountTransactions failed: %v", err)
		}
		if count != 3 {
			t.Errorf("expected 3 transactions, got %d", count)
		}

		all, err := repo.ListTransactions(ctx, tenantID)
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if len(all) != 3 || all[0].ID != "tx-001" {
			t.Errorf("expected timestamp order starting at tx-001, got %d rows", len(all))
		}
	})

	t.Run("GetTransactionsByAccount", func(t *testing.T) {
		txs, err := repo.GetTransactionsByAccount(ctx, tenantID, "ACC0001", ts.Add(-time.Hour))
		if err != nil {
			t.Fatalf("GetTransactionsByAccount failed: %v", err)
		}
		if len(txs) != 2 {
			t.Errorf("expected 2 transactions touching ACC0001, got %d", len(txs))
		}
	})

	t.Run("ReplaceAndListProfiles", func(t *testing.T) {
		profiles := []*domain.CustomerProfile{
			{Account: "ACC0001", TenantID: tenantID, TotalTransactions: 2, TotalVolume: 10250, RiskScore: 80, RiskCategory: domain.RiskHigh},
			{Account: "ACC0002", TenantID: tenantID, TotalTransactions: 2, TotalVolume: 10000, RiskScore: 20, RiskCategory: domain.RiskLow},
		}
		if err := repo.ReplaceProfiles(ctx, tenantID, profiles); err != nil {
			t.Fatalf("ReplaceProfiles failed: %v", err)
		}

		got, err := repo.GetProfile(ctx, tenantID, "ACC0001")
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if got.RiskScore != 80 || got.RiskCategory != domain.RiskHigh {
			t.Errorf("unexpected profile: %+v", got)
		}

		high, err := repo.ListProfiles(ctx, tenantID, domain.RiskHigh)
		if err != nil {
			t.Fatalf("ListProfiles failed: %v", err)
		}
		if len(high) != 1 || high[0].Account != "ACC0001" {
			t.Errorf("expected only ACC0001 in HIGH, got %d rows", len(high))
		}

		// a second replace swaps the snapshot wholesale
		if err := repo.ReplaceProfiles(ctx, tenantID, profiles[:1]); err != nil {
			t.Fatalf("second ReplaceProfiles failed: %v", err)
		}
		all, _ := repo.ListProfiles(ctx, tenantID, "")
		if len(all) != 1 {
			t.Errorf("expected 1 profile after replace, got %d", len(all))
		}
	})

	t.Run("ReplaceAndListAnomalies", func(t *testing.T) {
		anomalies := []*domain.AnomalyRecord{
			{
				ID: "an-001", TenantID: tenantID, TxID: "tx-001",
				Sources:        []string{domain.SourceIsolationForest, domain.SourceTimeBased},
				IsolationScore: 0.8, OffHours: true,
				CompositeScore: 0.6, RiskScore: 60, DetectedAt: time.Now().UTC(),
			},
			{
				ID: "an-002", TenantID: tenantID, TxID: "tx-002",
				Sources:        []string{domain.SourceStatisticalZ},
				AmountZScore:   4.2,
				CompositeScore: 0.21, RiskScore: 21, DetectedAt: time.Now().UTC(),
			},
		}
		if err := repo.ReplaceAnomalies(ctx, tenantID, anomalies); err != nil {
			t.Fatalf("ReplaceAnomalies failed: %v", err)
		}

		got, err := repo.ListAnomalies(ctx, tenantID)
		if err != nil {
			t.Fatalf("ListAnomalies failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 anomalies, got %d", len(got))
		}
		if got[0].ID != "an-001" {
			t.Errorf("expected highest composite first, got %s", got[0].ID)
		}
		if !got[0].OffHours || !got[0].FlaggedBy(domain.SourceTimeBased) {
			t.Errorf("anomaly fields lost on round-trip: %+v", got[0])
		}
	})

	t.Run("RuleConfigLifecycle", func(t *testing.T) {
		lower := 1.0
		rule := &domain.RuleConfig{
			ID: "rule-001", Name: "Test Rule", Version: "1.0",
			Expression: "amount > 1000.0",
			Bands:      []domain.RuleBand{{LowerLimit: &lower, SubRuleRef: domain.RuleOutcomeFail, Reason: "hit"}},
			Weight:     1.0, Enabled: true,
		}
		if err := repo.SaveRuleConfig(ctx, tenantID, rule); err != nil {
			t.Fatalf("SaveRuleConfig failed: %v", err)
		}

		got, err := repo.GetRuleConfig(ctx, tenantID, "rule-001")
		if err != nil {
			t.Fatalf("GetRuleConfig failed: %v", err)
		}
		if got.Expression != "amount > 1000.0" || len(got.Bands) != 1 {
			t.Errorf("unexpected rule: %+v", got)
		}

		rules, err := repo.ListRuleConfigs(ctx, tenantID)
		if err != nil {
			t.Fatalf("ListRuleConfigs failed: %v", err)
		}
		if len(rules) != 1 {
			t.Errorf("expected 1 rule, got %d", len(rules))
		}

		if err := repo.DeleteRuleConfig(ctx, tenantID, "rule-001"); err != nil {
			t.Fatalf("DeleteRuleConfig failed: %v", err)
		}
		if _, err := repo.GetRuleConfig(ctx, tenantID, "rule-001"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("RuleResults", func(t *testing.T) {
		res := &domain.RuleResult{
			RuleID: "rule-001", TenantID: tenantID, TxID: "tx-001",
			SubRuleRef: domain.RuleOutcomeFail, Score: 1, Reason: "hit", Weight: 1, ProcessMs: 2,
		}
		if err := repo.SaveRuleResult(ctx, tenantID, res); err != nil {
			t.Fatalf("SaveRuleResult failed: %v", err)
		}
		got, err := repo.ListRuleResults(ctx, tenantID, "tx-001")
		if err != nil {
			t.Fatalf("ListRuleResults failed: %v", err)
		}
		if len(got) != 1 || got[0].SubRuleRef != domain.RuleOutcomeFail {
			t.Errorf("unexpected rule results: %+v", got)
		}
	})

	t.Run("ModelBundles", func(t *testing.T) {
		if _, err := repo.GetModelBundle(ctx, tenantID, "default"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		payload := []byte(`{"id":"bundle-1"}`)
		if err := repo.SaveModelBundle(ctx, tenantID, "default", payload); err != nil {
			t.Fatalf("SaveModelBundle failed: %v", err)
		}

		ok, err := repo.ModelBundleExists(ctx, tenantID, "default")
		if err != nil || !ok {
			t.Errorf("expected bundle to exist, ok=%v err=%v", ok, err)
		}

		got, err := repo.GetModelBundle(ctx, tenantID, "default")
		if err != nil {
			t.Fatalf("GetModelBundle failed: %v", err)
		}
		if string(got) != string(payload) {
			t.Errorf("payload lost on round-trip: %s", got)
		}

		// upsert replaces the payload
		if err := repo.SaveModelBundle(ctx, tenantID, "default", []byte(`{"id":"bundle-2"}`)); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		got, _ = repo.GetModelBundle(ctx, tenantID, "default")
		if string(got) != `{"id":"bundle-2"}` {
			t.Errorf("upsert did not replace payload: %s", got)
		}
	})

	t.Run("AnalysisRuns", func(t *testing.T) {
		run := &domain.AnalysisRun{
			ID: "run-001", TenantID: tenantID,
			StartedAt: time.Now().UTC(), Duration: 125,
			Transactions: 3, Profiles: 2, Anomalies: 2,
			RiskDistribution: map[string]int{domain.RiskHigh: 1, domain.RiskLow: 1},
			Passes:           []domain.PassInfo{{Name: "time_based", Ran: true, Flagged: 1}},
		}
		if err := repo.SaveAnalysisRun(ctx, tenantID, run); err != nil {
			t.Fatalf("SaveAnalysisRun failed: %v", err)
		}

		got, err := repo.GetAnalysisRun(ctx, tenantID, "run-001")
		if err != nil {
			t.Fatalf("GetAnalysisRun failed: %v", err)
		}
		if got.RiskDistribution[domain.RiskHigh] != 1 || len(got.Passes) != 1 {
			t.Errorf("run fields lost on round-trip: %+v", got)
		}

		runs, err := repo.ListAnalysisRuns(ctx, tenantID, 5)
		if err != nil {
			t.Fatalf("ListAnalysisRuns failed: %v", err)
		}
		if len(runs) != 1 {
			t.Errorf("expected 1 run, got %d", len(runs))
		}
	})
}
