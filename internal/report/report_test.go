package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/repository"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "harrier-report-*.db")
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

	return repo
}

func TestBuildReport(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tenantID := "tenant-001"
	ts := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

	suspicious := 1
	clean := 0

	txs := []*domain.Transaction{
		{
			ID:               "tx-001",
			SenderAccount:    "ACC0001",
			ReceiverAccount:  "ACC0002",
			Amount:           1000,
			PaymentCurrency:  "USD",
			ReceivedCurrency: "USD",
			SenderLocation:   "US-NY",
			ReceiverLocation: "US-SF",
			PaymentType:      "ACH",
			Timestamp:        ts,
			CreatedAt:        ts,
			Label:            &clean,
		},
		{
			ID:               "tx-002",
			SenderAccount:    "ACC0003",
			ReceiverAccount:  "ACC0004",
			Amount:           9500,
			PaymentCurrency:  "USD",
			ReceivedCurrency: "AED",
			SenderLocation:   "US-NY",
			ReceiverLocation: "AE-DXB",
			PaymentType:      "Wire",
			Timestamp:        ts,
			CreatedAt:        ts,
			Label:            &suspicious,
			LaunderingType:   "Structuring",
		},
		{
			ID:               "tx-003",
			SenderAccount:    "ACC0001",
			ReceiverAccount:  "ACC0003",
			Amount:           500,
			PaymentCurrency:  "EUR",
			ReceivedCurrency: "EUR",
			SenderLocation:   "DE-BER",
			ReceiverLocation: "DE-MUC",
			PaymentType:      "Card",
			Timestamp:        ts,
			CreatedAt:        ts,
			Label:            &clean,
		},
	}
	if err := repo.SaveTransactions(ctx, tenantID, txs); err != nil {
		t.Fatalf("SaveTransactions failed: %v", err)
	}

	profiles := []*domain.CustomerProfile{
		{Account: "ACC0001", TenantID: tenantID, TotalTransactions: 2, TotalVolume: 1500, RiskScore: 25, RiskCategory: domain.RiskLow},
		{Account: "ACC0002", TenantID: tenantID, TotalTransactions: 1, TotalVolume: 1000, RiskScore: 80, RiskCategory: domain.RiskHigh},
		{Account: "ACC0003", TenantID: tenantID, TotalTransactions: 2, TotalVolume: 10000, RiskScore: 55, RiskCategory: domain.RiskMedium},
	}
	if err := repo.ReplaceProfiles(ctx, tenantID, profiles); err != nil {
		t.Fatalf("ReplaceProfiles failed: %v", err)
	}

	anomalies := []*domain.AnomalyRecord{
		{
			ID:             "an-001",
			TenantID:       tenantID,
			TxID:           "tx-002",
			Sources:        []string{domain.SourceIsolationForest, domain.SourceStatisticalZ},
			IsolationScore: 0.72,
			AmountZScore:   3.4,
			CompositeScore: 0.65,
			RiskScore:      65,
			DetectedAt:     ts,
		},
		{
			ID:             "an-002",
			TenantID:       tenantID,
			TxID:           "tx-003",
			Sources:        []string{domain.SourceTimeBased},
			OffHours:       true,
			CompositeScore: 0.2,
			RiskScore:      20,
			DetectedAt:     ts,
		},
	}
	if err := repo.ReplaceAnomalies(ctx, tenantID, anomalies); err != nil {
		t.Fatalf("ReplaceAnomalies failed: %v", err)
	}

	run := &domain.AnalysisRun{
		ID:           "run-001",
		TenantID:     tenantID,
		StartedAt:    ts,
		Duration:     125,
		Transactions: 3,
		Profiles:     3,
		Anomalies:    2,
		RiskDistribution: map[string]int{
			domain.RiskLow:    1,
			domain.RiskMedium: 1,
			domain.RiskHigh:   1,
		},
	}
	if err := repo.SaveAnalysisRun(ctx, tenantID, run); err != nil {
		t.Fatalf("SaveAnalysisRun failed: %v", err)
	}

	builder := NewBuilder(repo)
	rep, err := builder.Build(ctx, tenantID, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if rep.Run == nil || rep.Run.ID != "run-001" {
		t.Fatalf("expected latest run run-001, got %+v", rep.Run)
	}

	if rep.TotalVolume != 11000 {
		t.Errorf("expected total volume 11000, got %.2f", rep.TotalVolume)
	}
	wantAvg := 11000.0 / 3.0
	if diff := rep.AvgAmount - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected avg amount %.4f, got %.4f", wantAvg, rep.AvgAmount)
	}
	if rep.SuspiciousCount != 1 {
		t.Errorf("expected 1 suspicious transaction, got %d", rep.SuspiciousCount)
	}
	if rep.CrossBorderCount != 1 {
		t.Errorf("expected 1 cross-border transaction, got %d", rep.CrossBorderCount)
	}

	if len(rep.TopAccounts) != 3 {
		t.Fatalf("expected 3 ranked accounts, got %d", len(rep.TopAccounts))
	}
	if rep.TopAccounts[0].Account != "ACC0002" {
		t.Errorf("expected ACC0002 ranked first, got %s", rep.TopAccounts[0].Account)
	}
	if rep.TopAccounts[1].Account != "ACC0003" || rep.TopAccounts[2].Account != "ACC0001" {
		t.Errorf("accounts not sorted by risk score: %+v", rep.TopAccounts)
	}

	if len(rep.TopAnomalies) != 2 {
		t.Fatalf("expected 2 anomalies, got %d", len(rep.TopAnomalies))
	}
	if rep.TopAnomalies[0].TxID != "tx-002" {
		t.Errorf("expected tx-002 ranked first, got %s", rep.TopAnomalies[0].TxID)
	}

	if rep.Training != nil {
		t.Error("expected nil training section when no model is active")
	}
}

func TestBuildReportTopNLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tenantID := "tenant-001"
	ts := time.Now().UTC()

	profiles := make([]*domain.CustomerProfile, 0, 15)
	for i := 0; i < 15; i++ {
		profiles = append(profiles, &domain.CustomerProfile{
			Account:      accountID(i),
			TenantID:     tenantID,
			RiskScore:    float64(i),
			RiskCategory: domain.RiskLow,
		})
	}
	if err := repo.ReplaceProfiles(ctx, tenantID, profiles); err != nil {
		t.Fatalf("ReplaceProfiles failed: %v", err)
	}

	run := &domain.AnalysisRun{
		ID:               "run-001",
		TenantID:         tenantID,
		StartedAt:        ts,
		RiskDistribution: map[string]int{domain.RiskLow: 15},
	}
	if err := repo.SaveAnalysisRun(ctx, tenantID, run); err != nil {
		t.Fatalf("SaveAnalysisRun failed: %v", err)
	}

	builder := NewBuilder(repo)
	builder.TopN = 5

	rep, err := builder.Build(ctx, tenantID, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(rep.TopAccounts) != 5 {
		t.Errorf("expected 5 accounts, got %d", len(rep.TopAccounts))
	}
	// Highest scores first
	if rep.TopAccounts[0].RiskScore != 14 {
		t.Errorf("expected top score 14, got %.0f", rep.TopAccounts[0].RiskScore)
	}
}

func TestBuildReportNoRuns(t *testing.T) {
	repo := newTestRepo(t)

	builder := NewBuilder(repo)
	_, err := builder.Build(context.Background(), "tenant-001", nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func accountID(i int) string {
	return fmt.Sprintf("ACC%04d", i+1)
}
