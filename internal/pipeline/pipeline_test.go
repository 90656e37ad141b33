package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/bus"
	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/dataset"
	"github.com/opensource-finance/harrier/internal/detector"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/predictor"
	"github.com/opensource-finance/harrier/internal/profiler"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/store"
	"github.com/opensource-finance/harrier/internal/velocity"
)

func newTestService(t *testing.T) (*Service, domain.Repository, domain.EventBus) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "harrier-pipeline-*.db")
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

	cfg := domain.DefaultConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	lru := cache.NewLRUCache(1000)
	channelBus := bus.NewChannelBus(1000)
	t.Cleanup(func() { channelBus.Close() })

	prof := profiler.New(cfg.Scoring, logger)
	det := detector.New(cfg.Detection, logger)
	pred := predictor.New(cfg.Training, cfg.Scoring, store.NewRepo(repo), logger)
	vel := velocity.NewService(repo, lru)

	svc := New(cfg, repo, lru, channelBus, prof, det, pred, vel, logger)
	return svc, repo, channelBus
}

func validRequest() *domain.TransactionRequest {
	return &domain.TransactionRequest{
		SenderAccount:    "ACC0001",
		ReceiverAccount:  "ACC0002",
		Amount:           9500,
		PaymentCurrency:  "USD",
		ReceivedCurrency: "AED",
		SenderLocation:   "US-NY",
		ReceiverLocation: "AE-DXB",
		PaymentType:      "Wire",
		Date:             "2024-03-15",
		Time:             "23:45:00",
	}
}

func TestIngest(t *testing.T) {
	svc, repo, channelBus := newTestService(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	var events atomic.Int32
	_, err := channelBus.Subscribe(ctx, tenantID, domain.TopicTransactionIngested, func(ctx context.Context, msg *domain.Message) error {
		events.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	tx, err := svc.Ingest(ctx, tenantID, validRequest())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if tx.ID == "" {
		t.Error("expected generated transaction ID")
	}

	count, err := repo.CountTransactions(ctx, tenantID)
	if err != nil {
		t.Fatalf("CountTransactions failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 stored transaction, got %d", count)
	}

	// Event delivery is asynchronous
	deadline := time.Now().Add(time.Second)
	for events.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if events.Load() != 1 {
		t.Errorf("expected 1 ingest event, got %d", events.Load())
	}
}

func TestIngestRejectsBadRequest(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	req := validRequest()
	req.SenderAccount = ""

	_, err := svc.Ingest(ctx, tenantID, req)
	if !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}

	count, _ := repo.CountTransactions(ctx, tenantID)
	if count != 0 {
		t.Errorf("expected no stored transactions, got %d", count)
	}
}

func TestIngestBatchRejectsWholeBatch(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	bad := validRequest()
	bad.Date = "not-a-date"

	_, err := svc.IngestBatch(ctx, tenantID, []*domain.TransactionRequest{validRequest(), bad})
	if !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}

	count, _ := repo.CountTransactions(ctx, tenantID)
	if count != 0 {
		t.Errorf("expected no stored transactions after rejected batch, got %d", count)
	}
}

func TestGenerateSynthetic(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	n, err := svc.GenerateSynthetic(ctx, tenantID, 200, 7, dataset.Options{})
	if err != nil {
		t.Fatalf("GenerateSynthetic failed: %v", err)
	}
	if n != 200 {
		t.Errorf("expected 200 generated transactions, got %d", n)
	}

	count, _ := repo.CountTransactions(ctx, tenantID)
	if count != 200 {
		t.Errorf("expected 200 stored transactions, got %d", count)
	}
}

func TestRunAnalysis(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	if _, err := svc.GenerateSynthetic(ctx, tenantID, 300, 7, dataset.Options{}); err != nil {
		t.Fatalf("GenerateSynthetic failed: %v", err)
	}

	run, err := svc.RunAnalysis(ctx, tenantID)
	if err != nil {
		t.Fatalf("RunAnalysis failed: %v", err)
	}

	if run.Transactions != 300 {
		t.Errorf("expected 300 transactions in run, got %d", run.Transactions)
	}
	if run.Profiles == 0 {
		t.Error("expected profiles to be computed")
	}
	if run.Anomalies == 0 {
		t.Error("expected anomalies on synthetic data")
	}
	if len(run.Passes) != 3 {
		t.Errorf("expected 3 detection passes, got %d", len(run.Passes))
	}

	total := 0
	for _, n := range run.RiskDistribution {
		total += n
	}
	if total != run.Profiles {
		t.Errorf("risk distribution sums to %d, expected %d", total, run.Profiles)
	}

	// Run summary must be retrievable
	stored, err := repo.GetAnalysisRun(ctx, tenantID, run.ID)
	if err != nil {
		t.Fatalf("GetAnalysisRun failed: %v", err)
	}
	if stored.Transactions != run.Transactions {
		t.Errorf("stored run mismatch: %d vs %d", stored.Transactions, run.Transactions)
	}

	// Profiles and anomalies are swapped into the repository
	profiles, err := repo.ListProfiles(ctx, tenantID, "")
	if err != nil {
		t.Fatalf("ListProfiles failed: %v", err)
	}
	if len(profiles) != run.Profiles {
		t.Errorf("expected %d stored profiles, got %d", run.Profiles, len(profiles))
	}

	anomalies, err := repo.ListAnomalies(ctx, tenantID)
	if err != nil {
		t.Fatalf("ListAnomalies failed: %v", err)
	}
	if len(anomalies) != run.Anomalies {
		t.Errorf("expected %d stored anomalies, got %d", run.Anomalies, len(anomalies))
	}
}

func TestRunAnalysisNoData(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.RunAnalysis(context.Background(), "tenant-001")
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestTrainPredictAndReport(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	if _, err := svc.GenerateSynthetic(ctx, tenantID, 400, 11, dataset.Options{}); err != nil {
		t.Fatalf("GenerateSynthetic failed: %v", err)
	}

	rep, err := svc.Train(ctx, tenantID)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if rep.Selected == "" {
		t.Error("expected a selected model")
	}
	if len(rep.Candidates) != 2 {
		t.Errorf("expected 2 candidate models, got %d", len(rep.Candidates))
	}

	pred, err := svc.Predict(ctx, tenantID, validRequest())
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if pred.Probability < 0 || pred.Probability > 1 {
		t.Errorf("probability %v out of [0,1]", pred.Probability)
	}
	if pred.RiskScore < 0 || pred.RiskScore > 100 {
		t.Errorf("risk score %v out of [0,100]", pred.RiskScore)
	}

	// Save and restore round-trips the active model
	if err := svc.SaveModel(ctx, tenantID, "default"); err != nil {
		t.Fatalf("SaveModel failed: %v", err)
	}
	restored, err := svc.RestoreModel(ctx, tenantID, "default")
	if err != nil {
		t.Fatalf("RestoreModel failed: %v", err)
	}
	if restored.Selected != rep.Selected {
		t.Errorf("restored model %q differs from trained %q", restored.Selected, rep.Selected)
	}

	// The report requires an analysis run and carries the training section
	if _, err := svc.RunAnalysis(ctx, tenantID); err != nil {
		t.Fatalf("RunAnalysis failed: %v", err)
	}

	report, err := svc.Report(ctx, tenantID)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if report.Run == nil {
		t.Fatal("expected run in report")
	}
	if report.Training == nil {
		t.Error("expected training section after Train")
	}
	if len(report.TopAccounts) == 0 {
		t.Error("expected ranked accounts in report")
	}
}

func TestEnsureModel(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	if _, err := svc.GenerateSynthetic(ctx, tenantID, 400, 11, dataset.Options{}); err != nil {
		t.Fatalf("GenerateSynthetic failed: %v", err)
	}

	// Empty store: trains and saves
	rep, restored, err := svc.EnsureModel(ctx, tenantID, "default")
	if err != nil {
		t.Fatalf("EnsureModel failed: %v", err)
	}
	if restored {
		t.Error("expected a fresh train on an empty store")
	}
	if rep.Selected == "" {
		t.Error("expected a selected model")
	}

	// Second call: the saved bundle wins
	rep2, restored, err := svc.EnsureModel(ctx, tenantID, "default")
	if err != nil {
		t.Fatalf("EnsureModel (second) failed: %v", err)
	}
	if !restored {
		t.Error("expected a restore once the bundle exists")
	}
	if rep2.Selected != rep.Selected {
		t.Errorf("restored model %q differs from trained %q", rep2.Selected, rep.Selected)
	}
}

func TestPredictWithoutModel(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Predict(context.Background(), "tenant-001", validRequest())
	if !errors.Is(err, domain.ErrModelNotTrained) {
		t.Fatalf("expected ErrModelNotTrained, got %v", err)
	}
}
