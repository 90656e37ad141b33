// Package pipeline orchestrates the analysis flow: ingest, profiling,
// anomaly detection, supervised training, and reporting.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/dataset"
	"github.com/opensource-finance/harrier/internal/detector"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/predictor"
	"github.com/opensource-finance/harrier/internal/profiler"
	"github.com/opensource-finance/harrier/internal/report"
	"github.com/opensource-finance/harrier/internal/velocity"
)

// profileTTL bounds how long cached profiles are served between runs.
const profileTTL = 30 * time.Minute

// Service wires the analysis components behind a single orchestration API.
type Service struct {
	cfg      *domain.Config
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	profiler *profiler.Profiler
	detector *detector.Detector
	pred     *predictor.Predictor
	velocity *velocity.Service
	reports  *report.Builder
	logger   *slog.Logger
}

// New creates the pipeline service.
func New(
	cfg *domain.Config,
	repo domain.Repository,
	cache domain.Cache,
	bus domain.EventBus,
	prof *profiler.Profiler,
	det *detector.Detector,
	pred *predictor.Predictor,
	vel *velocity.Service,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		repo:     repo,
		cache:    cache,
		bus:      bus,
		profiler: prof,
		detector: det,
		pred:     pred,
		velocity: vel,
		reports:  report.NewBuilder(repo),
		logger:   logger,
	}
}

// Ingest validates, persists, and announces one transaction.
func (s *Service) Ingest(ctx context.Context, tenantID string, req *domain.TransactionRequest) (*domain.Transaction, error) {
	tx, err := dataset.ParseRequest(tenantID, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveTransaction(ctx, tenantID, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	if s.velocity != nil {
		if _, err := s.velocity.Record(ctx, tenantID, tx.SenderAccount, velocity.DefaultWindow); err != nil {
			s.logger.Warn("velocity record failed",
				"tenant_id", tenantID,
				"account", tx.SenderAccount,
				"error", err,
			)
		}
	}

	s.publish(ctx, tenantID, domain.TopicTransactionIngested, tx)

	s.logger.Info("transaction ingested",
		"tenant_id", tenantID,
		"tx_id", tx.ID,
		"amount", tx.Amount,
	)
	return tx, nil
}

// IngestBatch validates and persists a batch atomically. A single bad row
// rejects the whole batch.
func (s *Service) IngestBatch(ctx context.Context, tenantID string, reqs []*domain.TransactionRequest) ([]*domain.Transaction, error) {
	txs, err := dataset.ParseRequests(tenantID, reqs)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveTransactions(ctx, tenantID, txs); err != nil {
		return nil, fmt.Errorf("failed to save transactions: %w", err)
	}

	for _, tx := range txs {
		s.publish(ctx, tenantID, domain.TopicTransactionIngested, tx)
	}

	s.logger.Info("transaction batch ingested",
		"tenant_id", tenantID,
		"count", len(txs),
	)
	return txs, nil
}

// GenerateSynthetic seeds the tenant with a deterministic synthetic dataset.
// Zero-valued options fall back to the generator defaults.
func (s *Service) GenerateSynthetic(ctx context.Context, tenantID string, count int, seed int64, opts dataset.Options) (int, error) {
	if count <= 0 {
		count = 1000
	}

	gen := dataset.NewGenerator(seed)
	txs := gen.Generate(tenantID, count, opts)

	if err := s.repo.SaveTransactions(ctx, tenantID, txs); err != nil {
		return 0, fmt.Errorf("failed to save synthetic transactions: %w", err)
	}

	s.logger.Info("synthetic dataset generated",
		"tenant_id", tenantID,
		"count", len(txs),
		"seed", seed,
	)
	return len(txs), nil
}

// RunAnalysis executes a full profiling and detection pass over the
// tenant's transaction table and records the run summary.
func (s *Service) RunAnalysis(ctx context.Context, tenantID string) (*domain.AnalysisRun, error) {
	start := time.Now()

	txs, err := s.repo.ListTransactions(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(txs) == 0 {
		return nil, fmt.Errorf("no transactions to analyze: %w", domain.ErrInsufficientData)
	}

	// Profiling pass: full recompute, then snapshot swap.
	profiles := s.profiler.Profile(tenantID, txs)
	if err := s.repo.ReplaceProfiles(ctx, tenantID, profiles); err != nil {
		return nil, fmt.Errorf("failed to store profiles: %w", err)
	}

	distribution := map[string]int{
		domain.RiskLow:    0,
		domain.RiskMedium: 0,
		domain.RiskHigh:   0,
	}
	for _, p := range profiles {
		distribution[p.RiskCategory]++
		if s.cache != nil {
			if err := s.cache.SetProfile(ctx, tenantID, p, profileTTL); err != nil {
				s.logger.Warn("profile cache write failed",
					"tenant_id", tenantID,
					"account", p.Account,
					"error", err,
				)
			}
		}
	}

	// Detection pass: snapshot swap of the flagged set.
	result := s.detector.Detect(tenantID, txs)
	if err := s.repo.ReplaceAnomalies(ctx, tenantID, result.Anomalies); err != nil {
		return nil, fmt.Errorf("failed to store anomalies: %w", err)
	}

	for _, anomaly := range result.Anomalies {
		s.publish(ctx, tenantID, domain.TopicAnomalyFlagged, anomaly)
	}

	run := &domain.AnalysisRun{
		ID:               uuid.New().String(),
		TenantID:         tenantID,
		StartedAt:        start.UTC(),
		Duration:         time.Since(start).Milliseconds(),
		Transactions:     len(txs),
		Profiles:         len(profiles),
		Anomalies:        len(result.Anomalies),
		RiskDistribution: distribution,
		Passes:           result.Passes,
	}

	if err := s.repo.SaveAnalysisRun(ctx, tenantID, run); err != nil {
		return nil, fmt.Errorf("failed to save analysis run: %w", err)
	}

	s.publish(ctx, tenantID, domain.TopicAnalysisCompleted, run)

	s.logger.Info("analysis completed",
		"tenant_id", tenantID,
		"run_id", run.ID,
		"transactions", run.Transactions,
		"profiles", run.Profiles,
		"anomalies", run.Anomalies,
		"duration_ms", run.Duration,
	)
	return run, nil
}

// Train fits both classifiers on the tenant's labeled transactions and
// activates the better one.
func (s *Service) Train(ctx context.Context, tenantID string) (*domain.TrainingReport, error) {
	txs, err := s.repo.ListTransactions(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	rep, err := s.pred.Train(ctx, tenantID, txs)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, tenantID, domain.TopicModelTrained, rep)
	return rep, nil
}

// Predict scores one transaction against the active model.
func (s *Service) Predict(ctx context.Context, tenantID string, req *domain.TransactionRequest) (*predictor.Prediction, error) {
	tx, err := dataset.ParseRequest(tenantID, req)
	if err != nil {
		return nil, err
	}
	return s.pred.Predict(ctx, tenantID, tx)
}

// SaveModel persists the active model bundle under the given key.
func (s *Service) SaveModel(ctx context.Context, tenantID, key string) error {
	return s.pred.Save(ctx, tenantID, key)
}

// RestoreModel loads a stored bundle and makes it the active model.
func (s *Service) RestoreModel(ctx context.Context, tenantID, key string) (*domain.TrainingReport, error) {
	rep, err := s.pred.Restore(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, tenantID, domain.TopicModelTrained, rep)
	return rep, nil
}

// EnsureModel restores the stored bundle under the key when one exists,
// otherwise trains on the tenant's transactions and saves the result. The
// returned flag reports whether the model came from the store.
func (s *Service) EnsureModel(ctx context.Context, tenantID, key string) (*domain.TrainingReport, bool, error) {
	exists, err := s.pred.Exists(ctx, tenantID, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check model store: %w", err)
	}

	if exists {
		rep, err := s.RestoreModel(ctx, tenantID, key)
		if err != nil {
			return nil, false, err
		}
		return rep, true, nil
	}

	rep, err := s.Train(ctx, tenantID)
	if err != nil {
		return nil, false, err
	}
	if err := s.pred.Save(ctx, tenantID, key); err != nil {
		return nil, false, fmt.Errorf("failed to save trained model: %w", err)
	}
	return rep, false, nil
}

// Report builds the analysis report for the tenant's latest run.
func (s *Service) Report(ctx context.Context, tenantID string) (*domain.AnalysisReport, error) {
	return s.reports.Build(ctx, tenantID, s.pred.ActiveReport())
}

// publish sends a JSON event, logging instead of failing the operation on
// bus errors.
func (s *Service) publish(ctx context.Context, tenantID, topic string, payload any) {
	if s.bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal event payload",
			"tenant_id", tenantID,
			"topic", topic,
			"error", err,
		)
		return
	}
	if err := s.bus.Publish(ctx, tenantID, topic, data); err != nil {
		s.logger.Warn("event publish failed",
			"tenant_id", tenantID,
			"topic", topic,
			"error", err,
		)
	}
}
