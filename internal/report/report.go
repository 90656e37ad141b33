// Package report builds tenant-facing analysis reports from the latest
// pipeline run, profile table, and flagged anomalies.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// DefaultTopN limits the ranked listings when the caller does not choose.
const DefaultTopN = 10

// Builder assembles an AnalysisReport from repository state.
type Builder struct {
	repo domain.Repository

	// TopN bounds the ranked account and anomaly listings.
	TopN int
}

// NewBuilder creates a report builder with default settings.
func NewBuilder(repo domain.Repository) *Builder {
	return &Builder{
		repo: repo,
		TopN: DefaultTopN,
	}
}

// Build produces a report for the tenant's latest analysis run.
// Returns ErrNotFound when no analysis has been run yet.
// The training report is optional; pass nil when no model is active.
func (b *Builder) Build(ctx context.Context, tenantID string, training *domain.TrainingReport) (*domain.AnalysisReport, error) {
	runs, err := b.repo.ListAnalysisRuns(ctx, tenantID, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis runs: %w", err)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no analysis run recorded: %w", domain.ErrNotFound)
	}

	rep := &domain.AnalysisReport{
		GeneratedAt: time.Now().UTC(),
		Run:         runs[0],
		Training:    training,
	}

	if err := b.aggregateTransactions(ctx, tenantID, rep); err != nil {
		return nil, err
	}
	if err := b.rankAccounts(ctx, tenantID, rep); err != nil {
		return nil, err
	}
	if err := b.rankAnomalies(ctx, tenantID, rep); err != nil {
		return nil, err
	}

	return rep, nil
}

// aggregateTransactions fills the headline volume and count metrics.
func (b *Builder) aggregateTransactions(ctx context.Context, tenantID string, rep *domain.AnalysisReport) error {
	txs, err := b.repo.ListTransactions(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}

	for _, tx := range txs {
		rep.TotalVolume += tx.Amount
		if tx.Suspicious() {
			rep.SuspiciousCount++
		}
		if tx.CrossBorder() {
			rep.CrossBorderCount++
		}
	}
	if len(txs) > 0 {
		rep.AvgAmount = rep.TotalVolume / float64(len(txs))
	}

	return nil
}

// rankAccounts lists the highest-risk profiles, descending by score.
func (b *Builder) rankAccounts(ctx context.Context, tenantID string, rep *domain.AnalysisReport) error {
	profiles, err := b.repo.ListProfiles(ctx, tenantID, "")
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].RiskScore > profiles[j].RiskScore
	})

	limit := b.topN()
	if len(profiles) < limit {
		limit = len(profiles)
	}

	rep.TopAccounts = make([]domain.AccountRisk, 0, limit)
	for _, p := range profiles[:limit] {
		rep.TopAccounts = append(rep.TopAccounts, domain.AccountRisk{
			Account:      p.Account,
			RiskScore:    p.RiskScore,
			RiskCategory: p.RiskCategory,
			Volume:       p.TotalVolume,
			Transactions: p.TotalTransactions,
		})
	}

	return nil
}

// rankAnomalies lists the top flagged transactions by composite score.
func (b *Builder) rankAnomalies(ctx context.Context, tenantID string, rep *domain.AnalysisReport) error {
	anomalies, err := b.repo.ListAnomalies(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to load anomalies: %w", err)
	}

	sort.Slice(anomalies, func(i, j int) bool {
		return anomalies[i].CompositeScore > anomalies[j].CompositeScore
	})

	limit := b.topN()
	if len(anomalies) < limit {
		limit = len(anomalies)
	}
	rep.TopAnomalies = anomalies[:limit]

	return nil
}

func (b *Builder) topN() int {
	if b.TopN <= 0 {
		return DefaultTopN
	}
	return b.TopN
}
