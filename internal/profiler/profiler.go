// Package profiler builds per-account risk profiles from the transaction
// table. Profiling is a full recomputation: every run rebuilds every profile
// from scratch, so profiles never drift from the underlying data.
package profiler

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Profiler aggregates transactions into customer risk profiles.
type Profiler struct {
	cfg    domain.ScoringConfig
	logger *slog.Logger
}

// New creates a Profiler with the given scoring configuration.
func New(cfg domain.ScoringConfig, logger *slog.Logger) *Profiler {
	return &Profiler{cfg: cfg, logger: logger}
}

// accountAgg is the working aggregate for one account.
type accountAgg struct {
	profile        *domain.CustomerProfile
	amounts        []float64
	counterparties map[string]bool
	currencies     map[string]bool
	payments       map[string]bool
	perDay         map[string]int
}

// Profile computes a profile for every account appearing as sender or
// receiver, sorted by risk score descending.
func (p *Profiler) Profile(tenantID string, txs []*domain.Transaction) []*domain.CustomerProfile {
	aggs := make(map[string]*accountAgg)

	highRisk := p.cfg.HighRiskCountries()
	for _, tx := range txs {
		p.accumulate(aggs, tenantID, tx.SenderAccount, tx, true, highRisk)
		p.accumulate(aggs, tenantID, tx.ReceiverAccount, tx, false, highRisk)
	}

	profiles := make([]*domain.CustomerProfile, 0, len(aggs))
	for _, agg := range aggs {
		p.finalize(agg)
		profiles = append(profiles, agg.profile)
	}
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].RiskScore != profiles[j].RiskScore {
			return profiles[i].RiskScore > profiles[j].RiskScore
		}
		return profiles[i].Account < profiles[j].Account
	})

	p.logger.Info("customer profiling completed",
		"tenant_id", tenantID,
		"accounts", len(profiles),
		"transactions", len(txs))

	return profiles
}

func (p *Profiler) accumulate(aggs map[string]*accountAgg, tenantID, account string, tx *domain.Transaction, asSender bool, highRisk map[string]bool) {
	agg, ok := aggs[account]
	if !ok {
		agg = &accountAgg{
			profile:        &domain.CustomerProfile{Account: account, TenantID: tenantID},
			counterparties: make(map[string]bool),
			currencies:     make(map[string]bool),
			payments:       make(map[string]bool),
			perDay:         make(map[string]int),
		}
		aggs[account] = agg
	}
	prof := agg.profile

	prof.TotalTransactions++
	prof.TotalVolume += tx.Amount
	agg.amounts = append(agg.amounts, tx.Amount)
	agg.currencies[tx.PaymentCurrency] = true
	agg.payments[tx.PaymentType] = true
	agg.perDay[tx.Timestamp.Format("2006-01-02")]++

	if asSender {
		prof.SentTransactions++
		prof.SentVolume += tx.Amount
		agg.counterparties[tx.ReceiverAccount] = true
	} else {
		prof.ReceivedTransactions++
		prof.ReceivedVolume += tx.Amount
		agg.counterparties[tx.SenderAccount] = true
	}

	if tx.Suspicious() {
		prof.SuspiciousTransactions++
	}
	if tx.CrossBorder() {
		prof.CrossBorderCount++
	}
	if highRisk[tx.SenderCountry()] || highRisk[tx.ReceiverCountry()] {
		prof.HighRiskCount++
	}
	if tx.Amount >= p.cfg.StructuringMin && tx.Amount < p.cfg.StructuringMax {
		prof.StructuringCount++
	}
}

// finalize derives volumes, ratios, and the bounded risk score.
func (p *Profiler) finalize(agg *accountAgg) {
	prof := agg.profile

	prof.UniqueCounterparties = len(agg.counterparties)
	prof.CurrenciesUsed = len(agg.currencies)
	prof.PaymentTypesUsed = len(agg.payments)

	if len(agg.amounts) > 0 {
		prof.AvgTransaction = stat.Mean(agg.amounts, nil)
		prof.MaxTransaction = floats.Max(agg.amounts)
		prof.MinTransaction = floats.Min(agg.amounts)
	}

	// Rapid transactions: busiest single day, beyond the first transaction.
	if prof.TotalTransactions >= 2 {
		busiest := 0
		for _, n := range agg.perDay {
			if n > busiest {
				busiest = n
			}
		}
		prof.RapidTransactions = busiest - 1
	}

	total := float64(prof.TotalTransactions)
	if total == 0 {
		total = 1
	}
	highValue := 0
	for _, amt := range agg.amounts {
		if amt >= p.cfg.HighValueAmount {
			highValue++
		}
	}

	prof.SuspiciousRatio = float64(prof.SuspiciousTransactions) / total
	prof.CrossBorderRatio = float64(prof.CrossBorderCount) / total
	prof.HighRiskRatio = float64(prof.HighRiskCount) / total
	prof.StructuringRatio = float64(prof.StructuringCount) / total
	prof.HighValueRatio = float64(highValue) / total

	score := prof.SuspiciousRatio*p.cfg.SuspiciousWeight +
		prof.HighValueRatio*p.cfg.HighValueWeight +
		prof.CrossBorderRatio*p.cfg.CrossBorderWeight +
		prof.HighRiskRatio*p.cfg.HighRiskWeight +
		prof.StructuringRatio*p.cfg.StructuringWeight
	if score > 100 {
		score = 100
	}
	prof.RiskScore = score
	prof.RiskCategory = domain.CategoryForScore(score, p.cfg.HighRiskThreshold, p.cfg.MediumRiskThreshold)
}
