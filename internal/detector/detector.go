// Package detector flags anomalous transactions with three independent
// passes: an isolation forest over engineered features, an amount Z-score
// screen, and an off-hours screen. A transaction flagged by several passes
// is reported once with the triggering sources merged.
package detector

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Pass names, in execution order.
const (
	passIsolationForest = "isolation_forest"
	passStatisticalZ    = "statistical_zscore"
	passTimeBased       = "time_based"
)

// Composite blend weights. A pass that did not flag a row contributes zero.
const (
	isolationWeight   = 0.5
	statisticalWeight = 0.3
	timeWeight        = 0.2
)

// Detector runs the multi-pass anomaly scan.
type Detector struct {
	cfg    domain.DetectionConfig
	logger *slog.Logger
}

// New creates a Detector with the given configuration.
func New(cfg domain.DetectionConfig, logger *slog.Logger) *Detector {
	return &Detector{cfg: cfg, logger: logger}
}

// Detect runs all passes over the transaction set. Passes that cannot run
// (too few rows, zero variance) are skipped and reported as such; the
// remaining passes still produce results.
func (d *Detector) Detect(tenantID string, txs []*domain.Transaction) *domain.DetectionResult {
	n := len(txs)
	result := &domain.DetectionResult{Total: n}
	records := make(map[string]*domain.AnomalyRecord)
	now := time.Now().UTC()

	record := func(tx *domain.Transaction) *domain.AnomalyRecord {
		rec, ok := records[tx.ID]
		if !ok {
			rec = &domain.AnomalyRecord{
				ID:         uuid.New().String(),
				TenantID:   tenantID,
				TxID:       tx.ID,
				DetectedAt: now,
			}
			records[tx.ID] = rec
		}
		return rec
	}

	result.Passes = append(result.Passes, d.isolationPass(txs, record))
	result.Passes = append(result.Passes, d.zscorePass(txs, record))
	result.Passes = append(result.Passes, d.timePass(txs, record))

	for _, rec := range records {
		d.composite(rec)
		result.Anomalies = append(result.Anomalies, rec)
	}
	sort.Slice(result.Anomalies, func(i, j int) bool {
		a, b := result.Anomalies[i], result.Anomalies[j]
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		return a.TxID < b.TxID
	})

	d.logger.Info("anomaly detection completed",
		"tenant_id", tenantID,
		"transactions", n,
		"anomalies", len(result.Anomalies))

	return result
}

// isolationPass fits the forest and flags the top contamination fraction.
func (d *Detector) isolationPass(txs []*domain.Transaction, record func(*domain.Transaction) *domain.AnomalyRecord) domain.PassInfo {
	info := domain.PassInfo{Name: passIsolationForest}
	n := len(txs)
	if n < d.cfg.MinRowsForForest {
		info.Skipped = fmt.Sprintf("need at least %d rows, have %d", d.cfg.MinRowsForForest, n)
		return info
	}
	info.Ran = true

	X := standardize(featureMatrix(txs))
	forest := newIsolationForest(d.cfg.TreeCount, d.cfg.SampleSize, d.cfg.Seed)
	forest.fit(X, d.cfg.TreeCount)

	scores := make([]float64, n)
	order := make([]int, n)
	for i := range X {
		scores[i] = forest.score(X[i])
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	k := int(d.cfg.ContaminationRate*float64(n) + 0.5)
	if k > n {
		k = n
	}
	for _, i := range order[:k] {
		rec := record(txs[i])
		rec.Sources = append(rec.Sources, domain.SourceIsolationForest)
		rec.IsolationScore = scores[i]
		info.Flagged++
	}
	return info
}

// zscorePass flags amounts more than the threshold away from the
// population mean, in sample standard deviations.
func (d *Detector) zscorePass(txs []*domain.Transaction, record func(*domain.Transaction) *domain.AnomalyRecord) domain.PassInfo {
	info := domain.PassInfo{Name: passStatisticalZ}
	if len(txs) < 2 {
		info.Skipped = "need at least 2 rows for a standard deviation"
		return info
	}

	amounts := make([]float64, len(txs))
	for i, tx := range txs {
		amounts[i] = tx.Amount
	}
	mean, std := stat.MeanStdDev(amounts, nil)
	if std == 0 {
		info.Skipped = "zero amount variance"
		return info
	}
	info.Ran = true

	for i, tx := range txs {
		z := (amounts[i] - mean) / std
		if math.Abs(z) > d.cfg.ZScoreThreshold {
			rec := record(tx)
			rec.Sources = append(rec.Sources, domain.SourceStatisticalZ)
			rec.AmountZScore = z
			info.Flagged++
		}
	}
	return info
}

// timePass flags sizeable transactions executed in the off-hours window.
func (d *Detector) timePass(txs []*domain.Transaction, record func(*domain.Transaction) *domain.AnomalyRecord) domain.PassInfo {
	info := domain.PassInfo{Name: passTimeBased, Ran: true}
	for _, tx := range txs {
		minutes := tx.MinutesOfDay()
		if (minutes < d.cfg.EarlyMinutes || minutes > d.cfg.LateMinutes) &&
			tx.Amount >= d.cfg.OffHoursAmountMin {
			rec := record(tx)
			rec.Sources = append(rec.Sources, domain.SourceTimeBased)
			rec.OffHours = true
			info.Flagged++
		}
	}
	return info
}

// composite blends the per-pass evidence into one [0,1] score.
func (d *Detector) composite(rec *domain.AnomalyRecord) {
	score := 0.0
	if rec.FlaggedBy(domain.SourceIsolationForest) {
		score += isolationWeight * rec.IsolationScore
	}
	if rec.FlaggedBy(domain.SourceStatisticalZ) {
		zNorm := math.Abs(rec.AmountZScore) / (2 * d.cfg.ZScoreThreshold)
		if zNorm > 1 {
			zNorm = 1
		}
		score += statisticalWeight * zNorm
	}
	if rec.OffHours {
		score += timeWeight
	}
	rec.CompositeScore = score
	rec.RiskScore = score * 100
}

// featureMatrix builds the numeric view the forest isolates over: amount,
// minutes of day, label-encoded categoricals, and two binary indicators.
func featureMatrix(txs []*domain.Transaction) [][]float64 {
	payment := labelEncode(txs, func(t *domain.Transaction) string { return t.PaymentType })
	senderLoc := labelEncode(txs, func(t *domain.Transaction) string { return t.SenderLocation })
	receiverLoc := labelEncode(txs, func(t *domain.Transaction) string { return t.ReceiverLocation })

	X := make([][]float64, len(txs))
	for i, tx := range txs {
		crossBorder, mismatch := 0.0, 0.0
		if tx.CrossBorder() {
			crossBorder = 1
		}
		if tx.CurrencyMismatch() {
			mismatch = 1
		}
		X[i] = []float64{
			tx.Amount,
			float64(tx.MinutesOfDay()),
			float64(payment[tx.PaymentType]),
			float64(senderLoc[tx.SenderLocation]),
			float64(receiverLoc[tx.ReceiverLocation]),
			crossBorder,
			mismatch,
		}
	}
	return X
}

// labelEncode assigns codes 0..k-1 over the sorted distinct values.
func labelEncode(txs []*domain.Transaction, get func(*domain.Transaction) string) map[string]int {
	seen := make(map[string]bool)
	for _, tx := range txs {
		seen[get(tx)] = true
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	codes := make(map[string]int, len(values))
	for i, v := range values {
		codes[v] = i
	}
	return codes
}

// standardize centers and scales each column; constant columns become zero.
func standardize(X [][]float64) [][]float64 {
	if len(X) == 0 {
		return X
	}
	dims := len(X[0])
	col := make([]float64, len(X))
	out := make([][]float64, len(X))
	for i := range out {
		out[i] = make([]float64, dims)
	}
	for j := 0; j < dims; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		for i := range X {
			if std > 0 {
				out[i][j] = (X[i][j] - mean) / std
			}
		}
	}
	return out
}
