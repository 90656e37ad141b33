package domain

import "time"

// Anomaly detection sources. A transaction flagged by several passes is
// reported once with all triggering sources merged.
const (
	SourceIsolationForest = "isolation_forest"
	SourceStatisticalZ    = "statistical_zscore"
	SourceTimeBased       = "time_based"
)

// AnomalyRecord is one flagged transaction with its per-method scores and
// a normalized composite score used for ranking.
type AnomalyRecord struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	TxID     string `json:"txId"`

	// Sources that flagged this transaction, in pass order.
	Sources []string `json:"sources"`

	// Method-specific raw scores. IsolationScore is the forest's anomaly
	// score in [0,1]; AmountZScore is the signed amount Z-score; OffHours
	// marks the time-based pass.
	IsolationScore float64 `json:"isolationScore,omitempty"`
	AmountZScore   float64 `json:"amountZScore,omitempty"`
	OffHours       bool    `json:"offHours,omitempty"`

	// Composite score in [0,1]: weighted average of normalized method scores.
	CompositeScore float64 `json:"compositeScore"`

	// Convenience projection of CompositeScore onto [0,100].
	RiskScore float64 `json:"riskScore"`

	DetectedAt time.Time `json:"detectedAt"`
}

// FlaggedBy reports whether the record carries the given source.
func (a *AnomalyRecord) FlaggedBy(source string) bool {
	for _, s := range a.Sources {
		if s == source {
			return true
		}
	}
	return false
}

// PassInfo records whether a detection pass ran and how many rows it flagged.
type PassInfo struct {
	Name    string `json:"name"`
	Ran     bool   `json:"ran"`
	Flagged int    `json:"flagged"`
	Skipped string `json:"skipped,omitempty"` // reason, when Ran is false
}

// DetectionResult is the full output of one detector run.
type DetectionResult struct {
	Anomalies []*AnomalyRecord `json:"anomalies"`
	Passes    []PassInfo       `json:"passes"`
	Total     int              `json:"total"` // rows examined
}
