package domain

import "time"

// AnalysisRun summarizes one end-to-end pipeline run over the tenant's
// transaction table: profiling, anomaly detection, and the headline
// numbers the report endpoint serves.
type AnalysisRun struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	StartedAt time.Time `json:"startedAt"`
	Duration  int64     `json:"durationMs"`

	Transactions int `json:"transactions"`
	Profiles     int `json:"profiles"`
	Anomalies    int `json:"anomalies"`

	// Profile count per risk category (LOW/MEDIUM/HIGH).
	RiskDistribution map[string]int `json:"riskDistribution"`

	// Detector pass outcomes for this run.
	Passes []PassInfo `json:"passes"`
}

// AccountRisk is one row of a report's ranked account listing.
type AccountRisk struct {
	Account      string  `json:"account"`
	RiskScore    float64 `json:"riskScore"`
	RiskCategory string  `json:"riskCategory"`
	Volume       float64 `json:"volume"`
	Transactions int     `json:"transactions"`
}

// AnalysisReport is the full report built from the latest run.
type AnalysisReport struct {
	GeneratedAt time.Time    `json:"generatedAt"`
	Run         *AnalysisRun `json:"run"`

	// Aggregate transaction metrics.
	TotalVolume      float64 `json:"totalVolume"`
	AvgAmount        float64 `json:"avgAmount"`
	SuspiciousCount  int     `json:"suspiciousCount"`
	CrossBorderCount int     `json:"crossBorderCount"`

	// Highest-risk accounts, descending by score.
	TopAccounts []AccountRisk `json:"topAccounts"`

	// Top anomalies, descending by composite score.
	TopAnomalies []*AnomalyRecord `json:"topAnomalies"`

	// Latest training report, when a model is active.
	Training *TrainingReport `json:"training,omitempty"`
}
