package domain

// Risk categories assigned to customer profiles and predictions.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// CustomerProfile is the aggregated risk view of a single account,
// recomputed in full from the transaction table on every profiling run.
type CustomerProfile struct {
	Account  string `json:"account"`
	TenantID string `json:"tenantId"`

	// Activity counts
	TotalTransactions    int `json:"totalTransactions"`
	SentTransactions     int `json:"sentTransactions"`
	ReceivedTransactions int `json:"receivedTransactions"`
	UniqueCounterparties int `json:"uniqueCounterparties"`
	CurrenciesUsed       int `json:"currenciesUsed"`
	PaymentTypesUsed     int `json:"paymentTypesUsed"`

	// Volumes
	TotalVolume    float64 `json:"totalVolume"`
	SentVolume     float64 `json:"sentVolume"`
	ReceivedVolume float64 `json:"receivedVolume"`
	AvgTransaction float64 `json:"avgTransaction"`
	MaxTransaction float64 `json:"maxTransaction"`
	MinTransaction float64 `json:"minTransaction"`

	// Risk indicators
	SuspiciousTransactions int `json:"suspiciousTransactions"`
	CrossBorderCount       int `json:"crossBorderCount"`
	HighRiskCount          int `json:"highRiskCount"`
	StructuringCount       int `json:"structuringCount"`
	RapidTransactions      int `json:"rapidTransactions"`

	// Derived ratios over TotalTransactions
	CrossBorderRatio float64 `json:"crossBorderRatio"`
	HighRiskRatio    float64 `json:"highRiskRatio"`
	StructuringRatio float64 `json:"structuringRatio"`
	SuspiciousRatio  float64 `json:"suspiciousRatio"`
	HighValueRatio   float64 `json:"highValueRatio"`

	// Bounded risk score in [0,100] and its category
	RiskScore    float64 `json:"riskScore"`
	RiskCategory string  `json:"riskCategory"`
}

// CategoryForScore maps a risk score to its category given the two thresholds.
func CategoryForScore(score, high, medium float64) string {
	switch {
	case score >= high:
		return RiskHigh
	case score >= medium:
		return RiskMedium
	default:
		return RiskLow
	}
}
