package screening

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

func limit(v float64) *float64 { return &v }

// BuiltinRules returns the default screening rule set derived from the
// scoring configuration. Tenants can override or disable them through the
// rules API; they are seeded into the database on first start.
func BuiltinRules(cfg domain.ScoringConfig, detection domain.DetectionConfig) []*domain.RuleConfig {
	quoted := make([]string, 0, len(cfg.HighRiskLocations))
	for _, loc := range cfg.HighRiskLocations {
		quoted = append(quoted, fmt.Sprintf("%q", domain.CountryCode(loc)))
	}
	highRiskList := "[" + strings.Join(quoted, ", ") + "]"

	failBand := []domain.RuleBand{
		{LowerLimit: limit(0), UpperLimit: limit(1), SubRuleRef: domain.RuleOutcomePass, Reason: "not triggered"},
		{LowerLimit: limit(1), SubRuleRef: domain.RuleOutcomeFail, Reason: "rule triggered"},
	}

	return []*domain.RuleConfig{
		{
			ID:          "builtin-structuring",
			Name:        "Structuring band",
			Description: "Amount sits just below the reporting threshold",
			Version:     "1.0",
			Expression: fmt.Sprintf("amount >= %.1f && amount < %.1f",
				cfg.StructuringMin, cfg.StructuringMax),
			Bands:   failBand,
			Weight:  1.0,
			Enabled: true,
		},
		{
			ID:          "builtin-off-hours",
			Name:        "Off-hours high value",
			Description: "Sizeable transfer executed outside business hours",
			Version:     "1.0",
			Expression: fmt.Sprintf("(minutes_of_day < %d || minutes_of_day > %d) && amount >= %.1f",
				detection.EarlyMinutes, detection.LateMinutes, detection.OffHoursAmountMin),
			Bands:   failBand,
			Weight:  0.8,
			Enabled: true,
		},
		{
			ID:          "builtin-high-risk-corridor",
			Name:        "High-risk corridor",
			Description: "Either endpoint sits in a high-risk country",
			Version:     "1.0",
			Expression: fmt.Sprintf("sender_country in %s || receiver_country in %s",
				highRiskList, highRiskList),
			Bands: []domain.RuleBand{
				{LowerLimit: limit(0), UpperLimit: limit(1), SubRuleRef: domain.RuleOutcomePass, Reason: "not triggered"},
				{LowerLimit: limit(1), SubRuleRef: domain.RuleOutcomeReview, Reason: "high-risk corridor"},
			},
			Weight:  0.6,
			Enabled: true,
		},
		{
			ID:          "builtin-rapid-velocity",
			Name:        "Rapid transaction velocity",
			Description: "Sender exceeds the hourly transaction budget",
			Version:     "1.0",
			Expression:  "velocity_count > 10",
			Bands:       failBand,
			Weight:      0.7,
			Enabled:     true,
		},
	}
}
