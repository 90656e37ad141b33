// Package domain defines the core interfaces and types for Harrier.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Transaction operations
	SaveTransaction(ctx context.Context, tenantID string, tx *Transaction) error
	SaveTransactions(ctx context.Context, tenantID string, txs []*Transaction) error
	GetTransaction(ctx context.Context, tenantID string, txID string) (*Transaction, error)
	ListTransactions(ctx context.Context, tenantID string) ([]*Transaction, error)
	GetTransactionsByAccount(ctx context.Context, tenantID string, account string, since time.Time) ([]*Transaction, error)
	CountTransactions(ctx context.Context, tenantID string) (int, error)

	// Customer profile operations. ReplaceProfiles swaps the whole tenant
	// snapshot atomically, since profiling recomputes every profile.
	ReplaceProfiles(ctx context.Context, tenantID string, profiles []*CustomerProfile) error
	GetProfile(ctx context.Context, tenantID string, account string) (*CustomerProfile, error)
	ListProfiles(ctx context.Context, tenantID string, category string) ([]*CustomerProfile, error)

	// Anomaly operations. ReplaceAnomalies swaps the tenant's flagged set
	// for the latest detector run.
	ReplaceAnomalies(ctx context.Context, tenantID string, anomalies []*AnomalyRecord) error
	ListAnomalies(ctx context.Context, tenantID string) ([]*AnomalyRecord, error)

	// Screening rule operations
	SaveRuleConfig(ctx context.Context, tenantID string, rule *RuleConfig) error
	GetRuleConfig(ctx context.Context, tenantID string, ruleID string) (*RuleConfig, error)
	ListRuleConfigs(ctx context.Context, tenantID string) ([]*RuleConfig, error)
	DeleteRuleConfig(ctx context.Context, tenantID string, ruleID string) error

	// Screening hits produced by the ingest worker
	SaveRuleResult(ctx context.Context, tenantID string, result *RuleResult) error
	ListRuleResults(ctx context.Context, tenantID string, txID string) ([]*RuleResult, error)

	// Model bundle operations; payload is the serialized bundle
	SaveModelBundle(ctx context.Context, tenantID string, key string, payload []byte) error
	GetModelBundle(ctx context.Context, tenantID string, key string) ([]byte, error)
	ModelBundleExists(ctx context.Context, tenantID string, key string) (bool, error)

	// Analysis run summaries
	SaveAnalysisRun(ctx context.Context, tenantID string, run *AnalysisRun) error
	GetAnalysisRun(ctx context.Context, tenantID string, runID string) (*AnalysisRun, error)
	ListAnalysisRuns(ctx context.Context, tenantID string, limit int) ([]*AnalysisRun, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
