// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// ErrInvalidInput marks a call with missing required arguments.
var ErrInvalidInput = errors.New("invalid input")

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

const txColumns = `id, tenant_id, sender_account, receiver_account, amount,
	payment_currency, received_currency, sender_location, receiver_location,
	payment_type, timestamp, created_at, label, laundering_type`

// SaveTransaction stores a transaction with tenant isolation.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tenantID string, tx *domain.Transaction) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO transactions (` + txColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tx.ID, tenantID, tx.SenderAccount, tx.ReceiverAccount, tx.Amount,
		tx.PaymentCurrency, tx.ReceivedCurrency, tx.SenderLocation, tx.ReceiverLocation,
		tx.PaymentType, tx.Timestamp, tx.CreatedAt, nullableLabel(tx.Label), tx.LaunderingType,
	)
	return err
}

// SaveTransactions stores a batch inside one database transaction, so a
// failing row never leaves a partial batch behind.
func (r *SQLRepository) SaveTransactions(ctx context.Context, tenantID string, txs []*domain.Transaction) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	query := r.rebind(`
		INSERT INTO transactions (` + txColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	stmt, err := dbTx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, tx := range txs {
		if _, err := stmt.ExecContext(ctx,
			tx.ID, tenantID, tx.SenderAccount, tx.ReceiverAccount, tx.Amount,
			tx.PaymentCurrency, tx.ReceivedCurrency, tx.SenderLocation, tx.ReceiverLocation,
			tx.PaymentType, tx.Timestamp, tx.CreatedAt, nullableLabel(tx.Label), tx.LaunderingType,
		); err != nil {
			return err
		}
	}
	return dbTx.Commit()
}

// GetTransaction retrieves a transaction by ID with tenant isolation.
func (r *SQLRepository) GetTransaction(ctx context.Context, tenantID string, txID string) (*domain.Transaction, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE tenant_id = ? AND id = ?
	`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, txID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, txID)
	}
	return tx, err
}

// ListTransactions retrieves the tenant's full transaction table in
// timestamp order.
func (r *SQLRepository) ListTransactions(ctx context.Context, tenantID string) ([]*domain.Transaction, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE tenant_id = ?
		ORDER BY timestamp
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// GetTransactionsByAccount retrieves transactions touching an account since
// a point in time, with tenant isolation.
func (r *SQLRepository) GetTransactionsByAccount(ctx context.Context, tenantID string, account string, since time.Time) ([]*domain.Transaction, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE tenant_id = ?
		  AND (sender_account = ? OR receiver_account = ?)
		  AND timestamp >= ?
		ORDER BY timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, account, account, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// CountTransactions returns the tenant's transaction count.
func (r *SQLRepository) CountTransactions(ctx context.Context, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	var count int
	query := `SELECT COUNT(*) FROM transactions WHERE tenant_id = ?`
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID).Scan(&count)
	return count, err
}

// ReplaceProfiles swaps the tenant's whole profile snapshot atomically.
func (r *SQLRepository) ReplaceProfiles(ctx context.Context, tenantID string, profiles []*domain.CustomerProfile) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, r.rebind(`DELETE FROM customer_profiles WHERE tenant_id = ?`), tenantID); err != nil {
		return err
	}

	query := r.rebind(`
		INSERT INTO customer_profiles (
			tenant_id, account, risk_score, risk_category,
			total_transactions, total_volume, profile, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	stmt, err := dbTx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range profiles {
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode profile %s: %w", p.Account, err)
		}
		if _, err := stmt.ExecContext(ctx,
			tenantID, p.Account, p.RiskScore, p.RiskCategory,
			p.TotalTransactions, p.TotalVolume, string(payload), now,
		); err != nil {
			return err
		}
	}
	return dbTx.Commit()
}

// GetProfile retrieves one account's profile with tenant isolation.
func (r *SQLRepository) GetProfile(ctx context.Context, tenantID string, account string) (*domain.CustomerProfile, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	var payload string
	query := `SELECT profile FROM customer_profiles WHERE tenant_id = ? AND account = ?`
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, account).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: profile %s", domain.ErrNotFound, account)
	}
	if err != nil {
		return nil, err
	}

	var profile domain.CustomerProfile
	if err := json.Unmarshal([]byte(payload), &profile); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", account, err)
	}
	return &profile, nil
}

// ListProfiles retrieves profiles sorted by risk score, optionally
// filtered by category.
func (r *SQLRepository) ListProfiles(ctx context.Context, tenantID string, category string) ([]*domain.CustomerProfile, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT profile FROM customer_profiles
		WHERE tenant_id = ?
		ORDER BY risk_score DESC, account
	`
	args := []any{tenantID}
	if category != "" {
		query = `
			SELECT profile FROM customer_profiles
			WHERE tenant_id = ? AND risk_category = ?
			ORDER BY risk_score DESC, account
		`
		args = append(args, category)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*domain.CustomerProfile
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var profile domain.CustomerProfile
		if err := json.Unmarshal([]byte(payload), &profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		profiles = append(profiles, &profile)
	}
	return profiles, rows.Err()
}

// ReplaceAnomalies swaps the tenant's flagged set for the latest run.
func (r *SQLRepository) ReplaceAnomalies(ctx context.Context, tenantID string, anomalies []*domain.AnomalyRecord) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, r.rebind(`DELETE FROM anomalies WHERE tenant_id = ?`), tenantID); err != nil {
		return err
	}

	query := r.rebind(`
		INSERT INTO anomalies (
			id, tenant_id, tx_id, sources, isolation_score, amount_zscore,
			off_hours, composite_score, risk_score, detected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	stmt, err := dbTx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range anomalies {
		sources, err := json.Marshal(a.Sources)
		if err != nil {
			return fmt.Errorf("encode anomaly sources: %w", err)
		}
		offHours := 0
		if a.OffHours {
			offHours = 1
		}
		if _, err := stmt.ExecContext(ctx,
			a.ID, tenantID, a.TxID, string(sources), a.IsolationScore, a.AmountZScore,
			offHours, a.CompositeScore, a.RiskScore, a.DetectedAt,
		); err != nil {
			return err
		}
	}
	return dbTx.Commit()
}

// ListAnomalies retrieves the tenant's anomalies, highest composite first.
func (r *SQLRepository) ListAnomalies(ctx context.Context, tenantID string) ([]*domain.AnomalyRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, tx_id, sources, isolation_score, amount_zscore,
			   off_hours, composite_score, risk_score, detected_at
		FROM anomalies
		WHERE tenant_id = ?
		ORDER BY composite_score DESC, tx_id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var anomalies []*domain.AnomalyRecord
	for rows.Next() {
		var a domain.AnomalyRecord
		var sources string
		var offHours int
		if err := rows.Scan(
			&a.ID, &a.TenantID, &a.TxID, &sources, &a.IsolationScore, &a.AmountZScore,
			&offHours, &a.CompositeScore, &a.RiskScore, &a.DetectedAt,
		); err != nil {
			return nil, err
		}
		a.OffHours = offHours == 1
		if err := json.Unmarshal([]byte(sources), &a.Sources); err != nil {
			return nil, fmt.Errorf("decode anomaly sources: %w", err)
		}
		anomalies = append(anomalies, &a)
	}
	return anomalies, rows.Err()
}

// SaveRuleConfig stores a rule configuration with tenant isolation.
func (r *SQLRepository) SaveRuleConfig(ctx context.Context, tenantID string, rule *domain.RuleConfig) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	bands, _ := json.Marshal(rule.Bands)

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO rule_configs (
			id, tenant_id, name, description, version, expression, bands, weight, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			bands = excluded.bands,
			weight = excluded.weight,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Version, rule.Expression, string(bands), rule.Weight, enabled,
		now, now,
	)
	return err
}

// GetRuleConfig retrieves a rule configuration with tenant isolation.
func (r *SQLRepository) GetRuleConfig(ctx context.Context, tenantID string, ruleID string) (*domain.RuleConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, bands, weight, enabled
		FROM rule_configs
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var cfg domain.RuleConfig
	var bands string
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID).Scan(
		&cfg.ID, &cfg.TenantID, &cfg.Name, &cfg.Description,
		&cfg.Version, &cfg.Expression, &bands, &cfg.Weight, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: rule %s", domain.ErrNotFound, ruleID)
	}
	if err != nil {
		return nil, err
	}

	cfg.Enabled = enabled == 1
	json.Unmarshal([]byte(bands), &cfg.Bands)

	return &cfg, nil
}

// ListRuleConfigs retrieves all active rule configurations for a tenant.
func (r *SQLRepository) ListRuleConfigs(ctx context.Context, tenantID string) ([]*domain.RuleConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, bands, weight, enabled
		FROM rule_configs
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.RuleConfig
	for rows.Next() {
		var cfg domain.RuleConfig
		var bands string
		var enabled int

		if err := rows.Scan(
			&cfg.ID, &cfg.TenantID, &cfg.Name, &cfg.Description,
			&cfg.Version, &cfg.Expression, &bands, &cfg.Weight, &enabled,
		); err != nil {
			return nil, err
		}

		cfg.Enabled = enabled == 1
		json.Unmarshal([]byte(bands), &cfg.Bands)
		configs = append(configs, &cfg)
	}

	return configs, rows.Err()
}

// DeleteRuleConfig soft-deletes a rule by setting enabled = 0.
func (r *SQLRepository) DeleteRuleConfig(ctx context.Context, tenantID string, ruleID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE rule_configs
		SET enabled = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), tenantID, ruleID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: rule %s", domain.ErrNotFound, ruleID)
	}

	return nil
}

// SaveRuleResult stores one screening hit with tenant isolation.
func (r *SQLRepository) SaveRuleResult(ctx context.Context, tenantID string, result *domain.RuleResult) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO rule_results (
			rule_id, tenant_id, tx_id, subrule_ref, score, reason, weight, process_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		result.RuleID, tenantID, result.TxID, result.SubRuleRef,
		result.Score, result.Reason, result.Weight, result.ProcessMs,
		time.Now().UTC(),
	)
	return err
}

// ListRuleResults retrieves the screening hits for one transaction.
func (r *SQLRepository) ListRuleResults(ctx context.Context, tenantID string, txID string) ([]*domain.RuleResult, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT rule_id, tenant_id, tx_id, subrule_ref, score, reason, weight, process_ms
		FROM rule_results
		WHERE tenant_id = ? AND tx_id = ?
		ORDER BY rule_id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.RuleResult
	for rows.Next() {
		var res domain.RuleResult
		if err := rows.Scan(
			&res.RuleID, &res.TenantID, &res.TxID, &res.SubRuleRef,
			&res.Score, &res.Reason, &res.Weight, &res.ProcessMs,
		); err != nil {
			return nil, err
		}
		results = append(results, &res)
	}
	return results, rows.Err()
}

// SaveModelBundle upserts a serialized model bundle under the key.
func (r *SQLRepository) SaveModelBundle(ctx context.Context, tenantID string, key string, payload []byte) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO model_bundles (tenant_id, key, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id, key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query), tenantID, key, payload, time.Now().UTC())
	return err
}

// GetModelBundle retrieves a serialized bundle, or ErrNotFound.
func (r *SQLRepository) GetModelBundle(ctx context.Context, tenantID string, key string) ([]byte, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	var payload []byte
	query := `SELECT payload FROM model_bundles WHERE tenant_id = ? AND key = ?`
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: bundle %s", domain.ErrNotFound, key)
	}
	return payload, err
}

// ModelBundleExists checks for a bundle without loading the payload.
func (r *SQLRepository) ModelBundleExists(ctx context.Context, tenantID string, key string) (bool, error) {
	if tenantID == "" {
		return false, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	var count int
	query := `SELECT COUNT(*) FROM model_bundles WHERE tenant_id = ? AND key = ?`
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, key).Scan(&count)
	return count > 0, err
}

// SaveAnalysisRun stores one run summary with tenant isolation.
func (r *SQLRepository) SaveAnalysisRun(ctx context.Context, tenantID string, run *domain.AnalysisRun) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	dist, _ := json.Marshal(run.RiskDistribution)
	passes, _ := json.Marshal(run.Passes)

	query := `
		INSERT INTO analysis_runs (
			id, tenant_id, started_at, duration_ms, transactions, profiles,
			anomalies, risk_distribution, passes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		run.ID, tenantID, run.StartedAt, run.Duration,
		run.Transactions, run.Profiles, run.Anomalies,
		string(dist), string(passes),
	)
	return err
}

// GetAnalysisRun retrieves one run summary with tenant isolation.
func (r *SQLRepository) GetAnalysisRun(ctx context.Context, tenantID string, runID string) (*domain.AnalysisRun, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, started_at, duration_ms, transactions, profiles,
			   anomalies, risk_distribution, passes
		FROM analysis_runs
		WHERE tenant_id = ? AND id = ?
	`

	run, err := scanAnalysisRun(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", domain.ErrNotFound, runID)
	}
	return run, err
}

// ListAnalysisRuns retrieves the most recent run summaries.
func (r *SQLRepository) ListAnalysisRuns(ctx context.Context, tenantID string, limit int) ([]*domain.AnalysisRun, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, tenant_id, started_at, duration_ms, transactions, profiles,
			   anomalies, risk_distribution, passes
		FROM analysis_runs
		WHERE tenant_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.AnalysisRun
	for rows.Next() {
		run, err := scanAnalysisRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var label sql.NullInt64
	var launderingType sql.NullString

	if err := row.Scan(
		&tx.ID, &tx.TenantID, &tx.SenderAccount, &tx.ReceiverAccount, &tx.Amount,
		&tx.PaymentCurrency, &tx.ReceivedCurrency, &tx.SenderLocation, &tx.ReceiverLocation,
		&tx.PaymentType, &tx.Timestamp, &tx.CreatedAt, &label, &launderingType,
	); err != nil {
		return nil, err
	}

	if label.Valid {
		v := int(label.Int64)
		tx.Label = &v
	}
	tx.LaunderingType = launderingType.String
	return &tx, nil
}

func scanAnalysisRun(row rowScanner) (*domain.AnalysisRun, error) {
	var run domain.AnalysisRun
	var dist, passes string

	if err := row.Scan(
		&run.ID, &run.TenantID, &run.StartedAt, &run.Duration,
		&run.Transactions, &run.Profiles, &run.Anomalies,
		&dist, &passes,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(dist), &run.RiskDistribution); err != nil {
		return nil, fmt.Errorf("decode risk distribution: %w", err)
	}
	if err := json.Unmarshal([]byte(passes), &run.Passes); err != nil {
		return nil, fmt.Errorf("decode passes: %w", err)
	}
	return &run, nil
}

func nullableLabel(label *int) any {
	if label == nil {
		return nil
	}
	return *label
}
