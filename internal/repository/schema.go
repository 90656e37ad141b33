package repository

// Schema definitions for the Harrier database.
// Compatible with both SQLite and PostgreSQL.

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    sender_account TEXT NOT NULL,
    receiver_account TEXT NOT NULL,
    amount REAL NOT NULL,
    payment_currency TEXT NOT NULL,
    received_currency TEXT NOT NULL,
    sender_location TEXT NOT NULL,
    receiver_location TEXT NOT NULL,
    payment_type TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    label INTEGER,
    laundering_type TEXT
);

CREATE INDEX IF NOT EXISTS idx_transactions_tenant ON transactions(tenant_id);
CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(tenant_id, sender_account);
CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions(tenant_id, receiver_account);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(tenant_id, timestamp);
`

const schemaCustomerProfiles = `
CREATE TABLE IF NOT EXISTS customer_profiles (
    tenant_id TEXT NOT NULL,
    account TEXT NOT NULL,
    risk_score REAL NOT NULL,
    risk_category TEXT NOT NULL,
    total_transactions INTEGER NOT NULL,
    total_volume REAL NOT NULL,
    profile TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, account)
);

CREATE INDEX IF NOT EXISTS idx_profiles_category ON customer_profiles(tenant_id, risk_category);
CREATE INDEX IF NOT EXISTS idx_profiles_score ON customer_profiles(tenant_id, risk_score);
`

const schemaAnomalies = `
CREATE TABLE IF NOT EXISTS anomalies (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    tx_id TEXT NOT NULL,
    sources TEXT NOT NULL,
    isolation_score REAL NOT NULL,
    amount_zscore REAL NOT NULL,
    off_hours INTEGER NOT NULL DEFAULT 0,
    composite_score REAL NOT NULL,
    risk_score REAL NOT NULL,
    detected_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_anomalies_tenant ON anomalies(tenant_id);
CREATE INDEX IF NOT EXISTS idx_anomalies_tx ON anomalies(tenant_id, tx_id);
CREATE INDEX IF NOT EXISTS idx_anomalies_score ON anomalies(tenant_id, composite_score);
`

const schemaRuleConfigs = `
CREATE TABLE IF NOT EXISTS rule_configs (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    bands TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_rule_configs_tenant ON rule_configs(tenant_id);
CREATE INDEX IF NOT EXISTS idx_rule_configs_enabled ON rule_configs(tenant_id, enabled);
`

const schemaRuleResults = `
CREATE TABLE IF NOT EXISTS rule_results (
    rule_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    tx_id TEXT NOT NULL,
    subrule_ref TEXT NOT NULL,
    score REAL NOT NULL,
    reason TEXT,
    weight REAL NOT NULL,
    process_ms INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rule_results_tx ON rule_results(tenant_id, tx_id);
`

const schemaModelBundles = `
CREATE TABLE IF NOT EXISTS model_bundles (
    tenant_id TEXT NOT NULL,
    key TEXT NOT NULL,
    payload BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, key)
);
`

const schemaAnalysisRuns = `
CREATE TABLE IF NOT EXISTS analysis_runs (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    duration_ms INTEGER NOT NULL,
    transactions INTEGER NOT NULL,
    profiles INTEGER NOT NULL,
    anomalies INTEGER NOT NULL,
    risk_distribution TEXT NOT NULL,
    passes TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_tenant ON analysis_runs(tenant_id, started_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaTransactions,
		schemaCustomerProfiles,
		schemaAnomalies,
		schemaRuleConfigs,
		schemaRuleResults,
		schemaModelBundles,
		schemaAnalysisRuns,
	}
}
