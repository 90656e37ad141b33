package domain

import (
	"fmt"
	"time"
)

// Config holds the complete Harrier configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Analysis knobs
	Scoring   ScoringConfig   `json:"scoring"`
	Detection DetectionConfig `json:"detection"`
	Training  TrainingConfig  `json:"training"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ScoringConfig holds the customer risk-scoring knobs. Weights are the
// maximum points each component can contribute; the total is capped at 100.
type ScoringConfig struct {
	HighRiskThreshold   float64 `json:"highRiskThreshold"`   // score >= -> HIGH
	MediumRiskThreshold float64 `json:"mediumRiskThreshold"` // score >= -> MEDIUM

	// Locations whose country prefix marks a transaction high-risk.
	HighRiskLocations []string `json:"highRiskLocations"`

	// Structuring band: amounts in [Min, Max) count as structuring-like.
	StructuringMin float64 `json:"structuringMin"`
	StructuringMax float64 `json:"structuringMax"`

	// Amounts at or above this are high-value for the scoring component.
	HighValueAmount float64 `json:"highValueAmount"`

	// Component weights (maximum contribution per component).
	SuspiciousWeight  float64 `json:"suspiciousWeight"`
	HighValueWeight   float64 `json:"highValueWeight"`
	CrossBorderWeight float64 `json:"crossBorderWeight"`
	HighRiskWeight    float64 `json:"highRiskWeight"`
	StructuringWeight float64 `json:"structuringWeight"`
}

// HighRiskCountries derives the country-prefix set from HighRiskLocations.
func (c ScoringConfig) HighRiskCountries() map[string]bool {
	set := make(map[string]bool, len(c.HighRiskLocations))
	for _, loc := range c.HighRiskLocations {
		set[CountryCode(loc)] = true
	}
	return set
}

// DetectionConfig holds the anomaly-detector knobs.
type DetectionConfig struct {
	// Expected fraction of outliers the isolation forest flags.
	ContaminationRate float64 `json:"contaminationRate"`

	// Isolation forest shape.
	TreeCount  int   `json:"treeCount"`
	SampleSize int   `json:"sampleSize"`
	Seed       int64 `json:"seed"`

	// Minimum rows needed to fit the forest; below this the pass is skipped.
	MinRowsForForest int `json:"minRowsForForest"`

	// |Z| above this flags the statistical pass.
	ZScoreThreshold float64 `json:"zscoreThreshold"`

	// Off-hours window in minutes since midnight: flag when
	// minutes < EarlyMinutes or minutes > LateMinutes.
	EarlyMinutes int `json:"earlyMinutes"`
	LateMinutes  int `json:"lateMinutes"`

	// Amount floor for the time-based pass.
	OffHoursAmountMin float64 `json:"offHoursAmountMin"`
}

// TrainingConfig holds the supervised-training knobs.
type TrainingConfig struct {
	TestSize float64 `json:"testSize"` // held-out fraction
	MinRows  int     `json:"minRows"`  // minimum labeled rows to train
	Seed     int64   `json:"seed"`

	// Random forest shape.
	ForestTrees    int `json:"forestTrees"`
	ForestMaxDepth int `json:"forestMaxDepth"`

	// Gradient boosting shape.
	BoostingRounds   int     `json:"boostingRounds"`
	BoostingMaxDepth int     `json:"boostingMaxDepth"`
	LearningRate     float64 `json:"learningRate"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Scoring: ScoringConfig{
			HighRiskThreshold:   70,
			MediumRiskThreshold: 40,
			HighRiskLocations:   []string{"AE-DXB", "HK-HKG"},
			StructuringMin:      9000,
			StructuringMax:      10000,
			HighValueAmount:     50000,
			SuspiciousWeight:    30,
			HighValueWeight:     20,
			CrossBorderWeight:   20,
			HighRiskWeight:      15,
			StructuringWeight:   15,
		},
		Detection: DetectionConfig{
			ContaminationRate: 0.1,
			TreeCount:         100,
			SampleSize:        256,
			Seed:              42,
			MinRowsForForest:  8,
			ZScoreThreshold:   3,
			EarlyMinutes:      300,  // 05:00
			LateMinutes:       1320, // 22:00
			OffHoursAmountMin: 5000,
		},
		Training: TrainingConfig{
			TestSize:         0.3,
			MinRows:          10,
			Seed:             42,
			ForestTrees:      100,
			ForestMaxDepth:   10,
			BoostingRounds:   100,
			BoostingMaxDepth: 3,
			LearningRate:     0.1,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./harrier.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "harrier",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "harrier",
	}
	cfg.Cache = CacheConfig{
		Type:         "redis",
		RedisAddr:    "localhost:6379",
		LocalMaxSize: 1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}

// Validate fails fast on invalid analysis knobs, so bad configuration
// surfaces at load time rather than mid-run.
func (c *Config) Validate() error {
	s := c.Scoring
	if s.HighRiskThreshold < 0 || s.HighRiskThreshold > 100 {
		return fmt.Errorf("scoring: highRiskThreshold %v out of [0,100]", s.HighRiskThreshold)
	}
	if s.MediumRiskThreshold < 0 || s.MediumRiskThreshold > 100 {
		return fmt.Errorf("scoring: mediumRiskThreshold %v out of [0,100]", s.MediumRiskThreshold)
	}
	if s.MediumRiskThreshold >= s.HighRiskThreshold {
		return fmt.Errorf("scoring: mediumRiskThreshold %v must be below highRiskThreshold %v",
			s.MediumRiskThreshold, s.HighRiskThreshold)
	}
	if s.StructuringMin >= s.StructuringMax {
		return fmt.Errorf("scoring: structuring band [%v,%v) is empty", s.StructuringMin, s.StructuringMax)
	}

	d := c.Detection
	if d.ContaminationRate <= 0 || d.ContaminationRate >= 0.5 {
		return fmt.Errorf("detection: contaminationRate %v out of (0,0.5)", d.ContaminationRate)
	}
	if d.ZScoreThreshold <= 0 {
		return fmt.Errorf("detection: zscoreThreshold %v must be positive", d.ZScoreThreshold)
	}
	if d.EarlyMinutes < 0 || d.LateMinutes > 1440 || d.EarlyMinutes >= d.LateMinutes {
		return fmt.Errorf("detection: off-hours window [%d,%d] invalid", d.EarlyMinutes, d.LateMinutes)
	}

	t := c.Training
	if t.TestSize <= 0 || t.TestSize >= 1 {
		return fmt.Errorf("training: testSize %v out of (0,1)", t.TestSize)
	}
	if t.MinRows < 2 {
		return fmt.Errorf("training: minRows %d must be at least 2", t.MinRows)
	}

	return nil
}
