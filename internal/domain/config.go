package domain

import (
	"sync/atomic"
	"time"
)

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Component configurations
	Store     StoreConfig     `json:"store"`
	Cache     CacheConfig     `json:"cache"`
	EventBus  EventBusConfig  `json:"eventBus"`
	Reasoning ReasoningConfig `json:"reasoning"`

	// Engine holds the initial tunables. At runtime the live values are
	// read through a ConfigHolder, not from here.
	Engine EngineConfig `json:"engine"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// EngineConfig is the runtime-tunable parameter set for scoring, fraud
// assessment and the monitoring loop. Instances are immutable once
// published through a ConfigHolder; updates swap in a fresh snapshot.
type EngineConfig struct {
	// AnomalyThreshold classifies scored events: above it HIGH, above
	// 70% of it MEDIUM, otherwise LOW.
	AnomalyThreshold float64 `json:"anomalyThreshold"`

	// SeverityWeights are the base risk contributions per severity.
	SeverityWeights map[Severity]float64 `json:"severityWeights"`

	// HistoricalWindow bounds the lookback for similarity scoring.
	HistoricalWindow time.Duration `json:"historicalWindow"`

	// Component weights for the composite risk score.
	HistoricalWeight float64 `json:"historicalWeight"`
	ContextualWeight float64 `json:"contextualWeight"`

	// Fraud amount thresholds by entity class.
	IndividualThreshold  float64 `json:"individualThreshold"`
	BusinessThreshold    float64 `json:"businessThreshold"`
	InstitutionThreshold float64 `json:"institutionThreshold"`

	// SanctionedCountries are ISO country codes that raise fraud risk.
	SanctionedCountries []string `json:"sanctionedCountries"`

	// Velocity tiers: recent transaction counts above each raise fraud
	// risk progressively.
	VelocityModerate int `json:"velocityModerate"`
	VelocityHigh     int `json:"velocityHigh"`
	VelocityExtreme  int `json:"velocityExtreme"`

	// SlowProcessingMs flags actors whose mean processing time exceeds it.
	SlowProcessingMs float64 `json:"slowProcessingMs"`

	// Normal transaction hours. An hour before DayStartHour or after
	// DayEndHour counts as unusual timing.
	DayStartHour int `json:"dayStartHour"`
	DayEndHour   int `json:"dayEndHour"`

	// AnalysisInterval is the pause between continuous monitoring passes.
	AnalysisInterval time.Duration `json:"analysisInterval"`
}

// DefaultEngineConfig returns the standard tunables.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		AnomalyThreshold: 0.85,
		SeverityWeights: map[Severity]float64{
			SeverityCritical: 0.8,
			SeverityHigh:     0.6,
			SeverityMedium:   0.4,
			SeverityLow:      0.2,
		},
		HistoricalWindow:     7 * 24 * time.Hour,
		HistoricalWeight:     0.4,
		ContextualWeight:     0.3,
		IndividualThreshold:  10000,
		BusinessThreshold:    50000,
		InstitutionThreshold: 100000,
		SanctionedCountries:  []string{"IR", "KP", "SY", "CU"},
		VelocityModerate:     5,
		VelocityHigh:         10,
		VelocityExtreme:      20,
		SlowProcessingMs:     5000,
		DayStartHour:         6,
		DayEndHour:           22,
		AnalysisInterval:     15 * time.Minute,
	}
}

// UnusualHour reports whether the timestamp falls outside the configured
// normal transaction hours. A zero timestamp is treated as normal.
func (c *EngineConfig) UnusualHour(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	h := ts.Hour()
	return h < c.DayStartHour || h > c.DayEndHour
}

// SeverityWeight returns the base weight for a severity, falling back to
// the low-tier weight for unknown values.
func (c *EngineConfig) SeverityWeight(s Severity) float64 {
	if w, ok := c.SeverityWeights[ParseSeverity(string(s))]; ok {
		return w
	}
	return 0.2
}

// IsSanctioned reports whether the country code is on the sanctioned list.
func (c *EngineConfig) IsSanctioned(country string) bool {
	for _, cc := range c.SanctionedCountries {
		if cc == country {
			return true
		}
	}
	return false
}

// ConfigHolder publishes an immutable EngineConfig snapshot to concurrent
// readers. Load never blocks; Store replaces the whole snapshot.
type ConfigHolder struct {
	ptr atomic.Pointer[EngineConfig]
}

// NewConfigHolder seeds a holder with the given snapshot.
func NewConfigHolder(cfg EngineConfig) *ConfigHolder {
	h := &ConfigHolder{}
	h.ptr.Store(&cfg)
	return h
}

// Load returns the current snapshot. Callers must not mutate it.
func (h *ConfigHolder) Load() *EngineConfig {
	return h.ptr.Load()
}

// Store publishes a new snapshot. In-flight operations keep the snapshot
// they started with.
func (h *ConfigHolder) Store(cfg EngineConfig) {
	h.ptr.Store(&cfg)
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

	// TierEnterprise includes multi-node, SSO, etc.
	TierEnterprise Tier = "enterprise"
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
		Store: StoreConfig{
			Driver:     "sqlite",
			SQLitePath: "./kestrel.db",
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
		Reasoning: ReasoningConfig{
			Enabled:        false,
			TimeoutSeconds: 30,
		},
		Engine: DefaultEngineConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Store = StoreConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "kestrel",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
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
