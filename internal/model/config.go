package model

import "time"

// Config is the complete casewarden configuration.
// Populated from defaults, the config file, CASEWARDEN_* env vars and flags.
type Config struct {
	Thresholds ThresholdConfig `yaml:"thresholds" mapstructure:"thresholds"`
	Integrity  IntegrityConfig `yaml:"integrity" mapstructure:"integrity"`
	Cache      CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Batch      BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Output     OutputConfig    `yaml:"output" mapstructure:"output"`
	LLM        LLMConfig       `yaml:"llm" mapstructure:"llm"`
}

// ThresholdConfig tunes the statistic extractor and matcher.
type ThresholdConfig struct {
	// Tolerance is the relative tolerance for approximate matches (0.01 = ±1%).
	Tolerance float64 `yaml:"tolerance" mapstructure:"tolerance"`
	// CitationWindow is how far (in bytes) a citation token may sit from a
	// numeric claim and still count as citing it.
	CitationWindow int `yaml:"citation_window" mapstructure:"citation_window"`
	// UncitedWindow is the scan distance used when deciding a significant
	// number has no citation at all.
	UncitedWindow int `yaml:"uncited_window" mapstructure:"uncited_window"`
	// CurrencyFloor and CountFloor are the significance floors for uncited
	// currency amounts and bare counts. Percentages and scaled magnitudes
	// are always significant.
	CurrencyFloor float64 `yaml:"currency_floor" mapstructure:"currency_floor"`
	CountFloor    float64 `yaml:"count_floor" mapstructure:"count_floor"`
	// UncitedCeiling escalates the statistics step to warn once exceeded.
	UncitedCeiling int `yaml:"uncited_ceiling" mapstructure:"uncited_ceiling"`
}

// IntegrityConfig tunes the hash/signature verifier.
type IntegrityConfig struct {
	// Denylist holds phrases characteristic of synthesized "compilation"
	// sources. A match is a hard fabrication failure. Policy, not algorithm:
	// operators extend this list per deployment.
	Denylist []string `yaml:"denylist" mapstructure:"denylist"`
	// DenylistScanBytes bounds how far into the content the denylist scan looks.
	DenylistScanBytes int `yaml:"denylist_scan_bytes" mapstructure:"denylist_scan_bytes"`
}

// CacheConfig controls the in-process bundle read cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// BatchConfig controls cross-case batch verification.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	// CasesPerSecond bounds how fast verifications start per filesystem root,
	// to keep batch runs polite on shared network mounts. 0 disables.
	CasesPerSecond float64 `yaml:"cases_per_second" mapstructure:"cases_per_second"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// LLMConfig configures the optional advisory report summary.
type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // "" disables
	Model    string `yaml:"model" mapstructure:"model"`
	APIKey   string `yaml:"-" mapstructure:"-"` // Env only, never persisted
	BaseURL  string `yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Thresholds: ThresholdConfig{
			Tolerance:      0.01,
			CitationWindow: 150,
			UncitedWindow:  100,
			CurrencyFloor:  10_000,
			CountFloor:     100,
			UncitedCeiling: 5,
		},
		Integrity: IntegrityConfig{
			Denylist: []string{
				"research compilation from",
				"compiled from multiple sources",
				"synthesized from available",
				"aggregated from various sources",
				"this summary combines",
			},
			DenylistScanBytes: 512,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
		Batch: BatchConfig{
			Concurrency:    4,
			CasesPerSecond: 0,
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
	}
}
