package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file. They are read after .env is loaded.
const (
	EnvReasoningURL   = "SPEND_INSIGHTS_REASONING_URL"
	EnvReasoningModel = "SPEND_INSIGHTS_REASONING_MODEL"
	EnvReasoningKey   = "SPEND_INSIGHTS_REASONING_API_KEY"
	EnvSentryDSN      = "SENTRY_DSN"
)

const DefaultReasoningModel = "llama3.2"

// ExcludeRule hides recurring patterns whose label matches, with optional time bounds
type ExcludeRule struct {
	Pattern string `yaml:"pattern"`
	Before  string `yaml:"before,omitempty"` // Exclude only patterns last seen before this date (YYYY-MM-DD)
	After   string `yaml:"after,omitempty"`  // Exclude only patterns first seen after this date (YYYY-MM-DD)

	// compiled fields
	regex      *regexp.Regexp `yaml:"-"`
	beforeDate time.Time      `yaml:"-"`
	afterDate  time.Time      `yaml:"-"`
}

// ReasoningConfig points at an Ollama-compatible text generation service.
// An empty endpoint disables it and every insight uses the built-in narrative.
type ReasoningConfig struct {
	Endpoint string        `yaml:"endpoint,omitempty"`
	Model    string        `yaml:"model,omitempty"`
	APIKey   string        `yaml:"api_key,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

func (r ReasoningConfig) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultReasoningTimeout
	}
	return r.Timeout
}

// CacheConfig selects the insight cache. An empty path keeps insights in memory only.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl,omitempty"`
	MaxEntries int           `yaml:"max_entries,omitempty"`
	Path       string        `yaml:"path,omitempty"`
}

// RecurrenceConfig is the YAML form of RecurrenceOptions.
type RecurrenceConfig struct {
	Granularity       *float64 `yaml:"granularity,omitempty"`
	RecurrenceOptions `yaml:",inline"`
}

// Options returns detector options with unset fields at their defaults.
func (r RecurrenceConfig) Options() RecurrenceOptions {
	opts := r.RecurrenceOptions
	if r.Granularity != nil {
		opts.Granularity = decimal.NewFromFloat(*r.Granularity)
	}
	return opts.withDefaults()
}

type Config struct {
	// Currency is the ISO code used for display, e.g. "VND" or "SEK"
	Currency string `yaml:"currency,omitempty"`

	// Categories names the category ids found in transaction exports
	Categories []Category `yaml:"categories,omitempty"`

	// Sensitivity is the default anomaly sensitivity (low, medium, high)
	Sensitivity string `yaml:"sensitivity,omitempty"`

	Recurrence RecurrenceConfig `yaml:"recurrence,omitempty"`
	Reasoning  ReasoningConfig  `yaml:"reasoning,omitempty"`
	Cache      CacheConfig      `yaml:"cache,omitempty"`

	// UseDefaultKnown controls whether to include built-in known service patterns.
	// Defaults to true. Set to false to disable all default patterns.
	UseDefaultKnown *bool `yaml:"use_default_known,omitempty"`

	// Known lists extra description patterns used to label uncategorized recurring payments
	Known []KnownService `yaml:"known,omitempty"`

	// Exclude is a list of exclusion rules (can be strings or objects with time bounds)
	Exclude []yaml.Node `yaml:"exclude,omitempty"`

	// SentryDSN enables error reporting for reasoning-service failures
	SentryDSN string `yaml:"sentry_dsn,omitempty"`

	// compiled exclusion rules (not serialized)
	excludeRules []ExcludeRule `yaml:"-"`
}

// DefaultConfigPath returns the default config file path (~/.spend-insights/config.yaml)
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".spend-insights", "config.yaml")
}

// DefaultCachePath returns the suggested SQLite cache location (~/.spend-insights/cache.db)
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".spend-insights", "cache.db")
}

// NewDefaultConfig returns the configuration used when no config file exists.
func NewDefaultConfig() *Config {
	return &Config{}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Sensitivity != "" {
		if _, err := ParseSensitivity(cfg.Sensitivity); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Parse exclude rules (supports both strings and objects)
	for _, node := range cfg.Exclude {
		var rule ExcludeRule

		switch node.Kind {
		case yaml.ScalarNode:
			rule.Pattern = node.Value
		case yaml.MappingNode:
			if err := node.Decode(&rule); err != nil {
				return nil, fmt.Errorf("parsing exclude rule: %w", err)
			}
		default:
			return nil, fmt.Errorf("invalid exclude rule format")
		}

		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", rule.Pattern, err)
		}
		rule.regex = re

		if rule.Before != "" {
			t, err := time.Parse(dateLayout, rule.Before)
			if err != nil {
				return nil, fmt.Errorf("invalid 'before' date %q: %w", rule.Before, err)
			}
			rule.beforeDate = t
		}
		if rule.After != "" {
			t, err := time.Parse(dateLayout, rule.After)
			if err != nil {
				return nil, fmt.Errorf("invalid 'after' date %q: %w", rule.After, err)
			}
			rule.afterDate = t
		}

		cfg.excludeRules = append(cfg.excludeRules, rule)
	}

	// Validate known patterns early so a typo fails at load time
	if _, err := cfg.Classifier(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnv overrides reasoning and reporting settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		return
	}
	if v := getenv(EnvReasoningURL); v != "" {
		c.Reasoning.Endpoint = v
	}
	if v := getenv(EnvReasoningModel); v != "" {
		c.Reasoning.Model = v
	}
	if v := getenv(EnvReasoningKey); v != "" {
		c.Reasoning.APIKey = v
	}
	if v := getenv(EnvSentryDSN); v != "" {
		c.SentryDSN = v
	}
	if c.Reasoning.Endpoint != "" && c.Reasoning.Model == "" {
		c.Reasoning.Model = DefaultReasoningModel
	}
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// Create parent directories if they don't exist
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	// The file may hold an API key
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CategoryLookup returns the configured categories.
func (c *Config) CategoryLookup() Categories {
	if c == nil {
		return Categories{}
	}
	return NewCategories(c.Categories)
}

// Classifier builds the known-service classifier. Defaults come first unless disabled,
// user patterns follow.
func (c *Config) Classifier() (*KnownServiceClassifier, error) {
	if c == nil {
		return NewKnownServiceClassifier(DefaultKnownServices)
	}
	var services []KnownService
	if c.UseDefaultKnown == nil || *c.UseDefaultKnown {
		services = append(services, DefaultKnownServices...)
	}
	services = append(services, c.Known...)
	return NewKnownServiceClassifier(services)
}

// ShouldExclude returns true if the pattern matches any exclude rule
// considering time bounds against the pattern's date range
func (c *Config) ShouldExclude(p RecurrencePattern) bool {
	if c == nil {
		return false
	}
	for _, rule := range c.excludeRules {
		if !rule.regex.MatchString(p.CategoryLabel) {
			continue
		}
		// before: exclude patterns that ended before this date
		// after: exclude patterns that started after this date
		if !rule.beforeDate.IsZero() && !p.LastSeen.Before(rule.beforeDate) {
			continue
		}
		if !rule.afterDate.IsZero() && p.FirstSeen.Before(rule.afterDate) {
			continue
		}
		return true
	}
	return false
}

// FilterPatterns drops excluded patterns.
func (c *Config) FilterPatterns(patterns []RecurrencePattern) []RecurrencePattern {
	kept := make([]RecurrencePattern, 0, len(patterns))
	for _, p := range patterns {
		if !c.ShouldExclude(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

// GenerateConfigTemplate creates a config template naming every category id seen in txs
func GenerateConfigTemplate(txs []Transaction, known Categories) *Config {
	seen := make(map[CategoryID]bool)
	for _, tx := range txs {
		seen[tx.CategoryID] = true
	}
	ids := make([]CategoryID, 0, len(seen))
	for id := range seen {
		if id != NoCategory {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	cfg := &Config{
		Sensitivity: string(SensitivityMedium),
		Reasoning: ReasoningConfig{
			Model:   DefaultReasoningModel,
			Timeout: DefaultReasoningTimeout,
		},
		Cache: CacheConfig{
			TTL:        DefaultInsightTTL,
			MaxEntries: DefaultCacheEntries,
			Path:       DefaultCachePath(),
		},
	}
	for _, id := range ids {
		// Unknown ids get a "Category <id>" placeholder for the user to rename
		cfg.Categories = append(cfg.Categories, Category{ID: id, Name: known.Name(id)})
	}
	return cfg
}
