// Package config loads and validates fetcher configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
	"github.com/JakeFAU/iata-code-fetcher/internal/crawler"
)

// Retry strategies.
const (
	RetryFixed       = "fixed"
	RetryExponential = "exponential"
)

// Backend names shared by the cursor and storage sections.
const (
	BackendNone     = "none"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendLocal    = "local"
	BackendGCS      = "gcs"
)

// Config captures all fetcher configuration knobs loaded via Viper.
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Output  OutputConfig  `mapstructure:"output"`
	Cursor  CursorConfig  `mapstructure:"cursor"`
	Storage StorageConfig `mapstructure:"storage"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CatalogConfig locates the publication search pages.
type CatalogConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	Page         int    `mapstructure:"page"`
	CarrierBlock int    `mapstructure:"carrier_block"`
	AirportBlock int    `mapstructure:"airport_block"`
}

// CrawlConfig governs enumeration and request pacing.
type CrawlConfig struct {
	Alphabet      string        `mapstructure:"alphabet"`
	Concurrency   int           `mapstructure:"concurrency"`
	ProgressEvery int           `mapstructure:"progress_every"`
	Pause         time.Duration `mapstructure:"pause"`
	UserAgent     string        `mapstructure:"user_agent"`
	RespectRobots bool          `mapstructure:"respect_robots"`
}

// HTTPConfig configures the HTTP client.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// RetryConfig selects the per-code retry policy.
type RetryConfig struct {
	Strategy    string        `mapstructure:"strategy"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// OutputConfig names the crawl logs.
type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	CarrierFile string `mapstructure:"carrier_file"`
	AirportFile string `mapstructure:"airport_file"`
	Fsync       bool   `mapstructure:"fsync"`
}

// CursorConfig selects where resume checkpoints are kept.
type CursorConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table"`
}

// StorageConfig selects where normalized datasets are uploaded.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for dataset notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("IATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.base_url", crawler.DefaultBaseURL)
	v.SetDefault("catalog.page", crawler.DefaultPage)
	v.SetDefault("catalog.carrier_block", crawler.DefaultCarrierBlock)
	v.SetDefault("catalog.airport_block", crawler.DefaultAirportBlock)
	v.SetDefault("crawl.alphabet", codes.DefaultAlphabet)
	v.SetDefault("crawl.concurrency", 1)
	v.SetDefault("crawl.progress_every", crawler.DefaultProgressEvery)
	v.SetDefault("crawl.pause", "0s")
	v.SetDefault("crawl.user_agent", "iatafetcher/1.0")
	v.SetDefault("crawl.respect_robots", false)
	v.SetDefault("http.timeout", "20s")
	v.SetDefault("retry.strategy", RetryFixed)
	v.SetDefault("retry.max_attempts", crawler.DefaultMaxAttempts)
	v.SetDefault("retry.delay", crawler.DefaultRetryDelay.String())
	v.SetDefault("retry.max_delay", "2m")
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.carrier_file", "carrier_data_full.jsonl")
	v.SetDefault("output.airport_file", "airport_data_full.jsonl")
	v.SetDefault("output.fsync", true)
	v.SetDefault("cursor.backend", BackendNone)
	v.SetDefault("cursor.dir", ".")
	v.SetDefault("cursor.dsn", "")
	v.SetDefault("cursor.table", "crawl_cursors")
	v.SetDefault("storage.backend", BackendNone)
	v.SetDefault("storage.base_dir", "")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "datasets")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url must be set")
	}
	if _, err := codes.NewSpace(c.Crawl.Alphabet, 1); err != nil {
		return fmt.Errorf("crawl.alphabet must be valid: %w", err)
	}
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be > 0")
	}
	if c.Crawl.ProgressEvery <= 0 {
		return fmt.Errorf("crawl.progress_every must be > 0")
	}
	if c.Crawl.Pause < 0 {
		return fmt.Errorf("crawl.pause must be >= 0")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if err := c.Retry.validate(); err != nil {
		return err
	}
	if c.Output.CarrierFile == "" || c.Output.AirportFile == "" {
		return fmt.Errorf("output.carrier_file and output.airport_file must be set")
	}
	if err := c.Cursor.validate(); err != nil {
		return err
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	return nil
}

func (r RetryConfig) validate() error {
	switch r.Strategy {
	case RetryFixed, RetryExponential:
	default:
		return fmt.Errorf("retry.strategy must be %q or %q", RetryFixed, RetryExponential)
	}
	if r.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	if r.Delay < 0 {
		return fmt.Errorf("retry.delay must be >= 0")
	}
	if r.Strategy == RetryExponential && r.MaxDelay < r.Delay {
		return fmt.Errorf("retry.max_delay must be >= retry.delay")
	}
	return nil
}

func (c CursorConfig) validate() error {
	switch c.Backend {
	case BackendNone, BackendFile:
	case BackendPostgres:
		if c.DSN == "" {
			return fmt.Errorf("cursor.dsn must be set when cursor.backend is postgres")
		}
		if !tableName.MatchString(c.Table) {
			return fmt.Errorf("cursor.table must be a plain SQL identifier")
		}
	default:
		return fmt.Errorf("cursor.backend must be one of none, file, postgres")
	}
	return nil
}

func (s StorageConfig) validate() error {
	switch s.Backend {
	case BackendNone:
	case BackendLocal:
		if s.BaseDir == "" {
			return fmt.Errorf("storage.base_dir must be set when storage.backend is local")
		}
	case BackendGCS:
		if s.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.backend is gcs")
		}
	default:
		return fmt.Errorf("storage.backend must be one of none, local, gcs")
	}
	return nil
}

// CatalogLayout converts the catalog section for the fetcher.
func (c Config) CatalogLayout() crawler.Catalog {
	return crawler.Catalog{
		BaseURL:      c.Catalog.BaseURL,
		Page:         c.Catalog.Page,
		CarrierBlock: c.Catalog.CarrierBlock,
		AirportBlock: c.Catalog.AirportBlock,
	}
}

// RetryPolicy builds the configured retry policy.
func (c Config) RetryPolicy() crawler.RetryPolicy {
	if c.Retry.Strategy == RetryExponential {
		return crawler.NewExponentialRetryPolicy(c.Retry.MaxAttempts, c.Retry.Delay, c.Retry.MaxDelay)
	}
	return crawler.NewFixedRetryPolicy(c.Retry.MaxAttempts, c.Retry.Delay)
}

// LogPath returns the crawl log path for kind.
func (c Config) LogPath(kind codes.Kind) string {
	name := c.Output.CarrierFile
	if kind == codes.KindAirport {
		name = c.Output.AirportFile
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Output.Dir, name)
}
