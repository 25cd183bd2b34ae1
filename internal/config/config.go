// Package config loads projectideas configuration from defaults, an optional
// file, PROJECTIDEAS_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jacentio/projectideas/internal/logging"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "PROJECTIDEAS"

// Search providers.
const (
	SearchNone          = "none"
	SearchElasticsearch = "elasticsearch"
	SearchOpenSearch    = "opensearch"
)

// Config is the full application configuration.
type Config struct {
	Log     logging.Config `mapstructure:"log"`
	AWS     AWSConfig      `mapstructure:"aws"`
	Store   StoreConfig    `mapstructure:"store"`
	Search  SearchConfig   `mapstructure:"search"`
	Notify  NotifyConfig   `mapstructure:"notify"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
}

// AWSConfig configures the AWS SDK clients.
type AWSConfig struct {
	Region string `mapstructure:"region"`
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// StoreConfig configures the document store.
type StoreConfig struct {
	TablePrefix     string `mapstructure:"table_prefix"`
	PageSize        int    `mapstructure:"page_size"`
	ConsistentReads bool   `mapstructure:"consistent_reads"`
	// StreamRenames moves the username fan-out from UpdateUser to the users
	// table stream handler.
	StreamRenames   bool   `mapstructure:"stream_renames"`
}

// SearchConfig configures the full-text search index.
type SearchConfig struct {
	Provider    string   `mapstructure:"provider"`
	URLs        []string `mapstructure:"urls"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	IndexPrefix string   `mapstructure:"index_prefix"`
}

// NotifyConfig configures the notification queue. An empty QueueURL disables
// notifications and welcome emails.
type NotifyConfig struct {
	QueueURL string `mapstructure:"queue_url"`
}

// MetricsConfig toggles Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Log: logging.DefaultConfig(),
		AWS: AWSConfig{Region: "us-east-1"},
		Store: StoreConfig{
			TablePrefix: "projectideas",
			PageSize:    10,
		},
		Search: SearchConfig{
			Provider:    SearchNone,
			IndexPrefix: "projectideas",
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":       "log.level",
	"log-format":      "log.format",
	"aws-region":      "aws.region",
	"aws-endpoint":    "aws.endpoint",
	"table-prefix":    "store.table_prefix",
	"page-size":       "store.page_size",
	"stream-renames":  "store.stream_renames",
	"search-provider": "search.provider",
	"search-urls":     "search.urls",
	"queue-url":       "notify.queue_url",
}

// RegisterFlags adds the configuration flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	d := DefaultConfig()
	flags.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", d.Log.Format, "log format (json, console)")
	flags.String("aws-region", d.AWS.Region, "AWS region")
	flags.String("aws-endpoint", "", "AWS endpoint override, e.g. http://localhost:8000 for DynamoDB Local")
	flags.String("table-prefix", d.Store.TablePrefix, "DynamoDB table name prefix")
	flags.Int("page-size", d.Store.PageSize, "documents per page")
	flags.Bool("stream-renames", d.Store.StreamRenames, "rewrite usernames from the users table stream instead of on update")
	flags.String("search-provider", d.Search.Provider, "search provider (none, elasticsearch, opensearch)")
	flags.StringSlice("search-urls", nil, "search cluster URLs")
	flags.String("queue-url", "", "SQS queue URL for notifications")
}

// Load reads the configuration. configFile may be empty; flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	v.SetDefault("aws.region", cfg.AWS.Region)
	v.SetDefault("aws.endpoint", cfg.AWS.Endpoint)
	v.SetDefault("aws.access_key_id", cfg.AWS.AccessKeyID)
	v.SetDefault("aws.secret_access_key", cfg.AWS.SecretAccessKey)

	v.SetDefault("store.table_prefix", cfg.Store.TablePrefix)
	v.SetDefault("store.page_size", cfg.Store.PageSize)
	v.SetDefault("store.consistent_reads", cfg.Store.ConsistentReads)
	v.SetDefault("store.stream_renames", cfg.Store.StreamRenames)

	v.SetDefault("search.provider", cfg.Search.Provider)
	v.SetDefault("search.urls", cfg.Search.URLs)
	v.SetDefault("search.username", cfg.Search.Username)
	v.SetDefault("search.password", cfg.Search.Password)
	v.SetDefault("search.index_prefix", cfg.Search.IndexPrefix)

	v.SetDefault("notify.queue_url", cfg.Notify.QueueURL)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	if c.AWS.Region == "" {
		errs = append(errs, errors.New("aws.region is required"))
	}
	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		errs = append(errs, errors.New("aws.access_key_id and aws.secret_access_key must be set together"))
	}
	if c.Store.TablePrefix == "" {
		errs = append(errs, errors.New("store.table_prefix is required"))
	}
	if c.Store.PageSize < 1 || c.Store.PageSize > 1000 {
		errs = append(errs, fmt.Errorf("store.page_size must be between 1 and 1000, got %d", c.Store.PageSize))
	}
	switch c.Search.Provider {
	case SearchNone:
	case SearchElasticsearch, SearchOpenSearch:
		if len(c.Search.URLs) == 0 {
			errs = append(errs, fmt.Errorf("search.urls is required for provider %s", c.Search.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown search.provider %q", c.Search.Provider))
	}
	return errors.Join(errs...)
}
