// Package config loads service and CLI settings from an optional config.yaml,
// CVETRIAGE_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ortelius/cve-triage/internal/normalize"
	"github.com/spf13/viper"
)

const appName = "cve-triage"

// Default configuration values
const (
	defaultIdentifierColumn     = "cve_id"
	defaultExportFilename       = "cve_enrichment.xlsx"
	defaultRemediationPolicy    = "links"
	defaultRequestTimeoutSec    = 120
	defaultPort                 = "3000"
	defaultMaxConcurrentFetches = 5
	defaultMaxRetries           = 3
	defaultRateLimitRequests    = 5.0
	defaultRateLimitPeriodSec   = 30
	defaultOpenAIModel          = "gpt-4o-mini"
	defaultKafkaTopic           = "cve-enrichment-events"
	defaultKafkaGroupID         = "cve-triage-worker"
	defaultCacheTTLHours        = 24
	defaultSessionTTLMin        = 60
	defaultMaxSessions          = 10000
)

// Config holds every setting of the triage surface and the enrichment backend
type Config struct {
	APIBaseURL        string `mapstructure:"api_base_url"`
	DefaultOwner      string `mapstructure:"default_owner"`
	RemediationPolicy string `mapstructure:"remediation_policy"`
	IdentifierColumn  string `mapstructure:"identifier_column"`
	ExportFilename    string `mapstructure:"export_filename"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
	Port              string `mapstructure:"port"`
	DemoMode          bool   `mapstructure:"demo_mode"`
	Debug             bool   `mapstructure:"debug"`
	SessionTTLMin     int    `mapstructure:"session_ttl_minutes"`
	MaxSessions       int    `mapstructure:"max_sessions"`

	NvdAPIKey            string  `mapstructure:"nvd_api_key"`
	RateLimitRequests    float64 `mapstructure:"nvd_rate_limit_requests"`
	RateLimitPeriodSec   int     `mapstructure:"nvd_rate_limit_period_sec"`
	MaxConcurrentFetches int     `mapstructure:"max_concurrent_fetches"`
	MaxRetries           int     `mapstructure:"max_retries"`

	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	OpenAIModel  string `mapstructure:"openai_model"`

	KafkaBrokers      string `mapstructure:"kafka_brokers"`
	KafkaTopic        string `mapstructure:"kafka_topic"`
	KafkaRequestTopic string `mapstructure:"kafka_request_topic"`
	KafkaGroupID      string `mapstructure:"kafka_group_id"`
	KafkaAPIKey       string `mapstructure:"kafka_api_key"`
	KafkaAPISecret    string `mapstructure:"kafka_api_secret"`

	ArangoURL     string `mapstructure:"arango_url"`
	ArangoUser    string `mapstructure:"arango_user"`
	ArangoPass    string `mapstructure:"arango_pass"`
	CacheTTLHours int    `mapstructure:"cache_ttl_hours"`
}

// ErrNoEndpoint is returned when no enrichment base URL is configured and demo mode is off
var ErrNoEndpoint = errors.New("enrichment API base URL is not configured (set CVETRIAGE_API_BASE_URL or enable demo mode)")

// Load reads the configuration. configFile may be empty, in which case config.yaml is
// searched in the working directory, $HOME/.config/cve-triage and /etc/cve-triage.
func Load(configFile string) (Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/" + appName)
		v.AddConfigPath("/etc/" + appName)
	}

	setDefaults(v)

	v.SetEnvPrefix("CVETRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("nvd_api_key", "CVETRIAGE_NVD_API_KEY", "NVD_API_KEY")
	_ = v.BindEnv("openai_api_key", "CVETRIAGE_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("port", "CVETRIAGE_PORT", "MS_PORT")
	_ = v.BindEnv("kafka_brokers", "CVETRIAGE_KAFKA_BROKERS", "KAFKA_BROKERS")
	_ = v.BindEnv("kafka_api_key", "CVETRIAGE_KAFKA_API_KEY", "KAFKA_API_KEY")
	_ = v.BindEnv("kafka_api_secret", "CVETRIAGE_KAFKA_API_SECRET", "KAFKA_API_SECRET")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	cfg.applyFloors()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_base_url", "")
	v.SetDefault("default_owner", "")
	v.SetDefault("remediation_policy", defaultRemediationPolicy)
	v.SetDefault("identifier_column", defaultIdentifierColumn)
	v.SetDefault("export_filename", defaultExportFilename)
	v.SetDefault("request_timeout_sec", defaultRequestTimeoutSec)
	v.SetDefault("port", defaultPort)
	v.SetDefault("demo_mode", false)
	v.SetDefault("debug", false)
	v.SetDefault("session_ttl_minutes", defaultSessionTTLMin)
	v.SetDefault("max_sessions", defaultMaxSessions)
	v.SetDefault("nvd_api_key", "")
	v.SetDefault("nvd_rate_limit_requests", defaultRateLimitRequests)
	v.SetDefault("nvd_rate_limit_period_sec", defaultRateLimitPeriodSec)
	v.SetDefault("max_concurrent_fetches", defaultMaxConcurrentFetches)
	v.SetDefault("max_retries", defaultMaxRetries)
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", defaultOpenAIModel)
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", defaultKafkaTopic)
	v.SetDefault("kafka_request_topic", "")
	v.SetDefault("kafka_group_id", defaultKafkaGroupID)
	v.SetDefault("kafka_api_key", "")
	v.SetDefault("kafka_api_secret", "")
	v.SetDefault("arango_url", "")
	v.SetDefault("arango_user", "root")
	v.SetDefault("arango_pass", "")
	v.SetDefault("cache_ttl_hours", defaultCacheTTLHours)
}

func (c *Config) applyFloors() {
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	c.RemediationPolicy = strings.ToLower(strings.TrimSpace(c.RemediationPolicy))
	if strings.TrimSpace(c.IdentifierColumn) == "" {
		c.IdentifierColumn = defaultIdentifierColumn
	}
	if strings.TrimSpace(c.ExportFilename) == "" {
		c.ExportFilename = defaultExportFilename
	}
	if c.RequestTimeoutSec <= 0 {
		c.RequestTimeoutSec = defaultRequestTimeoutSec
	}
	if c.MaxConcurrentFetches <= 0 {
		c.MaxConcurrentFetches = defaultMaxConcurrentFetches
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RateLimitRequests <= 0 {
		c.RateLimitRequests = defaultRateLimitRequests
	}
	if c.RateLimitPeriodSec <= 0 {
		c.RateLimitPeriodSec = defaultRateLimitPeriodSec
	}
	if c.SessionTTLMin <= 0 {
		c.SessionTTLMin = defaultSessionTTLMin
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = defaultMaxSessions
	}
	if c.CacheTTLHours <= 0 {
		c.CacheTTLHours = defaultCacheTTLHours
	}
	if c.KafkaTopic == "" {
		c.KafkaTopic = defaultKafkaTopic
	}
	if c.KafkaGroupID == "" {
		c.KafkaGroupID = defaultKafkaGroupID
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = defaultOpenAIModel
	}
}

// Validate rejects settings that cannot be used as given
func (c Config) Validate() error {
	if _, err := normalize.ParsePolicy(c.RemediationPolicy); err != nil {
		return fmt.Errorf("invalid remediation_policy: %w", err)
	}
	return nil
}

// RequireEndpoint reports ErrNoEndpoint when submits cannot reach any provider
func (c Config) RequireEndpoint() error {
	if c.APIBaseURL == "" && !c.DemoMode {
		return ErrNoEndpoint
	}
	return nil
}

// RequestTimeout is the enrichment call timeout
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// SessionTTL is how long an idle triage session is kept
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMin) * time.Minute
}

// CacheTTL is how long a cached enrichment row stays fresh
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// Brokers splits the comma separated Kafka broker list
func (c Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
