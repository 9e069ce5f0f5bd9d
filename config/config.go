package config

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/jonwraymond/callops/breaker"
	"github.com/jonwraymond/callops/call"
	"github.com/jonwraymond/callops/classify"
	"github.com/jonwraymond/callops/observe"
)

// DefaultPolicyName is the policy applied to dependencies without a named
// entry.
const DefaultPolicyName = "default"

type BreakerConfig struct {
	FailureThreshold  int           `mapstructure:"failure_threshold"`
	SuccessThreshold  int           `mapstructure:"success_threshold"`
	RecoveryTimeout   time.Duration `mapstructure:"recovery_timeout"`
	HalfOpenMaxProbes int           `mapstructure:"half_open_max_probes"`
}

type PolicyConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinWait     time.Duration `mapstructure:"min_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
	Multiplier  float64       `mapstructure:"multiplier"`
	Jitter      bool          `mapstructure:"jitter"`
}

type ClassifierConfig struct {
	QuotaPhrases     []string      `mapstructure:"quota_phrases"`
	RateLimitFloor   time.Duration `mapstructure:"rate_limit_floor"`
	UnavailableFloor time.Duration `mapstructure:"unavailable_floor"`
	ServerErrorFloor time.Duration `mapstructure:"server_error_floor"`
	QuotaWait        time.Duration `mapstructure:"quota_wait"`
}

type TracingConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Exporter  string  `mapstructure:"exporter"`
	SamplePct float64 `mapstructure:"sample_pct"`
}

type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
}

type LoggingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Level   string `mapstructure:"level"`
}

type TelemetryConfig struct {
	ServiceName string        `mapstructure:"service_name"`
	Version     string        `mapstructure:"version"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

type Config struct {
	Breaker    BreakerConfig           `mapstructure:"breaker"`
	Policies   map[string]PolicyConfig `mapstructure:"policies"`
	Classifier ClassifierConfig        `mapstructure:"classifier"`
	Telemetry  TelemetryConfig         `mapstructure:"telemetry"`
}

// Load reads callops.yaml from the working directory or ./config, applies
// defaults and environment overrides, and validates the result. A missing
// file falls back to defaults and environment alone.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("callops")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("callops")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return unmarshal(v)
}

// LoadFile reads a specific config file. The file must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)

	v.SetEnvPrefix("callops")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.success_threshold", 2)
	v.SetDefault("breaker.recovery_timeout", "30s")
	v.SetDefault("breaker.half_open_max_probes", 1)

	v.SetDefault("policies.default.max_attempts", 3)
	v.SetDefault("policies.default.min_wait", "100ms")
	v.SetDefault("policies.default.max_wait", "30s")
	v.SetDefault("policies.default.multiplier", 2.0)

	v.SetDefault("classifier.rate_limit_floor", "60s")
	v.SetDefault("classifier.unavailable_floor", "30s")
	v.SetDefault("classifier.server_error_floor", "5s")
	v.SetDefault("classifier.quota_wait", "24h")

	v.SetDefault("telemetry.service_name", "callops")
	v.SetDefault("telemetry.logging.level", "info")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Breaker),
		validation.Field(&c.Classifier),
	); err != nil {
		return err
	}

	for name, p := range c.Policies {
		if err := p.Validate(); err != nil {
			return validation.Errors{"policies." + name: err}
		}
	}

	tel := c.Telemetry.Observe()
	return tel.Validate()
}

func (c BreakerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.SuccessThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.RecoveryTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.HalfOpenMaxProbes, validation.Required, validation.Min(1)),
	)
}

func (p PolicyConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.MaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&p.MinWait, validation.Min(time.Millisecond)),
		validation.Field(&p.MaxWait, validation.Min(time.Duration(0))),
		validation.Field(&p.Multiplier, validation.Min(1.0)),
	)
}

func (c ClassifierConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.RateLimitFloor, validation.Min(time.Duration(0))),
		validation.Field(&c.UnavailableFloor, validation.Min(time.Duration(0))),
		validation.Field(&c.ServerErrorFloor, validation.Min(time.Duration(0))),
		validation.Field(&c.QuotaWait, validation.Min(time.Duration(0))),
	)
}

// Breaker converts to the breaker package's configuration.
func (c BreakerConfig) Breaker() breaker.Config {
	return breaker.Config{
		FailureThreshold:  c.FailureThreshold,
		SuccessThreshold:  c.SuccessThreshold,
		RecoveryTimeout:   c.RecoveryTimeout,
		HalfOpenMaxProbes: c.HalfOpenMaxProbes,
	}
}

// Policy converts to the call package's policy value.
func (p PolicyConfig) Policy() call.Policy {
	return call.Policy{
		MaxAttempts: p.MaxAttempts,
		MinWait:     p.MinWait,
		MaxWait:     p.MaxWait,
		Multiplier:  p.Multiplier,
		Jitter:      p.Jitter,
	}
}

// Classifier converts to the classify package's configuration.
func (c ClassifierConfig) Classifier() classify.Config {
	return classify.Config{
		QuotaPhrases:     c.QuotaPhrases,
		RateLimitFloor:   c.RateLimitFloor,
		UnavailableFloor: c.UnavailableFloor,
		ServerErrorFloor: c.ServerErrorFloor,
		QuotaWait:        c.QuotaWait,
	}
}

// Observe converts to the observe package's configuration.
func (t TelemetryConfig) Observe() observe.Config {
	return observe.Config{
		ServiceName: t.ServiceName,
		Version:     t.Version,
		Tracing: observe.TracingConfig{
			Enabled:   t.Tracing.Enabled,
			Exporter:  t.Tracing.Exporter,
			SamplePct: t.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  t.Metrics.Enabled,
			Exporter: t.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: t.Logging.Enabled,
			Level:   t.Logging.Level,
		},
	}
}

// PolicyFor returns the named dependency's retry policy, falling back to the
// default policy, then to the call package's own defaults.
func (c *Config) PolicyFor(dependency string) call.Policy {
	if p, ok := c.Policies[dependency]; ok {
		return p.Policy()
	}
	if p, ok := c.Policies[DefaultPolicyName]; ok {
		return p.Policy()
	}
	return call.Policy{}
}
