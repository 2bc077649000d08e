// Package config holds the client configuration a connector needs to reach the
// platform: workspace, access key, server URL, simulator context and retry
// policy. Values come from defaults, an optional TOML file, a .env file and
// the process environment, in increasing order of precedence. The result is a
// plain struct handed to the connector; nothing here is global.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ConfigFormatVersion is the current version of the configuration file format.
const ConfigFormatVersion = "0.1.0"

// Environment variables recognised by LoadConfig.
const (
	EnvWorkspace     = "SIM_WORKSPACE"
	EnvAccessKey     = "SIM_ACCESS_KEY"
	EnvAPIHost       = "SIM_API_HOST"
	EnvContext       = "SIM_CONTEXT"
	EnvEnableLogging = "SIM_ENABLE_LOGGING"
	EnvRetry         = "SIM_RETRY"
)

const (
	DefaultServerURL        = "http://localhost:8480"
	DefaultRequestTimeout   = 60 * time.Second
	DefaultTransportRetries = 3
	DefaultRetryLimit       = 3
	DefaultEnvFile          = ".env"
)

// formatConstraint accepts any file written for the same minor version.
var formatConstraint *semver.Constraints

func init() {
	var err error
	formatConstraint, err = semver.NewConstraint("~" + ConfigFormatVersion)
	if err != nil {
		panic(err)
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// RetryConfig controls re-registration after the platform revokes a session.
type RetryConfig struct {
	Enabled bool   `toml:"enabled"`
	Limit   int    `toml:"limit" validate:"gte=1,lte=100"` // re-registrations per advance
	Delay   string `toml:"delay"`                          // wait before re-registering
}

// ClientConfig is everything a connector needs besides the descriptor.
type ClientConfig struct {
	FormatVersion    string      `toml:"format_version"`
	Workspace        string      `toml:"workspace" validate:"required"`
	AccessKey        string      `toml:"access_key" validate:"required"`
	ServerURL        string      `toml:"server_url" validate:"required,url"`
	SimulatorContext string      `toml:"simulator_context" validate:"omitempty,json"` // raw JSON object
	EnableLogging    bool        `toml:"enable_logging"`
	RequestTimeout   string      `toml:"request_timeout"`
	TransportRetries int         `toml:"transport_retries" validate:"gte=0,lte=10"`
	Retry            RetryConfig `toml:"retry"`

	requestTimeout time.Duration
	retryDelay     time.Duration
}

// Default returns a configuration with every optional field filled in.
func Default() *ClientConfig {
	return &ClientConfig{
		FormatVersion:    ConfigFormatVersion,
		ServerURL:        DefaultServerURL,
		TransportRetries: DefaultTransportRetries,
		Retry: RetryConfig{
			Limit: DefaultRetryLimit,
		},
		requestTimeout: DefaultRequestTimeout,
	}
}

// LoadConfig builds a configuration from defaults, the TOML file (skipped when
// filename is empty), the env files (DefaultEnvFile when none are given;
// missing files are ignored) and the environment, then validates it.
func LoadConfig(filename string, envFiles ...string) (*ClientConfig, error) {
	cfg := Default()

	if filename != "" {
		content, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if _, err := toml.Decode(string(content), cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	dotenv := map[string]string{}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		vals, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("error reading env file %s: %w", f, err)
		}
		for k, v := range vals {
			dotenv[k] = v
		}
	}

	if err := cfg.applyEnv(func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return dotenv[key]
	}); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (cfg *ClientConfig) applyEnv(lookup func(string) string) error {
	if v := lookup(EnvWorkspace); v != "" {
		cfg.Workspace = v
	}
	if v := lookup(EnvAccessKey); v != "" {
		cfg.AccessKey = v
	}
	if v := lookup(EnvAPIHost); v != "" {
		cfg.ServerURL = v
	}
	if v := lookup(EnvContext); v != "" {
		cfg.SimulatorContext = v
	}
	if v := lookup(EnvEnableLogging); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvEnableLogging, err)
		}
		cfg.EnableLogging = b
	}
	if v := lookup(EnvRetry); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRetry, err)
		}
		cfg.Retry.Enabled = b
	}
	return nil
}

// Validate checks required fields and parses durations. Empty optional fields
// are set to their defaults.
func (cfg *ClientConfig) Validate() error {
	if cfg.FormatVersion == "" {
		cfg.FormatVersion = ConfigFormatVersion
	}
	v, err := semver.NewVersion(cfg.FormatVersion)
	if err != nil || !formatConstraint.Check(v) {
		return fmt.Errorf("unsupported config file format version: %s", cfg.FormatVersion)
	}

	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.Retry.Limit == 0 {
		cfg.Retry.Limit = DefaultRetryLimit
	}

	if err := validate.Struct(cfg); err != nil {
		return describeValidationError(err)
	}

	cfg.requestTimeout = DefaultRequestTimeout
	if cfg.RequestTimeout != "" {
		d, err := time.ParseDuration(cfg.RequestTimeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid request_timeout: %q", cfg.RequestTimeout)
		}
		cfg.requestTimeout = d
	}
	cfg.retryDelay = 0
	if cfg.Retry.Delay != "" {
		d, err := time.ParseDuration(cfg.Retry.Delay)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid retry.delay: %q", cfg.Retry.Delay)
		}
		cfg.retryDelay = d
	}
	return nil
}

func describeValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fieldName(fe.Namespace()), fe.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// fieldName maps a validator namespace to the TOML key users write.
func fieldName(ns string) string {
	names := map[string]string{
		"ClientConfig.Workspace":        "workspace",
		"ClientConfig.AccessKey":        "access_key",
		"ClientConfig.ServerURL":        "server_url",
		"ClientConfig.SimulatorContext": "simulator_context",
		"ClientConfig.TransportRetries": "transport_retries",
		"ClientConfig.Retry.Limit":      "retry.limit",
	}
	if n, ok := names[ns]; ok {
		return n
	}
	return ns
}

// GetServerURL implements httpclient.Configurator.
func (cfg *ClientConfig) GetServerURL() string {
	return cfg.ServerURL
}

// GetAccessKey implements httpclient.Configurator.
func (cfg *ClientConfig) GetAccessKey() string {
	return cfg.AccessKey
}

// GetRequestTimeout implements httpclient.Configurator.
func (cfg *ClientConfig) GetRequestTimeout() time.Duration {
	if cfg.requestTimeout == 0 {
		return DefaultRequestTimeout
	}
	return cfg.requestTimeout
}

// GetRetryDelay returns the parsed retry.delay.
func (cfg *ClientConfig) GetRetryDelay() time.Duration {
	return cfg.retryDelay
}

// Redacted returns a copy safe to log.
func (cfg *ClientConfig) Redacted() ClientConfig {
	cp := *cfg
	if cp.AccessKey != "" {
		cp.AccessKey = "****"
	}
	return cp
}
