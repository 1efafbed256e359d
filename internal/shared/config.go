package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Values from the file can be overridden by TRACKDL_* environment variables, see [ApplyEnv].
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Output      OutputConfig      `toml:"output"`
	Database    DatabaseConfig    `toml:"database"`
}

// CredentialsConfig contains the account used to open a catalog session.
type CredentialsConfig struct {
	Username string `toml:"username" env:"USERNAME"`
	Password string `toml:"password" env:"PASSWORD"`
}

// CatalogConfig contains catalog & transport service settings.
type CatalogConfig struct {
	BaseURL        string  `toml:"base_url" env:"CATALOG_URL"`
	TokenURL       string  `toml:"token_url" env:"TOKEN_URL"`
	ClientID       string  `toml:"client_id" env:"CLIENT_ID"`
	RateLimit      float64 `toml:"rate_limit" env:"RATE_LIMIT"`
	ChunkSize      int     `toml:"chunk_size" env:"CHUNK_SIZE"`
	PollIntervalMS int     `toml:"poll_interval_ms" env:"POLL_INTERVAL_MS"`
	TimeoutSeconds int     `toml:"timeout_seconds" env:"TIMEOUT_SECONDS"`
}

// OutputConfig controls where decrypted tracks go.
type OutputConfig struct {
	Directory       string `toml:"directory" env:"OUTPUT_DIR"`
	Extension       string `toml:"extension" env:"OUTPUT_EXT"`
	Helper          string `toml:"helper" env:"HELPER"`
	ContinueOnError bool   `toml:"continue_on_error" env:"CONTINUE_ON_ERROR"`
}

// DatabaseConfig contains download history database settings. An empty path disables history.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// envPrefix is prepended to every env tag in [Config].
const envPrefix = "TRACKDL_"

// PollInterval returns the reactor tick as a [time.Duration], defaulting to 100ms.
func (c CatalogConfig) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Timeout returns the per-request HTTP timeout.
func (c CatalogConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResolvedTokenURL returns TokenURL or the default token endpoint under BaseURL.
func (c CatalogConfig) ResolvedTokenURL() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return strings.TrimRight(c.BaseURL, "/") + "/oauth/token"
}

// Validate checks the fields every download run depends on.
func (c *Config) Validate() error {
	if c.Credentials.Username == "" || c.Credentials.Password == "" {
		return fmt.Errorf("%w: username and password must be set", ErrMissingCredentials)
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("%w: catalog.base_url must be set", ErrInvalidConfig)
	}
	if c.Output.Extension == "" {
		return fmt.Errorf("%w: output.extension must be set", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
// Environment overrides are applied in both cases.
func LoadConfigOrDefault(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides config fields from TRACKDL_* environment variables.
func ApplyEnv(config *Config) error {
	if err := env.ParseWithOptions(config, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes config to path as TOML. Credentials are written as-is so the file is created with 0600.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
