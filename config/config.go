package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Vault     VaultConfig
	Auth      AuthConfig
	Search    SearchConfig
	Providers ProvidersConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds the SQLite datastore configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// VaultConfig holds the credential cipher configuration
type VaultConfig struct {
	// MasterKey is the hex-encoded 32-byte AES key. Its absence is a fatal
	// startup error; there is no unencrypted fallback.
	MasterKey string `mapstructure:"master_key"`
}

// AuthConfig holds admin authorization configuration
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// SearchConfig holds the aggregator tunables
type SearchConfig struct {
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	MinLocalResults int           `mapstructure:"min_local_results"`
	DefaultLimit    int           `mapstructure:"default_limit"`
	RemoteTimeout   time.Duration `mapstructure:"remote_timeout"`
	ConfigCacheTTL  time.Duration `mapstructure:"config_cache_ttl"`
}

// ProvidersConfig holds the provider endpoint URLs, overridable for tests
// and self-hosted mirrors
type ProvidersConfig struct {
	USDABaseURL          string `mapstructure:"usda_base_url"`
	OpenFoodFactsBaseURL string `mapstructure:"openfoodfacts_base_url"`
	FatSecretAPIURL      string `mapstructure:"fatsecret_api_url"`
	FatSecretTokenURL    string `mapstructure:"fatsecret_token_url"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/nutrigate/")

	v.SetEnvPrefix("NUTRIGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults cover everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.path", "data/nutrigate.db")

	// Registered empty so env-only secrets are visible to Unmarshal.
	v.SetDefault("vault.master_key", "")
	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("search.cache_ttl", "15m")
	v.SetDefault("search.min_local_results", 5)
	v.SetDefault("search.default_limit", 20)
	v.SetDefault("search.remote_timeout", "8s")
	v.SetDefault("search.config_cache_ttl", "30s")

	v.SetDefault("providers.usda_base_url", "https://api.nal.usda.gov/fdc")
	v.SetDefault("providers.openfoodfacts_base_url", "https://world.openfoodfacts.org")
	v.SetDefault("providers.fatsecret_api_url", "https://platform.fatsecret.com/rest/server.api")
	v.SetDefault("providers.fatsecret_token_url", "https://oauth.fatsecret.com/connect/token")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Vault.MasterKey == "" {
		return fmt.Errorf("vault master key is required (set NUTRIGATE_VAULT_MASTER_KEY)")
	}

	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required (set NUTRIGATE_AUTH_JWT_SECRET)")
	}

	if config.Search.MinLocalResults < 1 {
		return fmt.Errorf("search.min_local_results must be positive, got: %d", config.Search.MinLocalResults)
	}

	if config.Search.CacheTTL <= 0 {
		return fmt.Errorf("search.cache_ttl must be positive, got: %s", config.Search.CacheTTL)
	}

	return nil
}
