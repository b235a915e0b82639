// config.go: settings struct for Merak and the functions that load and save it.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/merak-travel/merak/internal/logger"
	"github.com/merak-travel/merak/internal/secrets"
)

// WebSettings configures the HTTP server
type WebSettings struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"` // 0 keeps SSE streams open
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	BodyLimit       string        `yaml:"body_limit" mapstructure:"body_limit"`
	CORSOrigins     []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// ChatKitSettings configures the ChatKit bridge endpoint
type ChatKitSettings struct {
	Enabled   bool    `yaml:"enabled" mapstructure:"enabled"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second per client
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	PageSize  int     `yaml:"page_size" mapstructure:"page_size"` // default page size for list requests
}

// LLMSettings configures the model provider used by the trip planner agent
type LLMSettings struct {
	APIKey     string        `yaml:"api_key" mapstructure:"api_key"`           // literal or ${ENV} reference
	APIKeyFile string        `yaml:"api_key_file" mapstructure:"api_key_file"` // mounted secret, wins over api_key
	Model      string        `yaml:"model" mapstructure:"model"`
	MaxTurns   int           `yaml:"max_turns" mapstructure:"max_turns"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SessionSettings configures conversation persistence for the planner CLI
type SessionSettings struct {
	Path string `yaml:"path" mapstructure:"path"` // SQLite file, ":memory:" for a throwaway store
}

// DestinationSettings configures the destination lookup service
type DestinationSettings struct {
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// TelemetrySettings configures error reporting
type TelemetrySettings struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	SentryDSN   string `yaml:"sentry_dsn" mapstructure:"sentry_dsn"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

// MetricsSettings configures the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// Settings contains all configuration options for Merak
type Settings struct {
	Debug        bool                 `yaml:"debug" mapstructure:"debug"`
	Web          WebSettings          `yaml:"web" mapstructure:"web"`
	ChatKit      ChatKitSettings      `yaml:"chatkit" mapstructure:"chatkit"`
	LLM          LLMSettings          `yaml:"llm" mapstructure:"llm"`
	Session      SessionSettings      `yaml:"session" mapstructure:"session"`
	Destinations DestinationSettings  `yaml:"destinations" mapstructure:"destinations"`
	Logging      logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Telemetry    TelemetrySettings    `yaml:"telemetry" mapstructure:"telemetry"`
	Metrics      MetricsSettings      `yaml:"metrics" mapstructure:"metrics"`
}

// Load reads the configuration file and environment variables using the global viper instance.
func Load() (*Settings, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads settings through v. Missing config files are not an error;
// defaults and environment variables still apply.
func LoadFrom(v *viper.Viper) (*Settings, error) {
	if err := initViper(v); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	apiKey, err := secrets.Resolve(settings.LLM.APIKeyFile, settings.LLM.APIKey)
	if err != nil {
		return nil, fmt.Errorf("error resolving llm api key: %w", err)
	}
	settings.LLM.APIKey = apiKey

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}
	return settings, nil
}

// initViper sets defaults, binds environment variables and reads the config file.
func initViper(v *viper.Viper) error {
	v.SetConfigType("yaml")
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return err
		}
		for _, path := range configPaths {
			v.AddConfigPath(path)
		}
	}

	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// DefaultSettings returns the settings produced by defaults alone.
func DefaultSettings() *Settings {
	v := viper.New()
	setDefaultConfig(v)
	settings := &Settings{}
	// Defaults are static, decoding them cannot fail.
	_ = v.Unmarshal(settings)
	return settings
}

// SaveYAMLConfig writes settings to configPath atomically.
// Comments and ordering of an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

// Address returns host:port for the web server
func (s *WebSettings) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
