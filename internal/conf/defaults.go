// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default values shared with the cobra flag definitions
const (
	DefaultHost  = "127.0.0.1"
	DefaultPort  = 8000
	DefaultModel = "gemini-2.5-flash"
)

// Sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("web.host", DefaultHost)
	v.SetDefault("web.port", DefaultPort)
	v.SetDefault("web.read_timeout", 30*time.Second)
	v.SetDefault("web.write_timeout", 0)
	v.SetDefault("web.shutdown_timeout", 10*time.Second)
	v.SetDefault("web.body_limit", "1M")
	v.SetDefault("web.cors_origins", []string{})

	v.SetDefault("chatkit.enabled", false)
	v.SetDefault("chatkit.rate_limit", 5.0)
	v.SetDefault("chatkit.rate_burst", 10)
	v.SetDefault("chatkit.page_size", 20)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_key_file", "")
	v.SetDefault("llm.model", DefaultModel)
	v.SetDefault("llm.max_turns", 10)
	v.SetDefault("llm.timeout", 2*time.Minute)

	v.SetDefault("session.path", "data/sessions.db")

	v.SetDefault("destinations.cache_ttl", 30*time.Minute)

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/merak.log")
	v.SetDefault("logging.file_output.level", "info")
	v.SetDefault("logging.file_output.max_size", 50)
	v.SetDefault("logging.file_output.max_age", 30)
	v.SetDefault("logging.file_output.max_rotated_files", 5)
	v.SetDefault("logging.file_output.compress", false)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.sentry_dsn", "")
	v.SetDefault("telemetry.environment", "production")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
