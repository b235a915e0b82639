// env.go - Environment variable configuration and validation for Merak
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/merak-travel/merak/internal/logger"
)

// ChatKitFeatureFlag enables the ChatKit bridge endpoint
const ChatKitFeatureFlag = "MERAK_ENABLE_CHATKIT_SERVER"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVars   []string           // Environment variable names, first set wins
	Validate  func(string) error // Optional validation function
	Transform func(string) any   // Optional conversion applied with viper.Set
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{ConfigKey: "debug", EnvVars: []string{"MERAK_DEBUG"}, Validate: validateEnvBool},

		{ConfigKey: "web.host", EnvVars: []string{"MERAK_WEB_HOST"}},
		{ConfigKey: "web.port", EnvVars: []string{"MERAK_WEB_PORT"}, Validate: validateEnvPort},

		{ConfigKey: "chatkit.enabled", EnvVars: []string{ChatKitFeatureFlag}, Transform: func(v string) any { return IsTruthy(v) }},

		{ConfigKey: "llm.api_key", EnvVars: []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "MERAK_LLM_API_KEY"}},
		{ConfigKey: "llm.api_key_file", EnvVars: []string{"MERAK_LLM_API_KEY_FILE"}},
		{ConfigKey: "llm.model", EnvVars: []string{"MERAK_LLM_MODEL"}},
		{ConfigKey: "llm.max_turns", EnvVars: []string{"MERAK_LLM_MAX_TURNS"}, Validate: validateEnvPositiveInt},
		{ConfigKey: "llm.timeout", EnvVars: []string{"MERAK_LLM_TIMEOUT"}, Validate: validateEnvDuration},

		{ConfigKey: "session.path", EnvVars: []string{"MERAK_SESSION_PATH"}},

		{ConfigKey: "logging.default_level", EnvVars: []string{"MERAK_LOG_LEVEL"}, Validate: validateEnvLogLevel},

		{ConfigKey: "telemetry.sentry_dsn", EnvVars: []string{"MERAK_SENTRY_DSN", "SENTRY_DSN"}},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if binding.Transform != nil {
			if value, ok := lookupFirstEnv(binding.EnvVars); ok {
				v.Set(binding.ConfigKey, binding.Transform(value))
			}
			continue
		}

		args := append([]string{binding.ConfigKey}, binding.EnvVars...)
		if err := v.BindEnv(args...); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", strings.Join(binding.EnvVars, ","), err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		for _, envVar := range binding.EnvVars {
			if envValue := os.Getenv(envVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", envVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func lookupFirstEnv(names []string) (string, bool) {
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok {
			return value, true
		}
	}
	return "", false
}

// IsTruthy reports whether a feature flag value enables the feature.
// Accepted values are 1, true, yes and on, case-insensitive.
func IsTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fmt.Errorf("must be a positive duration such as 90s or 2m")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	if !logger.ValidLevel(value) {
		return fmt.Errorf("must be one of trace, debug, info, warn, error")
	}
	return nil
}
