package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            `yaml:"default_level" mapstructure:"default_level"` // default log level for all modules
	Timezone     string            `yaml:"timezone" mapstructure:"timezone"`           // "Local", "UTC", or IANA timezone name
	Console      *ConsoleOutput    `yaml:"console" mapstructure:"console"`
	FileOutput   *FileOutput       `yaml:"file_output" mapstructure:"file_output"`
	ModuleLevels map[string]string `yaml:"module_levels" mapstructure:"module_levels"` // per-module log levels
}

// ConsoleOutput represents console logging configuration.
// Console output is text without timestamps; the process supervisor adds them.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Level   string `yaml:"level" mapstructure:"level"`
}

// FileOutput represents file logging configuration.
// File output is JSON with RFC3339 timestamps.
type FileOutput struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	Path            string `yaml:"path" mapstructure:"path"`
	MaxSize         int    `yaml:"max_size" mapstructure:"max_size"`                   // MB before rotation
	MaxAge          int    `yaml:"max_age" mapstructure:"max_age"`                     // days to keep rotated logs (0 = no limit)
	MaxRotatedFiles int    `yaml:"max_rotated_files" mapstructure:"max_rotated_files"` // rotated files to keep (0 = no limit)
	Compress        bool   `yaml:"compress" mapstructure:"compress"`
	Level           string `yaml:"level" mapstructure:"level"`
}

// Default values for logging configuration.
// These match the defaults in conf/defaults.go.
const (
	DefaultLogLevel        = "info"
	DefaultLogPath         = "logs/merak.log"
	DefaultMaxSize         = 50
	DefaultMaxAge          = 30
	DefaultMaxRotatedFiles = 5
)

// applyConfigDefaults fills nil configuration sections. Console logging is on
// by default, file logging is off unless configured.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}

	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}

	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{
			Enabled: true,
			Level:   cfg.DefaultLevel,
		}
	}

	if cfg.FileOutput != nil {
		if cfg.FileOutput.Path == "" {
			cfg.FileOutput.Path = DefaultLogPath
		}
		if cfg.FileOutput.Level == "" {
			cfg.FileOutput.Level = cfg.DefaultLevel
		}
	}
}

// ValidLevel reports whether level is a recognised log level name
func ValidLevel(level string) bool {
	switch LogLevel(level) {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}
