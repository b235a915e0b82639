package conf

import (
	"fmt"
	"strings"

	"github.com/merak-travel/merak/internal/errors"
	"github.com/merak-travel/merak/internal/logger"
)

// ValidateSettings checks settings for values the application cannot run with.
// All problems are reported together.
func ValidateSettings(s *Settings) error {
	var problems []string

	if s.Web.Port < 1 || s.Web.Port > 65535 {
		problems = append(problems, fmt.Sprintf("web.port %d is out of range", s.Web.Port))
	}
	if strings.TrimSpace(s.Web.Host) == "" {
		problems = append(problems, "web.host must not be empty")
	}
	if s.Web.ShutdownTimeout <= 0 {
		problems = append(problems, "web.shutdown_timeout must be positive")
	}
	if s.Web.WriteTimeout < 0 || s.Web.ReadTimeout < 0 {
		problems = append(problems, "web timeouts must not be negative")
	}

	if s.ChatKit.RateLimit <= 0 {
		problems = append(problems, "chatkit.rate_limit must be positive")
	}
	if s.ChatKit.RateBurst < 1 {
		problems = append(problems, "chatkit.rate_burst must be at least 1")
	}
	if s.ChatKit.PageSize < 1 {
		problems = append(problems, "chatkit.page_size must be at least 1")
	}

	if strings.TrimSpace(s.LLM.Model) == "" {
		problems = append(problems, "llm.model must not be empty")
	}
	if s.LLM.MaxTurns < 1 {
		problems = append(problems, "llm.max_turns must be at least 1")
	}
	if s.LLM.Timeout <= 0 {
		problems = append(problems, "llm.timeout must be positive")
	}

	if s.Destinations.CacheTTL < 0 {
		problems = append(problems, "destinations.cache_ttl must not be negative")
	}

	if lvl := s.Logging.DefaultLevel; lvl != "" && !logger.ValidLevel(lvl) {
		problems = append(problems, fmt.Sprintf("logging.default_level %q is not a log level", lvl))
	}

	if s.Metrics.Enabled && !strings.HasPrefix(s.Metrics.Path, "/") {
		problems = append(problems, "metrics.path must start with /")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.Newf("invalid configuration: %s", strings.Join(problems, "; ")).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Context("problems", len(problems)).
		Build()
}

// RequireAPIKey returns a configuration error naming the environment variable
// to set when no model provider key is configured.
func (s *Settings) RequireAPIKey() error {
	if strings.TrimSpace(s.LLM.APIKey) != "" {
		return nil
	}
	return errors.Newf("GEMINI_API_KEY environment variable must be set before running the agent").
		Component("conf").
		Category(errors.CategoryConfiguration).
		Build()
}
