package planner

import (
	"github.com/merak-travel/merak/internal/conf"
	"github.com/merak-travel/merak/internal/httpclient"
)

// ConfigFromSettings maps the llm settings section onto a RunnerConfig.
// observe, when non-nil, receives the outcome of every provider request.
func ConfigFromSettings(settings *conf.Settings, observe httpclient.Observer) RunnerConfig {
	model := settings.LLM.Model
	if model == "" {
		model = conf.DefaultModel
	}
	return RunnerConfig{
		APIKey:     settings.LLM.APIKey,
		Model:      model,
		MaxTurns:   settings.LLM.MaxTurns,
		Timeout:    settings.LLM.Timeout,
		HTTPClient: httpclient.New(&httpclient.Config{Observer: observe}),
	}
}
