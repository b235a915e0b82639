package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/merak-travel/merak/internal/errors"
	"github.com/merak-travel/merak/internal/logger"
	"github.com/merak-travel/merak/internal/session"
)

// DefaultMaxTurns bounds model round trips per run
const DefaultMaxTurns = 10

// Run status labels
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusExceeded = "max_turns"
)

// Result is the outcome of an agent run
type Result struct {
	FinalOutput string
	Turns       int
	ToolCalls   int
}

// Runner executes an agent against a prompt. A nil session means single-turn.
type Runner interface {
	Run(ctx context.Context, agent *Agent, prompt string, sess session.Session) (*Result, error)
}

// RunRecorder receives run metrics. *metrics.PlannerMetrics satisfies it.
type RunRecorder interface {
	RecordAgentRun(agent, status string, duration float64, turns int)
	RecordToolCall(tool, status string)
}

// ContentGenerator is the subset of the genai models API the runner needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// RunnerConfig configures a GenAIRunner
type RunnerConfig struct {
	APIKey       string
	Model        string
	MaxTurns     int
	Timeout      time.Duration
	HistoryLimit int
	HTTPClient   *http.Client
	BaseURL      string
}

// GenAIRunner drives an agent with Gemini function calling.
type GenAIRunner struct {
	generator    ContentGenerator
	model        string
	maxTurns     int
	timeout      time.Duration
	historyLimit int
	recorder     RunRecorder
	log          logger.Logger
}

// RunnerOption configures a GenAIRunner
type RunnerOption func(*GenAIRunner)

// WithRunRecorder sets the metrics recorder
func WithRunRecorder(r RunRecorder) RunnerOption {
	return func(g *GenAIRunner) {
		g.recorder = r
	}
}

// WithRunnerLogger sets the logger
func WithRunnerLogger(l logger.Logger) RunnerOption {
	return func(g *GenAIRunner) {
		g.log = l
	}
}

// NewGenAIRunner creates a runner backed by the Gemini API.
func NewGenAIRunner(ctx context.Context, cfg RunnerConfig, opts ...RunnerOption) (*GenAIRunner, error) {
	if cfg.APIKey == "" {
		return nil, errors.Newf("LLM API key is required").
			Component("planner").
			Category(errors.CategoryConfiguration).
			Build()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to create GenAI client: %w", err)).
			Component("planner").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return NewRunnerWithGenerator(client.Models, cfg, opts...), nil
}

// NewRunnerWithGenerator creates a runner over an existing generator.
func NewRunnerWithGenerator(gen ContentGenerator, cfg RunnerConfig, opts ...RunnerOption) *GenAIRunner {
	r := &GenAIRunner{
		generator:    gen,
		model:        cfg.Model,
		maxTurns:     cfg.MaxTurns,
		timeout:      cfg.Timeout,
		historyLimit: cfg.HistoryLimit,
	}
	if r.maxTurns <= 0 {
		r.maxTurns = DefaultMaxTurns
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Global().Module("planner")
	}
	return r
}

// Run sends prompt with the session history and resolves tool calls until the model answers.
func (r *GenAIRunner) Run(ctx context.Context, agent *Agent, prompt string, sess session.Session) (*Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	log := r.log.WithContext(ctx).With(logger.String("agent", agent.Name))

	contents, err := r.history(ctx, sess)
	if err != nil {
		return nil, err
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(agent.Instructions, genai.RoleUser),
		Tools:             agent.declarations(),
	}

	result := &Result{}
	for result.Turns < r.maxTurns {
		result.Turns++

		resp, err := r.generator.GenerateContent(ctx, r.model, contents, config)
		if err != nil {
			r.recordRun(agent.Name, StatusError, start, result.Turns)
			category := errors.CategoryLLM
			if ctx.Err() != nil {
				category = errors.CategoryCancellation
			}
			return nil, errors.New(err).
				Component("planner").
				Category(category).
				Context("model", r.model).
				Context("turn", result.Turns).
				Timing("generate_content", time.Since(start)).
				Build()
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			result.FinalOutput = resp.Text()
			if err := r.remember(ctx, sess, prompt, result.FinalOutput); err != nil {
				r.recordRun(agent.Name, StatusError, start, result.Turns)
				return nil, err
			}
			r.recordRun(agent.Name, StatusSuccess, start, result.Turns)
			log.Info("agent run completed",
				logger.Int("turns", result.Turns),
				logger.Int("tool_calls", result.ToolCalls),
				logger.Duration("duration", time.Since(start)))
			return result, nil
		}

		if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
			contents = append(contents, resp.Candidates[0].Content)
		}

		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			result.ToolCalls++
			parts = append(parts, r.invoke(ctx, log, agent, call))
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}

	r.recordRun(agent.Name, StatusExceeded, start, result.Turns)
	return nil, errors.Newf("agent %s exceeded %d turns without a final answer", agent.Name, r.maxTurns).
		Component("planner").
		Category(errors.CategoryLimit).
		Context("max_turns", r.maxTurns).
		Build()
}

// invoke executes one function call and wraps its outcome as a function response part
func (r *GenAIRunner) invoke(ctx context.Context, log logger.Logger, agent *Agent, call *genai.FunctionCall) *genai.Part {
	var response map[string]any

	tool := agent.Tool(call.Name)
	if tool == nil {
		log.Warn("model requested unknown tool", logger.String("tool", call.Name))
		r.recordTool(call.Name, StatusError)
		response = map[string]any{"error": fmt.Sprintf("unknown tool %q", call.Name)}
	} else {
		out, err := tool.Call(ctx, call.Args)
		if err == nil {
			response, err = toResponse(out)
		}
		if err != nil {
			log.Debug("tool call failed", logger.String("tool", call.Name), logger.Error(err))
			r.recordTool(call.Name, StatusError)
			response = map[string]any{"error": err.Error()}
		} else {
			r.recordTool(call.Name, StatusSuccess)
		}
	}

	part := genai.NewPartFromFunctionResponse(call.Name, response)
	part.FunctionResponse.ID = call.ID
	return part
}

func (r *GenAIRunner) history(ctx context.Context, sess session.Session) ([]*genai.Content, error) {
	if sess == nil {
		return nil, nil
	}
	items, err := sess.Items(ctx, r.historyLimit)
	if err != nil {
		return nil, err
	}
	contents := make([]*genai.Content, 0, len(items)+1)
	for _, item := range items {
		role := genai.RoleUser
		if item.Role == session.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(item.Content, role))
	}
	return contents, nil
}

func (r *GenAIRunner) remember(ctx context.Context, sess session.Session, prompt, output string) error {
	if sess == nil {
		return nil
	}
	return sess.AddItems(ctx,
		session.Item{Role: session.RoleUser, Content: prompt},
		session.Item{Role: session.RoleAssistant, Content: output},
	)
}

func (r *GenAIRunner) recordRun(agent, status string, start time.Time, turns int) {
	if r.recorder != nil {
		r.recorder.RecordAgentRun(agent, status, time.Since(start).Seconds(), turns)
	}
}

func (r *GenAIRunner) recordTool(tool, status string) {
	if r.recorder != nil {
		r.recorder.RecordToolCall(tool, status)
	}
}

// toResponse converts a tool result into the object form function responses require
func toResponse(out any) (map[string]any, error) {
	if m, ok := out.(map[string]any); ok {
		return m, nil
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		// scalars and lists are wrapped
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return map[string]any{"output": v}, nil
	}
	return m, nil
}
