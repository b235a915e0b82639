package plan

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/merak-travel/merak/internal/chat"
	"github.com/merak-travel/merak/internal/conf"
	"github.com/merak-travel/merak/internal/destinations"
	"github.com/merak-travel/merak/internal/errors"
	"github.com/merak-travel/merak/internal/logger"
	"github.com/merak-travel/merak/internal/planner"
	"github.com/merak-travel/merak/internal/session"
)

// Console text
const (
	StdinPrompt    = "Enter a short description of your trip (press Ctrl+D when finished):"
	ResponseHeader = "\n=== Trip Planner Response ===\n"
	ChatBanner     = "Starting interactive chat. Type 'exit' or 'quit' to finish."
	ChatPrompt     = "\nYou: "
)

// Options holds the plan command flags
type Options struct {
	SingleTurn bool
	SessionID  string
}

// Command creates the plan command which runs the trip planner agent from the console.
func Command(settings *conf.Settings) *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "plan [prompt...]",
		Short: "Run the trip planner agent",
		Long: "Run the Merak Trip Planner agent in interactive chat mode (default) or single-turn mode. " +
			"In chat mode the prompt seeds the first turn.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := settings.RequireAPIKey(); err != nil {
				return err
			}
			runner, err := planner.NewGenAIRunner(cmd.Context(), planner.ConfigFromSettings(settings, nil),
				planner.WithRunnerLogger(logger.Global().Module("planner")))
			if err != nil {
				return err
			}
			svc := destinations.NewService(settings.Destinations.CacheTTL,
				destinations.WithLogger(logger.Global().Module("destinations")))
			agent := planner.NewTripPlanner(svc)

			env := &Env{
				Agent:       agent,
				Runner:      runner,
				In:          cmd.InOrStdin(),
				Out:         cmd.OutOrStdout(),
				SessionPath: settings.Session.Path,
			}
			if opts.SingleTurn {
				return env.RunSingleTurn(cmd.Context(), args)
			}
			return env.RunChat(cmd.Context(), args, opts.SessionID)
		},
	}

	cmd.Flags().BoolVar(&opts.SingleTurn, "single-turn", false, "Execute a single-turn request and exit instead of starting the chat REPL")
	cmd.Flags().StringVar(&opts.SessionID, "session-id", "", "Identifier for persisting chat history in the session store")

	return cmd
}

// Env holds what the plan modes need to talk to the user and the agent.
type Env struct {
	Agent       *planner.Agent
	Runner      planner.Runner
	In          io.Reader
	Out         io.Writer
	SessionPath string
}

// RunSingleTurn answers one request taken from args, or from stdin when args are empty.
func (e *Env) RunSingleTurn(ctx context.Context, args []string) error {
	prompt, err := e.resolvePrompt(args)
	if err != nil {
		return err
	}
	if prompt == "" {
		return errors.Newf("no trip request provided").
			Component("plan").
			Category(errors.CategoryValidation).
			Build()
	}

	result, err := e.Runner.Run(ctx, e.Agent, prompt, nil)
	if err != nil {
		return err
	}

	fmt.Fprintln(e.Out, ResponseHeader)
	fmt.Fprintln(e.Out, result.FinalOutput)
	return nil
}

func (e *Env) resolvePrompt(args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}

	fmt.Fprintln(e.Out, StdinPrompt)
	data, err := io.ReadAll(e.In)
	if err != nil {
		return "", errors.New(err).
			Component("plan").
			Category(errors.CategoryFileIO).
			Context("operation", "read_stdin").
			Build()
	}
	return strings.TrimSpace(string(data)), nil
}

// RunChat starts the interactive loop. A session id selects a persistent session,
// otherwise history lives only as long as the process.
func (e *Env) RunChat(ctx context.Context, args []string, sessionID string) error {
	var sess session.Session
	if sessionID != "" {
		store, err := session.Open(e.SessionPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Global().Module("plan").Warn("failed to close session store", logger.Error(err))
			}
		}()
		sess = store.Session(sessionID)
	} else {
		sess = session.NewMemorySession(uuid.NewString())
	}

	fmt.Fprintln(e.Out, ChatBanner)

	reader := chat.NewLineReader(ctx, e.In, e.Out, ChatPrompt)
	defer reader.Close()

	return chat.RunInteractive(ctx, e.Agent, sess, reader.Read,
		func(s string) { fmt.Fprint(e.Out, s) },
		e.Runner,
		chat.Options{
			InitialPrompt: strings.TrimSpace(strings.Join(args, " ")),
			Logger:        logger.Global().Module("chat"),
		})
}
