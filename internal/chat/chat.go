// Package chat implements the console conversation loop around an agent runner.
package chat

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/merak-travel/merak/internal/errors"
	"github.com/merak-travel/merak/internal/logger"
	"github.com/merak-travel/merak/internal/planner"
	"github.com/merak-travel/merak/internal/session"
)

// ExitMessage is written when the chat ends
const ExitMessage = "\nEnding chat.\n"

// DefaultExitCommands end the chat when typed on their own
var DefaultExitCommands = []string{"exit", "quit"}

// ErrInterrupted is returned by a ReadFunc when the user interrupts input.
var ErrInterrupted = errors.NewStd("input interrupted")

// ReadFunc returns the next user message
type ReadFunc func() (string, error)

// WriteFunc renders output to the user
type WriteFunc func(string)

// Options tunes RunInteractive
type Options struct {
	// InitialPrompt is processed before any input is read
	InitialPrompt string
	ExitCommands  []string
	Logger        logger.Logger
}

// RunInteractive drives a multi-turn conversation until the user exits or input ends.
// Runner failures are reported and the loop continues; only read errors other than
// io.EOF and ErrInterrupted are returned.
func RunInteractive(ctx context.Context, agent *planner.Agent, sess session.Session, read ReadFunc, write WriteFunc, runner planner.Runner, opts Options) error {
	exits := exitSet(opts.ExitCommands)
	log := opts.Logger
	if log == nil {
		log = logger.Global().Module("chat")
	}

	var pending []string
	if opts.InitialPrompt != "" {
		pending = append(pending, opts.InitialPrompt)
	}

	for {
		if ctx.Err() != nil {
			write(ExitMessage)
			return nil
		}

		var raw string
		if len(pending) > 0 {
			raw, pending = pending[0], pending[1:]
		} else {
			line, err := read()
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, ErrInterrupted) {
					write(ExitMessage)
					return nil
				}
				return errors.New(err).
					Component("chat").
					Category(errors.CategoryFileIO).
					Context("operation", "read_input").
					Build()
			}
			raw = line
		}

		prompt := strings.TrimSpace(raw)
		if prompt == "" {
			continue
		}
		if _, ok := exits[strings.ToLower(prompt)]; ok {
			write(ExitMessage)
			return nil
		}

		result, err := runner.Run(ctx, agent, prompt, sess)
		if err != nil {
			if ctx.Err() != nil {
				write(ExitMessage)
				return nil
			}
			log.Warn("chat turn failed", logger.Error(err))
			write(fmt.Sprintf("\n[error] %v\n", err))
			continue
		}

		write("\nAgent:\n")
		write(result.FinalOutput + "\n")
	}
}

func exitSet(commands []string) map[string]struct{} {
	if len(commands) == 0 {
		commands = DefaultExitCommands
	}
	set := make(map[string]struct{}, len(commands))
	for _, c := range commands {
		set[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	return set
}
