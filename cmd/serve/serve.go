package serve

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/merak-travel/merak/internal/api"
	"github.com/merak-travel/merak/internal/chatkit"
	"github.com/merak-travel/merak/internal/conf"
	"github.com/merak-travel/merak/internal/destinations"
	"github.com/merak-travel/merak/internal/httpserver"
	"github.com/merak-travel/merak/internal/logger"
	"github.com/merak-travel/merak/internal/observability"
	"github.com/merak-travel/merak/internal/planner"
)

// Command creates the serve command which runs the web client and the ChatKit bridge.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web client and the ChatKit bridge",
		Long: "Start the HTTP server hosting the landing page, health checks and metrics. " +
			"The ChatKit bridge at /chatkit is enabled with " + conf.ChatKitFeatureFlag + "=1.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), settings)
		},
	}

	// Set up flags specific to the 'serve' command
	if err := setupFlags(cmd, settings); err != nil {
		panic(err)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Web.Host, "host", settings.Web.Host, "Interface to bind")
	cmd.Flags().IntVar(&settings.Web.Port, "port", settings.Web.Port, "Port to bind")

	// Bind flags to the viper settings
	if err := viper.BindPFlag("web.host", cmd.Flags().Lookup("host")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("web.port", cmd.Flags().Lookup("port")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func run(ctx context.Context, out io.Writer, settings *conf.Settings) error {
	if err := conf.ValidateSettings(settings); err != nil {
		return err
	}
	log := logger.Global().Module("serve")

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	opts := []api.ServerOption{
		api.WithMetrics(metrics),
		api.WithLogger(logger.Global().Module("api")),
	}

	chatKitEnabled := settings.ChatKit.Enabled
	if chatKitEnabled {
		ck, err := newChatKitServer(ctx, settings, metrics)
		if err != nil {
			return err
		}
		opts = append(opts, api.WithChatKit(ck))
	} else {
		log.Info("ChatKit bridge disabled",
			logger.String("enable_with", conf.ChatKitFeatureFlag+"=1"))
	}

	srv, err := api.New(settings, opts...)
	if err != nil {
		return err
	}

	return httpserver.Run(ctx, srv, func(addr string) {
		printReadyMessage(out, addr, settings.LLM.Model, chatKitEnabled)
	})
}

// newChatKitServer wires the trip planner agent behind an in-memory thread store.
func newChatKitServer(ctx context.Context, settings *conf.Settings, metrics *observability.Metrics) (*chatkit.Server, error) {
	if err := settings.RequireAPIKey(); err != nil {
		return nil, err
	}

	svc := destinations.NewService(settings.Destinations.CacheTTL,
		destinations.WithRecorder(metrics.Planner),
		destinations.WithLogger(logger.Global().Module("destinations")))

	observe := func(host, status string, elapsed time.Duration) {
		metrics.Planner.RecordLLMRequest(host, status, elapsed.Seconds())
	}
	runner, err := planner.NewGenAIRunner(ctx, planner.ConfigFromSettings(settings, observe),
		planner.WithRunRecorder(metrics.Planner),
		planner.WithRunnerLogger(logger.Global().Module("planner")))
	if err != nil {
		return nil, err
	}

	agent := planner.NewTripPlanner(svc)
	store := chatkit.NewMemoryStore()
	return chatkit.NewServer(store, chatkit.NewAgentResponder(agent, runner, store),
		chatkit.WithPageSize(settings.ChatKit.PageSize),
		chatkit.WithRecorder(metrics.ChatKit),
		chatkit.WithLogger(logger.Global().Module("chatkit"))), nil
}

func printReadyMessage(out io.Writer, addr, model string, chatKitEnabled bool) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = addr, strconv.Itoa(conf.DefaultPort)
	}
	base := "http://" + net.JoinHostPort(host, port)

	fmt.Fprintf(out, "\nMerak web client ready at %s/\n", base)
	if !chatKitEnabled {
		fmt.Fprintf(out, "ChatKit bridge disabled. Set %s=1 to enable it.\n", conf.ChatKitFeatureFlag)
		return
	}

	endpoint := base + "/chatkit"
	fmt.Fprintf(out, `
ChatKit server ready.
Quick verification:
1. Ensure GEMINI_API_KEY is exported and %s=1.
2. Point a ChatKit client (web or CLI) at:
     %s
3. To smoke test manually, run (adjust prompt as needed):
     curl -N \
       -X POST %s \
       -H 'Content-Type: application/json' \
       -d '{
            "type": "threads.create",
            "params": {
              "input": {
                "content": [
                  {"type": "input_text", "text": "Plan a week in Kyoto in autumn"}
                ],
                "attachments": [],
                "inference_options": {"model": "%s"}
              }
            }
          }'

Memory-backed transcript store: resets when the process exits.
`, conf.ChatKitFeatureFlag, endpoint, endpoint, model)
}
