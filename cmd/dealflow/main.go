package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dealflow/internal/agent"
	"dealflow/internal/collab"
	"dealflow/internal/config"
	"dealflow/internal/conversation"
	"dealflow/internal/model"
	"dealflow/internal/server"
	"dealflow/internal/store"
	"dealflow/internal/tools"
	"dealflow/internal/tools/calendar"
	"dealflow/internal/tools/crm"
	"dealflow/internal/tools/email"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dealflow",
	Short: "dealflow - conversational AI assistant for the sales pipeline",
	Long: `dealflow is the AI assistant behind the sales-CRM dashboard.

It accepts free-text requests, lets the model decide which tools to invoke
(calendar scheduling, CRM lookup, email sending), executes them, and folds
the results back into the conversation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// serveCmd runs the HTTP + WebSocket server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assistant over HTTP and WebSocket",
	RunE:  runServe,
}

// askCmd sends a single message through the orchestrator and prints the
// response. Useful for smoke-testing a deployment without the dashboard.
var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask the assistant a single question from the command line",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

// seedCmd populates the card store with sample customers.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the card store with sample customers",
	RunE:  runSeed,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "dealflow.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(seedCmd)
}

// buildOrchestrator wires the full stack: store, collaborators, toolsets,
// executor, gateway, conversation store, orchestrator.
func buildOrchestrator(ctx context.Context, cfg *config.Config) (*agent.Orchestrator, *store.CardStore, *conversation.Store, error) {
	cards, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open card store: %w", err)
	}

	registry := tools.NewRegistry()
	if err := crm.RegisterAll(registry, cards); err != nil {
		return nil, nil, nil, err
	}
	calendarClient := collab.NewHTTPCalendar(cfg.Integrations.Calendar.BaseURL, cfg.GetCalendarTimeout())
	if err := calendar.RegisterAll(registry, calendarClient); err != nil {
		return nil, nil, nil, err
	}
	mailClient := collab.NewHTTPMailer(cfg.Integrations.Email.BaseURL, cfg.GetEmailTimeout())
	if err := email.RegisterAll(registry, mailClient); err != nil {
		return nil, nil, nil, err
	}
	logger.Info("tool registry ready", zap.Strings("tools", registry.Names()))

	executor := tools.NewExecutor(registry, logger, tools.ExecutorConfig{
		Timeout:        cfg.GetToolTimeout(),
		IdempotencyTTL: cfg.GetIdempotencyTTL(),
	})

	gateway, err := model.NewGeminiGateway(ctx, model.GeminiConfig{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.GetLLMTimeout(),
	}, logger)
	if err != nil {
		cards.Close()
		return nil, nil, nil, fmt.Errorf("create model gateway: %w", err)
	}

	convos := conversation.NewStore(logger, conversation.Config{
		MaxTurns: cfg.Conversation.MaxTurns,
		IdleTTL:  cfg.GetIdleTTL(),
	})

	orch := agent.New(gateway, registry, executor, convos, logger, agent.Config{
		MaxRounds:    cfg.Agent.MaxRounds,
		ModelRetries: cfg.Agent.ModelRetries,
		HistoryTurns: cfg.Agent.HistoryTurns,
	})
	return orch, cards, convos, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch, cards, convos, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer cards.Close()

	go convos.RunGC(ctx, cfg.GetGCInterval())

	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}, orch, cards, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch, cards, _, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer cards.Close()

	message := ""
	for i, arg := range args {
		if i > 0 {
			message += " "
		}
		message += arg
	}

	result, err := orch.Respond(ctx, "", message)
	if err != nil {
		return err
	}

	fmt.Println(result.Response)
	for _, res := range result.ToolResults {
		fmt.Printf("  [%s] %s\n", res.Status, res.ToolName)
	}
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cards, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer cards.Close()

	n, err := cards.Seed(cmd.Context())
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Println("Card store already has data; nothing seeded.")
		return nil
	}
	fmt.Printf("Seeded %d sample customers.\n", n)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
