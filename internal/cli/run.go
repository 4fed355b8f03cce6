package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smoreland/sleuth/internal/config"
	"github.com/smoreland/sleuth/internal/logger"
	"github.com/smoreland/sleuth/internal/tracing"
	"github.com/smoreland/sleuth/pkg/agent"
	"github.com/smoreland/sleuth/pkg/coretools"
	"github.com/smoreland/sleuth/pkg/session"
	"github.com/smoreland/sleuth/pkg/toolexecutor"
)

var (
	runSessionKey  string
	runAutoApprove bool
	runModel       string
	runShowTools   bool
)

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Run one agent query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(strings.Join(args, " "))
	},
}

func init() {
	runCmd.Flags().StringVar(&runSessionKey, "session", "", "session key for conversation continuity")
	runCmd.Flags().BoolVar(&runAutoApprove, "auto-approve", false, "approve all tool calls without prompting")
	runCmd.Flags().StringVar(&runModel, "model", "", "model override")
	runCmd.Flags().BoolVar(&runShowTools, "show-tool-output", false, "print tool outputs as they complete")
	rootCmd.AddCommand(runCmd)
}

func runQuery(query string) error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if runModel != "" {
		cfg.Agent.Model = runModel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lg, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return err
	}
	defer lg.Close()
	lg.SetGlobal()

	if err := tracing.InitOpenTelemetry("sleuth"); err != nil {
		zl := lg.Zerolog()
		zl.Warn().Err(err).Msg("Tracing disabled")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = tracing.ShutdownOpenTelemetry(shutdownCtx)
	}()

	registry := toolexecutor.NewRegistry()
	if err := coretools.Register(registry, coretools.Options{
		MaxFetchBytes: cfg.Tools.FetchMaxBytes,
	}); err != nil {
		return err
	}

	var approval toolexecutor.ApprovalFunc
	if runAutoApprove {
		approval = func(ctx context.Context, tool string, args map[string]interface{}) toolexecutor.Decision {
			return toolexecutor.Approve
		}
	} else {
		approval = toolexecutor.NewCLIApproval(os.Stdin, os.Stderr).Func()
	}

	executor := toolexecutor.New(registry, toolexecutor.Options{
		Approval:    approval,
		Timeout:     time.Duration(cfg.Tools.TimeoutSeconds) * time.Second,
		OutputLimit: cfg.Tools.OutputLimit,
	})

	provider, err := agent.NewProvider(cfg.Provider.Name, cfg.Provider.APIKey)
	if err != nil {
		return err
	}

	a, err := agent.New(agent.Config{
		Model:                 cfg.Agent.Model,
		SystemPrompt:          cfg.Agent.SystemPrompt,
		Temperature:           cfg.Agent.Temperature,
		MaxTokens:             cfg.Agent.MaxTokens,
		MaxIterations:         cfg.Agent.MaxIterations,
		MaxOverflowRetries:    cfg.Agent.MaxOverflowRetries,
		OverflowKeepToolUses:  cfg.Agent.OverflowKeepToolUses,
		ContextTokenThreshold: cfg.Agent.ContextTokenThreshold,
		ThresholdKeepToolUses: cfg.Agent.ThresholdKeepToolUses,
		HistoryWindow:         cfg.Agent.HistoryWindow,
	}, provider, executor, lg.Zerolog())
	if err != nil {
		return err
	}

	var store *session.Store
	var history []agent.Turn
	if runSessionKey != "" {
		store, err = session.NewStore(sessionsDir(cfg))
		if err != nil {
			return err
		}
		turns, err := store.Recent(runSessionKey, cfg.Agent.HistoryWindow)
		if err != nil {
			return err
		}
		for _, t := range turns {
			history = append(history, agent.Turn{Role: t.Role, Content: t.Content})
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var result *agent.Result
	for ev := range a.Run(ctx, query, history) {
		switch ev.Type {
		case agent.EventThinking:
			fmt.Fprintf(os.Stderr, "· %s\n", ev.Message)
		case agent.EventToolProgress:
			p := ev.Progress
			if p.Error != "" {
				fmt.Fprintf(os.Stderr, "✗ %s: %s\n", p.Tool, p.Error)
			} else {
				fmt.Fprintf(os.Stderr, "✓ %s (%s)\n", p.Tool, p.Duration.Round(time.Millisecond))
				if runShowTools {
					fmt.Fprintln(os.Stderr, p.Output)
				}
			}
		case agent.EventToolDenied:
			fmt.Fprintln(os.Stderr, "Tool call denied, stopping.")
		case agent.EventContextCleared:
			fmt.Fprintf(os.Stderr, "… pruned %d old tool results (%d kept)\n", ev.Cleared, ev.Kept)
		case agent.EventDone:
			result = ev.Done
		}
	}

	if result == nil {
		return fmt.Errorf("run aborted")
	}

	fmt.Println(result.Answer)
	fmt.Fprintf(os.Stderr, "\n%d iterations, %d tool calls, %d tokens (%.0f tok/s), %s\n",
		result.Iterations,
		len(result.ToolCalls),
		result.Usage.TotalTokens,
		result.TokensPerSecond,
		result.TotalTime.Round(time.Millisecond),
	)

	if store != nil && result.Answer != "" {
		if err := store.Append(runSessionKey, session.Turn{Role: "user", Content: query}); err != nil {
			return err
		}
		if err := store.Append(runSessionKey, session.Turn{Role: "assistant", Content: result.Answer}); err != nil {
			return err
		}
	}
	return nil
}

func sessionsDir(cfg *config.Config) string {
	if cfg.DataDir == "" {
		return ""
	}
	return filepath.Join(cfg.DataDir, "sessions")
}
