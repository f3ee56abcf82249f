// Signalist: stock watchlist, market data and a daily AI news digest.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/signalist/signalist/internal/config"
	"github.com/signalist/signalist/internal/digest"
	"github.com/signalist/signalist/internal/llm"
	"github.com/signalist/signalist/internal/logging"
	"github.com/signalist/signalist/internal/polygon"
	"github.com/signalist/signalist/internal/watchlist"
	"github.com/signalist/signalist/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set in PersistentPreRunE.
var (
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "signalist",
	Short: "Signalist: stock watchlist and market news",
	Long: `Signalist tracks a personal stock watchlist, looks up quotes, bars,
company profiles and news from Polygon.io, and can summarize the day's
watchlist news with an LLM.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json", false, "print raw JSON instead of formatted output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(barsCmd)
	rootCmd.AddCommand(companyCmd)
	rootCmd.AddCommand(watchlistCmd)
	rootCmd.AddCommand(digestCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// No config needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Signalist %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show market status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(titleStyle.Render("Signalist: System Status"))
		printField("Version", fmt.Sprintf("%s (%s)", version, commit))
		printField("Market", utils.MarketStatus())
		model := cfg.LLM.Model
		if model == "" {
			model = llm.DefaultModel(cfg.LLM.Provider)
		}
		printField("LLM", fmt.Sprintf("%s (model: %s)", cfg.LLM.Provider, model))
		printField("LLM check", llmCheck(cmd.Context()))
		printField("Storage", fmt.Sprintf("%s in %s", cfg.Storage.Driver, cfg.Storage.DataDir))
		printField("API server", cfg.Addr())

		digestState := "disabled"
		if cfg.Digest.Enabled {
			digestState = "enabled, schedule " + cfg.Digest.Schedule
		}
		printField("Digest", digestState)
		fmt.Println()

		fmt.Println(headerStyle.Render("API Keys"))
		for _, k := range config.CheckAPIKeys(cfg) {
			status := errStyle.Render("not set")
			if k.IsSet {
				status = okStyle.Render("set") + mutedStyle.Render(fmt.Sprintf(" (%s: %s)", k.Source, k.Masked))
			}
			printField(k.Name, status)
		}
		return nil
	},
}

// llmCheck pings the configured provider for the status report.
func llmCheck(ctx context.Context) string {
	provider, err := llm.New(cfg.LLM)
	if err != nil {
		return errStyle.Render(err.Error())
	}
	if err := pingLLM(ctx, provider); err != nil {
		return errStyle.Render(err.Error())
	}
	return okStyle.Render("reachable")
}

// --- Shared wiring ---

func newMarket() *polygon.Client {
	return polygon.NewFromConfig(cfg.Polygon, logger)
}

func openStore() (watchlist.Store, error) {
	return watchlist.Open(cfg.Storage, logger)
}

// newLLM builds the configured provider. A missing key is logged and
// yields nil, which the digest job reports on every run.
func newLLM() llm.Provider {
	provider, err := llm.New(cfg.LLM)
	if err != nil {
		logger.Warn("llm provider unavailable, digest runs will fail", zap.Error(err))
		return nil
	}
	return provider
}

// pingLLM checks that the provider answers and accepts the key.
func pingLLM(ctx context.Context, provider llm.Provider) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return provider.Ping(ctx)
}

// newDigestJob wires the digest to the market client, store and provider.
func newDigestJob(market *polygon.Client, store watchlist.Store, provider llm.Provider) *digest.Job {
	return digest.NewJob(store, market, provider,
		digest.WithLogger(logger.Named("digest")),
		digest.WithMaxAttempts(cfg.Digest.MaxAttempts),
		digest.WithChatOptions(&llm.ChatOptions{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		}),
	)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
