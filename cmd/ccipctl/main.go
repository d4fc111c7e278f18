package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"CCIP-Bridge/internal/config"
	"CCIP-Bridge/sdk/go/ccip"
)

// rootCmd is the command-line client for a running ccipd. Subcommands talk to
// the REST API through the Go SDK; `chains --offline` reads the local table.
var rootCmd = &cobra.Command{
	Use:           "ccipctl",
	Short:         "CCIP cross-chain transfer client",
	Long:          "Submit Solana to EVM token transfers to ccipd and follow them to a final status.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagServer string
	flagConfig string
	flagOutput string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", envDefault("CCIP_SERVER", "http://localhost:8080"), "ccipd base URL")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", os.Getenv("CCIP_CONFIG"), "Path to ccip.yaml (poller defaults, chain table)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "Output format: json|text")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadCfg() (*config.Config, error) {
	return config.Load(flagConfig)
}

func newClient() (*ccip.Client, error) {
	return ccip.NewClient(flagServer, nil)
}

func newPoller(client ccip.StatusSource, cfg *config.Config) *ccip.Poller {
	return ccip.NewPoller(client, ccip.PollerConfig{
		Interval:     cfg.Poller.Interval,
		MaxAttempts:  cfg.Poller.MaxAttempts,
		InitialDelay: cfg.Poller.InitialDelay,
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func checkOutput() error {
	switch flagOutput {
	case "text", "", "json":
		return nil
	default:
		return fmt.Errorf("invalid --output: %s (use json|text)", flagOutput)
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
