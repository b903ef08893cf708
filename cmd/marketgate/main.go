// Command marketgate runs the marketplace admin API and manages its gate
// record.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-market-gate/internal/config"
	"github.com/goliatone/go-market-gate/pkg/di"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:           "marketgate <command>",
	Short:         "Marketplace admin API with a persistent feature gate",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(gateCmd)
}

// newContainer loads the config from the environment and builds the
// container with a text logger on stderr.
func newContainer() (*di.Container, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	c, err := di.NewContainer(cfg, di.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return c, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
