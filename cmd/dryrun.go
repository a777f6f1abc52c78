package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/aaronwins356/voltrader/internal/app"
	"github.com/aaronwins356/voltrader/pkg/config"
	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var dryrunCmd = &cobra.Command{
	Use:   "dryrun",
	Short: "Run one scan cycle without placing orders",
	Long: `Runs a single scan cycle against the exchange collaborator and
prints the scored markets and the decisions that would have been made,
without placing any order or changing any position.`,
	RunE: runDryRun,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(dryrunCmd)
}

func runDryRun(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger("warn")
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	scan, decisions := application.Engine().DryRun(context.Background())

	out := map[string]interface{}{
		"scan":      scan,
		"decisions": decisions,
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	return nil
}
