package cmd

import (
	"fmt"

	"github.com/aaronwins356/voltrader/internal/app"
	"github.com/aaronwins356/voltrader/pkg/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the trading bot",
	Long: `Starts the volatility trading bot, which will:
1. Serve the operator control surface and push websocket
2. Scan the market universe at the configured cadence
3. Enter and exit positions under the decision rule set
4. Enforce the risk envelope and audit every decision

The scan loop starts idle; use --auto-start or POST /api/bot/start.`,
	RunE: runBot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("auto-start", false, "Begin scanning immediately without waiting for the start control")
}

func runBot(cmd *cobra.Command, args []string) error {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	autoStart, _ := cmd.Flags().GetBool("auto-start")

	application, err := app.New(cfg, logger, &app.Options{
		AutoStart: autoStart,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
