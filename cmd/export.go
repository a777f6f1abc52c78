package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the audit ledger as CSV from a running bot",
	Long: `Fetches the append-only audit ledger from a running bot's control
surface and writes it as CSV to stdout or to --output.`,
	RunE: runExport,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("addr", "http://localhost:8080", "Base URL of the running bot")
	exportCmd.Flags().StringP("output", "o", "", "Write CSV to this file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	output, _ := cmd.Flags().GetString("output")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(addr + "/api/audit/export")
	if err != nil {
		return fmt.Errorf("fetch audit export: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("audit export returned %d: %s", resp.StatusCode, string(body))
	}

	var dst io.Writer = os.Stdout
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() {
			_ = file.Close()
		}()
		dst = file
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	return nil
}
