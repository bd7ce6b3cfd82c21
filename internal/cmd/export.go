package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/webscout/websearch/internal/crawler"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the crawl queue as JSON",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().String("status", "", "Only entries with this status (pending, crawling, completed, failed)")
	exportCmd.Flags().IntP("limit", "n", 1000, "Maximum number of entries")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")

	switch status {
	case "", "pending", "crawling", "completed", "failed":
	default:
		return fmt.Errorf("unknown queue status %q", status)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.ExportQueue(status, limit)
	if err != nil {
		return fmt.Errorf("failed to export queue: %w", err)
	}
	if entries == nil {
		entries = []crawler.QueueEntry{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
