package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetFailedCmd = &cobra.Command{
	Use:   "reset-failed",
	Short: "Re-queue terminally failed URLs",
	Long: `Move every failed queue entry back to pending with a fresh retry
budget, making it eligible for the next crawl run.`,
	Args: cobra.NoArgs,
	RunE: runResetFailed,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove old low-quality pages from the index",
	Args:  cobra.NoArgs,
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().Int("days", 30, "Remove pages crawled more than this many days ago")
	cleanupCmd.Flags().Float64("min-quality", 0.3, "Keep pages at or above this quality score")

	rootCmd.AddCommand(resetFailedCmd)
	rootCmd.AddCommand(cleanupCmd)
}

func runResetFailed(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	n, err := store.ResetFailed()
	if err != nil {
		return fmt.Errorf("failed to reset queue entries: %w", err)
	}
	fmt.Printf("Reset %d failed queue entries to pending\n", n)
	return nil
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	days, _ := cmd.Flags().GetInt("days")
	minQuality, _ := cmd.Flags().GetFloat64("min-quality")
	if days < 0 {
		return fmt.Errorf("days must be non-negative, got %d", days)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	removed, err := store.CleanupOlderThan(days, minQuality)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Printf("Removed %d pages older than %d days with quality below %.2f\n", removed, days, minQuality)
	return nil
}
