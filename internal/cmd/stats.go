package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index and queue statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Bool("json", false, "Emit statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
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

	stats, err := store.Statistics()
	if err != nil {
		return fmt.Errorf("failed to gather statistics: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Printf("Pages indexed:  %d\n", stats.TotalPages)
	fmt.Printf("Domains:        %d\n", stats.DomainCount)
	fmt.Printf("Images:         %d\n", stats.ImageCount)

	fmt.Println("Pages by type:")
	for _, k := range sortedKeys(stats.PagesByType) {
		fmt.Printf("  %-10s %d\n", k, stats.PagesByType[k])
	}

	fmt.Println("Queue by status:")
	for _, k := range sortedKeys(stats.QueueByStatus) {
		fmt.Printf("  %-10s %d\n", k, stats.QueueByStatus[k])
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
