package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/webscout/websearch/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Query the index",
	Long: `Search the local index. The default vertical ranks by text relevance
weighted by page authority and quality; news ranks recent news pages
first; images matches alt text and titles.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringP("kind", "k", "web", "Search vertical: web, news or images")
	searchCmd.Flags().IntP("limit", "n", search.DefaultLimit, "Maximum number of results")
	searchCmd.Flags().Bool("json", false, "Emit results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	kindName, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	var kind search.Kind
	switch kindName {
	case "web":
		kind = search.KindWeb
	case "news":
		kind = search.KindNews
	case "images":
		kind = search.KindImages
	default:
		return fmt.Errorf("unknown search kind %q (want web, news or images)", kindName)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	engine := search.NewEngine(store)
	query := strings.Join(args, " ")

	results, err := engine.Search(query, kind, limit)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			return fmt.Errorf("query %q contains no searchable terms (terms must be longer than 2 characters)", query)
		}
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Printf("No results for %q\n", query)
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. %s\n", i+1, r.Title)
		fmt.Printf("   %s\n", r.URL)
		if kind == search.KindImages {
			if r.PageURL != "" {
				fmt.Printf("   from: %s\n", r.PageURL)
			}
			if r.AltText != "" {
				fmt.Printf("   alt: %s\n", r.AltText)
			}
		} else {
			if r.Snippet != "" {
				fmt.Printf("   %s\n", r.Snippet)
			}
			fmt.Printf("   [%s] score=%.3f\n", r.ContentType, r.Score)
		}
		fmt.Println()
	}
	return nil
}
