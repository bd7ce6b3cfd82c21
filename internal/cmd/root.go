// Package cmd provides the command-line interface for WebSearch. It
// handles command parsing, configuration loading, and wiring the
// crawler, storage and search engine together.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/webscout/websearch/internal/config"
	"github.com/webscout/websearch/internal/crawler"
	"github.com/webscout/websearch/internal/logging"
	"github.com/webscout/websearch/internal/storage"
)

var (
	cfgFile   string
	version   string
	buildTime string
)

// rootCmd crawls when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "websearch [URLs...]",
	Short: "A self-contained web search engine",
	Long: `WebSearch crawls the web politely, indexes page content into a local
SQLite full-text index, and answers web, news and image queries
against it. Run with seed URLs to crawl, or use the search, stats
and maintenance subcommands against an existing index.`,
	Args: cobra.ArbitraryArgs,
	RunE: runCrawl,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// The context cancels in-flight crawling on shutdown.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets version information for the CLI.
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./websearch.yml)")
	rootCmd.PersistentFlags().StringP("database", "d", "./websearch.db", "Path to SQLite database file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "Optional log file path (rotated by size)")

	rootCmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")
	rootCmd.Flags().IntP("concurrency", "c", 2, "Number of concurrent workers")
	rootCmd.Flags().DurationP("delay", "r", time.Second, "Minimum delay between requests to the same domain")
	rootCmd.Flags().DurationP("timeout", "t", 30*time.Second, "HTTP request timeout")
	rootCmd.Flags().StringP("user-agent", "u", "WebSearch/1.0", "HTTP User-Agent header")
	rootCmd.Flags().IntP("limit", "l", 0, "Stop after N pages (0=unlimited)")
	rootCmd.Flags().Int("max-retries", 5, "Retry failed URLs up to this many times")
	rootCmd.Flags().Duration("retry-cooldown", time.Hour, "Delay before a failed URL becomes eligible again")
	rootCmd.Flags().Int("max-pages-per-domain", 1000, "Stored-page cap per domain")
	rootCmd.Flags().StringSlice("allowed-external", nil, "External domains worth following (overrides defaults)")

	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"database_path", "database"},
		{"log_level", "log-level"},
		{"log_file", "log-file"},
		{"concurrency", "concurrency"},
		{"crawl_delay", "delay"},
		{"request_timeout", "timeout"},
		{"user_agent", "user-agent"},
		{"max_pages", "limit"},
		{"max_retries", "max-retries"},
		{"retry_cooldown", "retry-cooldown"},
		{"max_pages_per_domain", "max-pages-per-domain"},
		{"allowed_external_domains", "allowed-external"},
	}

	for _, bind := range bindFlags {
		flag := rootCmd.Flags().Lookup(bind.flagName)
		if flag == nil {
			flag = rootCmd.PersistentFlags().Lookup(bind.flagName)
		}
		if err := viper.BindPFlag(bind.viperKey, flag); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("websearch")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("WS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, the config file, environment variables and
// flags into a validated configuration.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) error {
	opts := logging.DefaultOptions()
	opts.Level = logging.ParseLevel(cfg.LogLevel)
	opts.FilePath = cfg.LogFile
	return logging.SetDefault(opts)
}

// openStore opens the SQLite store, creating the database directory if
// needed.
func openStore(cfg *config.Config) (*storage.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := storage.New(cfg.DatabasePath, cfg.MaxRetries, cfg.RetryCooldown)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.DatabasePath, err)
	}
	return store, nil
}

func showCurrentConfig(cfg *config.Config) error {
	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Printf("# Current WebSearch Configuration\n")
	fmt.Printf("# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Printf("# Configuration file search paths: ./websearch.yml\n")
	fmt.Printf("# Environment variables prefix: WS_\n\n")
	fmt.Print(string(yamlData))
	fmt.Printf("\n# Configuration source priority:\n")
	fmt.Printf("# 1. Command-line arguments (highest priority)\n")
	fmt.Printf("# 2. Environment variables (WS_ prefix)\n")
	fmt.Printf("# 3. Configuration file (websearch.yml)\n")
	fmt.Printf("# 4. Default values (lowest priority)\n")

	return nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	showConfig, _ := cmd.Flags().GetBool("show-config")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.SeedURLs = args
	}

	if showConfig {
		return showCurrentConfig(cfg)
	}

	if err := setupLogging(cfg); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	// Without seed URLs, crawling only makes sense as a resume of an
	// existing queue.
	if len(cfg.SeedURLs) == 0 {
		if _, err := os.Stat(cfg.DatabasePath); os.IsNotExist(err) {
			return fmt.Errorf("no URLs provided and no existing database found at %s\nUsage: %s [URLs...] or ensure database exists for resume operation",
				cfg.DatabasePath, os.Args[0])
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		hasWork, err := store.HasQueuedItems()
		if closeErr := store.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("failed to check queue status: %w", err)
		}
		if !hasWork {
			fmt.Printf("No URLs provided and no queued items found in database %s\n", cfg.DatabasePath)
			fmt.Printf("Nothing to crawl. Exiting.\n")
			return nil
		}

		fmt.Printf("Resuming crawl from existing database: %s\n", cfg.DatabasePath)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	fmt.Printf("Starting crawl:\n")
	if len(cfg.SeedURLs) > 0 {
		fmt.Printf("  Seed URLs: %v\n", cfg.SeedURLs)
	} else {
		fmt.Printf("  Seed URLs: (none - resuming from existing queue)\n")
	}
	fmt.Printf("  Limit: %d\n", cfg.MaxPages)
	fmt.Printf("  Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("  Crawl Delay: %v\n", cfg.CrawlDelay)
	fmt.Printf("  Database: %s\n", cfg.DatabasePath)

	scheduler := crawler.NewScheduler(cfg, store)
	defer func() { _ = scheduler.Stop() }()

	if err := scheduler.Start(cmd.Context(), cfg.SeedURLs); err != nil {
		return err
	}

	stats := scheduler.GetStats()
	fmt.Printf("Crawl finished: %d pages in %v (%d errors)\n",
		stats.PagesCrawled, stats.Duration.Round(time.Second), stats.ErrorCount)
	return nil
}
