package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestSetVersionInfo(t *testing.T) {
	SetVersionInfo("1.2.3", "2026-01-02T10:00:00Z")

	expected := "1.2.3 (built 2026-01-02T10:00:00Z)"
	if rootCmd.Version != expected {
		t.Errorf("Version = %q, want %q", rootCmd.Version, expected)
	}
}

func TestInitConfig(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "websearch.yml")
	content := `
concurrency: 5
crawl_delay: 2s
user_agent: "TestAgent/1.0"
`
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfgFile = configFile
	defer func() {
		cfgFile = ""
		viper.Reset()
	}()

	initConfig()

	if viper.ConfigFileUsed() != configFile {
		t.Errorf("Config file = %q, want %q", viper.ConfigFileUsed(), configFile)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want 5 from file", cfg.Concurrency)
	}
	if cfg.CrawlDelay != 2*time.Second {
		t.Errorf("CrawlDelay = %v, want 2s from file", cfg.CrawlDelay)
	}
	if cfg.UserAgent != "TestAgent/1.0" {
		t.Errorf("UserAgent = %q, want value from file", cfg.UserAgent)
	}
	// Keys absent from the file keep their defaults.
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want default 5", cfg.MaxRetries)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	viper.Set("concurrency", 0)
	defer viper.Reset()

	if _, err := loadConfig(); err == nil {
		t.Error("Expected validation error for zero concurrency")
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"search":       false,
		"stats":        false,
		"export":       false,
		"reset-failed": false,
		"cleanup":      false,
	}

	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Subcommand %q not registered", name)
		}
	}
}

func TestRootCmd(t *testing.T) {
	if rootCmd.Use != "websearch [URLs...]" {
		t.Errorf("Use = %q", rootCmd.Use)
	}
	if rootCmd.RunE == nil {
		t.Error("Root command has no run function")
	}
	if rootCmd.PersistentFlags().Lookup("database") == nil {
		t.Error("database flag not registered")
	}
	if rootCmd.Flags().Lookup("show-config") == nil {
		t.Error("show-config flag not registered")
	}
}
