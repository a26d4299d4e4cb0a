// Package cmd provides the command-line interface for scrapeline.
// It handles command parsing, configuration loading, and run execution.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/scrapeline/internal/config"
	"github.com/masahif/scrapeline/internal/crawler"
	"github.com/masahif/scrapeline/internal/format"
	"github.com/masahif/scrapeline/internal/logging"
	"github.com/masahif/scrapeline/internal/model"
	"github.com/masahif/scrapeline/internal/parser"
	"github.com/masahif/scrapeline/internal/storage"
)

var (
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

// newRootCmd builds the command with its own viper instance.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "scrapeline [URLs...]",
		Short: "A web scraper that extracts structured content from pages",
		Long: `Scrapeline fetches web pages and extracts their title, headings,
paragraphs, links, images, tables, code blocks, metadata and custom
CSS selector matches. With --crawl it follows same-domain links
breadth-first up to --max-depth and --max-pages.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, v, args)
		},
	}

	// Configuration file flag
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./scrapeline.yml)")

	// Configuration management flags
	cmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	// Input flags
	cmd.Flags().String("url-file", "", "Read URLs from a file (one URL per line)")

	// Fetching flags
	cmd.Flags().IntP("timeout", "t", 30, "Request timeout in seconds")
	cmd.Flags().IntP("delay", "d", 1000, "Delay between requests in milliseconds")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent, "HTTP User-Agent header")
	cmd.Flags().StringP("proxy", "p", "", "Proxy URL (e.g., http://proxy.example.com:8080)")
	cmd.Flags().StringArrayP("header", "H", []string{}, "Custom HTTP headers in 'Name: Value' format (use multiple times for multiple headers)")

	// Crawling flags
	cmd.Flags().Bool("crawl", false, "Enable crawling (follow links)")
	cmd.Flags().Int("max-depth", 2, "Maximum crawl depth")
	cmd.Flags().Int("max-pages", 10, "Maximum number of pages to crawl")
	cmd.Flags().String("domain-scope", "host", "Links to follow: 'host' (same hostname) or 'site' (same registrable domain)")

	// Extraction flags
	cmd.Flags().StringArrayP("selector", "s", []string{}, "Custom CSS selector to extract (can specify multiple)")
	cmd.Flags().Bool("metadata", false, "Extract metadata (Open Graph, meta tags)")

	// Output flags
	cmd.Flags().StringP("format", "f", "json", "Output format: json, csv, text or markdown")
	cmd.Flags().StringP("output", "o", "", "Save output to file")
	cmd.Flags().Bool("output-per-page", false, "Save each scraped page to a separate file (requires --output as prefix)")
	cmd.Flags().String("database", "", "Archive the run in a SQLite database file")

	// Logging flags
	cmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.Flags().BoolP("quiet", "q", false, "Quiet mode (minimal output)")
	cmd.Flags().String("log-level", "info", "Log level: debug, info, warn, error")
	cmd.Flags().String("log-format", "text", "Log format: text or json")
	cmd.Flags().String("log-file", "", "Also write logs to a rotating file")

	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"url_file", "url-file"},
		{"timeout", "timeout"},
		{"delay", "delay"},
		{"user_agent", "user-agent"},
		{"proxy", "proxy"},
		{"headers", "header"},
		{"crawl", "crawl"},
		{"max_depth", "max-depth"},
		{"max_pages", "max-pages"},
		{"domain_scope", "domain-scope"},
		{"selectors", "selector"},
		{"metadata", "metadata"},
		{"format", "format"},
		{"output", "output"},
		{"output_per_page", "output-per-page"},
		{"database_path", "database"},
		{"verbose", "verbose"},
		{"quiet", "quiet"},
		{"log.level", "log-level"},
		{"log.format", "log-format"},
		{"log.file", "log-file"},
	}

	for _, bind := range bindFlags {
		if err := v.BindPFlag(bind.viperKey, cmd.Flags().Lookup(bind.flagName)); err != nil {
			// Log the error but continue - non-critical for operation
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}

	return cmd
}

// initConfig reads in config file and ENV variables if set.
func initConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		// Use config file from the flag.
		v.SetConfigFile(cfgFile)
	} else {
		// Search for config in current directory
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("scrapeline")
	}

	v.SetEnvPrefix("SL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", v.ConfigFileUsed())
	return nil
}

// loadConfig merges defaults, the config file, environment and flags.
// Positional arguments replace configured URLs.
func loadConfig(v *viper.Viper, args []string) (*config.ScrapeConfig, error) {
	cfg := config.DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(args) > 0 {
		cfg.URLs = args
	}

	return cfg, nil
}

func showCurrentConfig(w io.Writer, cfg *config.ScrapeConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	// Validate configuration before showing it
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(w, "# Current Scrapeline Configuration\n")
	fmt.Fprintf(w, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "# Configuration file search paths: ./scrapeline.yml\n")
	fmt.Fprintf(w, "# Environment variables prefix: SL_\n\n")

	fmt.Fprint(w, string(yamlData))

	fmt.Fprintf(w, "\n# Configuration source priority:\n")
	fmt.Fprintf(w, "# 1. Command-line arguments (highest priority)\n")
	fmt.Fprintf(w, "# 2. Environment variables (SL_ prefix)\n")
	fmt.Fprintf(w, "# 3. Configuration file (scrapeline.yml)\n")
	fmt.Fprintf(w, "# 4. Default values (lowest priority)\n")

	return nil
}

func runScrape(cmd *cobra.Command, v *viper.Viper, args []string) error {
	showConfig, _ := cmd.Flags().GetBool("show-config")

	cfg, err := loadConfig(v, args)
	if err != nil {
		return err
	}

	if showConfig {
		return showCurrentConfig(cmd.OutOrStdout(), cfg)
	}

	closer, err := logging.SetDefault(logging.Config{
		Level:      logging.ParseLevel(cfg.LogLevel()),
		Format:     cfg.Log.Format,
		FilePath:   cfg.Log.File,
		MaxSize:    100,
		MaxBackups: 5,
		Console:    true,
		Output:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer func() { _ = closer.Close() }()

	if err := cfg.LoadURLFile(); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	formatter, err := format.New(cfg.Format)
	if err != nil {
		return err
	}

	headers, err := config.ParseHeaders(cfg.Headers)
	if err != nil {
		return err
	}

	client, err := crawler.NewHTTPClient(crawler.Options{
		UserAgent: cfg.UserAgent,
		Headers:   headers,
		Timeout:   cfg.RequestTimeout(),
		ProxyURL:  cfg.Proxy,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}
	defer client.Close()

	engine := newEngine(cfg, client)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *storage.SQLiteStorage
	if cfg.DatabasePath != "" {
		store, err = openStorage(ctx, cfg, engine)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
	}

	records, runErr := engine.Run(ctx, cfg.URLs)

	if store != nil {
		if err := store.FinishRun(context.WithoutCancel(ctx), store.RunID(), runState(runErr), engine.Stats()); err != nil {
			slog.Error("Failed to finish run", "error", err)
		}
	}

	if errors.Is(runErr, crawler.ErrNoValidSeeds) || errors.Is(runErr, crawler.ErrAlreadyRun) {
		return runErr
	}

	// Output is written even when the run was cut short
	if err := writeOutput(cmd.OutOrStdout(), cfg, formatter, records); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}

	slog.Info("Scraped pages", "count", len(records))
	return nil
}

func newEngine(cfg *config.ScrapeConfig, fetcher crawler.Fetcher) *crawler.Engine {
	mode := crawler.ModeSingle
	if cfg.Crawl {
		mode = crawler.ModeCrawl
	}

	return crawler.NewEngine(crawler.EngineConfig{
		Mode:     mode,
		MaxDepth: cfg.MaxDepth,
		MaxPages: cfg.MaxPages,
		Delay:    cfg.RequestDelay(),
		Scope:    crawler.Scope(cfg.DomainScope),
		Extract: parser.Options{
			WantMetadata: cfg.Metadata,
			Selectors:    cfg.Selectors,
		},
	}, fetcher)
}

// openStorage opens the archive, starts a run and attaches it to the engine.
func openStorage(ctx context.Context, cfg *config.ScrapeConfig, engine *crawler.Engine) (*storage.SQLiteStorage, error) {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	mode := "single"
	if cfg.Crawl {
		mode = "crawl"
	}
	runID, err := store.BeginRun(ctx, mode, cfg.URLs)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	engine.SetResultHandler(store)
	slog.Info("Archiving run", "database", cfg.DatabasePath, "run_id", runID)
	return store, nil
}

func runState(err error) string {
	switch {
	case err == nil, errors.Is(err, crawler.ErrSeedUnreachable):
		return storage.RunCompleted
	case errors.Is(err, crawler.ErrInterrupted):
		return storage.RunInterrupted
	default:
		return storage.RunAborted
	}
}

// writeOutput sends records to per-page files, a single file, or w.
// Quiet mode without an output file prints nothing.
func writeOutput(w io.Writer, cfg *config.ScrapeConfig, f format.Formatter, records []model.PageRecord) error {
	switch {
	case cfg.OutputPerPage:
		_, err := format.WritePerPage(cfg.Output, f, records)
		return err
	case cfg.Output != "":
		return format.WriteFile(cfg.Output, f, records)
	case cfg.Quiet:
		return nil
	default:
		return f.Format(w, records)
	}
}
