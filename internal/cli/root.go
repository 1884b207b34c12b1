package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"peakline/internal/advisor"
	"peakline/internal/config"
	"peakline/internal/feed"
	"peakline/internal/logging"
	"peakline/internal/resilience"
	"peakline/internal/security"
	"peakline/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies. The store is opened on first use
// so commands that only read configuration never touch the database.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	RunID  string

	store   *store.SQLiteStore
	breaker *resilience.CircuitBreaker
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "peakline",
		Short: "Peak/valley technical signal engine for daily bars",
		Long: `peakline reads daily OHLCV bars, finds confirmed peaks and valleys,
classifies the trend, recognizes candlestick setups, votes oscillator states
and merges everything into a BUY/SELL/HOLD recommendation with a position size.

Bars come from <csv_dir>/<symbol>.csv files and are cached in SQLite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/peakline)")
	rootCmd.PersistentFlags().String("format", FormatText, "output format: text, json or yaml")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newAdviseCmd(app))
	rootCmd.AddCommand(newScanCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))
	rootCmd.AddCommand(newCacheCmd(app))

	return rootCmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func (a *App) init(cmd *cobra.Command) error {
	format, _ := cmd.Flags().GetString("format")
	if err := ValidateFormat(format); err != nil {
		return err
	}
	if cmd.Name() == "version" {
		return nil
	}

	configDir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	a.Config = cfg

	logCfg := logging.DefaultLogConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.File = cfg.Log.File
	logCfg.FilePath = cfg.LogFilePath()
	logCfg.MaxSize = cfg.Log.MaxSize
	logCfg.MaxBackups = cfg.Log.MaxBackups
	logCfg.MaxAge = cfg.Log.MaxAge

	a.RunID = logging.NewRunID()
	a.Logger = logging.WithRunID(logging.NewLoggerWithConfig(logCfg), a.RunID)

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logging.SetDebugLevel()
		a.Logger = a.Logger.Level(zerolog.DebugLevel)
	}

	cmd.SetContext(logging.WithLogger(cmd.Context(), a.Logger))
	a.Logger.Debug().Str("command", cmd.CommandPath()).Str("config_dir", cfg.Dir).Msg("Starting")
	return nil
}

// Store opens the candle cache on first use.
func (a *App) Store() (*store.SQLiteStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := store.NewSQLiteStore(a.Config.Data.DBPath)
	if err != nil {
		return nil, err
	}
	a.store = s
	a.Logger.Debug().Str("path", a.Config.Data.DBPath).Msg("SQLite store initialized")
	return s, nil
}

// Fetcher returns the configured price history provider: the CSV directory
// behind the SQLite cache, or the cache alone when offline or when the
// directory does not exist. All fetchers of one App share a circuit breaker
// on the CSV source.
func (a *App) Fetcher(offline bool) (feed.Fetcher, error) {
	s, err := a.Store()
	if err != nil {
		return nil, err
	}
	if offline {
		return feed.NewStoreSource(s), nil
	}
	if info, err := os.Stat(a.Config.Data.CSVDir); err != nil || !info.IsDir() {
		a.Logger.Debug().Str("csv_dir", a.Config.Data.CSVDir).Msg("CSV directory missing, reading cache only")
		return feed.NewStoreSource(s), nil
	}
	if a.breaker == nil {
		a.breaker = feed.NewSourceBreaker("csv")
	}
	source := feed.NewCSVSource(a.Config.Data.CSVDir)
	return feed.NewCachedFetcher(source, s, a.Config.MaxAgeDuration(), a.Logger).WithBreaker(a.breaker), nil
}

// Service builds an advisor service with command-line overrides applied.
func (a *App) Service(fetcher feed.Fetcher, opts serviceOptions) *advisor.Service {
	cfg := advisor.ServiceConfig{
		Window:       a.Config.Analysis.Window,
		MinBars:      a.Config.Analysis.MinBars,
		LookbackDays: a.Config.Data.LookbackDays,
		Granularity:  a.Config.GranularityValue(),
		Workers:      a.Config.Scan.Workers,
	}
	if opts.window > 0 {
		cfg.Window = opts.window
	}
	if opts.lookback > 0 {
		cfg.LookbackDays = opts.lookback
	}
	if opts.granularity != "" {
		cfg.Granularity = opts.granularity
	}
	if opts.workers > 0 {
		cfg.Workers = opts.workers
	}
	return advisor.NewService(fetcher, cfg, a.Logger)
}

// Close releases the store if it was opened.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// serviceOptions are per-command overrides of the configured analysis.
type serviceOptions struct {
	window      int
	lookback    int
	granularity feed.Granularity
	workers     int
}

func addServiceFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("window", "w", 0, "extrema confirmation window (default from config)")
	cmd.Flags().Int("lookback", 0, "days of history to load (default from config)")
	cmd.Flags().StringP("granularity", "g", "", "bar period: daily, weekly or monthly")
	cmd.Flags().Bool("offline", false, "read only from the SQLite cache")
}

func readServiceOptions(cmd *cobra.Command) (serviceOptions, error) {
	var opts serviceOptions
	opts.window, _ = cmd.Flags().GetInt("window")
	opts.lookback, _ = cmd.Flags().GetInt("lookback")
	if cmd.Flags().Lookup("workers") != nil {
		opts.workers, _ = cmd.Flags().GetInt("workers")
	}
	if g, _ := cmd.Flags().GetString("granularity"); g != "" {
		parsed, err := feed.ParseGranularity(g)
		if err != nil {
			return opts, err
		}
		opts.granularity = parsed
	}
	return opts, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Structured(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("peakline v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the peakline configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cfg := *app.Config
			cfg.Notify.Webhook.URL = security.MaskURL(cfg.Notify.Webhook.URL)
			if output.IsStructured() {
				return output.Structured(&cfg)
			}
			showConfig(output, &cfg)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := config.ConfigPath(app.Config.Dir)
			if output.IsStructured() {
				return output.Structured(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsStructured() {
				return output.Structured(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Analysis")
	output.Printf("  Window:          %d\n", cfg.Analysis.Window)
	output.Printf("  Min Bars:        %d\n", cfg.Analysis.MinBars)
	output.Println()

	output.Bold("Data")
	output.Printf("  CSV Dir:         %s\n", cfg.Data.CSVDir)
	output.Printf("  DB Path:         %s\n", cfg.Data.DBPath)
	output.Printf("  Granularity:     %s\n", cfg.Data.Granularity)
	output.Printf("  Lookback:        %d days\n", cfg.Data.LookbackDays)
	output.Printf("  Cache Max Age:   %s\n", cfg.Data.MaxAge)
	output.Println()

	output.Bold("Scan")
	output.Printf("  Workers:         %d\n", cfg.Scan.Workers)
	output.Printf("  Symbols:         %v\n", cfg.Scan.Symbols)
	output.Printf("  Schedule:        %s\n", cfg.Schedule.Cron)
	output.Println()

	output.Bold("Notify")
	output.Printf("  Level:           %s\n", cfg.Notify.Level)
	output.Printf("  Bell:            %v\n", cfg.Notify.Bell)
	if cfg.Notify.Webhook.Enabled {
		output.Printf("  Webhook:         %s\n", cfg.Notify.Webhook.URL)
	} else {
		output.Printf("  Webhook:         disabled\n")
	}
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Log.Level)
	output.Printf("  File:            %v\n", cfg.Log.File)
}
