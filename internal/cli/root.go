// Package cli provides the command-line interface for the option-chain tools.
package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nifty-options/internal/chain"
	"nifty-options/internal/config"
	"nifty-options/internal/logging"
	"nifty-options/internal/security"
	"nifty-options/internal/server"
	"nifty-options/internal/source"
	"nifty-options/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies. They are built in the root
// command's pre-run, after flags and configuration are known.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Generator *chain.Generator

	now      func() time.Time
	logger   *zerolog.Logger
	resolver server.PriceResolver
	nse      server.OptionChainFetcher
	cache    store.QuoteCache
}

// AppOption overrides a dependency, mainly for tests.
type AppOption func(*App)

// WithClock fixes the generator clock.
func WithClock(now func() time.Time) AppOption {
	return func(a *App) { a.now = now }
}

// WithLogger replaces the configured logger.
func WithLogger(logger zerolog.Logger) AppOption {
	return func(a *App) { a.logger = &logger }
}

// WithResolver replaces the upstream price resolver.
func WithResolver(r server.PriceResolver) AppOption {
	return func(a *App) { a.resolver = r }
}

// WithNSE replaces the NSE option-chain client.
func WithNSE(n server.OptionChainFetcher) AppOption {
	return func(a *App) { a.nse = n }
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(opts ...AppOption) *cobra.Command {
	app := &App{}
	for _, opt := range opts {
		opt(app)
	}

	cobra.EnableCaseInsensitive = true

	rootCmd := &cobra.Command{
		Use:   "optionchain",
		Short: "Synthetic NIFTY / BANK NIFTY option chains",
		Long: `optionchain fabricates internally consistent option chains for Indian
index options around a spot price, and fetches live spot prices and NSE
option chains when the network allows.

With no command, or an unknown one, it prints the ATM view for NIFTY at 24300.
Every command prints JSON. Failures are printed as {"status":"error",...}.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Unknown commands fall back to the ATM view with defaults.
			return runATM(cmd, app, nil)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/nifty-options)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Int64("seed", 0, "random seed for reproducible output (0 = time-seeded)")
	addChainFlags(rootCmd)

	rootCmd.AddCommand(newATMCmd(app))
	rootCmd.AddCommand(newChainCmd(app))
	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newNSECmd(app))
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))

	return rootCmd
}

// Execute runs the root command with args. Any failure is printed as a JSON
// error object on stdout; the process exit status is left at 0.
func Execute(ctx context.Context, rootCmd *cobra.Command, args []string) {
	rootCmd.SetArgs(NormalizeArgs(rootCmd, args))
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		NewOutput(rootCmd).ErrorJSON("", err)
	}
}

func (a *App) init(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	a.Config = cfg

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = "debug"
	}
	if a.logger != nil {
		a.Logger = *a.logger
	} else {
		a.Logger = logging.NewLoggerWithConfig(cfg.Log)
	}

	if cmd.Flags().Changed("seed") {
		cfg.Generator.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	genOpts := []chain.Option{chain.WithSeed(cfg.Generator.Seed)}
	if a.now != nil {
		genOpts = append(genOpts, chain.WithClock(a.now))
	}
	a.Generator = chain.NewGenerator(genOpts...)

	a.Logger.Debug().
		Str("command", cmd.Name()).
		Int64("seed", cfg.Generator.Seed).
		Str("cache", cfg.Cache.Backend).
		Msg("Initialized")
	return nil
}

// Resolver returns the upstream price resolver, opening the quote cache on
// first use. A cache that cannot be opened is skipped with a warning.
func (a *App) Resolver(ctx context.Context) server.PriceResolver {
	if a.resolver != nil {
		return a.resolver
	}
	cache, err := store.New(ctx, a.Config.Cache)
	if err != nil {
		a.Logger.Warn().Err(err).Str("backend", a.Config.Cache.Backend).Msg("Quote cache unavailable")
		cache = nil
	}
	a.cache = cache
	a.resolver = source.NewResolverFromConfig(a.Config, cache, a.Logger)
	return a.resolver
}

// NSE returns the NSE option-chain client.
func (a *App) NSE() server.OptionChainFetcher {
	if a.nse == nil {
		a.nse = source.NewNSEClient(a.Config.Sources.NSEBaseURL, a.Config.Fetch.Timeout, a.Logger)
	}
	return a.nse
}

func (a *App) close() {
	if a.cache == nil {
		return
	}
	if err := a.cache.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close quote cache")
	}
	a.cache = nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewOutput(cmd).JSON(map[string]string{
				"version":    Version,
				"build_date": BuildDate,
			})
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View the effective configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewOutput(cmd).JSON(redactedConfig(app.Config))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			return NewOutput(cmd).JSON(map[string]string{"path": dir})
		},
	})

	return cmd
}

// redactedConfig masks credentials before display.
func redactedConfig(cfg *config.Config) config.Config {
	out := *cfg
	out.Sources.KiteAPIKey = security.MaskCredential(out.Sources.KiteAPIKey)
	out.Sources.KiteAccessToken = security.MaskCredential(out.Sources.KiteAccessToken)
	out.Cache.RedisURL = security.MaskURL(out.Cache.RedisURL)
	return out
}
