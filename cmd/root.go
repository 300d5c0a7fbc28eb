// =============================================================================
// X-Plane Airway Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every subcommand is
// attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (airway)
//   ├── convertCmd  (airway convert)   - run one conversion from flags
//   ├── processCmd  (airway process)   - run the jobs listed in config.yaml
//   ├── validateCmd (airway validate)  - check config and job inputs
//   └── versionCmd  (airway version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Loading .env files into the environment
//   2. Loading config.yaml (defaults when the default file is absent)
//   3. Setting up the slog logger
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/xplane-airway-converter/internal/config"
	"github.com/ginjaninja78/xplane-airway-converter/internal/logger"
)

// defaultConfigFile is read when present; a missing default is not an error.
const defaultConfigFile = "config.yaml"

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile is loaded into the environment before the config.
var envFile string

// verbose enables debug logging.
var verbose bool

// logFile overrides logging.file from the config.
var logFile string

// Populated by PersistentPreRunE.
var (
	appConfig  *config.MainConfig
	appLogger  *slog.Logger
	logCleanup func() error
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "airway",
	Short: "X-Plane Airway Converter - build earth_awy.dat records from route segments",
	Long: `X-Plane Airway Converter turns a route-segment table (CSV or XLSX) into
fixed-width X-Plane airway records. Each segment's start and end points are
resolved against earth_fix.dat and earth_nav.dat to obtain their area codes.

Key Features:
  - Reference table filtering on en-route (ENRT) usage
  - Two directional records per segment, sorted by airway designator
  - Per-row failure isolation with an optional skip report
  - Atomic output writes
  - Concurrent processing of configured jobs

Example Usage:
  airway convert --csv RTE_SEG.csv --fix earth_fix.dat --nav earth_nav.dat --output earth_awy.dat
  airway process --config ./config.yaml
  airway validate`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp()
	},

	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeApp()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		closeApp()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		defaultConfigFile,
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Path to a .env file loaded before the configuration",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	rootCmd.PersistentFlags().StringVar(
		&logFile,
		"log-file",
		"",
		"Append logs to this file instead of stderr",
	)
}

// initApp loads the environment, the configuration and the logger.
func initApp() error {
	if err := config.LoadEnv(envFile); err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(cfgFile, cfgFile != defaultConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if logFile != "" {
		cfg.Logging.File = logFile
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	l, cleanup, err := logger.Setup(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Source: verbose,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	appConfig = cfg
	appLogger = l
	logCleanup = cleanup

	appLogger.Debug("config.loaded", "path", cfgFile, "jobs", len(cfg.Jobs))
	return nil
}

// closeApp releases the log file, if any.
func closeApp() error {
	if logCleanup == nil {
		return nil
	}
	err := logCleanup()
	logCleanup = nil
	return err
}
