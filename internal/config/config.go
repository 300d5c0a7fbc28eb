// =============================================================================
// X-Plane Airway Converter - Configuration Module
// =============================================================================
//
// This module loads and validates the application configuration.
//
// CONFIGURATION SOURCES (later wins):
//   1. Built-in defaults (Default)
//   2. The YAML config file (config.yaml)
//   3. Environment variables, optionally from a .env file:
//        AIRWAY_LOG_LEVEL, AIRWAY_LOG_FILE, AIRWAY_OUTPUT_DIR
//
// EXAMPLE:
//
//   output_dir: ./output
//   output_name_format: "airway_output_{original}.dat"
//   max_concurrency: 2
//   logging:
//     level: info
//     format: text
//   reference_tables:
//     fix: {key_column: 2, value_column: 4, condition_column: 3,
//           condition_values: [ENRT], type_column: 3, type_value: ENRT}
//   jobs:
//     - name: cycle2503
//       csv: ./input/RTE_SEG.csv
//       earth_fix: ./xplane/earth_fix.dat
//       earth_nav: ./xplane/earth_nav.dat
//       output: ./output/airway2503.dat
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/xplane-airway-converter/internal/reftable"
	"github.com/ginjaninja78/xplane-airway-converter/pkg/utils"
)

// Environment variable names.
const (
	EnvLogLevel  = "AIRWAY_LOG_LEVEL"
	EnvLogFile   = "AIRWAY_LOG_FILE"
	EnvOutputDir = "AIRWAY_OUTPUT_DIR"
)

// =============================================================================
// CONFIGURATION STRUCTURES
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// OutputDir receives generated files when a job has no explicit output
	// path. Default: "./output"
	OutputDir string `yaml:"output_dir" validate:"required"`

	// OutputNameFormat names generated files. Placeholders:
	//   {uuid}      - a random UUID
	//   {timestamp} - current timestamp (YYYYMMDD_HHMMSS)
	//   {original}  - route-segment file name without extension
	// Default: "airway_output_{original}.dat"
	OutputNameFormat string `yaml:"output_name_format" validate:"required"`

	// SkipReport writes a "<output>.skipped.txt" report next to the output
	// listing every skipped row.
	SkipReport bool `yaml:"skip_report"`

	// MaxConcurrency bounds how many jobs the process command runs at once.
	// Each job is still converted start-to-finish on its own. Default: 1
	MaxConcurrency int `yaml:"max_concurrency" validate:"gte=1,lte=64"`

	Logging         LoggingConfig   `yaml:"logging"`
	CSV             CSVSettings     `yaml:"csv"`
	XLSX            XLSXSettings    `yaml:"xlsx"`
	ReferenceTables ReferenceTables `yaml:"reference_tables"`

	// Jobs are the conversions run by the process command.
	Jobs []JobConfig `yaml:"jobs" validate:"dive"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	// Level: "debug", "info", "warn", "error". Default: "info"
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format: "text" or "json". Default: "text"
	Format string `yaml:"format" validate:"oneof=text json"`

	// File appends logs to a file instead of stderr when set.
	File string `yaml:"file"`
}

// CSVSettings contains settings for parsing the route-segment CSV.
type CSVSettings struct {
	// Delimiter separates fields. Common values: "," "|" "tab" ";"
	// Default: ","
	Delimiter string `yaml:"delimiter" validate:"required"`

	// Columns names the header of each required field.
	Columns ColumnNames `yaml:"columns"`
}

// ColumnNames maps the six route-segment fields to header names.
type ColumnNames struct {
	StartPoint string `yaml:"start_point" validate:"required"`
	StartType  string `yaml:"start_type" validate:"required"`
	EndPoint   string `yaml:"end_point" validate:"required"`
	EndType    string `yaml:"end_type" validate:"required"`
	Direction  string `yaml:"direction" validate:"required"`
	Designator string `yaml:"designator" validate:"required"`
}

// Required returns the header names in field order.
func (c ColumnNames) Required() []string {
	return []string{c.StartPoint, c.StartType, c.EndPoint, c.EndType, c.Direction, c.Designator}
}

// XLSXSettings applies when the route-segment input is an .xlsx workbook.
type XLSXSettings struct {
	// Sheet to read. The first sheet is used when empty.
	Sheet string `yaml:"sheet"`
}

// ReferenceTables holds the column rules for both X-Plane reference files.
type ReferenceTables struct {
	Fix reftable.Rules `yaml:"fix"`
	Nav reftable.Rules `yaml:"nav"`
}

// JobConfig is one conversion run.
type JobConfig struct {
	Name     string `yaml:"name" validate:"required"`
	CSV      string `yaml:"csv" validate:"required"`
	EarthFix string `yaml:"earth_fix" validate:"required"`
	EarthNav string `yaml:"earth_nav" validate:"required"`

	// Output is derived from OutputDir and OutputNameFormat when empty.
	Output string `yaml:"output"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	cfg := &MainConfig{
		CSV: CSVSettings{
			Columns: ColumnNames{
				StartPoint: "CODE_POINT_START",
				StartType:  "CODE_TYPE_START",
				EndPoint:   "CODE_POINT_END",
				EndType:    "CODE_TYPE_END",
				Direction:  "CODE_DIR",
				Designator: "TXT_DESIG",
			},
		},
		ReferenceTables: ReferenceTables{
			Fix: reftable.DefaultFixRules(),
			Nav: reftable.DefaultNavRules(),
		},
	}
	applyMainConfigDefaults(cfg)
	return cfg
}

// applyMainConfigDefaults sets default values for any unset scalar option.
func applyMainConfigDefaults(config *MainConfig) {
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "airway_output_{original}.dat"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 1
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
	if config.CSV.Delimiter == "" {
		config.CSV.Delimiter = ","
	}
}

// =============================================================================
// LOADING
// =============================================================================

// LoadMainConfig loads the configuration from a YAML file on top of the
// defaults, applies environment overrides and validates the result.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(config)
	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadOrDefault loads configPath when it exists. A missing file yields the
// defaults (with environment overrides) unless required is set.
func LoadOrDefault(configPath string, required bool) (*MainConfig, error) {
	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) && !required {
		config := Default()
		applyEnvOverrides(config)
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return config, nil
	}
	return LoadMainConfig(configPath)
}

// LoadEnv loads .env style files into the process environment. Missing
// files are ignored; existing variables are not overwritten.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if !utils.FileExists(f) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

func applyEnvOverrides(config *MainConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		config.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		config.Logging.File = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutputDir)); v != "" {
		config.OutputDir = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks struct constraints and job name uniqueness.
func (c *MainConfig) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Jobs))
	for _, job := range c.Jobs {
		if seen[job.Name] {
			return fmt.Errorf("duplicate job name %q", job.Name)
		}
		seen[job.Name] = true
	}

	return nil
}

// FindJob returns the job with the given name.
func (c *MainConfig) FindJob(name string) (*JobConfig, bool) {
	for i := range c.Jobs {
		if c.Jobs[i].Name == name {
			return &c.Jobs[i], true
		}
	}
	return nil, false
}
