// Package config defines the configuration of requisition-analyzer and
// functions for loading and validating it.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iwvelando/requisition-analyzer/internal/evaluator"
	"github.com/iwvelando/requisition-analyzer/internal/strategy"
	"github.com/iwvelando/requisition-analyzer/pkg/constants"
	"github.com/iwvelando/requisition-analyzer/pkg/validation"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for requisition-analyzer.
type Configuration struct {
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Output   OutputConfig   `yaml:"output,omitempty"`
	Analysis AnalysisConfig `yaml:"analysis,omitempty"`
	Quotes   QuotesConfig   `yaml:"quotes,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format         string `yaml:"format,omitempty"` // pretty, csv, json
	CurrencySymbol string `yaml:"currencySymbol,omitempty"`
}

// AnalysisConfig tunes how line items are evaluated and reports aggregated.
type AnalysisConfig struct {
	AverageScope       string `yaml:"averageScope,omitempty"` // all, in-stock
	OutOfStockFallback bool   `yaml:"outOfStockFallback"`
	PriceTolerance     string `yaml:"priceTolerance,omitempty"`
	SavingsWeighting   string `yaml:"savingsWeighting,omitempty"` // mean, cost-weighted
}

// QuotesConfig selects where depot quotes come from.
type QuotesConfig struct {
	Source      string      `yaml:"source,omitempty"` // catalog, sqlite
	CatalogFile string      `yaml:"catalogFile,omitempty"`
	DSN         string      `yaml:"dsn,omitempty"`
	Retry       RetryConfig `yaml:"retry,omitempty"`
}

// RetryConfig controls retries of failed quote lookups.
type RetryConfig struct {
	Attempts int           `yaml:"attempts,omitempty"`
	Delay    time.Duration `yaml:"delay,omitempty"`
}

// StoreConfig selects where requisitions are kept.
type StoreConfig struct {
	Backend string `yaml:"backend,omitempty"` // memory, sqlite
	DSN     string `yaml:"dsn,omitempty"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("output.currencySymbol", constants.DefaultCurrencySymbol)
	v.SetDefault("analysis.averageScope", evaluator.AverageAllQuotes.String())
	v.SetDefault("analysis.outOfStockFallback", true)
	v.SetDefault("analysis.priceTolerance", constants.CurrencyTolerance)
	v.SetDefault("analysis.savingsWeighting", strategy.WeightingMeanOfPercents.String())
	v.SetDefault("quotes.source", constants.QuoteSourceCatalog)
	v.SetDefault("quotes.catalogFile", "catalog.yaml")
	v.SetDefault("quotes.dsn", "")
	v.SetDefault("quotes.retry.attempts", constants.DefaultRetryAttempts)
	v.SetDefault("quotes.retry.delay", "0s")
	v.SetDefault("store.backend", constants.StoreMemory)
	v.SetDefault("store.dsn", "")
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// LoadConfiguration loads the YAML configuration at configPath on top of the
// defaults. An empty path loads defaults and environment overrides only.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file, %s", err)
		}
	}
	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}
	return decode(v)
}

// Validate reports settings the application cannot run with.
func (c *Configuration) Validate() error {
	var problems []string

	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := evaluator.ParseAverageScope(c.Analysis.AverageScope); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := strategy.ParseWeighting(c.Analysis.SavingsWeighting); err != nil {
		problems = append(problems, err.Error())
	}
	if tol, err := decimal.NewFromString(c.Analysis.PriceTolerance); err != nil {
		problems = append(problems, fmt.Sprintf("analysis.priceTolerance %q is not a number", c.Analysis.PriceTolerance))
	} else if tol.IsNegative() {
		problems = append(problems, "analysis.priceTolerance cannot be negative")
	}

	switch c.Quotes.Source {
	case constants.QuoteSourceCatalog:
		if strings.TrimSpace(c.Quotes.CatalogFile) == "" {
			problems = append(problems, "quotes.catalogFile is required for the catalog source")
		}
	case constants.QuoteSourceSQLite:
		if strings.TrimSpace(c.Quotes.DSN) == "" {
			problems = append(problems, "quotes.dsn is required for the sqlite source")
		}
	default:
		problems = append(problems, fmt.Sprintf("quotes.source must be %s or %s, got %q",
			constants.QuoteSourceCatalog, constants.QuoteSourceSQLite, c.Quotes.Source))
	}
	if c.Quotes.Retry.Attempts < 0 {
		problems = append(problems, "quotes.retry.attempts cannot be negative")
	}
	if c.Quotes.Retry.Delay < 0 {
		problems = append(problems, "quotes.retry.delay cannot be negative")
	}

	switch c.Store.Backend {
	case constants.StoreMemory:
	case constants.StoreSQLite:
		if strings.TrimSpace(c.Store.DSN) == "" {
			problems = append(problems, "store.dsn is required for the sqlite backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.backend must be %s or %s, got %q",
			constants.StoreMemory, constants.StoreSQLite, c.Store.Backend))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateConfiguration returns warnings about settings that are valid but
// likely unintended.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if !c.Analysis.OutOfStockFallback {
		warnings = append(warnings, "analysis.outOfStockFallback is disabled: items no depot has in stock will fail the whole analysis")
	}
	if tol, err := decimal.NewFromString(c.Analysis.PriceTolerance); err == nil && tol.GreaterThan(decimal.NewFromInt(1)) {
		warnings = append(warnings, fmt.Sprintf("analysis.priceTolerance %s is more than one currency unit; inconsistent quotes may go unnoticed", tol))
	}
	if c.Quotes.Retry.Attempts > 1 && c.Quotes.Retry.Delay == 0 {
		warnings = append(warnings, "quotes.retry.delay is zero; retries will run back to back")
	}
	if c.Store.Backend == constants.StoreSQLite && c.Store.DSN == ":memory:" {
		warnings = append(warnings, "store.dsn is an in-memory database; requisitions are lost on exit")
	}
	if c.Quotes.Source == constants.QuoteSourceSQLite && c.Store.Backend == constants.StoreSQLite &&
		c.Quotes.DSN != "" && c.Quotes.DSN == c.Store.DSN {
		warnings = append(warnings, "quotes and store share one SQLite database")
	}
	return warnings
}

// EvaluatorPolicy converts the analysis settings into an evaluator policy.
func (c *Configuration) EvaluatorPolicy() (evaluator.Policy, error) {
	policy := evaluator.DefaultPolicy()
	scope, err := evaluator.ParseAverageScope(c.Analysis.AverageScope)
	if err != nil {
		return policy, err
	}
	policy.AverageScope = scope
	policy.AllowOutOfStockFallback = c.Analysis.OutOfStockFallback
	if c.Analysis.PriceTolerance != "" {
		tol, err := decimal.NewFromString(c.Analysis.PriceTolerance)
		if err != nil {
			return policy, fmt.Errorf("invalid analysis.priceTolerance %q: %w", c.Analysis.PriceTolerance, err)
		}
		policy.PriceTolerance = tol
	}
	return policy, nil
}

// Weighting returns the configured savings weighting.
func (c *Configuration) Weighting() (strategy.Weighting, error) {
	return strategy.ParseWeighting(c.Analysis.SavingsWeighting)
}
