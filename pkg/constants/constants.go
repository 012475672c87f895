// Package constants provides shared constants for the requisition-analyzer application.
package constants

// Currency constants
const (
	// CurrencyPlaces is the number of fractional digits kept for currency values
	CurrencyPlaces = 2

	// PercentPlaces is the number of fractional digits kept for percentages
	PercentPlaces = 2

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = "0.01"

	// PerUnitRoundingTolerance is the largest rounding error a unit price
	// quoted in cents can introduce per unit of quantity (half a cent)
	PerUnitRoundingTolerance = "0.005"

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100

	// DefaultCurrencySymbol is prefixed to rendered amounts (South African rand)
	DefaultCurrencySymbol = "R"
)

// Requisition defaults
const (
	// DefaultUnit is applied to items imported without a unit
	DefaultUnit = "tablets"

	// DefaultImportQuantity is applied to imported rows without a quantity column
	DefaultImportQuantity = 1
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. REQUISITION_STORE_DSN
	EnvPrefix = "REQUISITION"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for CSV imports (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)

// Quote source defaults
const (
	// QuoteSourceCatalog selects the YAML depot catalog
	QuoteSourceCatalog = "catalog"

	// QuoteSourceSQLite selects the SQLite depot price table
	QuoteSourceSQLite = "sqlite"

	// DefaultRetryAttempts is the number of quote lookups tried per item
	DefaultRetryAttempts = 1
)

// Store backends
const (
	// StoreMemory keeps requisitions in process memory
	StoreMemory = "memory"

	// StoreSQLite keeps requisitions in a SQLite database
	StoreSQLite = "sqlite"
)
