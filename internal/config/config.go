package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "docredact"

	// DefaultIOTimeout bounds every blob read and write. Documents are
	// local files, so 30 seconds only trips on a stuck disk or network mount.
	DefaultIOTimeout = 30 * time.Second

	// DefaultSessionTTL is how long an uploaded document stays available
	// for marking and applying before it can be purged.
	DefaultSessionTTL = 24 * time.Hour

	// DefaultBatchSize is the number of documents redacted concurrently
	// when several inputs are given on the command line.
	DefaultBatchSize = 4

	// DefaultMaxPartSize limits the uncompressed size of any package part
	// that is read into memory.
	DefaultMaxPartSize = 64 << 20 // 64MiB

	// DefaultServerAddr is the listen address of `docredact serve`.
	DefaultServerAddr = "127.0.0.1:8080"

	// DefaultMaxUploadSize limits the request body of an upload.
	DefaultMaxUploadSize = 32 << 20 // 32MiB
)

// ValidationMode selects how the planner reacts to a bad redaction request.
type ValidationMode string

const (
	// ValidationLenient records a diagnostic for each bad request and
	// applies the rest of the batch.
	ValidationLenient ValidationMode = "lenient"

	// ValidationStrict rejects the whole batch if any request is bad.
	ValidationStrict ValidationMode = "strict"
)

// ParseValidationMode converts a user supplied mode name.
// An empty string yields the default lenient mode.
func ParseValidationMode(s string) (ValidationMode, error) {
	switch ValidationMode(s) {
	case "", ValidationLenient:
		return ValidationLenient, nil
	case ValidationStrict:
		return ValidationStrict, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidValidationMode, s)
	}
}

// String returns the mode name.
func (m ValidationMode) String() string {
	return string(m)
}

// StoreDriver names the backend used to persist batches and sessions.
type StoreDriver string

const (
	// DriverSQLite stores everything in a single SQLite file under DataDir.
	DriverSQLite StoreDriver = "sqlite"

	// DriverPostgres uses a PostgreSQL server reached through StoreDSN.
	DriverPostgres StoreDriver = "postgres"

	// DriverMemory keeps state in process memory; nothing survives exit.
	DriverMemory StoreDriver = "memory"
)

// Config holds all configuration options for docredact.
// This struct is populated from defaults, the config file, environment
// variables and CLI flags, in that order, and then passed through the
// application via dependency injection rather than global state.
type Config struct {
	// Validation selects lenient or strict handling of bad redaction requests.
	Validation ValidationMode

	// StoreDriver selects the batch and session store backend.
	StoreDriver StoreDriver

	// StoreDSN is the connection string for DriverPostgres.
	// It may contain a password and must never be logged verbatim.
	StoreDSN string

	// DataDir holds the SQLite database and the blob directory.
	// Defaults to the XDG data directory (~/.local/share/docredact on Linux).
	DataDir string

	// IOTimeout bounds every blob read and write.
	IOTimeout time.Duration

	// SessionTTL is the lifetime of an uploaded document.
	SessionTTL time.Duration

	// BatchSize is the number of documents processed concurrently.
	BatchSize int

	// MaxPartSize limits the uncompressed size of a package part.
	MaxPartSize int64

	// ServerAddr is the listen address of the HTTP API.
	ServerAddr string

	// MaxUploadSize limits the size of an uploaded document.
	MaxUploadSize int64

	// OutputDir is where redacted documents are written when no explicit
	// output path is given. Empty means next to the input file.
	OutputDir string

	// DetectPatterns are extra regular expressions the sensitive text
	// scanner reports, in addition to its built-in detectors.
	DetectPatterns []string

	// DetectMinSeverity is the lowest finding severity (info, low, medium,
	// high, critical) that detection turns into redaction requests.
	// Empty means every finding.
	DetectMinSeverity string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .docredact in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// JSONReport selects the JSON audit report.
	// Mutually exclusive with MarkdownReport and XLSXReport.
	JSONReport bool

	// MarkdownReport selects the Markdown audit report with a pie chart of
	// applied and rejected requests.
	MarkdownReport bool

	// XLSXReport selects the spreadsheet audit report. It is binary, so
	// ReportFile must be set.
	XLSXReport bool

	// ReportFile is the output file path for the audit report.
	// When empty, the report is written to stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Validation:    ValidationLenient,
		StoreDriver:   DriverSQLite,
		DataDir:       XDGDataDir(),
		IOTimeout:     DefaultIOTimeout,
		SessionTTL:    DefaultSessionTTL,
		BatchSize:     DefaultBatchSize,
		MaxPartSize:   DefaultMaxPartSize,
		ServerAddr:    DefaultServerAddr,
		MaxUploadSize: DefaultMaxUploadSize,
	}
}

// XDGDataDir returns the XDG data directory for docredact.
// On Linux: ~/.local/share/docredact
// On macOS: ~/Library/Application Support/docredact
// On Windows: %LOCALAPPDATA%\docredact
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for docredact.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// BlobDir returns the directory holding uploaded originals.
func (c *Config) BlobDir() string {
	return filepath.Join(c.DataDir, "blobs")
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if _, err := ParseValidationMode(string(c.Validation)); err != nil {
		return err
	}

	switch c.StoreDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.StoreDSN == "" {
			return ErrMissingDSN
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStoreDriver, c.StoreDriver)
	}

	if c.StoreDriver != DriverMemory && c.DataDir == "" {
		return ErrMissingDataDir
	}

	if c.IOTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.SessionTTL <= 0 {
		return ErrInvalidSessionTTL
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxPartSize <= 0 || c.MaxUploadSize <= 0 {
		return ErrInvalidSizeLimit
	}

	formats := 0
	for _, on := range []bool{c.JSONReport, c.MarkdownReport, c.XLSXReport} {
		if on {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	if c.XLSXReport && c.ReportFile == "" {
		return ErrXLSXNeedsFile
	}

	return nil
}
