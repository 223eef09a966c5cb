package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
var (
	// ErrInvalidValidationMode is returned for a mode other than strict or lenient.
	ErrInvalidValidationMode = errors.New("invalid validation mode: must be strict or lenient")

	// ErrInvalidStoreDriver is returned for an unknown store backend.
	ErrInvalidStoreDriver = errors.New("invalid store driver: must be sqlite, postgres or memory")

	// ErrMissingDSN is returned when the postgres driver is selected without a DSN.
	ErrMissingDSN = errors.New("store dsn is required for the postgres driver")

	// ErrMissingDataDir is returned when a persistent store has nowhere to live.
	ErrMissingDataDir = errors.New("data directory is required")

	// ErrInvalidTimeout is returned when the I/O timeout is not positive.
	// A timeout of zero would cancel every blob read immediately.
	ErrInvalidTimeout = errors.New("invalid io timeout: must be positive")

	// ErrInvalidSessionTTL is returned when the session lifetime is not positive.
	ErrInvalidSessionTTL = errors.New("invalid session ttl: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidSizeLimit is returned when a part or upload size limit is not positive.
	ErrInvalidSizeLimit = errors.New("invalid size limit: must be positive")

	// ErrConflictingReportFormats is returned when more than one of --json,
	// --markdown and --xlsx is specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: choose one of --json, --markdown, --xlsx")

	// ErrXLSXNeedsFile is returned when the spreadsheet report would go to stdout.
	ErrXLSXNeedsFile = errors.New("xlsx report requires --report-file")

	// ErrInvalidEnvValue is returned when a DOCREDACT_* variable cannot be parsed.
	ErrInvalidEnvValue = errors.New("invalid environment value")
)
