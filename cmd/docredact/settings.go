package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/docredact/internal/config"
	"github.com/nao1215/docredact/internal/engine"
	"github.com/nao1215/docredact/internal/log"
	"github.com/nao1215/docredact/internal/model"
	"github.com/nao1215/docredact/internal/redact"
)

// stringFlag returns the value of a local or inherited flag.
// A flag that is not defined on cmd reads as "".
func stringFlag(cmd *cobra.Command, name string) string {
	if cmd.Flags().Lookup(name) == nil {
		return ""
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return v
}

// boolFlag is the bool counterpart of stringFlag.
func boolFlag(cmd *cobra.Command, name string) bool {
	if cmd.Flags().Lookup(name) == nil {
		return false
	}
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}
	return v
}

// stringsFlag is the string array counterpart of stringFlag.
func stringsFlag(cmd *cobra.Command, name string) []string {
	if cmd.Flags().Lookup(name) == nil {
		return nil
	}
	v, err := cmd.Flags().GetStringArray(name)
	if err != nil {
		return nil
	}
	return v
}

// loadConfig builds the configuration for a command.
// Sources are applied in order: defaults, configuration file, .env file and
// DOCREDACT_* variables, command line flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.ConfigFilePath = stringFlag(cmd, "config")

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file found.
	if path := config.FindConfigFile(cfg.ConfigFilePath); path != "" {
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		if err := file.Apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if v := stringFlag(cmd, "validation"); v != "" {
		mode, err := config.ParseValidationMode(v)
		if err != nil {
			return nil, err
		}
		cfg.Validation = mode
	}
	if v := stringFlag(cmd, "store"); v != "" {
		cfg.StoreDriver = config.StoreDriver(v)
	}
	if v := stringFlag(cmd, "data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v := stringFlag(cmd, "min-severity"); v != "" {
		cfg.DetectMinSeverity = v
	}
	cfg.DetectPatterns = append(cfg.DetectPatterns, stringsFlag(cmd, "pattern")...)
	cfg.Verbose = boolFlag(cmd, "verbose")

	return cfg, nil
}

// addDetectFlags adds the sensitive-text detection flags.
func addDetectFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("pattern", nil,
		"Additional regular expression to detect (repeatable; group 1 is redacted if present)")
	cmd.Flags().String("min-severity", "",
		"Lowest severity turned into redactions: info, low, medium, high or critical")
}

// applyReportFlags copies the audit report flags onto cfg.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config) {
	cfg.JSONReport = boolFlag(cmd, "json")
	cfg.MarkdownReport = boolFlag(cmd, "markdown")
	cfg.XLSXReport = boolFlag(cmd, "xlsx")
	cfg.ReportFile = stringFlag(cmd, "report-file")
}

// setupLogger creates the secure logger for a command and installs it as
// the default logger. Logs always go to stderr so that stdout stays usable
// for reports and extracted text.
func setupLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	var logger *slog.Logger
	if boolFlag(cmd, "log-json") {
		logger = log.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
	} else {
		logger = log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// prepare loads and validates the configuration and sets up logging.
func prepare(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	applyReportFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, setupLogger(cmd, cfg), nil
}

// openEngine opens the session-backed engine described by cfg.
func openEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	logger.Debug("opening engine",
		"driver", string(cfg.StoreDriver),
		"dsn", log.ScrubDSN(cfg.StoreDSN),
		"dataDir", cfg.DataDir,
		"validation", cfg.Validation.String(),
	)
	return engine.Open(ctx, cfg, logger)
}

// statelessEngine returns an engine without a store, for one-shot work.
func statelessEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	scanner, threshold, err := engine.NewScanner(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid detect settings: %w", err)
	}
	planner := redact.NewPlanner(
		redact.WithMode(cfg.Validation),
		redact.WithLogger(logger),
	)
	return engine.New(nil, nil,
		engine.WithLogger(logger),
		engine.WithPlanner(planner),
		engine.WithScanner(scanner),
		engine.WithThreshold(threshold),
		engine.WithMaxPartSize(cfg.MaxPartSize),
		engine.WithConcurrency(cfg.BatchSize),
	), nil
}

// readInput reads a file, or stdin when path is "" or "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path) //nolint:gosec // User-provided input path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// errorMessage formats err for the terminal, prefixed with its kind when
// it belongs to the engine taxonomy.
func errorMessage(err error) string {
	switch kind := model.KindOf(err); kind {
	case model.KindNone, model.KindIOFailure:
		return "Error: " + err.Error()
	default:
		return fmt.Sprintf("Error [%s]: %v", kind, err)
	}
}
