package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "DOCREDACT_"

// LoadDotEnv loads variables from .env style files into the process
// environment. Missing files are skipped; variables that are already set
// are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		existing = append(existing, p)
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides c with DOCREDACT_* variables found through lookup.
// Pass os.LookupEnv in production; tests pass a map-backed function.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q", ErrInvalidEnvValue, EnvPrefix, key, v)
		}
		*dst = d
		return nil
	}
	num := func(key string, dst *int64) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q", ErrInvalidEnvValue, EnvPrefix, key, v)
		}
		*dst = n
		return nil
	}

	if v, ok := lookup(EnvPrefix + "VALIDATION"); ok && v != "" {
		mode, err := ParseValidationMode(v)
		if err != nil {
			return err
		}
		c.Validation = mode
	}

	var driver string
	str("STORE_DRIVER", &driver)
	if driver != "" {
		c.StoreDriver = StoreDriver(driver)
	}
	str("STORE_DSN", &c.StoreDSN)
	str("DATA_DIR", &c.DataDir)
	str("OUTPUT_DIR", &c.OutputDir)
	str("SERVER_ADDR", &c.ServerAddr)
	str("DETECT_MIN_SEVERITY", &c.DetectMinSeverity)

	if err := dur("IO_TIMEOUT", &c.IOTimeout); err != nil {
		return err
	}
	if err := dur("SESSION_TTL", &c.SessionTTL); err != nil {
		return err
	}

	batch := int64(c.BatchSize)
	if err := num("BATCH_SIZE", &batch); err != nil {
		return err
	}
	c.BatchSize = int(batch)

	if err := num("MAX_PART_SIZE", &c.MaxPartSize); err != nil {
		return err
	}
	return num("MAX_UPLOAD_SIZE", &c.MaxUploadSize)
}
