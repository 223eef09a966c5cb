package config

import "time"

// StoreSection is the `store:` block of the configuration file.
type StoreSection struct {
	// Driver is sqlite, postgres or memory.
	Driver string `yaml:"driver,omitempty"`

	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn,omitempty"`
}

// ServerSection is the `server:` block of the configuration file.
type ServerSection struct {
	// Addr is the listen address, e.g. "127.0.0.1:8080".
	Addr string `yaml:"addr,omitempty"`

	// MaxUploadSize is the upload limit in bytes.
	MaxUploadSize int64 `yaml:"max_upload_size,omitempty"`
}

// DetectSection is the `detect:` block of the configuration file.
type DetectSection struct {
	// Patterns are extra regular expressions reported as sensitive text.
	Patterns []string `yaml:"patterns,omitempty"`

	// MinSeverity is the lowest severity turned into redaction requests.
	MinSeverity string `yaml:"min_severity,omitempty"`
}

// File represents the structure of the .docredact configuration file.
// Zero values mean "not set" and leave the current configuration alone.
type File struct {
	Validation  string        `yaml:"validation,omitempty"`
	Store       StoreSection  `yaml:"store,omitempty"`
	DataDir     string        `yaml:"data_dir,omitempty"`
	IOTimeout   time.Duration `yaml:"io_timeout,omitempty"`
	SessionTTL  time.Duration `yaml:"session_ttl,omitempty"`
	BatchSize   int           `yaml:"batch_size,omitempty"`
	MaxPartSize int64         `yaml:"max_part_size,omitempty"`
	OutputDir   string        `yaml:"output_dir,omitempty"`
	Server      ServerSection `yaml:"server,omitempty"`
	Detect      DetectSection `yaml:"detect,omitempty"`
}

// Apply copies every set value of the file onto c.
// The validation mode is parsed so that a typo fails here instead of
// silently falling back to lenient.
func (f *File) Apply(c *Config) error {
	if f.Validation != "" {
		mode, err := ParseValidationMode(f.Validation)
		if err != nil {
			return err
		}
		c.Validation = mode
	}
	if f.Store.Driver != "" {
		c.StoreDriver = StoreDriver(f.Store.Driver)
	}
	if f.Store.DSN != "" {
		c.StoreDSN = f.Store.DSN
	}
	if f.DataDir != "" {
		c.DataDir = f.DataDir
	}
	if f.IOTimeout != 0 {
		c.IOTimeout = f.IOTimeout
	}
	if f.SessionTTL != 0 {
		c.SessionTTL = f.SessionTTL
	}
	if f.BatchSize != 0 {
		c.BatchSize = f.BatchSize
	}
	if f.MaxPartSize != 0 {
		c.MaxPartSize = f.MaxPartSize
	}
	if f.OutputDir != "" {
		c.OutputDir = f.OutputDir
	}
	if f.Server.Addr != "" {
		c.ServerAddr = f.Server.Addr
	}
	if f.Server.MaxUploadSize != 0 {
		c.MaxUploadSize = f.Server.MaxUploadSize
	}
	if len(f.Detect.Patterns) > 0 {
		c.DetectPatterns = append([]string(nil), f.Detect.Patterns...)
	}
	if f.Detect.MinSeverity != "" {
		c.DetectMinSeverity = f.Detect.MinSeverity
	}
	return nil
}
