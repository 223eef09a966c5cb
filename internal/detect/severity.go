package detect

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSeverity is returned by ParseSeverity for unknown names.
var ErrUnknownSeverity = errors.New("unknown severity")

// Severity rates how damaging the disclosure of a finding would be.
type Severity int

const (
	// SeverityInfo marks public identifiers that are only useful for
	// correlation, such as cryptocurrency addresses.
	SeverityInfo Severity = iota

	// SeverityLow marks data that identifies someone only with more context.
	SeverityLow

	// SeverityMedium marks identity clues such as addresses at free mail providers.
	SeverityMedium

	// SeverityHigh marks data that identifies a person or grants access,
	// such as personal email addresses, API tokens and database passwords.
	SeverityHigh

	// SeverityCritical marks key material that must never leave the document.
	SeverityCritical
)

var severityNames = []string{"INFO", "LOW", "MEDIUM", "HIGH", "CRITICAL"}

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	if s < SeverityInfo || int(s) >= len(severityNames) {
		return "UNKNOWN"
	}
	return severityNames[s]
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity parses a severity name, ignoring case.
// An empty string yields SeverityInfo.
func ParseSeverity(name string) (Severity, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return SeverityInfo, nil
	}
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return SeverityInfo, fmt.Errorf("%w: %q", ErrUnknownSeverity, name)
}
