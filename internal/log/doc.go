// Package log provides secure logging built on top of the standard slog
// package.
//
// The SecureHandler masks two kinds of values before they reach any output:
//   - Credentials: passwords, tokens, authorization headers, cookies and the
//     password part of database connection strings.
//   - Document content: attributes carrying paragraph text (text, flat_text,
//     content, original, redacted) are replaced by their length, so the
//     very text being redacted never ends up in a log file.
//
// Even in verbose mode these values stay masked.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Debug("store opened",
//	    "dsn", "postgres://app:hunter2@db/docredact", // postgres://app:xxxxx@db/docredact
//	    "text", paragraph.FlatText,                    // [28 chars withheld]
//	)
//
//	slog.SetDefault(logger)
package log
