// Package detect finds sensitive text in extracted paragraphs and turns
// it into redaction requests.
//
// A Scanner runs a set of Detectors over the paragraphs of a document.
// Each Detector reports Findings as character ranges, the same offsets
// clients use when they mark redactions by hand, so findings can be
// reviewed, filtered by severity and marked directly.
//
// Built-in detectors:
//   - email: email addresses, rated by domain
//   - cryptocurrency: Bitcoin, Ethereum, Monero and other wallet addresses
//   - secrets: private key blocks, cloud access keys, API tokens, JWTs and
//     passwords embedded in connection strings
//
// Custom regular expressions are added with NewPatternDetector.
//
// Findings never carry the matched text, so they are safe to log.
package detect
