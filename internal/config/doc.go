// Package config provides configuration structures and utilities for docredact.
// It defines validation behavior, where batches and sessions are stored,
// resource limits, and settings for the HTTP server and report output.
package config
