// Package storage keeps document bytes on the local filesystem.
//
// Every write is atomic: bytes go to a temporary file in the destination
// directory, which is synced and then renamed over the final name. A
// reader therefore sees either the previous file or the complete new one,
// never a partial package. Every operation is bounded by a timeout and
// fails with model.ErrIOFailure.
package storage
