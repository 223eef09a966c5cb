// Package pipeline runs a redaction job through a fixed sequence of steps.
//
// A job starts with the original package bytes and a batch of requests and
// ends with the rewritten package and a result describing what was applied.
// The standard steps are open, extract, plan, rewrite and assemble. Each step
// reads what earlier steps left on the Job and adds its own output.
//
// Cancellation is checked before each step only until the rewrite step
// commits the job. From then on the job runs to completion, so a cancelled
// context never leaves a half-built package.
//
// The pipeline supports both single jobs and batch processing with
// concurrency control using errgroup.
package pipeline
