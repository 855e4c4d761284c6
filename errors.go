package espc

import "errors"

// Common errors used throughout the ESP core.
var (
	// ErrCompileFailed is returned when any compiler stage recorded an error
	// diagnostic; the collector holds the details.
	ErrCompileFailed = errors.New("compilation failed")
	// ErrResolveFailed is returned when resolution or set expansion recorded
	// an error diagnostic.
	ErrResolveFailed = errors.New("resolution failed")
	// ErrTimeout is returned when a file's processing exceeds the configured
	// wall-clock budget.
	ErrTimeout = errors.New("processing timed out")
	// ErrConfigValidation is returned when configuration validation fails.
	ErrConfigValidation = errors.New("configuration validation failed")
	// ErrNoSource indicates an empty path list was handed to batch compilation.
	ErrNoSource = errors.New("no source files given")
)
