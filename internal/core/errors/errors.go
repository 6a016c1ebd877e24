// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Oracle errors.
var (
	// ErrEmptyResponse indicates the oracle answered without any text.
	ErrEmptyResponse = errors.New("empty response")

	// ErrOracleStatus indicates the oracle answered with a non-success status.
	ErrOracleStatus = errors.New("oracle returned non-success status")

	// ErrProviderPanic indicates a provider call panicked and was recovered.
	ErrProviderPanic = errors.New("provider call panicked")
)

// Configuration errors.
var (
	// ErrMissingAPIKey indicates the selected provider has no API key configured.
	ErrMissingAPIKey = errors.New("missing api key")

	// ErrUnknownProvider indicates an unsupported oracle provider name.
	ErrUnknownProvider = errors.New("unknown oracle provider")

	// ErrUnknownBackend indicates an unsupported checkpoint backend name.
	ErrUnknownBackend = errors.New("unknown checkpoint backend")

	// ErrInvalidConfig indicates a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Checkpoint errors.
var (
	// ErrPersistence indicates a checkpoint could not be written durably.
	ErrPersistence = errors.New("checkpoint persistence failed")

	// ErrCheckpointFormat indicates a persisted checkpoint could not be decoded.
	ErrCheckpointFormat = errors.New("unrecognized checkpoint format")
)

// Evaluation errors.
var (
	// ErrDegenerateLabelSet indicates the labels contain a single class, so ROC/AUC are undefined.
	ErrDegenerateLabelSet = errors.New("degenerate label set")

	// ErrLengthMismatch indicates score and label slices differ in length.
	ErrLengthMismatch = errors.New("scores and labels differ in length")
)

// Validation errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
