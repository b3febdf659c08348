package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when reason generation fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate recommendation reason")

	// ErrInvalidResponse is returned when the LLM response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during reason generation")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

// IsPermanent reports whether err should not be retried. Transport and
// rate-limit errors are considered transient; malformed responses and safety
// blocks will not improve on retry.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidResponse) ||
		errors.Is(err, ErrContentBlocked) ||
		errors.Is(err, ErrInvalidConfig)
}
