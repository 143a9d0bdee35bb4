package session

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// ErrUnauthorized is returned when the backing store reports the session no
// longer exists during any read or write.
var ErrUnauthorized = goerrors.New("Session does not exist anymore.", goerrors.CategoryAuth).
	WithTextCode("UNAUTHORIZED").
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidClaims is returned when one or more claim validators failed after
// the refresh pass. Use ClaimValidationErrorsFrom to read the per-validator
// failures.
var ErrInvalidClaims = goerrors.New("invalid session claims", goerrors.CategoryValidation).
	WithTextCode("INVALID_CLAIMS").
	WithCode(goerrors.CodeForbidden)

const claimErrorsMetadataKey = "claim_validation_errors"

// NewInvalidClaimsError wraps the ordered list of validator failures in an
// error that matches ErrInvalidClaims under errors.Is.
func NewInvalidClaimsError(validationErrors []ClaimValidationError) error {
	clone := ErrInvalidClaims.Clone()
	if clone == nil {
		return ErrInvalidClaims
	}
	clone.Source = ErrInvalidClaims
	return clone.WithMetadata(map[string]any{
		claimErrorsMetadataKey: validationErrors,
	})
}

// ClaimValidationErrorsFrom extracts the ordered validator failures carried
// by an InvalidClaims error.
func ClaimValidationErrorsFrom(err error) ([]ClaimValidationError, bool) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return nil, false
	}
	failures, ok := richErr.Metadata[claimErrorsMetadataKey].([]ClaimValidationError)
	return failures, ok
}

// IsUnauthorizedError checks whether err means the session is gone.
func IsUnauthorizedError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsInvalidClaimsError checks whether err carries claim validation failures.
func IsInvalidClaimsError(err error) bool {
	return errors.Is(err, ErrInvalidClaims)
}
