package session

import "context"

// ClaimValidationResult is a validator's verdict against a payload.
type ClaimValidationResult struct {
	IsValid bool           `json:"is_valid"`
	Reason  map[string]any `json:"reason,omitempty"`
}

// ClaimValidationError records one validator failure. AssertClaims collects
// these in validator list order.
type ClaimValidationError struct {
	ID     string         `json:"id"`
	Reason map[string]any `json:"reason,omitempty"`
}

// ValidateFunc is the check run by validators built with NewValidator.
type ValidateFunc func(ctx context.Context, payload Payload) ClaimValidationResult

// NewValidator builds a plain validator with no bound claim. It never
// triggers a refetch.
func NewValidator(id string, validate ValidateFunc) ClaimValidator {
	return &plainValidator{id: id, validate: validate}
}

type plainValidator struct {
	id       string
	validate ValidateFunc
}

func (v *plainValidator) ID() string   { return v.id }
func (v *plainValidator) Claim() Claim { return nil }

func (v *plainValidator) ShouldRefetch(ctx context.Context, payload Payload) bool {
	return false
}

func (v *plainValidator) Validate(ctx context.Context, payload Payload) ClaimValidationResult {
	return v.validate(ctx, payload)
}

// OverrideRefetch wraps a validator with a fixed refetch decision, useful for
// callers that want to force or suppress a claim refresh regardless of the
// validator's own staleness policy.
func OverrideRefetch(validator ClaimValidator, shouldRefetch bool) ClaimValidator {
	return &refetchOverride{ClaimValidator: validator, shouldRefetch: shouldRefetch}
}

type refetchOverride struct {
	ClaimValidator
	shouldRefetch bool
}

func (v *refetchOverride) ShouldRefetch(ctx context.Context, payload Payload) bool {
	return v.shouldRefetch
}
