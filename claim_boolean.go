package session

import "time"

// BooleanClaim is a PrimitiveClaim holding a boolean flag, such as an
// email-verified or MFA-completed marker.
type BooleanClaim struct {
	*PrimitiveClaim
}

func NewBooleanClaim(key string, fetch FetchValueFunc) *BooleanClaim {
	return &BooleanClaim{PrimitiveClaim: NewPrimitiveClaim(key, fetch)}
}

// IsTrue builds a validator asserting the flag is set, refetching when the
// recorded value is older than maxAge.
func (c *BooleanClaim) IsTrue(maxAge time.Duration, id ...string) ClaimValidator {
	return c.HasValue(true, maxAge, id...)
}

// IsFalse builds a validator asserting the flag is cleared.
func (c *BooleanClaim) IsFalse(maxAge time.Duration, id ...string) ClaimValidator {
	return c.HasValue(false, maxAge, id...)
}
