package session

import (
	"context"
	"reflect"
	"time"
)

// FetchValueFunc retrieves a claim value from the backing identity store.
// A nil value means the claim is absent for this user.
type FetchValueFunc func(ctx context.Context, userID string) (any, error)

// PrimitiveClaim stores a single value under its payload key, wrapped in an
// envelope that records when the value was last fetched:
//
//	payload[key] = {"v": value, "t": unixMillis}
//
// The timestamp lets validators enforce a freshness window and decide when a
// refetch is warranted.
type PrimitiveClaim struct {
	key   string
	fetch FetchValueFunc
}

var _ Claim = (*PrimitiveClaim)(nil)

func NewPrimitiveClaim(key string, fetch FetchValueFunc) *PrimitiveClaim {
	return &PrimitiveClaim{key: key, fetch: fetch}
}

func (c *PrimitiveClaim) Key() string {
	return c.key
}

func (c *PrimitiveClaim) FetchValue(ctx context.Context, userID string) (any, error) {
	if c.fetch == nil {
		return nil, nil
	}
	return c.fetch(ctx, userID)
}

func (c *PrimitiveClaim) MergeInto(ctx context.Context, payload Payload, value any) Payload {
	return Payload{
		c.key: map[string]any{
			"v": value,
			"t": nowMillis(),
		},
	}
}

func (c *PrimitiveClaim) ReadFrom(ctx context.Context, payload Payload) any {
	entry := claimEntry(payload, c.key)
	if entry == nil {
		return nil
	}
	return entry["v"]
}

func (c *PrimitiveClaim) DeleteUpdate(ctx context.Context) Payload {
	return Payload{c.key: nil}
}

func (c *PrimitiveClaim) Build(ctx context.Context, userID string) (Payload, error) {
	value, err := c.FetchValue(ctx, userID)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return Payload{}, nil
	}
	return c.MergeInto(ctx, nil, value), nil
}

// LastRefetchTime returns the unix-millis timestamp of the last fetch
// recorded in payload, 0 when the claim is absent.
func (c *PrimitiveClaim) LastRefetchTime(payload Payload) int64 {
	return entryTimestamp(claimEntry(payload, c.key))
}

// HasValue builds a validator asserting the claim equals value. A positive
// maxAge marks the claim stale once the recorded fetch time is older than the
// window; stale claims are refetched before validation. The optional id
// overrides the validator id, which defaults to the claim key.
func (c *PrimitiveClaim) HasValue(value any, maxAge time.Duration, id ...string) ClaimValidator {
	return &primitiveValidator{
		id:       validatorID(c.key, id),
		claim:    c,
		expected: value,
		maxAge:   maxAge,
	}
}

type primitiveValidator struct {
	id       string
	claim    *PrimitiveClaim
	expected any
	maxAge   time.Duration
}

func (v *primitiveValidator) ID() string {
	return v.id
}

func (v *primitiveValidator) Claim() Claim {
	return v.claim
}

func (v *primitiveValidator) ShouldRefetch(ctx context.Context, payload Payload) bool {
	entry := claimEntry(payload, v.claim.key)
	if entry == nil {
		return true
	}
	return staleEntry(entry, v.maxAge)
}

func (v *primitiveValidator) Validate(ctx context.Context, payload Payload) ClaimValidationResult {
	entry := claimEntry(payload, v.claim.key)
	if entry == nil {
		return ClaimValidationResult{
			Reason: map[string]any{
				"message":       "value does not exist",
				"expectedValue": v.expected,
			},
		}
	}

	if staleEntry(entry, v.maxAge) {
		return ClaimValidationResult{
			Reason: map[string]any{
				"message":         "expired",
				"ageInSeconds":    entryAgeSeconds(entry),
				"maxAgeInSeconds": int64(v.maxAge / time.Second),
			},
		}
	}

	actual := entry["v"]
	if !reflect.DeepEqual(actual, v.expected) {
		return ClaimValidationResult{
			Reason: map[string]any{
				"message":       "wrong value",
				"expectedValue": v.expected,
				"actualValue":   actual,
			},
		}
	}

	return ClaimValidationResult{IsValid: true}
}

func validatorID(key string, override []string) string {
	if len(override) > 0 && override[0] != "" {
		return override[0]
	}
	return key
}

// claimEntry returns the {"v","t"} envelope stored under key, nil when the
// claim is absent or malformed.
func claimEntry(payload Payload, key string) map[string]any {
	raw, ok := payload[key]
	if !ok {
		return nil
	}
	entry, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	return entry
}

// entryTimestamp extracts the fetch timestamp, tolerating the numeric types a
// JSON round trip may produce.
func entryTimestamp(entry map[string]any) int64 {
	if entry == nil {
		return 0
	}
	switch t := entry["t"].(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func entryAgeSeconds(entry map[string]any) int64 {
	fetchedAt := entryTimestamp(entry)
	if fetchedAt == 0 {
		return 0
	}
	return (nowMillis() - fetchedAt) / 1000
}

func staleEntry(entry map[string]any, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	fetchedAt := entryTimestamp(entry)
	if fetchedAt == 0 {
		return true
	}
	return nowMillis()-fetchedAt > maxAge.Milliseconds()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
