package session

import (
	"context"
	"reflect"
	"time"
)

// PrimitiveArrayClaim stores a list of values under its payload key using the
// same {"v","t"} envelope as PrimitiveClaim, with set-style validators for
// membership checks (permissions, group lists, scopes).
type PrimitiveArrayClaim struct {
	key   string
	fetch FetchValueFunc
}

var _ Claim = (*PrimitiveArrayClaim)(nil)

func NewPrimitiveArrayClaim(key string, fetch FetchValueFunc) *PrimitiveArrayClaim {
	return &PrimitiveArrayClaim{key: key, fetch: fetch}
}

func (c *PrimitiveArrayClaim) Key() string {
	return c.key
}

func (c *PrimitiveArrayClaim) FetchValue(ctx context.Context, userID string) (any, error) {
	if c.fetch == nil {
		return nil, nil
	}
	return c.fetch(ctx, userID)
}

func (c *PrimitiveArrayClaim) MergeInto(ctx context.Context, payload Payload, value any) Payload {
	return Payload{
		c.key: map[string]any{
			"v": toAnySlice(value),
			"t": nowMillis(),
		},
	}
}

func (c *PrimitiveArrayClaim) ReadFrom(ctx context.Context, payload Payload) any {
	entry := claimEntry(payload, c.key)
	if entry == nil {
		return nil
	}
	return entry["v"]
}

func (c *PrimitiveArrayClaim) DeleteUpdate(ctx context.Context) Payload {
	return Payload{c.key: nil}
}

func (c *PrimitiveArrayClaim) Build(ctx context.Context, userID string) (Payload, error) {
	value, err := c.FetchValue(ctx, userID)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return Payload{}, nil
	}
	return c.MergeInto(ctx, nil, value), nil
}

// Includes builds a validator asserting the list contains value.
func (c *PrimitiveArrayClaim) Includes(value any, maxAge time.Duration, id ...string) ClaimValidator {
	return &arrayValidator{
		id:       validatorID(c.key, id),
		claim:    c,
		maxAge:   maxAge,
		expected: []any{value},
		mode:     arrayIncludes,
	}
}

// Excludes builds a validator asserting the list does not contain value.
func (c *PrimitiveArrayClaim) Excludes(value any, maxAge time.Duration, id ...string) ClaimValidator {
	return &arrayValidator{
		id:       validatorID(c.key, id),
		claim:    c,
		maxAge:   maxAge,
		expected: []any{value},
		mode:     arrayExcludes,
	}
}

// IncludesAll builds a validator asserting the list contains every value.
func (c *PrimitiveArrayClaim) IncludesAll(values []any, maxAge time.Duration, id ...string) ClaimValidator {
	return &arrayValidator{
		id:       validatorID(c.key, id),
		claim:    c,
		maxAge:   maxAge,
		expected: values,
		mode:     arrayIncludes,
	}
}

// ExcludesAll builds a validator asserting the list contains none of the
// values.
func (c *PrimitiveArrayClaim) ExcludesAll(values []any, maxAge time.Duration, id ...string) ClaimValidator {
	return &arrayValidator{
		id:       validatorID(c.key, id),
		claim:    c,
		maxAge:   maxAge,
		expected: values,
		mode:     arrayExcludes,
	}
}

type arrayValidatorMode int

const (
	arrayIncludes arrayValidatorMode = iota
	arrayExcludes
)

type arrayValidator struct {
	id       string
	claim    *PrimitiveArrayClaim
	maxAge   time.Duration
	expected []any
	mode     arrayValidatorMode
}

func (v *arrayValidator) ID() string {
	return v.id
}

func (v *arrayValidator) Claim() Claim {
	return v.claim
}

func (v *arrayValidator) ShouldRefetch(ctx context.Context, payload Payload) bool {
	entry := claimEntry(payload, v.claim.key)
	if entry == nil {
		return true
	}
	return staleEntry(entry, v.maxAge)
}

func (v *arrayValidator) Validate(ctx context.Context, payload Payload) ClaimValidationResult {
	entry := claimEntry(payload, v.claim.key)
	if entry == nil {
		return ClaimValidationResult{
			Reason: map[string]any{
				"message": "value does not exist",
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

	actual := toAnySlice(entry["v"])
	switch v.mode {
	case arrayIncludes:
		for _, want := range v.expected {
			if !sliceContains(actual, want) {
				return ClaimValidationResult{
					Reason: map[string]any{
						"message":           "wrong value",
						"expectedToInclude": v.expected,
						"actualValue":       actual,
					},
				}
			}
		}
	case arrayExcludes:
		for _, unwanted := range v.expected {
			if sliceContains(actual, unwanted) {
				return ClaimValidationResult{
					Reason: map[string]any{
						"message":              "wrong value",
						"expectedToNotInclude": v.expected,
						"actualValue":          actual,
					},
				}
			}
		}
	}

	return ClaimValidationResult{IsValid: true}
}

func sliceContains(haystack []any, needle any) bool {
	for _, item := range haystack {
		if reflect.DeepEqual(item, needle) {
			return true
		}
	}
	return false
}

// toAnySlice normalizes list values to []any, covering the concrete slice
// types claim fetchers commonly return.
func toAnySlice(value any) []any {
	switch list := value.(type) {
	case nil:
		return nil
	case []any:
		return list
	case []string:
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = item
		}
		return out
	case []int:
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = item
		}
		return out
	default:
		return []any{value}
	}
}
