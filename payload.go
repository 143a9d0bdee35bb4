package session

import "reflect"

// Payload is the JSON-like key/value data embedded in and cached alongside a
// session's access token. A nil value inside an update map is the delete
// tombstone: merging it removes the key instead of setting it to null.
type Payload = map[string]any

// MergeAccessTokenPayload applies update over base and returns a new payload.
// Keys whose update value is nil are removed from the result. Neither input
// is mutated.
func MergeAccessTokenPayload(base Payload, update Payload) Payload {
	result := clonePayload(base)
	for k, v := range update {
		if v == nil {
			delete(result, k)
			continue
		}
		result[k] = cloneValue(v)
	}
	return result
}

// clonePayload deep copies a payload. Nested maps and slices are copied,
// scalars are copied by value. A nil payload clones to an empty one so
// callers can mutate the copy without nil checks.
func clonePayload(p Payload) Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// payloadEqual reports deep structural equality between two payloads. Map
// iteration order never participates, which keeps the comparison insensitive
// to key order.
func payloadEqual(a, b Payload) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
