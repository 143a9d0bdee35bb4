package session

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Claim describes one named piece of session-scoped truth and how to fetch,
// merge, read, and remove it from an access-token payload.
type Claim interface {
	// Key is the unique payload key this claim owns.
	Key() string
	// FetchValue retrieves the claim value from the backing identity store.
	// A nil value means the claim is absent for this user.
	FetchValue(ctx context.Context, userID string) (any, error)
	// MergeInto returns the update map that represents value inside payload.
	// It must not mutate payload.
	MergeInto(ctx context.Context, payload Payload, value any) Payload
	// ReadFrom extracts the claim value from payload, nil when absent.
	ReadFrom(ctx context.Context, payload Payload) any
	// DeleteUpdate returns the tombstoned update map that removes this claim
	// from a payload.
	DeleteUpdate(ctx context.Context) Payload
	// Build fetches the claim value and returns its payload representation
	// against an empty base, isolating exactly the keys this claim owns.
	Build(ctx context.Context, userID string) (Payload, error)
}

// ClaimValidator is a rule checked against an access-token payload,
// optionally bound to one Claim whose freshness it controls.
type ClaimValidator interface {
	ID() string
	// Claim returns the bound claim, nil for plain validators.
	Claim() Claim
	// ShouldRefetch reports whether the bound claim is stale enough to be
	// refetched before validation. Only consulted when Claim is non nil.
	ShouldRefetch(ctx context.Context, payload Payload) bool
	Validate(ctx context.Context, payload Payload) ClaimValidationResult
}

// SessionInformation is the store-side view of one session.
type SessionInformation struct {
	SessionHandle string         `json:"session_handle"`
	UserID        string         `json:"user_id"`
	SessionData   map[string]any `json:"session_data,omitempty"`
	Expiry        int64          `json:"expiry"`
	TimeCreated   int64          `json:"time_created"`
}

// AccessTokenInfo describes a freshly minted access token.
type AccessTokenInfo struct {
	Token       string `json:"token"`
	Expiry      int64  `json:"expiry"`
	CreatedTime int64  `json:"created_time"`
}

// RegeneratedSession carries the payload the store actually persisted after a
// regenerate. It is authoritative and may differ from the payload the caller
// submitted.
type RegeneratedSession struct {
	Handle        string  `json:"handle"`
	UserDataInJWT Payload `json:"user_data_in_jwt"`
}

// RegenerateAccessTokenResponse is the store's answer to a token regenerate.
// AccessToken is nil when the store kept the current token string.
type RegenerateAccessTokenResponse struct {
	Session     RegeneratedSession `json:"session"`
	AccessToken *AccessTokenInfo   `json:"access_token,omitempty"`
}

// StoreGateway is the backing identity store this engine depends on. Nil
// pointer results mean the session no longer exists; the session layer maps
// those to Unauthorized. Any other failure propagates unchanged, retries are
// the gateway's concern.
type StoreGateway interface {
	GetSessionInformation(ctx context.Context, sessionHandle string) (*SessionInformation, error)
	// UpdateSessionData replaces the store-side session data blob. False
	// means the session is gone.
	UpdateSessionData(ctx context.Context, sessionHandle string, data map[string]any) (bool, error)
	RegenerateAccessToken(ctx context.Context, accessToken string, newPayload Payload) (*RegenerateAccessTokenResponse, error)
	RevokeSession(ctx context.Context, sessionHandle string) error
}

// DefaultLogger returns the stdout fallback logger used when constructors
// receive a nil Logger.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
