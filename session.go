package session

import (
	"context"
	"fmt"

	"github.com/goliatone/go-print"
)

// Session is the in-process state of one authenticated session: its handle,
// user id, current access token, and the cached access-token payload last
// acknowledged by the StoreGateway. The token and payload are always updated
// together, never independently.
//
// A Session is owned by a single request lifecycle and is not safe for
// concurrent mutation from multiple goroutines.
type Session struct {
	store              StoreGateway
	logger             Logger
	sessionHandle      string
	userID             string
	accessToken        string
	accessTokenPayload Payload
	newAccessTokenInfo *AccessTokenInfo
	removeCookies      bool
}

// SessionOption configures a Session during construction.
type SessionOption func(*Session)

// WithLogger overrides the default logger.
func WithLogger(logger Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession wraps one live session around a StoreGateway. The payload is
// deep copied so the caller's map stays detached from session state.
func NewSession(store StoreGateway, sessionHandle, userID, accessToken string, accessTokenPayload Payload, opts ...SessionOption) *Session {
	s := &Session{
		store:              store,
		logger:             defLogger{},
		sessionHandle:      sessionHandle,
		userID:             userID,
		accessToken:        accessToken,
		accessTokenPayload: clonePayload(accessTokenPayload),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// AssertClaims evaluates validators in order against the session's payload,
// refetching stale claim values from the backing store as each validator
// requests. Later validators observe payload changes made by earlier ones.
// Any refreshed payload is committed through the StoreGateway before
// validation failures are reported, so a rejected request still leaves fresh
// claim data behind for the next one.
func (s *Session) AssertClaims(ctx context.Context, validators []ClaimValidator) error {
	original := clonePayload(s.accessTokenPayload)
	working := clonePayload(original)

	var validationErrors []ClaimValidationError
	for _, validator := range validators {
		s.logger.Debug("Session.AssertClaims checking %s", validator.ID())

		if claim := validator.Claim(); claim != nil && validator.ShouldRefetch(ctx, working) {
			s.logger.Debug("Session.AssertClaims refetching %s", validator.ID())
			value, err := claim.FetchValue(ctx, s.userID)
			if err != nil {
				return err
			}
			if value != nil {
				working = MergeAccessTokenPayload(working, claim.MergeInto(ctx, working, value))
			}
		}

		result := validator.Validate(ctx, working)
		if !result.IsValid {
			s.logger.Debug("Session.AssertClaims %s failed validation", validator.ID())
			validationErrors = append(validationErrors, ClaimValidationError{
				ID:     validator.ID(),
				Reason: result.Reason,
			})
		}
	}

	if !payloadEqual(working, original) {
		if err := s.MergeIntoAccessTokenPayload(ctx, working); err != nil {
			return err
		}
	}

	if len(validationErrors) > 0 {
		return NewInvalidClaimsError(validationErrors)
	}

	return nil
}

// MergeIntoAccessTokenPayload applies update over the cached payload, asks
// the StoreGateway to regenerate the access token with the merged payload
// embedded, and adopts the store's authoritative response. Keys with nil
// update values are removed rather than set to null.
func (s *Session) MergeIntoAccessTokenPayload(ctx context.Context, update Payload) error {
	newPayload := MergeAccessTokenPayload(s.accessTokenPayload, update)

	response, err := s.store.RegenerateAccessToken(ctx, s.accessToken, newPayload)
	if err != nil {
		return err
	}
	if response == nil {
		return ErrUnauthorized
	}

	// Token and payload swap together so the cached state never straddles
	// two store acknowledgements.
	s.accessTokenPayload = clonePayload(response.Session.UserDataInJWT)
	if response.AccessToken != nil {
		info := *response.AccessToken
		s.accessToken = info.Token
		s.newAccessTokenInfo = &info
	}

	return nil
}

// FetchAndSetClaim refetches claim's value from the identity store and
// commits its payload representation.
func (s *Session) FetchAndSetClaim(ctx context.Context, claim Claim) error {
	update, err := claim.Build(ctx, s.userID)
	if err != nil {
		return err
	}
	return s.MergeIntoAccessTokenPayload(ctx, update)
}

// SetClaimValue commits value as claim's payload representation without
// consulting the identity store.
func (s *Session) SetClaimValue(ctx context.Context, claim Claim, value any) error {
	update := claim.MergeInto(ctx, Payload{}, value)
	return s.MergeIntoAccessTokenPayload(ctx, update)
}

// GetClaimValue reads claim's value from the cached payload. No I/O, no
// mutation; nil when the claim is absent.
func (s *Session) GetClaimValue(ctx context.Context, claim Claim) any {
	return claim.ReadFrom(ctx, s.accessTokenPayload)
}

// RemoveClaim commits a tombstoned update that deletes claim's keys from the
// payload.
func (s *Session) RemoveClaim(ctx context.Context, claim Claim) error {
	update := claim.DeleteUpdate(ctx)
	return s.MergeIntoAccessTokenPayload(ctx, update)
}

// RevokeSession invalidates the session in the backing store and flags the
// session for client-side credential removal.
func (s *Session) RevokeSession(ctx context.Context) error {
	if err := s.store.RevokeSession(ctx, s.sessionHandle); err != nil {
		return err
	}
	s.removeCookies = true
	return nil
}

// GetSessionData reads the store-side session data blob, which is distinct
// from the access-token payload.
func (s *Session) GetSessionData(ctx context.Context) (map[string]any, error) {
	info, err := s.store.GetSessionInformation(ctx, s.sessionHandle)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, ErrUnauthorized
	}
	return info.SessionData, nil
}

// UpdateSessionData replaces the store-side session data blob.
func (s *Session) UpdateSessionData(ctx context.Context, data map[string]any) error {
	updated, err := s.store.UpdateSessionData(ctx, s.sessionHandle, data)
	if err != nil {
		return err
	}
	if !updated {
		return ErrUnauthorized
	}
	return nil
}

// GetTimeCreated reads the session creation time (unix millis) from the
// backing store.
func (s *Session) GetTimeCreated(ctx context.Context) (int64, error) {
	info, err := s.store.GetSessionInformation(ctx, s.sessionHandle)
	if err != nil {
		return 0, err
	}
	if info == nil {
		return 0, ErrUnauthorized
	}
	return info.TimeCreated, nil
}

// GetExpiry reads the session expiry (unix millis) from the backing store.
func (s *Session) GetExpiry(ctx context.Context) (int64, error) {
	info, err := s.store.GetSessionInformation(ctx, s.sessionHandle)
	if err != nil {
		return 0, err
	}
	if info == nil {
		return 0, ErrUnauthorized
	}
	return info.Expiry, nil
}

func (s *Session) GetUserID() string {
	return s.userID
}

func (s *Session) GetHandle() string {
	return s.sessionHandle
}

func (s *Session) GetAccessToken() string {
	return s.accessToken
}

// GetAccessTokenPayload returns a copy of the cached payload. Mutating the
// copy never leaks into session state; use the claim helpers to commit
// changes.
func (s *Session) GetAccessTokenPayload() Payload {
	return clonePayload(s.accessTokenPayload)
}

// NewAccessTokenInfo returns the token minted by the last regenerate, nil if
// the store kept the original token. Transport adapters use it to re-emit
// credentials.
func (s *Session) NewAccessTokenInfo() *AccessTokenInfo {
	return s.newAccessTokenInfo
}

// RemoveCookies reports whether a revoke marked this session for client-side
// credential removal. Consumed by transport adapters.
func (s *Session) RemoveCookies() bool {
	return s.removeCookies
}

// TODO: enable only in development!
func (s *Session) String() string {
	return fmt.Sprintf(
		"handle=%s user=%s payload=%s",
		s.sessionHandle,
		s.userID,
		print.MaybePrettyJSON(s.accessTokenPayload),
	)
}
