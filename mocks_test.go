package session_test

import (
	"context"

	"github.com/goliatone/go-session"
	"github.com/stretchr/testify/mock"
)

// MockStoreGateway implements session.StoreGateway
type MockStoreGateway struct {
	mock.Mock
}

func (m *MockStoreGateway) GetSessionInformation(ctx context.Context, sessionHandle string) (*session.SessionInformation, error) {
	args := m.Called(ctx, sessionHandle)
	info, _ := args.Get(0).(*session.SessionInformation)
	return info, args.Error(1)
}

func (m *MockStoreGateway) UpdateSessionData(ctx context.Context, sessionHandle string, data map[string]any) (bool, error) {
	args := m.Called(ctx, sessionHandle, data)
	return args.Bool(0), args.Error(1)
}

func (m *MockStoreGateway) RegenerateAccessToken(ctx context.Context, accessToken string, newPayload session.Payload) (*session.RegenerateAccessTokenResponse, error) {
	args := m.Called(ctx, accessToken, newPayload)
	response, _ := args.Get(0).(*session.RegenerateAccessTokenResponse)
	return response, args.Error(1)
}

func (m *MockStoreGateway) RevokeSession(ctx context.Context, sessionHandle string) error {
	args := m.Called(ctx, sessionHandle)
	return args.Error(0)
}

// stubClaim is a minimal claim with a flat payload representation, enough to
// drive the claims engine without the {"v","t"} envelope.
type stubClaim struct {
	key        string
	fetchValue any
	fetchErr   error
	fetchCalls int
}

func (c *stubClaim) Key() string {
	return c.key
}

func (c *stubClaim) FetchValue(ctx context.Context, userID string) (any, error) {
	c.fetchCalls++
	return c.fetchValue, c.fetchErr
}

func (c *stubClaim) MergeInto(ctx context.Context, payload session.Payload, value any) session.Payload {
	return session.Payload{c.key: value}
}

func (c *stubClaim) ReadFrom(ctx context.Context, payload session.Payload) any {
	return payload[c.key]
}

func (c *stubClaim) DeleteUpdate(ctx context.Context) session.Payload {
	return session.Payload{c.key: nil}
}

func (c *stubClaim) Build(ctx context.Context, userID string) (session.Payload, error) {
	value, err := c.FetchValue(ctx, userID)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return session.Payload{}, nil
	}
	return c.MergeInto(ctx, nil, value), nil
}

// stubValidator gives tests direct control over refetch and verdict.
type stubValidator struct {
	id       string
	claim    session.Claim
	refetch  bool
	validate func(ctx context.Context, payload session.Payload) session.ClaimValidationResult
}

func (v *stubValidator) ID() string {
	return v.id
}

func (v *stubValidator) Claim() session.Claim {
	return v.claim
}

func (v *stubValidator) ShouldRefetch(ctx context.Context, payload session.Payload) bool {
	return v.refetch
}

func (v *stubValidator) Validate(ctx context.Context, payload session.Payload) session.ClaimValidationResult {
	if v.validate == nil {
		return session.ClaimValidationResult{IsValid: true}
	}
	return v.validate(ctx, payload)
}

func alwaysValid(ctx context.Context, payload session.Payload) session.ClaimValidationResult {
	return session.ClaimValidationResult{IsValid: true}
}

func invalidWith(reason map[string]any) func(ctx context.Context, payload session.Payload) session.ClaimValidationResult {
	return func(ctx context.Context, payload session.Payload) session.ClaimValidationResult {
		return session.ClaimValidationResult{Reason: reason}
	}
}
