package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/goliatone/go-session"
	"github.com/goliatone/go-session/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

func setupGateway(t *testing.T, ttl time.Duration) *store.Store {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	gateway, err := store.New(bunDB, store.Config{
		SigningKey:     testSigningKey,
		Issuer:         "go-session-test",
		AccessTokenTTL: ttl,
	})
	require.NoError(t, err)
	require.NoError(t, gateway.Init(context.Background()))

	return gateway
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  store.Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: store.Config{
				SigningKey:     testSigningKey,
				AccessTokenTTL: time.Hour,
			},
			wantErr: false,
		},
		{
			name: "missing signing key",
			config: store.Config{
				AccessTokenTTL: time.Hour,
			},
			wantErr: true,
		},
		{
			name: "signing key too short",
			config: store.Config{
				SigningKey:     []byte("short"),
				AccessTokenTTL: time.Hour,
			},
			wantErr: true,
		},
		{
			name: "missing token TTL",
			config: store.Config{
				SigningKey: testSigningKey,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateSession(t *testing.T) {
	gateway := setupGateway(t, time.Hour)
	ctx := context.Background()

	sess, err := gateway.CreateSession(ctx, "user-1",
		session.Payload{"role": "admin"},
		map[string]any{"cart": "empty"},
	)
	require.NoError(t, err)

	assert.Equal(t, "user-1", sess.GetUserID())
	assert.NotEmpty(t, sess.GetHandle())
	assert.NotEmpty(t, sess.GetAccessToken())
	assert.Equal(t, session.Payload{"role": "admin"}, sess.GetAccessTokenPayload())

	info, err := gateway.GetSessionInformation(ctx, sess.GetHandle())
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, sess.GetHandle(), info.SessionHandle)
	assert.Equal(t, "user-1", info.UserID)
	assert.Equal(t, map[string]any{"cart": "empty"}, info.SessionData)
	assert.Greater(t, info.Expiry, info.TimeCreated)
}

func TestGetSessionInformation_UnknownHandle(t *testing.T) {
	gateway := setupGateway(t, time.Hour)

	info, err := gateway.GetSessionInformation(context.Background(), "no-such-handle")

	assert.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetSessionInformation_ExpiredSessionIsGone(t *testing.T) {
	gateway := setupGateway(t, time.Millisecond)
	ctx := context.Background()

	sess, err := gateway.CreateSession(ctx, "user-1", session.Payload{}, nil)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	info, err := gateway.GetSessionInformation(ctx, sess.GetHandle())
	assert.NoError(t, err)
	assert.Nil(t, info)
}

func TestUpdateSessionData(t *testing.T) {
	gateway := setupGateway(t, time.Hour)
	ctx := context.Background()

	sess, err := gateway.CreateSession(ctx, "user-1", session.Payload{}, map[string]any{"cart": "empty"})
	require.NoError(t, err)

	updated, err := gateway.UpdateSessionData(ctx, sess.GetHandle(), map[string]any{"cart": "full"})
	require.NoError(t, err)
	assert.True(t, updated)

	info, err := gateway.GetSessionInformation(ctx, sess.GetHandle())
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, map[string]any{"cart": "full"}, info.SessionData)

	updated, err = gateway.UpdateSessionData(ctx, "no-such-handle", map[string]any{})
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestRegenerateAccessToken(t *testing.T) {
	gateway := setupGateway(t, time.Hour)
	ctx := context.Background()

	sess, err := gateway.CreateSession(ctx, "user-1", session.Payload{"role": "admin"}, nil)
	require.NoError(t, err)

	originalToken := sess.GetAccessToken()

	err = sess.MergeIntoAccessTokenPayload(ctx, session.Payload{"plan": "pro"})
	require.NoError(t, err)

	assert.Equal(t, session.Payload{"role": "admin", "plan": "pro"}, sess.GetAccessTokenPayload())
	assert.NotEqual(t, originalToken, sess.GetAccessToken(), "regenerate rotates the token")

	info := sess.NewAccessTokenInfo()
	require.NotNil(t, info)
	assert.Equal(t, sess.GetAccessToken(), info.Token)
	assert.Greater(t, info.Expiry, info.CreatedTime)
}

func TestRegenerateAccessToken_TombstoneDeletesKey(t *testing.T) {
	gateway := setupGateway(t, time.Hour)
	ctx := context.Background()

	sess, err := gateway.CreateSession(ctx, "user-1", session.Payload{"role": "admin", "plan": "pro"}, nil)
	require.NoError(t, err)

	err = sess.MergeIntoAccessTokenPayload(ctx, session.Payload{"role": nil})
	require.NoError(t, err)

	payload := sess.GetAccessTokenPayload()
	assert.NotContains(t, payload, "role")
	assert.Equal(t, "pro", payload["plan"])
}

func TestRegenerateAccessToken_SessionGone(t *testing.T) {
	gateway := setupGateway(t, time.Hour)
	ctx := context.Background()

	sess, err := gateway.CreateSession(ctx, "user-1", session.Payload{}, nil)
	require.NoError(t, err)
	require.NoError(t, gateway.RevokeSession(ctx, sess.GetHandle()))

	response, err := gateway.RegenerateAccessToken(ctx, sess.GetAccessToken(), session.Payload{"plan": "pro"})
	require.NoError(t, err)
	assert.Nil(t, response)

	err = sess.MergeIntoAccessTokenPayload(ctx, session.Payload{"plan": "pro"})
	assert.True(t, session.IsUnauthorizedError(err))
}

func TestRegenerateAccessToken_RejectsForeignToken(t *testing.T) {
	gateway := setupGateway(t, time.Hour)

	_, err := gateway.RegenerateAccessToken(context.Background(), "not-a-jwt", session.Payload{})

	assert.Error(t, err)
}

func TestRevokeSession(t *testing.T) {
	gateway := setupGateway(t, time.Hour)
	ctx := context.Background()

	sess, err := gateway.CreateSession(ctx, "user-1", session.Payload{}, nil)
	require.NoError(t, err)

	require.NoError(t, sess.RevokeSession(ctx))
	assert.True(t, sess.RemoveCookies())

	info, err := gateway.GetSessionInformation(ctx, sess.GetHandle())
	require.NoError(t, err)
	assert.Nil(t, info)

	_, err = sess.GetSessionData(ctx)
	assert.True(t, session.IsUnauthorizedError(err))

	// revoking an unknown handle is a no-op
	assert.NoError(t, gateway.RevokeSession(ctx, "no-such-handle"))
}

func TestAssertClaims_EndToEnd(t *testing.T) {
	gateway := setupGateway(t, time.Hour)
	ctx := context.Background()

	roles := map[string]string{"user-1": "admin"}
	roleClaim := session.NewPrimitiveClaim("role", func(ctx context.Context, userID string) (any, error) {
		role, ok := roles[userID]
		if !ok {
			return nil, nil
		}
		return role, nil
	})

	sess, err := gateway.CreateSession(ctx, "user-1", session.Payload{}, nil)
	require.NoError(t, err)

	originalToken := sess.GetAccessToken()

	err = sess.AssertClaims(ctx, []session.ClaimValidator{
		roleClaim.HasValue("admin", time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, "admin", sess.GetClaimValue(ctx, roleClaim))
	assert.NotEqual(t, originalToken, sess.GetAccessToken(), "claim refresh commits a new token")

	// second pass finds a fresh claim, validates without touching the store
	tokenAfterRefresh := sess.GetAccessToken()
	err = sess.AssertClaims(ctx, []session.ClaimValidator{
		roleClaim.HasValue("admin", time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, tokenAfterRefresh, sess.GetAccessToken())

	// demoted user fails validation but the refreshed role still persists
	roles["user-1"] = "member"
	err = sess.AssertClaims(ctx, []session.ClaimValidator{
		session.OverrideRefetch(roleClaim.HasValue("admin", time.Hour), true),
	})
	require.Error(t, err)
	assert.True(t, session.IsInvalidClaimsError(err))
	assert.Equal(t, "member", sess.GetClaimValue(ctx, roleClaim))
}
