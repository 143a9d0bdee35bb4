// Package store provides a Bun-backed StoreGateway implementation: sessions
// persisted in SQL, access tokens minted as HS256 JWTs with the payload
// embedded. It is the reference gateway used for development and integration
// testing; remote identity stores plug in behind the same interface.
package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-session"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/sha3"
)

// Config holds the store gateway options.
type Config struct {
	// SigningKey signs minted access tokens. Minimum 32 bytes.
	SigningKey []byte
	// Issuer is stamped on every minted token.
	Issuer string
	// AccessTokenTTL bounds both the token and the session lifetime; a
	// regenerate extends the session by one TTL window.
	AccessTokenTTL time.Duration
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.AccessTokenTTL, validation.Required),
	)
}

// Store implements session.StoreGateway over a Bun database.
type Store struct {
	db     *bun.DB
	repo   repository.Repository[*SessionRecord]
	config Config
	logger session.Logger
}

var _ session.StoreGateway = (*Store)(nil)

type Option func(*Store)

func WithLogger(logger session.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(db *bun.DB, config Config, opts ...Option) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid store config")
	}

	s := &Store{
		db:     db,
		repo:   newSessionRepository(db),
		config: config,
		logger: session.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s, nil
}

// Init creates the sessions table if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*SessionRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// CreateSession mints an access token for userID with accessTokenPayload
// embedded, persists the session, and returns the live Session wrapper.
func (s *Store) CreateSession(ctx context.Context, userID string, accessTokenPayload session.Payload, sessionData map[string]any) (*session.Session, error) {
	payload := normalizePayload(accessTokenPayload)
	sessionHandle := uuid.New().String()
	now := time.Now()

	token, info, err := s.mintAccessToken(sessionHandle, userID, payload, now)
	if err != nil {
		return nil, err
	}

	expiresAt := time.UnixMilli(info.Expiry)
	record := &SessionRecord{
		ID:                 uuid.New(),
		SessionHandle:      sessionHandle,
		UserID:             userID,
		TokenDigest:        tokenDigest(token),
		AccessTokenPayload: payload,
		SessionData:        sessionData,
		ExpiresAt:          &expiresAt,
		CreatedAt:          &now,
	}

	if _, err := s.repo.CreateTx(ctx, s.db, record); err != nil {
		return nil, err
	}

	s.logger.Debug("store created session %s for user %s", sessionHandle, userID)

	return session.NewSession(s, sessionHandle, userID, token, payload, session.WithLogger(s.logger)), nil
}

func (s *Store) GetSessionInformation(ctx context.Context, sessionHandle string) (*session.SessionInformation, error) {
	record, err := s.findByHandle(ctx, sessionHandle)
	if err != nil || record == nil {
		return nil, err
	}

	return &session.SessionInformation{
		SessionHandle: record.SessionHandle,
		UserID:        record.UserID,
		SessionData:   record.SessionData,
		Expiry:        timeMillis(record.ExpiresAt),
		TimeCreated:   timeMillis(record.CreatedAt),
	}, nil
}

func (s *Store) UpdateSessionData(ctx context.Context, sessionHandle string, data map[string]any) (bool, error) {
	record, err := s.findByHandle(ctx, sessionHandle)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}

	now := time.Now()
	record.SessionData = data
	record.UpdatedAt = &now

	_, err = s.db.NewUpdate().
		Model(record).
		Column("session_data", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return false, err
	}

	return true, nil
}

// RegenerateAccessToken mints a new access token carrying newPayload and
// persists the payload as the session's authoritative user data. Tombstoned
// (nil) keys are dropped before persisting. A nil response means the session
// no longer exists.
func (s *Store) RegenerateAccessToken(ctx context.Context, accessToken string, newPayload session.Payload) (*session.RegenerateAccessTokenResponse, error) {
	claims, err := s.parseAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	record, err := s.findByHandle(ctx, claims.SessionHandle)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	if record.TokenDigest != tokenDigest(accessToken) {
		// Stale token presented after a rotation; last-writer-wins per handle.
		s.logger.Debug("store regenerate for session %s with rotated token", record.SessionHandle)
	}

	payload := normalizePayload(newPayload)
	now := time.Now()

	token, info, err := s.mintAccessToken(record.SessionHandle, record.UserID, payload, now)
	if err != nil {
		return nil, err
	}

	expiresAt := time.UnixMilli(info.Expiry)
	record.TokenDigest = tokenDigest(token)
	record.AccessTokenPayload = payload
	record.ExpiresAt = &expiresAt
	record.UpdatedAt = &now

	_, err = s.db.NewUpdate().
		Model(record).
		Column("token_digest", "access_token_payload", "expires_at", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("store regenerated access token for session %s", record.SessionHandle)

	return &session.RegenerateAccessTokenResponse{
		Session: session.RegeneratedSession{
			Handle:        record.SessionHandle,
			UserDataInJWT: payload,
		},
		AccessToken: info,
	}, nil
}

// RevokeSession deletes the session record. Revoking an unknown handle is a
// no-op.
func (s *Store) RevokeSession(ctx context.Context, sessionHandle string) error {
	_, err := s.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("session_handle = ?", sessionHandle).
		Exec(ctx)
	return err
}

func (s *Store) findByHandle(ctx context.Context, sessionHandle string) (*SessionRecord, error) {
	record := &SessionRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.session_handle = ?", sessionHandle).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	if record.ExpiresAt != nil && record.ExpiresAt.Before(time.Now()) {
		return nil, nil
	}

	return record, nil
}

type accessTokenClaims struct {
	jwt.RegisteredClaims
	SessionHandle string         `json:"sessionHandle"`
	UserData      map[string]any `json:"userData,omitempty"`
}

func (s *Store) mintAccessToken(sessionHandle, userID string, payload session.Payload, now time.Time) (string, *session.AccessTokenInfo, error) {
	expiresAt := now.Add(s.config.AccessTokenTTL)
	claims := &accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
		SessionHandle: sessionHandle,
		UserData:      payload,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.config.SigningKey)
	if err != nil {
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign access token")
	}

	return signed, &session.AccessTokenInfo{
		Token:       signed,
		Expiry:      expiresAt.UnixMilli(),
		CreatedTime: now.UnixMilli(),
	}, nil
}

// parseAccessToken verifies the token signature and extracts its claims.
// Expiry is not enforced here: a regenerate right at the expiry boundary must
// still locate its session.
func (s *Store) parseAccessToken(tokenString string) (*accessTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &accessTokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.config.SigningKey, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "unable to parse access token")
	}

	claims, ok := token.Claims.(*accessTokenClaims)
	if !ok || claims.SessionHandle == "" {
		return nil, goerrors.New("unable to decode access token claims", goerrors.CategoryAuth)
	}

	return claims, nil
}

// normalizePayload drops tombstoned keys before persisting, so the stored
// payload is the authoritative shape handed back to the session layer.
func normalizePayload(payload session.Payload) session.Payload {
	out := make(session.Payload, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

func tokenDigest(token string) string {
	sum := sha3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func timeMillis(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}
