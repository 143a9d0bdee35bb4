package store

import (
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionRecord is the persisted form of one session. The access token itself
// is never stored, only its digest; the payload column mirrors the user data
// embedded in the latest minted token.
type SessionRecord struct {
	bun.BaseModel      `bun:"table:sessions,alias:ses"`
	ID                 uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	SessionHandle      string         `bun:"session_handle,notnull,unique" json:"session_handle,omitempty"`
	UserID             string         `bun:"user_id,notnull" json:"user_id,omitempty"`
	TokenDigest        string         `bun:"token_digest,notnull" json:"-"`
	AccessTokenPayload map[string]any `bun:"access_token_payload" json:"access_token_payload,omitempty"`
	SessionData        map[string]any `bun:"session_data" json:"session_data,omitempty"`
	ExpiresAt          *time.Time     `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	CreatedAt          *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

func newSessionRepository(db *bun.DB) repository.Repository[*SessionRecord] {
	return repository.NewRepository[*SessionRecord](db, repository.ModelHandlers[*SessionRecord]{
		NewRecord: func() *SessionRecord { return &SessionRecord{} },
		GetID: func(r *SessionRecord) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *SessionRecord, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})
}
