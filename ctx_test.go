package session_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionContext(t *testing.T) {
	t.Run("round trips a session", func(t *testing.T) {
		store := &MockStoreGateway{}
		sess := newTestSession(store, session.Payload{"role": "admin"})

		ctx := session.WithContext(context.Background(), sess)

		got, ok := session.FromContext(ctx)
		require.True(t, ok)
		assert.Same(t, sess, got)
	})

	t.Run("missing session", func(t *testing.T) {
		got, ok := session.FromContext(context.Background())
		assert.False(t, ok)
		assert.Nil(t, got)
	})
}
