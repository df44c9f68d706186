package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	t.Parallel()

	adminOnly := []Operation{
		OpCreate, OpListActive, OpGetUser, OpListOlderThan,
		OpDelete, OpRestore, OpListLogins,
	}
	selfService := []Operation{OpUpdateDetails, OpUpdatePassword, OpUpdateLogin}

	t.Run("admin allowed everywhere", func(t *testing.T) {
		for _, op := range append(adminOnly, selfService...) {
			require.True(t, Authorize("root", true, "bob", false, op), "op=%d", op)
		}
	})

	t.Run("non-admin denied admin-only ops", func(t *testing.T) {
		for _, op := range adminOnly {
			require.False(t, Authorize("bob", false, "bob", true, op), "op=%d", op)
		}
	})

	t.Run("self-service on own active record", func(t *testing.T) {
		for _, op := range selfService {
			require.True(t, Authorize("bob", false, "bob", true, op), "op=%d", op)
		}
	})

	t.Run("self-service denied on someone else", func(t *testing.T) {
		for _, op := range selfService {
			require.False(t, Authorize("bob", false, "alice", true, op), "op=%d", op)
		}
	})

	t.Run("revoked user cannot self-service", func(t *testing.T) {
		for _, op := range selfService {
			require.False(t, Authorize("bob", false, "bob", false, op), "op=%d", op)
		}
	})
}
