package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zgai/chatlibrary/internal/auth"
	pgrepo "github.com/zgai/chatlibrary/internal/repositories/postgres"
	"github.com/zgai/chatlibrary/internal/utils"
)

func newUserFixture(t *testing.T) UserService {
	t.Helper()
	issuer, err := auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)
	return NewUserService(pgrepo.NewUserRepo(testDB(t)), issuer)
}

func TestRegister(t *testing.T) {
	svc := newUserFixture(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash, "password must be stored hashed")

	_, err = svc.Register(ctx, "alice", "other@example.com", "whatever")
	assert.True(t, utils.IsCode(err, utils.CodeConflict))

	_, err = svc.Register(ctx, "", "", "")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestLogin(t *testing.T) {
	svc := newUserFixture(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	u, token, err := svc.Login(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, u.ID)
	assert.NotEmpty(t, token)
	assert.NotNil(t, u.LastLoginAt)

	_, _, err = svc.Login(ctx, "alice", "wrong")
	assert.True(t, utils.IsCode(err, utils.CodeUnauthorized))

	_, _, err = svc.Login(ctx, "nobody", "s3cret-pass")
	assert.True(t, utils.IsCode(err, utils.CodeUnauthorized), "unknown user and bad password are indistinguishable")
}

func TestChangePassword(t *testing.T) {
	svc := newUserFixture(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "alice@example.com", "old-pass-123")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, u.ID, "wrong", "new-pass-456")
	assert.True(t, utils.IsCode(err, utils.CodeUnauthorized))

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "old-pass-123", "new-pass-456"))

	_, _, err = svc.Login(ctx, "alice", "old-pass-123")
	assert.True(t, utils.IsCode(err, utils.CodeUnauthorized))
	_, _, err = svc.Login(ctx, "alice", "new-pass-456")
	assert.NoError(t, err)
}
