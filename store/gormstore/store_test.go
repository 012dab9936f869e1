package gormstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	goIAM "github.com/MrEthical07/goIAM"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func account(id, username string, created time.Time) *goIAM.Account {
	return &goIAM.Account{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		Role:         goIAM.RoleRegular,
		FirstName:    "Alice",
		LastName:     "Liddell",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestStore_SaveAndFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, account("id-1", "alice01", created)))

	got, err := s.FindByUsername(ctx, "alice01")
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, goIAM.RoleRegular, got.Role)
	assert.True(t, got.CreatedAt.Equal(created))

	got, err = s.FindByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "alice01@example.com", got.Email)
}

func TestStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, goIAM.ErrAccountNotFound)

	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, goIAM.ErrAccountNotFound)

	assert.ErrorIs(t, s.Remove(ctx, "missing"), goIAM.ErrAccountNotFound)
}

func TestStore_SaveUpdatesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := account("id-1", "alice01", time.Now().UTC())
	require.NoError(t, s.Save(ctx, a))

	a.LastName = "Pleasance"
	a.PasswordHash = "new-hash"
	require.NoError(t, s.Save(ctx, a))

	got, err := s.FindByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "Pleasance", got.LastName)
	assert.Equal(t, "new-hash", got.PasswordHash)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_DuplicateKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.Save(ctx, account("id-1", "alice01", now)))

	err := s.Save(ctx, account("id-2", "alice01", now))
	assert.ErrorIs(t, err, goIAM.ErrDuplicateKey)

	dupEmail := account("id-3", "bob00001", now)
	dupEmail.Email = "alice01@example.com"
	assert.ErrorIs(t, s.Save(ctx, dupEmail), goIAM.ErrDuplicateKey)

	// rename onto a taken username
	require.NoError(t, s.Save(ctx, account("id-4", "carol001", now)))
	rename := account("id-4", "alice01", now)
	rename.Email = "carol001@example.com"
	assert.ErrorIs(t, s.Save(ctx, rename), goIAM.ErrDuplicateKey)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_RemoveAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Save(ctx, account(fmt.Sprintf("id-%d", i), fmt.Sprintf("user%04d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	require.NoError(t, s.Remove(ctx, "id-1"))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "id-0", all[0].ID)
	assert.Equal(t, "id-2", all[1].ID)
}

func TestStore_SaveRequiresID(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Save(context.Background(), &goIAM.Account{Username: "x"}))
	assert.Error(t, s.Save(context.Background(), nil))
}

func TestNewNilDB(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
