package auth

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newPostgresStoreWithMock(t *testing.T) (*PostgresCredentialStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewPostgresCredentialStore(db)
	store.cost = bcrypt.MinCost
	return store, mock
}

var (
	upsertCredentialQuery = regexp.QuoteMeta(`INSERT INTO auth_credentials (username, password_hash, created_at, updated_at)`)
	selectCredentialQuery = regexp.QuoteMeta(`SELECT username, password_hash, updated_at`)
)

func TestPostgresCredentialStoreRegister(t *testing.T) {
	store, mock := newPostgresStoreWithMock(t)

	mock.ExpectExec(upsertCredentialQuery).
		WithArgs("admin", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Register(context.Background(), " admin ", "admin123"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCredentialStoreRegisterStorageError(t *testing.T) {
	store, mock := newPostgresStoreWithMock(t)

	mock.ExpectExec(upsertCredentialQuery).
		WithArgs("admin", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := store.Register(context.Background(), "admin", "admin123")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestPostgresCredentialStoreVerify(t *testing.T) {
	store, mock := newPostgresStoreWithMock(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)

	for range 2 {
		mock.ExpectQuery(selectCredentialQuery).
			WithArgs("admin").
			WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "updated_at"}).
				AddRow("admin", string(hash), time.Now()))
	}

	ok, err := store.Verify(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Verify(context.Background(), "admin", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCredentialStoreVerifyUnknownUser(t *testing.T) {
	store, mock := newPostgresStoreWithMock(t)

	mock.ExpectQuery(selectCredentialQuery).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	ok, err := store.Verify(context.Background(), "ghost", "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresCredentialStoreVerifyStorageError(t *testing.T) {
	store, mock := newPostgresStoreWithMock(t)

	mock.ExpectQuery(selectCredentialQuery).
		WithArgs("admin").
		WillReturnError(errors.New("db down"))

	ok, err := store.Verify(context.Background(), "admin", "admin123")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
