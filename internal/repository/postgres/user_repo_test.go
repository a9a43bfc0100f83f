package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inscribo/internal/domain"
)

func userColumns() []string {
	return []string{"id", "email", "password_hash", "salt", "name", "role", "created_at", "updated_at"}
}

func TestUserRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepository(db)

	now := time.Now()
	u := &domain.User{
		Email:        "ana@example.com",
		PasswordHash: "hash",
		Salt:         "salt",
		Name:         "Ana",
		Role:         domain.RoleAttendee,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(u.Email, u.PasswordHash, u.Salt, u.Name, "attendee", now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-abc"))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, "u-abc", u.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`))

	u := &domain.User{Email: "ana@example.com", Role: domain.RoleAttendee}
	err = repo.Create(context.Background(), u)
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, email, password_hash, salt, name, role, created_at, updated_at`).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow("u-abc", "ana@example.com", "hash", "salt", "Ana", "organizer", now, now))

	u, err := repo.GetByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-abc", u.ID)
	assert.Equal(t, domain.RoleOrganizer, u.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT id, email, password_hash, salt, name, role, created_at, updated_at`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userColumns()))

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepository(db)

	now := time.Now()
	name := "Ana Torres"
	mock.ExpectQuery(`UPDATE users`).
		WithArgs("u-abc", name).
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow("u-abc", "ana@example.com", "hash", "salt", name, "attendee", now, now))

	u, err := repo.UpdateProfile(context.Background(), "u-abc", &name)
	require.NoError(t, err)
	assert.Equal(t, "Ana Torres", u.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
