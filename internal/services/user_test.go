package services

import (
	"context"
	"testing"
	"time"

	"github.com/dvukovic/teamline-api/internal/database"
	"github.com/dvukovic/teamline-api/internal/models"
	"github.com/dvukovic/teamline-api/internal/oauth"
	"github.com/dvukovic/teamline-api/internal/security/password"
	"github.com/dvukovic/teamline-api/internal/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUserService(t *testing.T) (*UserService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewUserService(db, time.Hour), mock
}

func userRowColumns() []string {
	return []string{
		"id", "email", "name", "password_hash", "avatar_url", "provider", "provider_id",
		"active", "global_role", "reset_token", "reset_token_expires_at", "created_at", "updated_at",
	}
}

func userRow(id uuid.UUID, email, name string, hash *string) []any {
	now := time.Now()
	return []any{
		id, email, name, hash, nil, nil, nil,
		true, models.GlobalRoleUser, nil, nil, now, now,
	}
}

func TestUserService_Register(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	userID := uuid.New()
	email := "user@example.com"

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(email).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	rows := pgxmock.NewRows(userRowColumns()).AddRow(userRow(userID, email, "Test User", nil)...)
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(email, "Test User", pgxmock.AnyArg()).
		WillReturnRows(rows)

	user, err := svc.Register(ctx, "User@Example.com ", "Test User", "Sup3rSecret")

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, email, user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Register_EmailTaken(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	email := "user@example.com"

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(email).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := svc.Register(ctx, email, "Test User", "Sup3rSecret")

	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Register_InvalidEmail(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "bad-email", "Test User", "Sup3rSecret")

	assert.ErrorIs(t, err, validation.ErrInvalidEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Register_WeakPassword(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "user@example.com", "Test User", "short")

	assert.ErrorIs(t, err, validation.ErrWeakPassword)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Authenticate(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	userID := uuid.New()
	email := "user@example.com"

	hash, err := password.Hash(password.Default, "Sup3rSecret")
	require.NoError(t, err)

	rows := pgxmock.NewRows(userRowColumns()).AddRow(userRow(userID, email, "Test User", &hash)...)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs(email).
		WillReturnRows(rows)

	user, err := svc.Authenticate(ctx, email, "Sup3rSecret")

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Authenticate_WrongPassword(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	email := "user@example.com"

	hash, err := password.Hash(password.Default, "Sup3rSecret")
	require.NoError(t, err)

	rows := pgxmock.NewRows(userRowColumns()).AddRow(userRow(uuid.New(), email, "Test User", &hash)...)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs(email).
		WillReturnRows(rows)

	_, err = svc.Authenticate(ctx, email, "WrongPassw0rd")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Authenticate_UnknownEmail(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.Authenticate(ctx, "nobody@example.com", "Sup3rSecret")

	// Same error as a wrong password, so callers cannot probe for accounts
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Authenticate_InactiveUser(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	email := "user@example.com"

	hash, err := password.Hash(password.Default, "Sup3rSecret")
	require.NoError(t, err)

	row := userRow(uuid.New(), email, "Test User", &hash)
	row[7] = false // active
	rows := pgxmock.NewRows(userRowColumns()).AddRow(row...)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs(email).
		WillReturnRows(rows)

	_, err = svc.Authenticate(ctx, email, "Sup3rSecret")

	assert.ErrorIs(t, err, ErrUserInactive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByID_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id`).
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByID(ctx, userID)

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Update(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	userID := uuid.New()

	rows := pgxmock.NewRows(userRowColumns()).AddRow(userRow(userID, "user@example.com", "New Name", nil)...)
	mock.ExpectQuery(`UPDATE users SET name`).
		WithArgs("New Name", userID).
		WillReturnRows(rows)

	user, err := svc.Update(ctx, userID, "New Name")

	require.NoError(t, err)
	assert.Equal(t, "New Name", user.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Deactivate(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectExec(`UPDATE users SET active = FALSE`).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := svc.Deactivate(ctx, userID)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Deactivate_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectExec(`UPDATE users SET active = FALSE`).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := svc.Deactivate(ctx, userID)

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_FindOrCreateFromOAuth_CreatesUser(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	userID := uuid.New()
	info := &oauth.UserInfo{
		ID:       "12345",
		Provider: "github",
		Email:    "user@example.com",
		Name:     "Test User",
	}

	mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE provider`).
		WithArgs(info.Provider, info.ID).
		WillReturnError(pgx.ErrNoRows)

	row := userRow(userID, info.Email, info.Name, nil)
	provider := "github"
	providerID := "12345"
	row[5] = &provider
	row[6] = &providerID
	rows := pgxmock.NewRows(userRowColumns()).AddRow(row...)
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(info.Email, info.Name, (*string)(nil), info.Provider, info.ID).
		WillReturnRows(rows)

	user, err := svc.FindOrCreateFromOAuth(ctx, info)

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, info.Email, user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_CreatePasswordReset(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	userID := uuid.New()
	email := "user@example.com"

	rows := pgxmock.NewRows(userRowColumns()).AddRow(userRow(userID, email, "Test User", nil)...)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs(email).
		WillReturnRows(rows)

	mock.ExpectExec(`UPDATE users SET reset_token`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	token, user, err := svc.CreatePasswordReset(ctx, email)

	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.Equal(t, userID, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_CreatePasswordReset_UnknownEmail(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, _, err := svc.CreatePasswordReset(ctx, "nobody@example.com")

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_ResetPassword(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	userID := uuid.New()
	token, err := models.NewInviteToken()
	require.NoError(t, err)

	expiresAt := time.Now().Add(30 * time.Minute)
	row := userRow(userID, "user@example.com", "Test User", nil)
	row[9] = &token
	row[10] = &expiresAt
	rows := pgxmock.NewRows(userRowColumns()).AddRow(row...)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE reset_token`).
		WithArgs(token).
		WillReturnRows(rows)

	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs(pgxmock.AnyArg(), userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	gotID, err := svc.ResetPassword(ctx, token, "N3wPassword")

	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_ResetPassword_Expired(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	token, err := models.NewInviteToken()
	require.NoError(t, err)

	expiresAt := time.Now().Add(-time.Minute)
	row := userRow(uuid.New(), "user@example.com", "Test User", nil)
	row[9] = &token
	row[10] = &expiresAt
	rows := pgxmock.NewRows(userRowColumns()).AddRow(row...)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE reset_token`).
		WithArgs(token).
		WillReturnRows(rows)

	_, err = svc.ResetPassword(ctx, token, "N3wPassword")

	assert.ErrorIs(t, err, ErrResetTokenInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_ResetPassword_MalformedToken(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()

	_, err := svc.ResetPassword(ctx, "not-a-token", "N3wPassword")

	assert.ErrorIs(t, err, ErrResetTokenInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}
