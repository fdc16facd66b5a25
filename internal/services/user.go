package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvukovic/teamline-api/internal/database"
	"github.com/dvukovic/teamline-api/internal/models"
	"github.com/dvukovic/teamline-api/internal/oauth"
	"github.com/dvukovic/teamline-api/internal/security/password"
	"github.com/dvukovic/teamline-api/internal/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is deactivated")
	ErrResetTokenInvalid  = errors.New("invalid or expired reset token")
)

const userColumns = `id, email, name, password_hash, avatar_url, provider, provider_id,
	active, global_role, reset_token, reset_token_expires_at, created_at, updated_at`

type UserService struct {
	db            *database.DB
	resetTokenTTL time.Duration
}

func NewUserService(db *database.DB, resetTokenTTL time.Duration) *UserService {
	return &UserService{db: db, resetTokenTTL: resetTokenTTL}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.AvatarURL,
		&user.Provider, &user.ProviderID, &user.Active, &user.GlobalRole,
		&user.ResetToken, &user.ResetTokenExpiresAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Register creates a password-based account. The email and password are
// validated before anything touches the store.
func (s *UserService) Register(ctx context.Context, email, name, plainPassword string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.CheckEmail(email); err != nil {
		return nil, err
	}
	if ok, _ := password.DefaultPolicy.Validate(plainPassword); !ok {
		return nil, validation.ErrWeakPassword
	}

	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)
	`, email).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := password.Hash(password.Default, plainPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns+`
	`, email, name, hash))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies email/password credentials. It deliberately
// returns the same error for an unknown email and a wrong password.
func (s *UserService) Authenticate(ctx context.Context, email, plainPassword string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1
	`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if user.PasswordHash == nil || !password.Verify(plainPassword, *user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrUserInactive
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		UPDATE users SET name = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+userColumns+`
	`, name, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate flips the active flag. Deactivated users keep their data but
// fail authentication until reactivated.
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE users SET active = FALSE, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *UserService) FindOrCreateFromOAuth(ctx context.Context, info *oauth.UserInfo) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE provider = $1 AND provider_id = $2
	`, info.Provider, info.ID))

	if err == nil {
		if user.Email != info.Email || user.Name != info.Name || (user.AvatarURL == nil && info.AvatarURL != "") {
			_, _ = s.db.Pool.Exec(ctx, `
				UPDATE users SET email = $1, name = $2, avatar_url = $3, updated_at = NOW()
				WHERE id = $4
			`, info.Email, info.Name, nullableString(info.AvatarURL), user.ID)
			user.Email = info.Email
			user.Name = info.Name
			if info.AvatarURL != "" {
				user.AvatarURL = &info.AvatarURL
			}
		}
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	user, err = scanUser(s.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, name, avatar_url, provider, provider_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns+`
	`, info.Email, info.Name, nullableString(info.AvatarURL), info.Provider, info.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// CreatePasswordReset issues a single-use reset token for the account and
// returns it alongside the user, so the caller can email the link. The
// token is 64 lowercase hex characters and replaces any earlier one.
func (s *UserService) CreatePasswordReset(ctx context.Context, email string) (string, *models.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}

	token, err := models.NewInviteToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate reset token: %w", err)
	}

	expiresAt := time.Now().Add(s.resetTokenTTL)
	_, err = s.db.Pool.Exec(ctx, `
		UPDATE users SET reset_token = $1, reset_token_expires_at = $2, updated_at = NOW()
		WHERE id = $3
	`, token, expiresAt, user.ID)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// ResetPassword redeems a reset token. On success the token is cleared,
// making it single-use, and the affected user id is returned so the
// caller can revoke outstanding refresh tokens.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) (uuid.UUID, error) {
	if err := validation.CheckToken(token); err != nil {
		return uuid.Nil, ErrResetTokenInvalid
	}
	if ok, _ := password.DefaultPolicy.Validate(newPassword); !ok {
		return uuid.Nil, validation.ErrWeakPassword
	}

	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE reset_token = $1
	`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrResetTokenInvalid
	}
	if err != nil {
		return uuid.Nil, err
	}

	if user.ResetTokenExpiresAt == nil || time.Now().After(*user.ResetTokenExpiresAt) {
		return uuid.Nil, ErrResetTokenInvalid
	}

	hash, err := password.Hash(password.Default, newPassword)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.db.Pool.Exec(ctx, `
		UPDATE users SET password_hash = $1, reset_token = NULL, reset_token_expires_at = NULL, updated_at = NOW()
		WHERE id = $2
	`, hash, user.ID)
	if err != nil {
		return uuid.Nil, err
	}

	return user.ID, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
