package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvukovic/teamline-api/internal/database"
	"github.com/dvukovic/teamline-api/internal/models"
	"github.com/dvukovic/teamline-api/internal/oauth"
	"github.com/dvukovic/teamline-api/internal/security/password"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Fixtures creates test data directly in the database
type Fixtures struct {
	db      *database.DB
	counter atomic.Int64
}

func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

func (f *Fixtures) next() int64 {
	return f.counter.Add(1)
}

type UserOption func(*models.User)

func WithEmail(email string) UserOption {
	return func(u *models.User) { u.Email = email }
}

func WithName(name string) UserOption {
	return func(u *models.User) { u.Name = name }
}

func WithProvider(provider, providerID string) UserOption {
	return func(u *models.User) {
		u.Provider = &provider
		u.ProviderID = &providerID
	}
}

func WithAvatar(url string) UserOption {
	return func(u *models.User) { u.AvatarURL = &url }
}

// WithPassword stores an argon2 hash of the given password so the user
// can log in through the API
func WithPassword(t *testing.T, plain string) UserOption {
	hash, err := password.Hash(password.Default, plain)
	require.NoError(t, err)
	return func(u *models.User) { u.PasswordHash = &hash }
}

func (f *Fixtures) CreateUser(t *testing.T, opts ...UserOption) *models.User {
	t.Helper()

	n := f.next()
	user := &models.User{
		Email:      fmt.Sprintf("user%d@example.com", n),
		Name:       fmt.Sprintf("User %d", n),
		Active:     true,
		GlobalRole: models.GlobalRoleUser,
	}
	for _, opt := range opts {
		opt(user)
	}

	err := f.db.Pool.QueryRow(context.Background(),
		`INSERT INTO users (email, name, password_hash, avatar_url, provider, provider_id, active, global_role)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		user.Email, user.Name, user.PasswordHash, user.AvatarURL,
		user.Provider, user.ProviderID, user.Active, user.GlobalRole,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	require.NoError(t, err)

	return user
}

type TeamOption func(*models.Team)

func WithTeamName(name string) TeamOption {
	return func(tm *models.Team) { tm.Name = name }
}

// CreateTeam inserts a team and its owner membership in one transaction
func (f *Fixtures) CreateTeam(t *testing.T, ownerID uuid.UUID, opts ...TeamOption) *models.Team {
	t.Helper()

	team := &models.Team{
		Name:    fmt.Sprintf("Team %d", f.next()),
		OwnerID: ownerID,
	}
	for _, opt := range opts {
		opt(team)
	}

	ctx := context.Background()
	tx, err := f.db.Pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO teams (name, description, owner_id) VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		team.Name, team.Description, team.OwnerID,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
	require.NoError(t, err)

	_, err = tx.Exec(ctx,
		`INSERT INTO team_members (team_id, user_id, role) VALUES ($1, $2, $3)`,
		team.ID, ownerID, models.RoleOwner,
	)
	require.NoError(t, err)

	require.NoError(t, tx.Commit(ctx))

	return team
}

func (f *Fixtures) AddTeamMember(t *testing.T, teamID, userID uuid.UUID, role models.Role) {
	t.Helper()

	_, err := f.db.Pool.Exec(context.Background(),
		`INSERT INTO team_members (team_id, user_id, role) VALUES ($1, $2, $3)`,
		teamID, userID, role,
	)
	require.NoError(t, err)
}

// CreateInvite inserts a pending invitation expiring in 7 days
func (f *Fixtures) CreateInvite(t *testing.T, teamID, inviterID uuid.UUID, inviteeEmail string) *models.TeamInvitation {
	t.Helper()

	token, err := models.NewInviteToken()
	require.NoError(t, err)

	invite := &models.TeamInvitation{
		TeamID:       teamID,
		InviterID:    inviterID,
		InviteeEmail: inviteeEmail,
		Token:        token,
		Status:       models.InviteStatusPending,
		ExpiresAt:    time.Now().Add(7 * 24 * time.Hour),
	}

	err = f.db.Pool.QueryRow(context.Background(),
		`INSERT INTO team_invitations (team_id, inviter_id, invitee_email, token, status, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		invite.TeamID, invite.InviterID, invite.InviteeEmail,
		invite.Token, invite.Status, invite.ExpiresAt,
	).Scan(&invite.ID, &invite.CreatedAt, &invite.UpdatedAt)
	require.NoError(t, err)

	return invite
}

// CreateProject inserts a project at the given position
func (f *Fixtures) CreateProject(t *testing.T, teamID uuid.UUID, name string, position int) *models.Project {
	t.Helper()

	project := &models.Project{
		TeamID:   teamID,
		Name:     name,
		Status:   models.ProjectStatusActive,
		Position: position,
	}

	err := f.db.Pool.QueryRow(context.Background(),
		`INSERT INTO projects (team_id, name, status, position) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		project.TeamID, project.Name, project.Status, project.Position,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	require.NoError(t, err)

	return project
}

// OAuthUserInfo builds provider user info for FindOrCreateFromOAuth tests
func (f *Fixtures) OAuthUserInfo(provider string) *oauth.UserInfo {
	n := f.next()
	avatar := fmt.Sprintf("https://avatars.example.com/%d", n)
	return &oauth.UserInfo{
		ID:        fmt.Sprintf("%s-%d", provider, n),
		Email:     fmt.Sprintf("oauth%d@example.com", n),
		Name:      fmt.Sprintf("OAuth User %d", n),
		AvatarURL: avatar,
		Provider:  provider,
	}
}
