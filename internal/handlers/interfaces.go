package handlers

import (
	"context"
	"time"

	"github.com/dvukovic/teamline-api/internal/models"
	"github.com/dvukovic/teamline-api/internal/oauth"
	"github.com/dvukovic/teamline-api/internal/services"
	"github.com/google/uuid"
)

// UserServiceInterface defines the methods used by handlers from UserService
type UserServiceInterface interface {
	Register(ctx context.Context, email, name, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	FindOrCreateFromOAuth(ctx context.Context, info *oauth.UserInfo) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	CreatePasswordReset(ctx context.Context, email string) (string, *models.User, error)
	ResetPassword(ctx context.Context, token, newPassword string) (uuid.UUID, error)
}

// TeamServiceInterface defines the methods used by handlers from TeamService
type TeamServiceInterface interface {
	Create(ctx context.Context, name string, description *string, ownerID uuid.UUID) (*models.Team, error)
	GetByID(ctx context.Context, teamID uuid.UUID) (*models.Team, error)
	GetUserTeams(ctx context.Context, userID uuid.UUID) ([]models.Team, []models.Role, error)
	Update(ctx context.Context, teamID uuid.UUID, name string, description *string) (*models.Team, error)
	Delete(ctx context.Context, teamID uuid.UUID) error
	RoleOf(ctx context.Context, teamID, userID uuid.UUID) (models.Role, error)
	GetMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error)
	RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error
	ChangeMemberRole(ctx context.Context, teamID, userID uuid.UUID, newRole models.Role) error
	CreateInvite(ctx context.Context, teamID, inviterID uuid.UUID, inviteeEmail string) (*models.TeamInvitation, error)
	GetInviteByToken(ctx context.Context, token string) (*models.TeamInvitation, error)
	GetTeamInvites(ctx context.Context, teamID uuid.UUID) ([]models.TeamInvitation, error)
	GetInvitesForEmail(ctx context.Context, email string) ([]models.TeamInvitation, error)
	AcceptInvite(ctx context.Context, token string, userID uuid.UUID, userEmail string) error
	RejectInvite(ctx context.Context, token string, userEmail string) error
	CancelInvite(ctx context.Context, inviteID, teamID uuid.UUID) error
}

// ProjectServiceInterface defines the methods used by handlers from ProjectService
type ProjectServiceInterface interface {
	Create(ctx context.Context, teamID uuid.UUID, name string) (*models.Project, error)
	GetByID(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	GetTeamProjects(ctx context.Context, teamID uuid.UUID) ([]models.Project, error)
	Rename(ctx context.Context, projectID uuid.UUID, name string) (*models.Project, error)
	SetStatus(ctx context.Context, projectID uuid.UUID, status string) (*models.Project, error)
	Move(ctx context.Context, projectID uuid.UUID, newPosition int) (*models.Project, error)
	Delete(ctx context.Context, projectID uuid.UUID) error
}

// TokenServiceInterface defines the methods used by handlers from TokenService
type TokenServiceInterface interface {
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, ttl time.Duration) error
	ValidateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string) error
	RevokeRefreshToken(ctx context.Context, userID uuid.UUID) error
}

// JWTServiceInterface defines the methods used by handlers from JWTService
type JWTServiceInterface interface {
	GenerateTokenPair(userID uuid.UUID, email, globalRole string) (*services.TokenPair, error)
	ValidateRefreshToken(token string) (uuid.UUID, error)
	RefreshExpiry() time.Duration
}

// EmailServiceInterface defines the methods used by handlers from EmailService
type EmailServiceInterface interface {
	SendTeamInvite(to, teamName, inviterName, inviteURL string) error
	SendPasswordReset(to, resetURL string) error
}
