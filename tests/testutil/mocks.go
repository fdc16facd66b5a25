package testutil

import (
	"context"
	"time"

	"github.com/dvukovic/teamline-api/internal/models"
	"github.com/dvukovic/teamline-api/internal/oauth"
	"github.com/dvukovic/teamline-api/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserService mocks the UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	args := m.Called(ctx, email, name, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindOrCreateFromOAuth(ctx context.Context, info *oauth.UserInfo) (*models.User, error) {
	args := m.Called(ctx, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserService) CreatePasswordReset(ctx context.Context, email string) (string, *models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*models.User), args.Error(2)
}

func (m *MockUserService) ResetPassword(ctx context.Context, token, newPassword string) (uuid.UUID, error) {
	args := m.Called(ctx, token, newPassword)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// MockTeamService mocks the TeamService
type MockTeamService struct {
	mock.Mock
}

func (m *MockTeamService) Create(ctx context.Context, name string, description *string, ownerID uuid.UUID) (*models.Team, error) {
	args := m.Called(ctx, name, description, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) GetByID(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) GetUserTeams(ctx context.Context, userID uuid.UUID) ([]models.Team, []models.Role, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Team), args.Get(1).([]models.Role), args.Error(2)
}

func (m *MockTeamService) Update(ctx context.Context, teamID uuid.UUID, name string, description *string) (*models.Team, error) {
	args := m.Called(ctx, teamID, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamService) Delete(ctx context.Context, teamID uuid.UUID) error {
	args := m.Called(ctx, teamID)
	return args.Error(0)
}

func (m *MockTeamService) RoleOf(ctx context.Context, teamID, userID uuid.UUID) (models.Role, error) {
	args := m.Called(ctx, teamID, userID)
	return args.Get(0).(models.Role), args.Error(1)
}

func (m *MockTeamService) GetMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error) {
	args := m.Called(ctx, teamID)
	return args.Get(0).([]models.TeamMember), args.Error(1)
}

func (m *MockTeamService) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	args := m.Called(ctx, teamID, userID)
	return args.Error(0)
}

func (m *MockTeamService) ChangeMemberRole(ctx context.Context, teamID, userID uuid.UUID, newRole models.Role) error {
	args := m.Called(ctx, teamID, userID, newRole)
	return args.Error(0)
}

func (m *MockTeamService) CreateInvite(ctx context.Context, teamID, inviterID uuid.UUID, inviteeEmail string) (*models.TeamInvitation, error) {
	args := m.Called(ctx, teamID, inviterID, inviteeEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TeamInvitation), args.Error(1)
}

func (m *MockTeamService) GetInviteByToken(ctx context.Context, token string) (*models.TeamInvitation, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TeamInvitation), args.Error(1)
}

func (m *MockTeamService) GetTeamInvites(ctx context.Context, teamID uuid.UUID) ([]models.TeamInvitation, error) {
	args := m.Called(ctx, teamID)
	return args.Get(0).([]models.TeamInvitation), args.Error(1)
}

func (m *MockTeamService) GetInvitesForEmail(ctx context.Context, email string) ([]models.TeamInvitation, error) {
	args := m.Called(ctx, email)
	return args.Get(0).([]models.TeamInvitation), args.Error(1)
}

func (m *MockTeamService) AcceptInvite(ctx context.Context, token string, userID uuid.UUID, userEmail string) error {
	args := m.Called(ctx, token, userID, userEmail)
	return args.Error(0)
}

func (m *MockTeamService) RejectInvite(ctx context.Context, token string, userEmail string) error {
	args := m.Called(ctx, token, userEmail)
	return args.Error(0)
}

func (m *MockTeamService) CancelInvite(ctx context.Context, inviteID, teamID uuid.UUID) error {
	args := m.Called(ctx, inviteID, teamID)
	return args.Error(0)
}

// MockProjectService mocks the ProjectService
type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) Create(ctx context.Context, teamID uuid.UUID, name string) (*models.Project, error) {
	args := m.Called(ctx, teamID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) GetByID(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) GetTeamProjects(ctx context.Context, teamID uuid.UUID) ([]models.Project, error) {
	args := m.Called(ctx, teamID)
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *MockProjectService) Rename(ctx context.Context, projectID uuid.UUID, name string) (*models.Project, error) {
	args := m.Called(ctx, projectID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) SetStatus(ctx context.Context, projectID uuid.UUID, status string) (*models.Project, error) {
	args := m.Called(ctx, projectID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) Move(ctx context.Context, projectID uuid.UUID, newPosition int) (*models.Project, error) {
	args := m.Called(ctx, projectID, newPosition)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) Delete(ctx context.Context, projectID uuid.UUID) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

// MockTokenService mocks the TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, ttl time.Duration) error {
	args := m.Called(ctx, userID, tokenHash, ttl)
	return args.Error(0)
}

func (m *MockTokenService) ValidateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	args := m.Called(ctx, userID, tokenHash)
	return args.Error(0)
}

func (m *MockTokenService) RevokeRefreshToken(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockJWTService mocks the JWTService
type MockJWTService struct {
	mock.Mock
}

func (m *MockJWTService) GenerateTokenPair(userID uuid.UUID, email, globalRole string) (*services.TokenPair, error) {
	args := m.Called(userID, email, globalRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenPair), args.Error(1)
}

func (m *MockJWTService) ValidateRefreshToken(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockJWTService) RefreshExpiry() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

// MockEmailService mocks the EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendTeamInvite(to, teamName, inviterName, inviteURL string) error {
	args := m.Called(to, teamName, inviterName, inviteURL)
	return args.Error(0)
}

func (m *MockEmailService) SendPasswordReset(to, resetURL string) error {
	args := m.Called(to, resetURL)
	return args.Error(0)
}
