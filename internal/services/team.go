package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvukovic/teamline-api/internal/database"
	"github.com/dvukovic/teamline-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrTeamNotFound          = errors.New("team not found")
	ErrNotMember             = errors.New("user is not a team member")
	ErrMemberNotFound        = errors.New("member not found")
	ErrAlreadyMember         = errors.New("user is already a team member")
	ErrCannotRemoveOwner     = errors.New("cannot remove team owner")
	ErrCannotChangeOwnerRole = errors.New("the owner role cannot be assigned or removed")
	ErrInviteNotFound        = errors.New("invitation not found")
	ErrInviteExpired         = errors.New("invitation has expired")
	ErrInviteAlreadyExists   = errors.New("a pending invitation already exists for this email")
	ErrInviteEmailMismatch   = errors.New("invitation was issued for a different email")
)

type TeamService struct {
	db        *database.DB
	inviteTTL time.Duration
}

func NewTeamService(db *database.DB, inviteTTL time.Duration) *TeamService {
	return &TeamService{db: db, inviteTTL: inviteTTL}
}

// Create inserts the team and its owner membership in one transaction, so
// a team can never exist without exactly one owner.
func (s *TeamService) Create(ctx context.Context, name string, description *string, ownerID uuid.UUID) (*models.Team, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var team models.Team
	err = tx.QueryRow(ctx, `
		INSERT INTO teams (name, description, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, owner_id, created_at, updated_at
	`, name, description, ownerID).Scan(&team.ID, &team.Name, &team.Description, &team.OwnerID, &team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
	`, team.ID, ownerID, models.RoleOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to add owner as member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &team, nil
}

func (s *TeamService) GetByID(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	var team models.Team
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, name, description, owner_id, created_at, updated_at
		FROM teams WHERE id = $1
	`, teamID).Scan(&team.ID, &team.Name, &team.Description, &team.OwnerID, &team.CreatedAt, &team.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *TeamService) GetUserTeams(ctx context.Context, userID uuid.UUID) ([]models.Team, []models.Role, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT t.id, t.name, t.description, t.owner_id, t.created_at, t.updated_at, tm.role
		FROM teams t
		JOIN team_members tm ON t.id = tm.team_id
		WHERE tm.user_id = $1
		ORDER BY t.created_at DESC
	`, userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var teams []models.Team
	var roles []models.Role
	for rows.Next() {
		var team models.Team
		var role models.Role
		if err := rows.Scan(&team.ID, &team.Name, &team.Description, &team.OwnerID, &team.CreatedAt, &team.UpdatedAt, &role); err != nil {
			return nil, nil, err
		}
		teams = append(teams, team)
		roles = append(roles, role)
	}
	return teams, roles, rows.Err()
}

func (s *TeamService) Update(ctx context.Context, teamID uuid.UUID, name string, description *string) (*models.Team, error) {
	var team models.Team
	err := s.db.Pool.QueryRow(ctx, `
		UPDATE teams SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING id, name, description, owner_id, created_at, updated_at
	`, name, description, teamID).Scan(&team.ID, &team.Name, &team.Description, &team.OwnerID, &team.CreatedAt, &team.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// Delete removes the team. Memberships, invitations, and projects go with
// it through the cascading foreign keys.
func (s *TeamService) Delete(ctx context.Context, teamID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, teamID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTeamNotFound
	}
	return nil
}

// RoleOf is the permission primitive every gated operation builds on: the
// caller's role in the team, or ErrNotMember.
func (s *TeamService) RoleOf(ctx context.Context, teamID, userID uuid.UUID) (models.Role, error) {
	var raw string
	err := s.db.Pool.QueryRow(ctx, `
		SELECT role FROM team_members WHERE team_id = $1 AND user_id = $2
	`, teamID, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotMember
	}
	if err != nil {
		return "", err
	}
	return models.ParseRole(raw)
}

func (s *TeamService) GetMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT tm.id, tm.team_id, tm.user_id, tm.role, tm.created_at,
		       u.id, u.email, u.name, u.avatar_url, u.active, u.created_at, u.updated_at
		FROM team_members tm
		JOIN users u ON tm.user_id = u.id
		WHERE tm.team_id = $1
		ORDER BY tm.created_at
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.TeamMember
	for rows.Next() {
		var member models.TeamMember
		var user models.User
		if err := rows.Scan(
			&member.ID, &member.TeamID, &member.UserID, &member.Role, &member.CreatedAt,
			&user.ID, &user.Email, &user.Name, &user.AvatarURL, &user.Active, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		member.User = &user
		members = append(members, member)
	}
	return members, rows.Err()
}

// RemoveMember deletes a membership. The owner's membership is
// untouchable; ownership moves only by deleting the team.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	role, err := s.RoleOf(ctx, teamID, userID)
	if errors.Is(err, ErrNotMember) {
		return ErrMemberNotFound
	}
	if err != nil {
		return err
	}
	if role == models.RoleOwner {
		return ErrCannotRemoveOwner
	}

	_, err = s.db.Pool.Exec(ctx, `
		DELETE FROM team_members WHERE team_id = $1 AND user_id = $2
	`, teamID, userID)
	return err
}

// ChangeMemberRole reassigns a member between admin and member. The owner
// role is out of bounds on both sides, which keeps exactly one owner per
// team.
func (s *TeamService) ChangeMemberRole(ctx context.Context, teamID, userID uuid.UUID, newRole models.Role) error {
	if newRole != models.RoleAdmin && newRole != models.RoleMember {
		return ErrCannotChangeOwnerRole
	}

	current, err := s.RoleOf(ctx, teamID, userID)
	if errors.Is(err, ErrNotMember) {
		return ErrMemberNotFound
	}
	if err != nil {
		return err
	}
	if current == models.RoleOwner {
		return ErrCannotChangeOwnerRole
	}

	_, err = s.db.Pool.Exec(ctx, `
		UPDATE team_members SET role = $1 WHERE team_id = $2 AND user_id = $3
	`, newRole, teamID, userID)
	return err
}

const inviteColumns = `id, team_id, inviter_id, invitee_email, token, status, expires_at, created_at, updated_at`

func scanInvite(row pgx.Row) (*models.TeamInvitation, error) {
	var inv models.TeamInvitation
	err := row.Scan(
		&inv.ID, &inv.TeamID, &inv.InviterID, &inv.InviteeEmail, &inv.Token,
		&inv.Status, &inv.ExpiresAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateInvite issues a pending invitation carrying a fresh 256-bit token
// rendered as 64 hex characters. One pending invitation per address per
// team; inviting an existing member is rejected.
func (s *TeamService) CreateInvite(ctx context.Context, teamID, inviterID uuid.UUID, inviteeEmail string) (*models.TeamInvitation, error) {
	inviteeEmail = strings.ToLower(strings.TrimSpace(inviteeEmail))

	var isMember bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM team_members tm
			JOIN users u ON tm.user_id = u.id
			WHERE tm.team_id = $1 AND u.email = $2
		)
	`, teamID, inviteeEmail).Scan(&isMember)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, ErrAlreadyMember
	}

	var hasPending bool
	err = s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM team_invitations
			WHERE team_id = $1 AND invitee_email = $2 AND status = 'pending'
		)
	`, teamID, inviteeEmail).Scan(&hasPending)
	if err != nil {
		return nil, err
	}
	if hasPending {
		return nil, ErrInviteAlreadyExists
	}

	token, err := models.NewInviteToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite token: %w", err)
	}

	invite, err := scanInvite(s.db.Pool.QueryRow(ctx, `
		INSERT INTO team_invitations (team_id, inviter_id, invitee_email, token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+inviteColumns+`
	`, teamID, inviterID, inviteeEmail, token, time.Now().Add(s.inviteTTL)))
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return invite, nil
}

// GetInviteByToken resolves a token, flipping the row to expired if its
// deadline already passed.
func (s *TeamService) GetInviteByToken(ctx context.Context, token string) (*models.TeamInvitation, error) {
	invite, err := scanInvite(s.db.Pool.QueryRow(ctx, `
		SELECT `+inviteColumns+` FROM team_invitations WHERE token = $1
	`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}

	if invite.Status == models.InviteStatusPending && invite.IsExpired(time.Now()) {
		_, err = s.db.Pool.Exec(ctx, `
			UPDATE team_invitations SET status = 'expired', updated_at = NOW() WHERE id = $1
		`, invite.ID)
		if err != nil {
			return nil, err
		}
		invite.Status = models.InviteStatusExpired
	}

	return invite, nil
}

func (s *TeamService) GetTeamInvites(ctx context.Context, teamID uuid.UUID) ([]models.TeamInvitation, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+inviteColumns+` FROM team_invitations
		WHERE team_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectInvites(rows)
}

// GetInvitesForEmail lists pending invitations addressed to the given
// email, with team and inviter joined for display.
func (s *TeamService) GetInvitesForEmail(ctx context.Context, email string) ([]models.TeamInvitation, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT i.id, i.team_id, i.inviter_id, i.invitee_email, i.token, i.status, i.expires_at, i.created_at, i.updated_at,
		       t.id, t.name, t.description, t.owner_id, t.created_at, t.updated_at,
		       u.id, u.email, u.name, u.avatar_url, u.active, u.created_at, u.updated_at
		FROM team_invitations i
		JOIN teams t ON i.team_id = t.id
		JOIN users u ON i.inviter_id = u.id
		WHERE i.invitee_email = $1 AND i.status = 'pending' AND i.expires_at > NOW()
		ORDER BY i.created_at DESC
	`, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []models.TeamInvitation
	for rows.Next() {
		var inv models.TeamInvitation
		var team models.Team
		var inviter models.User
		if err := rows.Scan(
			&inv.ID, &inv.TeamID, &inv.InviterID, &inv.InviteeEmail, &inv.Token, &inv.Status, &inv.ExpiresAt, &inv.CreatedAt, &inv.UpdatedAt,
			&team.ID, &team.Name, &team.Description, &team.OwnerID, &team.CreatedAt, &team.UpdatedAt,
			&inviter.ID, &inviter.Email, &inviter.Name, &inviter.AvatarURL, &inviter.Active, &inviter.CreatedAt, &inviter.UpdatedAt,
		); err != nil {
			return nil, err
		}
		inv.Team = &team
		inv.Inviter = &inviter
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

// AcceptInvite redeems a pending invitation token for the calling user.
// Redemption and membership creation happen in one transaction; the
// status flip is what makes the token single-use.
func (s *TeamService) AcceptInvite(ctx context.Context, token string, userID uuid.UUID, userEmail string) error {
	invite, err := s.GetInviteByToken(ctx, token)
	if err != nil {
		return err
	}

	if err := s.checkRedeemable(invite, userEmail); err != nil {
		return err
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE team_invitations SET status = 'accepted', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, invite.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInviteNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, user_id) DO NOTHING
	`, invite.TeamID, userID, models.RoleMember)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RejectInvite marks a pending invitation rejected. Same gating as
// AcceptInvite, without the membership insert.
func (s *TeamService) RejectInvite(ctx context.Context, token string, userEmail string) error {
	invite, err := s.GetInviteByToken(ctx, token)
	if err != nil {
		return err
	}

	if err := s.checkRedeemable(invite, userEmail); err != nil {
		return err
	}

	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE team_invitations SET status = 'rejected', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, invite.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInviteNotFound
	}
	return nil
}

func (s *TeamService) checkRedeemable(invite *models.TeamInvitation, userEmail string) error {
	switch invite.Status {
	case models.InviteStatusPending:
	case models.InviteStatusExpired:
		return ErrInviteExpired
	default:
		return ErrInviteNotFound
	}
	if !strings.EqualFold(invite.InviteeEmail, strings.TrimSpace(userEmail)) {
		return ErrInviteEmailMismatch
	}
	return nil
}

func (s *TeamService) CancelInvite(ctx context.Context, inviteID, teamID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `
		DELETE FROM team_invitations WHERE id = $1 AND team_id = $2 AND status = 'pending'
	`, inviteID, teamID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInviteNotFound
	}
	return nil
}

// ExpireStale flips pending invitations whose deadline passed. Called by
// the hourly sweep and the expire-invites CLI.
func (s *TeamService) ExpireStale(ctx context.Context) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE team_invitations SET status = 'expired', updated_at = NOW()
		WHERE status = 'pending' AND expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collectInvites(rows pgx.Rows) ([]models.TeamInvitation, error) {
	var invites []models.TeamInvitation
	for rows.Next() {
		var inv models.TeamInvitation
		if err := rows.Scan(
			&inv.ID, &inv.TeamID, &inv.InviterID, &inv.InviteeEmail, &inv.Token,
			&inv.Status, &inv.ExpiresAt, &inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}
