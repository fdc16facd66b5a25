package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvukovic/teamline-api/internal/middleware"
	"github.com/dvukovic/teamline-api/internal/models"
	"github.com/dvukovic/teamline-api/internal/observability/logger"
	"github.com/dvukovic/teamline-api/internal/services"
	"github.com/dvukovic/teamline-api/internal/validation"
	"github.com/dvukovic/teamline-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

type InviteHandler struct {
	teamService  TeamServiceInterface
	userService  UserServiceInterface
	emailService EmailServiceInterface
	baseURL      string
}

func NewInviteHandler(
	teamService TeamServiceInterface,
	userService UserServiceInterface,
	emailService EmailServiceInterface,
	baseURL string,
) *InviteHandler {
	return &InviteHandler{
		teamService:  teamService,
		userService:  userService,
		emailService: emailService,
		baseURL:      baseURL,
	}
}

// CreateInvite issues an invitation to an email address. Requires admin
// or owner role in the team. The invite email is sent best-effort.
func (h *InviteHandler) CreateInvite(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	ctx := context.Background()
	role, err := h.teamService.RoleOf(ctx, teamID, userID)
	if err != nil {
		c.NotFound("team not found")
		return
	}
	if !role.IsAtLeast(models.RoleAdmin) {
		c.Forbidden("admin role required")
		return
	}

	var req dto.InviteMemberRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if err := validation.CheckEmail(req.Email); err != nil {
		c.BadRequest("invalid email address")
		return
	}

	invite, err := h.teamService.CreateInvite(ctx, teamID, userID, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyMember):
			c.JSON(409, map[string]string{"error": "user is already a team member"})
		case errors.Is(err, services.ErrInviteAlreadyExists):
			c.JSON(409, map[string]string{"error": "a pending invitation already exists for this email"})
		default:
			c.InternalServerError("failed to create invitation")
		}
		return
	}

	h.sendInviteEmail(ctx, invite, teamID, userID)

	_ = c.JSON(201, inviteToDTO(invite))
}

func (h *InviteHandler) sendInviteEmail(ctx context.Context, invite *models.TeamInvitation, teamID, inviterID uuid.UUID) {
	team, err := h.teamService.GetByID(ctx, teamID)
	if err != nil {
		return
	}
	inviterName := "Someone"
	if inviter, err := h.userService.GetByID(ctx, inviterID); err == nil {
		inviterName = inviter.Name
	}

	inviteURL := fmt.Sprintf("%s/invites/%s", h.baseURL, invite.Token)
	if err := h.emailService.SendTeamInvite(invite.InviteeEmail, team.Name, inviterName, inviteURL); err != nil {
		logger.Named("invites").Warn("invite email not sent",
			zap.String("team_id", teamID.String()),
			zap.Error(err),
		)
	}
}

// ListTeamInvites returns the team's pending invitations. Admin or owner
// only, since the list exposes invitee addresses.
func (h *InviteHandler) ListTeamInvites(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	ctx := context.Background()
	role, err := h.teamService.RoleOf(ctx, teamID, userID)
	if err != nil {
		c.NotFound("team not found")
		return
	}
	if !role.IsAtLeast(models.RoleAdmin) {
		c.Forbidden("admin role required")
		return
	}

	invites, err := h.teamService.GetTeamInvites(ctx, teamID)
	if err != nil {
		c.InternalServerError("failed to get invitations")
		return
	}

	response := make([]dto.TeamInviteResponse, len(invites))
	for i := range invites {
		response[i] = inviteToDTO(&invites[i])
	}

	_ = c.JSON(200, response)
}

func (h *InviteHandler) CancelInvite(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	inviteID, err := uuid.Parse(c.Param("inviteId"))
	if err != nil {
		c.BadRequest("invalid invite id")
		return
	}

	ctx := context.Background()
	role, err := h.teamService.RoleOf(ctx, teamID, userID)
	if err != nil {
		c.NotFound("team not found")
		return
	}
	if !role.IsAtLeast(models.RoleAdmin) {
		c.Forbidden("admin role required")
		return
	}

	if err := h.teamService.CancelInvite(ctx, inviteID, teamID); err != nil {
		if errors.Is(err, services.ErrInviteNotFound) {
			c.NotFound("invitation not found")
			return
		}
		c.InternalServerError("failed to cancel invitation")
		return
	}

	_ = c.JSON(200, map[string]string{"message": "invitation cancelled"})
}

// ListMyInvites returns pending invitations addressed to the caller's
// email.
func (h *InviteHandler) ListMyInvites(c *drift.Context) {
	userEmail := middleware.GetUserEmail(c)
	if userEmail == "" {
		c.Unauthorized("not authenticated")
		return
	}

	invites, err := h.teamService.GetInvitesForEmail(context.Background(), userEmail)
	if err != nil {
		c.InternalServerError("failed to get invitations")
		return
	}

	response := make([]dto.TeamInviteResponse, len(invites))
	for i := range invites {
		response[i] = inviteToDTO(&invites[i])
	}

	_ = c.JSON(200, response)
}

func (h *InviteHandler) AcceptInvite(c *drift.Context) {
	userID := middleware.GetUserID(c)
	userEmail := middleware.GetUserEmail(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	token := c.Param("token")
	if err := validation.CheckToken(token); err != nil {
		c.BadRequest("invalid invitation token")
		return
	}

	if err := h.teamService.AcceptInvite(context.Background(), token, userID, userEmail); err != nil {
		h.writeRedeemError(c, err)
		return
	}

	_ = c.JSON(200, map[string]string{"message": "invitation accepted"})
}

func (h *InviteHandler) RejectInvite(c *drift.Context) {
	userEmail := middleware.GetUserEmail(c)
	if userEmail == "" {
		c.Unauthorized("not authenticated")
		return
	}

	token := c.Param("token")
	if err := validation.CheckToken(token); err != nil {
		c.BadRequest("invalid invitation token")
		return
	}

	if err := h.teamService.RejectInvite(context.Background(), token, userEmail); err != nil {
		h.writeRedeemError(c, err)
		return
	}

	_ = c.JSON(200, map[string]string{"message": "invitation rejected"})
}

func (h *InviteHandler) writeRedeemError(c *drift.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInviteNotFound):
		c.NotFound("invitation not found or already processed")
	case errors.Is(err, services.ErrInviteExpired):
		c.JSON(410, map[string]string{"error": "invitation has expired"})
	case errors.Is(err, services.ErrInviteEmailMismatch):
		c.Forbidden("invitation was issued for a different email")
	default:
		c.InternalServerError("failed to process invitation")
	}
}

// ViewInvite renders the public invitation page reached from the email
// link. No authentication; the token itself is the capability.
func (h *InviteHandler) ViewInvite(c *drift.Context) {
	token := c.Param("token")
	if err := validation.CheckToken(token); err != nil {
		h.renderError(c, "Invalid invite link")
		return
	}

	invite, err := h.teamService.GetInviteByToken(context.Background(), token)
	if err != nil {
		h.renderError(c, "Invite not found")
		return
	}

	if invite.Status == models.InviteStatusExpired {
		h.renderError(c, "This invite has expired")
		return
	}
	if invite.Status != models.InviteStatusPending {
		h.renderMessage(c, "This invite has already been "+invite.Status)
		return
	}

	team, err := h.teamService.GetByID(context.Background(), invite.TeamID)
	if err != nil {
		h.renderError(c, "Team not found")
		return
	}

	inviter, _ := h.userService.GetByID(context.Background(), invite.InviterID)
	inviterName := "Someone"
	if inviter != nil {
		inviterName = inviter.Name
	}

	h.renderInvitePage(c, token, team.Name, inviterName)
}

// AcceptInvitePage handles the accept form on the public page. The
// invitee needs an account with the invited address.
func (h *InviteHandler) AcceptInvitePage(c *drift.Context) {
	token := c.Param("token")
	if err := validation.CheckToken(token); err != nil {
		h.renderError(c, "Invalid invite link")
		return
	}

	ctx := context.Background()
	invite, err := h.teamService.GetInviteByToken(ctx, token)
	if err != nil {
		h.renderError(c, "Invite not found")
		return
	}

	user, err := h.userService.GetByEmail(ctx, invite.InviteeEmail)
	if err != nil {
		h.renderError(c, "No account found for "+invite.InviteeEmail+". Sign up in the Teamline app first, then open this link again.")
		return
	}

	if err := h.teamService.AcceptInvite(ctx, token, user.ID, user.Email); err != nil {
		if errors.Is(err, services.ErrInviteExpired) {
			h.renderError(c, "This invite has expired")
			return
		}
		if errors.Is(err, services.ErrInviteNotFound) {
			h.renderError(c, "Invite not found or already processed")
			return
		}
		h.renderError(c, "Failed to accept invite")
		return
	}

	team, _ := h.teamService.GetByID(ctx, invite.TeamID)
	teamName := "the team"
	if team != nil {
		teamName = team.Name
	}

	h.renderMessage(c, fmt.Sprintf("You have joined %s!", teamName))
}

func (h *InviteHandler) DeclineInvitePage(c *drift.Context) {
	token := c.Param("token")
	if err := validation.CheckToken(token); err != nil {
		h.renderError(c, "Invalid invite link")
		return
	}

	ctx := context.Background()
	invite, err := h.teamService.GetInviteByToken(ctx, token)
	if err != nil {
		h.renderError(c, "Invite not found")
		return
	}

	if err := h.teamService.RejectInvite(ctx, token, invite.InviteeEmail); err != nil {
		if errors.Is(err, services.ErrInviteExpired) {
			h.renderError(c, "This invite has expired")
			return
		}
		h.renderError(c, "Invite not found or already processed")
		return
	}

	h.renderMessage(c, "Invite declined")
}

func inviteToDTO(invite *models.TeamInvitation) dto.TeamInviteResponse {
	resp := dto.TeamInviteResponse{
		ID:           invite.ID,
		TeamID:       invite.TeamID,
		InviteeEmail: invite.InviteeEmail,
		Status:       invite.Status,
		ExpiresAt:    invite.ExpiresAt,
		CreatedAt:    invite.CreatedAt,
	}
	if invite.Team != nil {
		resp.Team = &dto.TeamResponse{
			ID:          invite.Team.ID,
			Name:        invite.Team.Name,
			Description: invite.Team.Description,
			OwnerID:     invite.Team.OwnerID,
		}
	}
	if invite.Inviter != nil {
		resp.Inviter = &dto.UserResponse{
			ID:        invite.Inviter.ID,
			Email:     invite.Inviter.Email,
			Name:      invite.Inviter.Name,
			AvatarURL: invite.Inviter.AvatarURL,
		}
	}
	return resp
}

func (h *InviteHandler) renderInvitePage(c *drift.Context, token, teamName, inviterName string) {
	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Team Invitation</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 400px; margin: 50px auto; padding: 20px; text-align: center; }
        h1 { color: #333; }
        p { color: #666; margin: 20px 0; }
        .team-name { font-weight: bold; color: #333; }
        .buttons { display: flex; gap: 10px; justify-content: center; margin-top: 30px; }
        button { padding: 12px 24px; font-size: 16px; border: none; border-radius: 6px; cursor: pointer; }
        .accept { background: #22c55e; color: white; }
        .accept:hover { background: #16a34a; }
        .decline { background: #e5e7eb; color: #333; }
        .decline:hover { background: #d1d5db; }
    </style>
</head>
<body>
    <h1>Team Invitation</h1>
    <p><strong>%s</strong> has invited you to join</p>
    <p class="team-name">%s</p>
    <div class="buttons">
        <form action="/invites/%s/accept" method="POST" style="display:inline;">
            <button type="submit" class="accept">Accept</button>
        </form>
        <form action="/invites/%s/decline" method="POST" style="display:inline;">
            <button type="submit" class="decline">Decline</button>
        </form>
    </div>
</body>
</html>`, inviterName, teamName, token, token)

	_ = c.HTML(200, html)
}

func (h *InviteHandler) renderMessage(c *drift.Context, message string) {
	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Team Invitation</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 400px; margin: 50px auto; padding: 20px; text-align: center; }
        h1 { color: #22c55e; }
        p { color: #666; }
    </style>
</head>
<body>
    <h1>%s</h1>
</body>
</html>`, message)

	_ = c.HTML(200, html)
}

func (h *InviteHandler) renderError(c *drift.Context, message string) {
	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Error</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 400px; margin: 50px auto; padding: 20px; text-align: center; }
        h1 { color: #ef4444; }
        p { color: #666; }
    </style>
</head>
<body>
    <h1>Error</h1>
    <p>%s</p>
</body>
</html>`, message)

	_ = c.HTML(400, html)
}
