package handlers

import (
	"context"
	"errors"

	"github.com/dvukovic/teamline-api/internal/middleware"
	"github.com/dvukovic/teamline-api/internal/models"
	"github.com/dvukovic/teamline-api/internal/services"
	"github.com/dvukovic/teamline-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type TeamHandler struct {
	teamService TeamServiceInterface
}

func NewTeamHandler(teamService TeamServiceInterface) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

func (h *TeamHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateTeamRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	team, err := h.teamService.Create(context.Background(), req.Name, req.Description, userID)
	if err != nil {
		c.InternalServerError("failed to create team")
		return
	}

	_ = c.JSON(201, dto.TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		OwnerID:     team.OwnerID,
		Role:        models.RoleOwner,
	})
}

func (h *TeamHandler) List(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teams, roles, err := h.teamService.GetUserTeams(context.Background(), userID)
	if err != nil {
		c.InternalServerError("failed to get teams")
		return
	}

	response := make([]dto.TeamResponse, len(teams))
	for i, team := range teams {
		response[i] = dto.TeamResponse{
			ID:          team.ID,
			Name:        team.Name,
			Description: team.Description,
			OwnerID:     team.OwnerID,
			Role:        roles[i],
		}
	}

	_ = c.JSON(200, response)
}

func (h *TeamHandler) Get(c *drift.Context) {
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

	role, err := h.teamService.RoleOf(context.Background(), teamID, userID)
	if err != nil {
		c.NotFound("team not found")
		return
	}

	team, err := h.teamService.GetByID(context.Background(), teamID)
	if err != nil {
		c.NotFound("team not found")
		return
	}

	_ = c.JSON(200, dto.TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		OwnerID:     team.OwnerID,
		Role:        role,
	})
}

func (h *TeamHandler) Update(c *drift.Context) {
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

	role, err := h.teamService.RoleOf(context.Background(), teamID, userID)
	if err != nil {
		c.NotFound("team not found")
		return
	}
	if !role.IsAtLeast(models.RoleAdmin) {
		c.Forbidden("admin role required")
		return
	}

	var req dto.UpdateTeamRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	team, err := h.teamService.Update(context.Background(), teamID, req.Name, req.Description)
	if err != nil {
		c.InternalServerError("failed to update team")
		return
	}

	_ = c.JSON(200, dto.TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		OwnerID:     team.OwnerID,
		Role:        role,
	})
}

func (h *TeamHandler) Delete(c *drift.Context) {
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

	role, err := h.teamService.RoleOf(context.Background(), teamID, userID)
	if err != nil {
		c.NotFound("team not found")
		return
	}
	if role != models.RoleOwner {
		c.Forbidden("only the owner can delete the team")
		return
	}

	if err := h.teamService.Delete(context.Background(), teamID); err != nil {
		c.InternalServerError("failed to delete team")
		return
	}

	_ = c.JSON(200, map[string]string{"message": "team deleted"})
}

func (h *TeamHandler) GetMembers(c *drift.Context) {
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

	if _, err := h.teamService.RoleOf(context.Background(), teamID, userID); err != nil {
		c.NotFound("team not found")
		return
	}

	members, err := h.teamService.GetMembers(context.Background(), teamID)
	if err != nil {
		c.InternalServerError("failed to get members")
		return
	}

	response := make([]dto.TeamMemberResponse, len(members))
	for i, m := range members {
		response[i] = dto.TeamMemberResponse{
			ID:     m.ID,
			UserID: m.UserID,
			Role:   m.Role,
			User: dto.UserResponse{
				ID:        m.User.ID,
				Email:     m.User.Email,
				Name:      m.User.Name,
				AvatarURL: m.User.AvatarURL,
			},
		}
	}

	_ = c.JSON(200, response)
}

// RemoveMember lets an admin or the owner remove a member whose role is
// strictly below their own.
func (h *TeamHandler) RemoveMember(c *drift.Context) {
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

	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		c.BadRequest("invalid member id")
		return
	}

	ctx := context.Background()
	callerRole, err := h.teamService.RoleOf(ctx, teamID, userID)
	if err != nil {
		c.NotFound("team not found")
		return
	}
	if !callerRole.IsAtLeast(models.RoleAdmin) {
		c.Forbidden("admin role required")
		return
	}

	if memberID == userID {
		c.BadRequest("use the leave endpoint to remove yourself")
		return
	}

	targetRole, err := h.teamService.RoleOf(ctx, teamID, memberID)
	if err != nil {
		c.NotFound("member not found")
		return
	}
	if !callerRole.IsHigherThan(targetRole) {
		c.Forbidden("cannot remove a member with an equal or higher role")
		return
	}

	if err := h.teamService.RemoveMember(ctx, teamID, memberID); err != nil {
		if errors.Is(err, services.ErrCannotRemoveOwner) {
			c.BadRequest("cannot remove team owner")
			return
		}
		if errors.Is(err, services.ErrMemberNotFound) {
			c.NotFound("member not found")
			return
		}
		c.InternalServerError("failed to remove member")
		return
	}

	_ = c.JSON(200, map[string]string{"message": "member removed"})
}

func (h *TeamHandler) LeaveTeam(c *drift.Context) {
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

	if err := h.teamService.RemoveMember(context.Background(), teamID, userID); err != nil {
		if errors.Is(err, services.ErrCannotRemoveOwner) {
			c.BadRequest("owner cannot leave the team, delete it instead")
			return
		}
		if errors.Is(err, services.ErrMemberNotFound) {
			c.NotFound("team not found or not a member")
			return
		}
		c.InternalServerError("failed to leave team")
		return
	}

	_ = c.JSON(200, map[string]string{"message": "left team"})
}

// ChangeMemberRole reassigns a member between admin and member. Only the
// owner can do this.
func (h *TeamHandler) ChangeMemberRole(c *drift.Context) {
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

	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		c.BadRequest("invalid member id")
		return
	}

	ctx := context.Background()
	callerRole, err := h.teamService.RoleOf(ctx, teamID, userID)
	if err != nil {
		c.NotFound("team not found")
		return
	}
	if callerRole != models.RoleOwner {
		c.Forbidden("only the owner can change member roles")
		return
	}

	var req dto.ChangeRoleRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	newRole, err := models.ParseRole(req.Role)
	if err != nil || newRole == models.RoleOwner {
		c.BadRequest("role must be admin or member")
		return
	}

	if err := h.teamService.ChangeMemberRole(ctx, teamID, memberID, newRole); err != nil {
		if errors.Is(err, services.ErrCannotChangeOwnerRole) {
			c.BadRequest("the owner role cannot be reassigned")
			return
		}
		if errors.Is(err, services.ErrMemberNotFound) {
			c.NotFound("member not found")
			return
		}
		c.InternalServerError("failed to change member role")
		return
	}

	_ = c.JSON(200, map[string]string{"message": "role updated"})
}
