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

type ProjectHandler struct {
	projectService ProjectServiceInterface
	teamService    TeamServiceInterface
}

func NewProjectHandler(projectService ProjectServiceInterface, teamService TeamServiceInterface) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		teamService:    teamService,
	}
}

func (h *ProjectHandler) Create(c *drift.Context) {
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

	var req dto.CreateProjectRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	project, err := h.projectService.Create(ctx, teamID, req.Name)
	if err != nil {
		c.InternalServerError("failed to create project")
		return
	}

	_ = c.JSON(201, projectToDTO(project))
}

func (h *ProjectHandler) List(c *drift.Context) {
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
	if _, err := h.teamService.RoleOf(ctx, teamID, userID); err != nil {
		c.NotFound("team not found")
		return
	}

	projects, err := h.projectService.GetTeamProjects(ctx, teamID)
	if err != nil {
		c.InternalServerError("failed to get projects")
		return
	}

	response := make([]dto.ProjectResponse, len(projects))
	for i := range projects {
		response[i] = projectToDTO(&projects[i])
	}

	_ = c.JSON(200, response)
}

func (h *ProjectHandler) Rename(c *drift.Context) {
	project, ok := h.authorizeProject(c, models.RoleAdmin)
	if !ok {
		return
	}

	var req dto.RenameProjectRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	updated, err := h.projectService.Rename(context.Background(), project.ID, req.Name)
	if err != nil {
		c.InternalServerError("failed to rename project")
		return
	}

	_ = c.JSON(200, projectToDTO(updated))
}

func (h *ProjectHandler) Archive(c *drift.Context) {
	project, ok := h.authorizeProject(c, models.RoleAdmin)
	if !ok {
		return
	}

	updated, err := h.projectService.SetStatus(context.Background(), project.ID, models.ProjectStatusArchived)
	if err != nil {
		c.InternalServerError("failed to archive project")
		return
	}

	_ = c.JSON(200, projectToDTO(updated))
}

func (h *ProjectHandler) Unarchive(c *drift.Context) {
	project, ok := h.authorizeProject(c, models.RoleAdmin)
	if !ok {
		return
	}

	updated, err := h.projectService.SetStatus(context.Background(), project.ID, models.ProjectStatusActive)
	if err != nil {
		c.InternalServerError("failed to unarchive project")
		return
	}

	_ = c.JSON(200, projectToDTO(updated))
}

func (h *ProjectHandler) Move(c *drift.Context) {
	project, ok := h.authorizeProject(c, models.RoleAdmin)
	if !ok {
		return
	}

	var req dto.MoveProjectRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Position < 0 {
		c.BadRequest("position must not be negative")
		return
	}

	updated, err := h.projectService.Move(context.Background(), project.ID, req.Position)
	if err != nil {
		if errors.Is(err, services.ErrProjectNotFound) {
			c.NotFound("project not found")
			return
		}
		c.InternalServerError("failed to move project")
		return
	}

	_ = c.JSON(200, projectToDTO(updated))
}

// Delete removes a project permanently. Owner only.
func (h *ProjectHandler) Delete(c *drift.Context) {
	project, ok := h.authorizeProject(c, models.RoleOwner)
	if !ok {
		return
	}

	if err := h.projectService.Delete(context.Background(), project.ID); err != nil {
		if errors.Is(err, services.ErrProjectNotFound) {
			c.NotFound("project not found")
			return
		}
		c.InternalServerError("failed to delete project")
		return
	}

	_ = c.JSON(200, map[string]bool{"success": true})
}

// authorizeProject loads the project from the route and checks the
// caller holds at least minRole in its team. Non-members get a 404 so
// project ids are not probeable.
func (h *ProjectHandler) authorizeProject(c *drift.Context, minRole models.Role) (*models.Project, bool) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return nil, false
	}

	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		c.BadRequest("invalid project id")
		return nil, false
	}

	ctx := context.Background()
	project, err := h.projectService.GetByID(ctx, projectID)
	if err != nil {
		c.NotFound("project not found")
		return nil, false
	}

	role, err := h.teamService.RoleOf(ctx, project.TeamID, userID)
	if err != nil {
		c.NotFound("project not found")
		return nil, false
	}
	if !role.IsAtLeast(minRole) {
		if minRole == models.RoleOwner {
			c.Forbidden("only the owner can do this")
		} else {
			c.Forbidden("admin role required")
		}
		return nil, false
	}

	return project, true
}

func projectToDTO(p *models.Project) dto.ProjectResponse {
	return dto.ProjectResponse{
		ID:       p.ID,
		TeamID:   p.TeamID,
		Name:     p.Name,
		Status:   p.Status,
		Position: p.Position,
	}
}
