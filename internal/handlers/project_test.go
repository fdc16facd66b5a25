package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dvukovic/teamline-api/internal/middleware"
	"github.com/dvukovic/teamline-api/internal/models"
	"github.com/dvukovic/teamline-api/internal/services"
	"github.com/dvukovic/teamline-api/pkg/dto"
	"github.com/dvukovic/teamline-api/tests/testutil"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupProjectTest(t *testing.T) (*testutil.MockProjectService, *testutil.MockTeamService, *ProjectHandler, *services.JWTService) {
	t.Helper()
	mockProjectService := new(testutil.MockProjectService)
	mockTeamService := new(testutil.MockTeamService)
	handler := NewProjectHandler(mockProjectService, mockTeamService)
	return mockProjectService, mockTeamService, handler, newTestJWTService()
}

func projectTestApp(handler *ProjectHandler, jwtSvc *services.JWTService) http.Handler {
	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(jwtSvc))
	app.Post("/teams/:id/projects", handler.Create)
	app.Get("/teams/:id/projects", handler.List)
	app.Patch("/projects/:projectId", handler.Rename)
	app.Post("/projects/:projectId/archive", handler.Archive)
	app.Post("/projects/:projectId/unarchive", handler.Unarchive)
	app.Post("/projects/:projectId/move", handler.Move)
	app.Delete("/projects/:projectId", handler.Delete)
	return app
}

func TestProjectHandler_Create_Success(t *testing.T) {
	mockProjectService, mockTeamService, handler, jwtSvc := setupProjectTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	project := &models.Project{
		ID:       uuid.New(),
		TeamID:   teamID,
		Name:     "Website Redesign",
		Status:   models.ProjectStatusActive,
		Position: 0,
	}

	mockTeamService.On("RoleOf", mock.Anything, teamID, userID).Return(models.RoleAdmin, nil)
	mockProjectService.On("Create", mock.Anything, teamID, "Website Redesign").Return(project, nil)

	app := projectTestApp(handler, jwtSvc)

	body := dto.CreateProjectRequest{Name: "Website Redesign"}
	jsonBody, _ := json.Marshal(body)

	token := generateTestToken(t, jwtSvc, userID, "admin@example.com")
	req := httptest.NewRequest(http.MethodPost, "/teams/"+teamID.String()+"/projects", bytes.NewReader(jsonBody))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var response dto.ProjectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, project.ID, response.ID)
	assert.Equal(t, "Website Redesign", response.Name)
	assert.Equal(t, 0, response.Position)

	mockProjectService.AssertExpectations(t)
	mockTeamService.AssertExpectations(t)
}

func TestProjectHandler_Create_MemberForbidden(t *testing.T) {
	mockProjectService, mockTeamService, handler, jwtSvc := setupProjectTest(t)

	userID := uuid.New()
	teamID := uuid.New()

	mockTeamService.On("RoleOf", mock.Anything, teamID, userID).Return(models.RoleMember, nil)

	app := projectTestApp(handler, jwtSvc)

	body := dto.CreateProjectRequest{Name: "Website Redesign"}
	jsonBody, _ := json.Marshal(body)

	token := generateTestToken(t, jwtSvc, userID, "member@example.com")
	req := httptest.NewRequest(http.MethodPost, "/teams/"+teamID.String()+"/projects", bytes.NewReader(jsonBody))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	mockProjectService.AssertNotCalled(t, "Create")
}

func TestProjectHandler_List_Success(t *testing.T) {
	mockProjectService, mockTeamService, handler, jwtSvc := setupProjectTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	projects := []models.Project{
		{ID: uuid.New(), TeamID: teamID, Name: "First", Status: models.ProjectStatusActive, Position: 0},
		{ID: uuid.New(), TeamID: teamID, Name: "Second", Status: models.ProjectStatusArchived, Position: 1},
	}

	mockTeamService.On("RoleOf", mock.Anything, teamID, userID).Return(models.RoleMember, nil)
	mockProjectService.On("GetTeamProjects", mock.Anything, teamID).Return(projects, nil)

	app := projectTestApp(handler, jwtSvc)

	token := generateTestToken(t, jwtSvc, userID, "member@example.com")
	req := httptest.NewRequest(http.MethodGet, "/teams/"+teamID.String()+"/projects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response []dto.ProjectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response, 2)
	assert.Equal(t, "First", response[0].Name)
	assert.Equal(t, 1, response[1].Position)
}

func TestProjectHandler_List_NonMember(t *testing.T) {
	mockProjectService, mockTeamService, handler, jwtSvc := setupProjectTest(t)

	userID := uuid.New()
	teamID := uuid.New()

	mockTeamService.On("RoleOf", mock.Anything, teamID, userID).Return(models.Role(""), services.ErrNotMember)

	app := projectTestApp(handler, jwtSvc)

	token := generateTestToken(t, jwtSvc, userID, "outsider@example.com")
	req := httptest.NewRequest(http.MethodGet, "/teams/"+teamID.String()+"/projects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	mockProjectService.AssertNotCalled(t, "GetTeamProjects")
}

func TestProjectHandler_Rename_Success(t *testing.T) {
	mockProjectService, mockTeamService, handler, jwtSvc := setupProjectTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	projectID := uuid.New()
	project := &models.Project{ID: projectID, TeamID: teamID, Name: "Old", Status: models.ProjectStatusActive}
	renamed := &models.Project{ID: projectID, TeamID: teamID, Name: "New", Status: models.ProjectStatusActive}

	mockProjectService.On("GetByID", mock.Anything, projectID).Return(project, nil)
	mockTeamService.On("RoleOf", mock.Anything, teamID, userID).Return(models.RoleAdmin, nil)
	mockProjectService.On("Rename", mock.Anything, projectID, "New").Return(renamed, nil)

	app := projectTestApp(handler, jwtSvc)

	body := dto.RenameProjectRequest{Name: "New"}
	jsonBody, _ := json.Marshal(body)

	token := generateTestToken(t, jwtSvc, userID, "admin@example.com")
	req := httptest.NewRequest(http.MethodPatch, "/projects/"+projectID.String(), bytes.NewReader(jsonBody))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.ProjectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "New", response.Name)

	mockProjectService.AssertExpectations(t)
}

func TestProjectHandler_Archive_Success(t *testing.T) {
	mockProjectService, mockTeamService, handler, jwtSvc := setupProjectTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	projectID := uuid.New()
	project := &models.Project{ID: projectID, TeamID: teamID, Name: "P", Status: models.ProjectStatusActive}
	archived := &models.Project{ID: projectID, TeamID: teamID, Name: "P", Status: models.ProjectStatusArchived}

	mockProjectService.On("GetByID", mock.Anything, projectID).Return(project, nil)
	mockTeamService.On("RoleOf", mock.Anything, teamID, userID).Return(models.RoleOwner, nil)
	mockProjectService.On("SetStatus", mock.Anything, projectID, models.ProjectStatusArchived).Return(archived, nil)

	app := projectTestApp(handler, jwtSvc)

	token := generateTestToken(t, jwtSvc, userID, "owner@example.com")
	req := httptest.NewRequest(http.MethodPost, "/projects/"+projectID.String()+"/archive", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.ProjectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, models.ProjectStatusArchived, response.Status)
}

func TestProjectHandler_Move_Success(t *testing.T) {
	mockProjectService, mockTeamService, handler, jwtSvc := setupProjectTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	projectID := uuid.New()
	project := &models.Project{ID: projectID, TeamID: teamID, Name: "P", Status: models.ProjectStatusActive, Position: 3}
	moved := &models.Project{ID: projectID, TeamID: teamID, Name: "P", Status: models.ProjectStatusActive, Position: 1}

	mockProjectService.On("GetByID", mock.Anything, projectID).Return(project, nil)
	mockTeamService.On("RoleOf", mock.Anything, teamID, userID).Return(models.RoleAdmin, nil)
	mockProjectService.On("Move", mock.Anything, projectID, 1).Return(moved, nil)

	app := projectTestApp(handler, jwtSvc)

	body := dto.MoveProjectRequest{Position: 1}
	jsonBody, _ := json.Marshal(body)

	token := generateTestToken(t, jwtSvc, userID, "admin@example.com")
	req := httptest.NewRequest(http.MethodPost, "/projects/"+projectID.String()+"/move", bytes.NewReader(jsonBody))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.ProjectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Position)

	mockProjectService.AssertExpectations(t)
}

func TestProjectHandler_Move_NegativePosition(t *testing.T) {
	mockProjectService, mockTeamService, handler, jwtSvc := setupProjectTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	projectID := uuid.New()
	project := &models.Project{ID: projectID, TeamID: teamID, Name: "P", Status: models.ProjectStatusActive}

	mockProjectService.On("GetByID", mock.Anything, projectID).Return(project, nil)
	mockTeamService.On("RoleOf", mock.Anything, teamID, userID).Return(models.RoleAdmin, nil)

	app := projectTestApp(handler, jwtSvc)

	body := dto.MoveProjectRequest{Position: -1}
	jsonBody, _ := json.Marshal(body)

	token := generateTestToken(t, jwtSvc, userID, "admin@example.com")
	req := httptest.NewRequest(http.MethodPost, "/projects/"+projectID.String()+"/move", bytes.NewReader(jsonBody))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockProjectService.AssertNotCalled(t, "Move")
}

func TestProjectHandler_Delete_OwnerOnly(t *testing.T) {
	mockProjectService, mockTeamService, handler, jwtSvc := setupProjectTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	projectID := uuid.New()
	project := &models.Project{ID: projectID, TeamID: teamID, Name: "P", Status: models.ProjectStatusActive}

	mockProjectService.On("GetByID", mock.Anything, projectID).Return(project, nil)
	mockTeamService.On("RoleOf", mock.Anything, teamID, userID).Return(models.RoleAdmin, nil)

	app := projectTestApp(handler, jwtSvc)

	token := generateTestToken(t, jwtSvc, userID, "admin@example.com")
	req := httptest.NewRequest(http.MethodDelete, "/projects/"+projectID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "only the owner can do this")
	mockProjectService.AssertNotCalled(t, "Delete")
}

func TestProjectHandler_Delete_Success(t *testing.T) {
	mockProjectService, mockTeamService, handler, jwtSvc := setupProjectTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	projectID := uuid.New()
	project := &models.Project{ID: projectID, TeamID: teamID, Name: "P", Status: models.ProjectStatusActive}

	mockProjectService.On("GetByID", mock.Anything, projectID).Return(project, nil)
	mockTeamService.On("RoleOf", mock.Anything, teamID, userID).Return(models.RoleOwner, nil)
	mockProjectService.On("Delete", mock.Anything, projectID).Return(nil)

	app := projectTestApp(handler, jwtSvc)

	token := generateTestToken(t, jwtSvc, userID, "owner@example.com")
	req := httptest.NewRequest(http.MethodDelete, "/projects/"+projectID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response["success"])

	mockProjectService.AssertExpectations(t)
}

func TestProjectHandler_Delete_NonMemberGets404(t *testing.T) {
	mockProjectService, mockTeamService, handler, jwtSvc := setupProjectTest(t)

	userID := uuid.New()
	teamID := uuid.New()
	projectID := uuid.New()
	project := &models.Project{ID: projectID, TeamID: teamID, Name: "P", Status: models.ProjectStatusActive}

	mockProjectService.On("GetByID", mock.Anything, projectID).Return(project, nil)
	mockTeamService.On("RoleOf", mock.Anything, teamID, userID).Return(models.Role(""), services.ErrNotMember)

	app := projectTestApp(handler, jwtSvc)

	token := generateTestToken(t, jwtSvc, userID, "outsider@example.com")
	req := httptest.NewRequest(http.MethodDelete, "/projects/"+projectID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	mockProjectService.AssertNotCalled(t, "Delete")
}
