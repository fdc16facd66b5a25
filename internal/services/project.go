package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvukovic/teamline-api/internal/database"
	"github.com/dvukovic/teamline-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrProjectNotFound = errors.New("project not found")

type ProjectService struct {
	db *database.DB
}

func NewProjectService(db *database.DB) *ProjectService {
	return &ProjectService{db: db}
}

const projectColumns = `id, team_id, name, status, position, created_at, updated_at`

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.TeamID, &p.Name, &p.Status, &p.Position, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create appends a project at the end of the team's ordering. The max
// lookup and the insert share a transaction so two concurrent creates
// cannot claim the same position.
func (s *ProjectService) Create(ctx context.Context, teamID uuid.UUID, name string) (*models.Project, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var position int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(position) + 1, 0) FROM projects WHERE team_id = $1
	`, teamID).Scan(&position)
	if err != nil {
		return nil, err
	}

	project, err := scanProject(tx.QueryRow(ctx, `
		INSERT INTO projects (team_id, name, position)
		VALUES ($1, $2, $3)
		RETURNING `+projectColumns+`
	`, teamID, name, position))
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return project, nil
}

func (s *ProjectService) GetByID(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	project, err := scanProject(s.db.Pool.QueryRow(ctx, `
		SELECT `+projectColumns+` FROM projects WHERE id = $1
	`, projectID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) GetTeamProjects(ctx context.Context, teamID uuid.UUID) ([]models.Project, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE team_id = $1
		ORDER BY position
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.TeamID, &p.Name, &p.Status, &p.Position, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *ProjectService) Rename(ctx context.Context, projectID uuid.UUID, name string) (*models.Project, error) {
	project, err := scanProject(s.db.Pool.QueryRow(ctx, `
		UPDATE projects SET name = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+projectColumns+`
	`, name, projectID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}

// SetStatus archives or unarchives a project. Archived projects keep
// their position in the ordering.
func (s *ProjectService) SetStatus(ctx context.Context, projectID uuid.UUID, status string) (*models.Project, error) {
	project, err := scanProject(s.db.Pool.QueryRow(ctx, `
		UPDATE projects SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+projectColumns+`
	`, status, projectID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Move places the project at the target position and shifts the projects
// between the old and new slots by one, keeping positions contiguous.
// Targets past the end clamp to the last slot.
func (s *ProjectService) Move(ctx context.Context, projectID uuid.UUID, newPosition int) (*models.Project, error) {
	if newPosition < 0 {
		newPosition = 0
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	project, err := scanProject(tx.QueryRow(ctx, `
		SELECT `+projectColumns+` FROM projects WHERE id = $1 FOR UPDATE
	`, projectID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}

	var maxPosition int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(position), 0) FROM projects WHERE team_id = $1
	`, project.TeamID).Scan(&maxPosition)
	if err != nil {
		return nil, err
	}
	if newPosition > maxPosition {
		newPosition = maxPosition
	}

	if newPosition == project.Position {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return project, nil
	}

	if newPosition < project.Position {
		_, err = tx.Exec(ctx, `
			UPDATE projects SET position = position + 1, updated_at = NOW()
			WHERE team_id = $1 AND position >= $2 AND position < $3
		`, project.TeamID, newPosition, project.Position)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE projects SET position = position - 1, updated_at = NOW()
			WHERE team_id = $1 AND position > $2 AND position <= $3
		`, project.TeamID, project.Position, newPosition)
	}
	if err != nil {
		return nil, err
	}

	project, err = scanProject(tx.QueryRow(ctx, `
		UPDATE projects SET position = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+projectColumns+`
	`, newPosition, projectID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return project, nil
}

// Delete removes a project and closes the gap it leaves, so the team's
// positions stay contiguous from zero.
func (s *ProjectService) Delete(ctx context.Context, projectID uuid.UUID) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var teamID uuid.UUID
	var position int
	err = tx.QueryRow(ctx, `
		DELETE FROM projects WHERE id = $1 RETURNING team_id, position
	`, projectID).Scan(&teamID, &position)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProjectNotFound
	}
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE projects SET position = position - 1, updated_at = NOW()
		WHERE team_id = $1 AND position > $2
	`, teamID, position)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
