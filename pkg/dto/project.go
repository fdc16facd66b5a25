package dto

import "github.com/google/uuid"

type CreateProjectRequest struct {
	Name string `json:"name"`
}

type RenameProjectRequest struct {
	Name string `json:"name"`
}

type MoveProjectRequest struct {
	Position int `json:"position"`
}

type ProjectResponse struct {
	ID       uuid.UUID `json:"id"`
	TeamID   uuid.UUID `json:"team_id"`
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	Position int       `json:"position"`
}
