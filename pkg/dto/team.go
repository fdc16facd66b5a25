package dto

import (
	"time"

	"github.com/dvukovic/teamline-api/internal/models"
	"github.com/google/uuid"
)

type CreateTeamRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type UpdateTeamRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type InviteMemberRequest struct {
	Email string `json:"email"`
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

type TeamResponse struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	Role        models.Role `json:"role"`
}

type TeamMemberResponse struct {
	ID     uuid.UUID    `json:"id"`
	UserID uuid.UUID    `json:"user_id"`
	Role   models.Role  `json:"role"`
	User   UserResponse `json:"user"`
}

type TeamInviteResponse struct {
	ID           uuid.UUID     `json:"id"`
	TeamID       uuid.UUID     `json:"team_id"`
	InviteeEmail string        `json:"invitee_email"`
	Status       string        `json:"status"`
	ExpiresAt    time.Time     `json:"expires_at"`
	CreatedAt    time.Time     `json:"created_at"`
	Team         *TeamResponse `json:"team,omitempty"`
	Inviter      *UserResponse `json:"inviter,omitempty"`
}
