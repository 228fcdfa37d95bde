package domain

import (
	"time"

	"github.com/google/uuid"
)

type Version struct {
	ID           uuid.UUID `json:"id"`
	DeploymentID uuid.UUID `json:"deployment_id"`
	Version      string    `json:"version"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}
