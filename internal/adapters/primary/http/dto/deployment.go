package dto

import (
	"time"

	"github.com/google/uuid"
)

// CreateDeploymentRequest is the multipart form of an initial upload. The
// archive travels in the "file" part and is read separately.
type CreateDeploymentRequest struct {
	Name      string `form:"name"`
	Subdomain string `form:"subdomain"`
	Version   string `form:"version"`
}

type DeploymentResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Subdomain     string    `json:"subdomain"`
	CreatedAt     string    `json:"created_at"`
	Versions      []string  `json:"versions"`
	ActiveVersion *string   `json:"active_version"`
	URL           string    `json:"url"`
}

type ListDeploymentsResponse struct {
	Items []DeploymentResponse `json:"items"`
	Total int                  `json:"total"`
}

type CreateDeploymentResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	Version   string    `json:"version"`
	URL       string    `json:"url"`
}

type VersionResponse struct {
	ID           uuid.UUID `json:"id"`
	DeploymentID uuid.UUID `json:"deployment_id"`
	Version      string    `json:"version"`
	Active       bool      `json:"active"`
	CreatedAt    string    `json:"created_at"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
