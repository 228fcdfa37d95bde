package dto

import (
	"fmt"

	"site-deploy-service/internal/core/domain"
)

// SiteURL builds the public address of a deployment.
type SiteURL struct {
	Scheme string
	Domain string
}

func (u SiteURL) For(subdomain string) string {
	return fmt.Sprintf("%s://%s.%s", u.Scheme, subdomain, u.Domain)
}

func ToDeploymentResponse(d *domain.Deployment, urls SiteURL) DeploymentResponse {
	resp := DeploymentResponse{
		ID:        d.ID,
		Name:      d.Name,
		Subdomain: d.Subdomain,
		CreatedAt: formatTime(d.CreatedAt),
		Versions:  d.VersionLabels(),
		URL:       urls.For(d.Subdomain),
	}
	if active := d.ActiveVersion(); active != nil {
		label := active.Version
		resp.ActiveVersion = &label
	}
	return resp
}

func ToCreateDeploymentResponse(d *domain.Deployment, urls SiteURL) CreateDeploymentResponse {
	resp := CreateDeploymentResponse{
		ID:        d.ID,
		Name:      d.Name,
		Subdomain: d.Subdomain,
		URL:       urls.For(d.Subdomain),
	}
	if active := d.ActiveVersion(); active != nil {
		resp.Version = active.Version
	}
	return resp
}

func ToVersionResponse(v *domain.Version) VersionResponse {
	return VersionResponse{
		ID:           v.ID,
		DeploymentID: v.DeploymentID,
		Version:      v.Version,
		Active:       v.Active,
		CreatedAt:    formatTime(v.CreatedAt),
	}
}
