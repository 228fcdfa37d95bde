package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"site-deploy-service/internal/core/domain"
	"site-deploy-service/internal/core/ports/output"
)

// DeploymentService is the registry of deployments. It only ever touches
// rows; the matching hosting directories belong to LifecycleService.
type DeploymentService struct {
	store ports.Store
}

func NewDeploymentService(store ports.Store) *DeploymentService {
	return &DeploymentService{store: store}
}

// withStore returns a registry bound to a transaction-scoped store.
func (s *DeploymentService) withStore(store ports.Store) *DeploymentService {
	return &DeploymentService{store: store}
}

// Create validates and inserts a deployment. Uniqueness of name and
// subdomain is enforced by the store's unique indexes, not by a prior read.
func (s *DeploymentService) Create(ctx context.Context, name, subdomain string) (*domain.Deployment, error) {
	if err := validateDeployment(name, subdomain); err != nil {
		return nil, err
	}

	deployment := &domain.Deployment{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Subdomain: subdomain,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.Deployments().Create(ctx, deployment); err != nil {
		return nil, err
	}
	return deployment, nil
}

func (s *DeploymentService) Lookup(ctx context.Context, field domain.LookupField, value string) (*domain.Deployment, error) {
	switch field {
	case domain.LookupByID, domain.LookupByName, domain.LookupBySubdomain:
	default:
		return nil, domain.ErrInvalidLookupField
	}

	if field == domain.LookupByID {
		if _, err := uuid.Parse(value); err != nil {
			return nil, domain.ErrDeploymentNotFound
		}
	}

	return s.store.Deployments().GetByField(ctx, field, value)
}

// ListAll returns every deployment with its versions, oldest first.
func (s *DeploymentService) ListAll(ctx context.Context) ([]*domain.Deployment, error) {
	deployments, err := s.store.Deployments().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	return deployments, nil
}

// Delete removes the deployment row; versions go with it through the
// foreign-key cascade.
func (s *DeploymentService) Delete(ctx context.Context, deployment *domain.Deployment) error {
	return s.store.Deployments().Delete(ctx, deployment.ID)
}
