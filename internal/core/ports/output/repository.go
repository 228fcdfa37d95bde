package ports

import (
	"context"

	"github.com/google/uuid"

	"site-deploy-service/internal/core/domain"
)

type DeploymentRepository interface {
	Create(ctx context.Context, deployment *domain.Deployment) error
	// GetByField resolves a deployment with its versions loaded.
	GetByField(ctx context.Context, field domain.LookupField, value string) (*domain.Deployment, error)
	// Lock takes the row lock serializing transitions on one deployment.
	// Only meaningful inside WithinTx.
	Lock(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*domain.Deployment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type VersionRepository interface {
	Create(ctx context.Context, version *domain.Version) error
	GetByLabel(ctx context.Context, deploymentID uuid.UUID, label string) (*domain.Version, error)
	ListByDeployment(ctx context.Context, deploymentID uuid.UUID) ([]*domain.Version, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Store groups the repositories that take part in lifecycle transactions.
type Store interface {
	Deployments() DeploymentRepository
	Versions() VersionRepository

	// WithinTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
