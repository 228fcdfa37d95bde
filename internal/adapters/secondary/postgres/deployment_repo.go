package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"site-deploy-service/internal/core/domain"
)

type deploymentRepo struct {
	db dbtx
}

func (r *deploymentRepo) Create(ctx context.Context, d *domain.Deployment) error {
	query := `
		INSERT INTO deployments (id, name, subdomain, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, d.ID, d.Name, d.Subdomain, d.CreatedAt)
	if err != nil {
		code, constraint := pgErrorCode(err)
		if code == codeUniqueViolation {
			if constraint == "deployments_subdomain_key" {
				return domain.ErrSubdomainConflict
			}
			return domain.ErrNameConflict
		}
		return fmt.Errorf("create deployment: %w", err)
	}
	return nil
}

func (r *deploymentRepo) GetByField(ctx context.Context, field domain.LookupField, value string) (*domain.Deployment, error) {
	var (
		column string
		arg    any
	)
	switch field {
	case domain.LookupByID:
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, domain.ErrDeploymentNotFound
		}
		column, arg = "id", id
	case domain.LookupByName:
		column, arg = "name", value
	case domain.LookupBySubdomain:
		column, arg = "subdomain", value
	default:
		return nil, domain.ErrInvalidLookupField
	}

	query := fmt.Sprintf(`
		SELECT id, name, subdomain, created_at
		FROM deployments
		WHERE %s = $1
	`, column)

	d := &domain.Deployment{}
	err := r.db.QueryRow(ctx, query, arg).Scan(&d.ID, &d.Name, &d.Subdomain, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("get deployment by %s: %w", column, err)
	}

	versions, err := (&versionRepo{db: r.db}).ListByDeployment(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	d.Versions = versions

	return d, nil
}

// Lock takes a row lock held until the surrounding transaction ends.
func (r *deploymentRepo) Lock(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT id FROM deployments WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrDeploymentNotFound
		}
		return fmt.Errorf("lock deployment: %w", err)
	}
	return nil
}

func (r *deploymentRepo) List(ctx context.Context) ([]*domain.Deployment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, subdomain, created_at
		FROM deployments
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	defer rows.Close()

	var deployments []*domain.Deployment
	byID := make(map[uuid.UUID]*domain.Deployment)
	for rows.Next() {
		d := &domain.Deployment{}
		if err := rows.Scan(&d.ID, &d.Name, &d.Subdomain, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deployment row: %w", err)
		}
		deployments = append(deployments, d)
		byID[d.ID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployment rows: %w", err)
	}

	versionRows, err := r.db.Query(ctx, `
		SELECT `+versionColumns+`
		FROM deployment_versions
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer versionRows.Close()

	for versionRows.Next() {
		v, err := scanVersion(versionRows)
		if err != nil {
			return nil, fmt.Errorf("scan version row: %w", err)
		}
		if d, ok := byID[v.DeploymentID]; ok {
			d.Versions = append(d.Versions, v)
		}
	}
	if err := versionRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate version rows: %w", err)
	}

	return deployments, nil
}

func (r *deploymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM deployments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete deployment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDeploymentNotFound
	}
	return nil
}
