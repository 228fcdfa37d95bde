package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"site-deploy-service/internal/core/domain"
)

const versionColumns = `id, deployment_id, version, active, created_at`

type versionRepo struct {
	db dbtx
}

func (r *versionRepo) Create(ctx context.Context, v *domain.Version) error {
	query := `
		INSERT INTO deployment_versions (id, deployment_id, version, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, v.ID, v.DeploymentID, v.Version, v.Active, v.CreatedAt)
	if err != nil {
		code, constraint := pgErrorCode(err)
		switch {
		case code == codeUniqueViolation && constraint == "deployment_versions_one_active_idx":
			return fmt.Errorf("%w: deployment already has an active version", domain.ErrConflict)
		case code == codeUniqueViolation:
			return domain.ErrVersionConflict
		case code == codeForeignKeyViolation:
			return domain.ErrDeploymentNotFound
		}
		return fmt.Errorf("create version: %w", err)
	}
	return nil
}

func (r *versionRepo) GetByLabel(ctx context.Context, deploymentID uuid.UUID, label string) (*domain.Version, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM deployment_versions
		WHERE deployment_id = $1 AND version = $2
	`
	v, err := scanVersion(r.db.QueryRow(ctx, query, deploymentID, label))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVersionNotFound
		}
		return nil, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

func (r *versionRepo) ListByDeployment(ctx context.Context, deploymentID uuid.UUID) ([]*domain.Version, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM deployment_versions
		WHERE deployment_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []*domain.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version row: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate version rows: %w", err)
	}
	return versions, nil
}

func (r *versionRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.db.Exec(ctx, `UPDATE deployment_versions SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		if code, _ := pgErrorCode(err); code == codeUniqueViolation {
			return fmt.Errorf("%w: deployment already has an active version", domain.ErrConflict)
		}
		return fmt.Errorf("update version: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrVersionNotFound
	}
	return nil
}

func (r *versionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM deployment_versions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrVersionNotFound
	}
	return nil
}

// scanVersion scans a Version from a pgx.Row or pgx.Rows in versionColumns order.
func scanVersion(row pgx.Row) (*domain.Version, error) {
	v := &domain.Version{}
	if err := row.Scan(&v.ID, &v.DeploymentID, &v.Version, &v.Active, &v.CreatedAt); err != nil {
		return nil, err
	}
	return v, nil
}
