package services

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"site-deploy-service/internal/core/domain"
	"site-deploy-service/internal/core/ports/output"
)

// LifecycleService drives the create/activate/delete transitions of a
// deployment's versions. Row changes of one transition share a single
// transaction; the filesystem work is sequenced around it so that a failure
// before commit leaves neither rows nor directories behind. Directories are
// only removed while the deployment's lock is held.
type LifecycleService struct {
	store    ports.Store
	registry *DeploymentService
	archives ports.ArchiveStore
}

func NewLifecycleService(store ports.Store, registry *DeploymentService, archives ports.ArchiveStore) *LifecycleService {
	return &LifecycleService{store: store, registry: registry, archives: archives}
}

// InitialUpload creates a deployment together with its first, active
// version and publishes the archive as "latest". Extraction happens inside
// the transaction: if it fails, the partially written directory is removed
// before the rollback releases the pending rows.
func (s *LifecycleService) InitialUpload(ctx context.Context, name, subdomain, version string, archive io.Reader) (*domain.Deployment, error) {
	if err := validateDeployment(name, subdomain); err != nil {
		return nil, err
	}
	if err := validateVersion(version); err != nil {
		return nil, err
	}
	if archive == nil {
		return nil, domain.ErrMissingArchive
	}

	var created *domain.Deployment

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Store) error {
		deployment, err := s.registry.withStore(tx).Create(ctx, name, subdomain)
		if err != nil {
			return err
		}

		v := newVersion(deployment.ID, version)
		if err := tx.Versions().Create(ctx, v); err != nil {
			return err
		}

		// The pending insert reserves the subdomain, so anything already
		// on disk under it was left by an earlier failed commit.
		if err := s.archives.Delete(ctx, s.archives.DeploymentPath(subdomain)); err != nil {
			return err
		}
		if err := s.publish(ctx, subdomain, version, archive); err != nil {
			s.discard(ctx, s.archives.DeploymentPath(subdomain))
			return err
		}

		deployment.Versions = []*domain.Version{v}
		created = deployment
		return nil
	})
	if err != nil {
		if created != nil {
			// Commit failed after publishing. Once the rollback ran, a
			// concurrent upload for the same subdomain may already own the
			// directory, so it is left for the next upload to clear.
			log.WithError(err).WithField("path", s.archives.DeploymentPath(subdomain)).
				Warn("commit failed after extraction, hosting directory left in place")
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"deployment": created.ID,
		"subdomain":  subdomain,
		"version":    version,
	}).Info("deployment created")

	return created, nil
}

func (s *LifecycleService) publish(ctx context.Context, subdomain, version string, archive io.Reader) error {
	if err := s.archives.Extract(ctx, archive, s.archives.VersionPath(subdomain, version)); err != nil {
		return err
	}
	return s.archives.UpdatePointer(ctx, subdomain, version)
}

// NewVersionUpload adds an active version to an existing deployment and
// deactivates the previous one. The "latest" pointer moves only after the
// rows are committed; a failure at that point is reported as a
// PartialFailureError together with the committed version.
func (s *LifecycleService) NewVersionUpload(ctx context.Context, deployment *domain.Deployment, version string, archive io.Reader) (*domain.Version, error) {
	if err := validateVersion(version); err != nil {
		return nil, err
	}
	if archive == nil {
		return nil, domain.ErrMissingArchive
	}
	if deployment.HasVersion(version) {
		return nil, domain.ErrVersionConflict
	}

	dest := s.archives.VersionPath(deployment.Subdomain, version)

	var created *domain.Version

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Store) error {
		if err := tx.Deployments().Lock(ctx, deployment.ID); err != nil {
			return err
		}

		versions, err := tx.Versions().ListByDeployment(ctx, deployment.ID)
		if err != nil {
			return err
		}
		for _, v := range versions {
			if v.Version == version {
				return domain.ErrVersionConflict
			}
		}

		// The old version is switched off before the insert so the
		// one-active-per-deployment index never sees two.
		for _, v := range versions {
			if v.Active {
				if err := tx.Versions().SetActive(ctx, v.ID, false); err != nil {
					return err
				}
			}
		}

		v := newVersion(deployment.ID, version)
		if err := tx.Versions().Create(ctx, v); err != nil {
			return err
		}

		// Cleanup runs before returning so the row lock still keeps other
		// transitions out of dest.
		if err := s.archives.Extract(ctx, archive, dest); err != nil {
			s.discard(ctx, dest)
			return err
		}

		created = v
		return nil
	})
	if err != nil {
		if created != nil {
			s.reconcile(ctx, deployment, version)
		}
		return nil, err
	}

	fields := log.Fields{"deployment": deployment.ID, "subdomain": deployment.Subdomain, "version": version}

	err = s.settle(ctx, deployment, func(ctx context.Context, tx ports.Store) error {
		return s.repoint(ctx, tx, deployment)
	})
	if err != nil {
		log.WithFields(fields).WithError(err).Error("version committed but latest pointer was not updated")
		return created, &domain.PartialFailureError{
			DeploymentID: deployment.ID.String(),
			Version:      version,
			Step:         "latest pointer update",
			Err:          err,
		}
	}

	log.WithFields(fields).Info("version activated")
	return created, nil
}

// GetVersion resolves one version of a deployment by its label.
func (s *LifecycleService) GetVersion(ctx context.Context, deployment *domain.Deployment, version string) (*domain.Version, error) {
	return s.store.Versions().GetByLabel(ctx, deployment.ID, version)
}

// DeleteVersion removes one version. Removing the last version removes the
// deployment and its whole hosting directory. Removing the active version
// while others remain promotes the most recently created survivor.
func (s *LifecycleService) DeleteVersion(ctx context.Context, deployment *domain.Deployment, version string) error {
	var (
		removed  bool
		promoted *domain.Version
	)

	fields := log.Fields{"deployment": deployment.ID, "subdomain": deployment.Subdomain, "version": version}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Store) error {
		if err := tx.Deployments().Lock(ctx, deployment.ID); err != nil {
			return err
		}

		target, err := tx.Versions().GetByLabel(ctx, deployment.ID, version)
		if err != nil {
			return err
		}
		if err := tx.Versions().Delete(ctx, target.ID); err != nil {
			return err
		}

		remaining, err := tx.Versions().ListByDeployment(ctx, deployment.ID)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			if err := s.registry.withStore(tx).Delete(ctx, deployment); err != nil {
				return err
			}
			log.WithFields(fields).Info("last version deleted, removing deployment")
			removed = true
			return s.removeDeploymentDir(ctx, deployment)
		}

		if target.Active {
			promoted = remaining[len(remaining)-1]
			if err := tx.Versions().SetActive(ctx, promoted.ID, true); err != nil {
				return err
			}
			promoted.Active = true
		}
		return nil
	})
	if err != nil || removed {
		return err
	}

	err = s.settle(ctx, deployment, func(ctx context.Context, tx ports.Store) error {
		if promoted != nil {
			if err := s.repoint(ctx, tx, deployment); err != nil {
				log.WithFields(fields).WithError(err).Error("active version deleted but latest pointer was not moved")
				return &domain.PartialFailureError{
					DeploymentID: deployment.ID.String(),
					Version:      promoted.Version,
					Step:         "latest pointer update",
					Err:          err,
				}
			}
			log.WithFields(fields).WithField("promoted", promoted.Version).Info("active version deleted, promoted previous version")
		}
		return s.removeVersionDir(ctx, tx, deployment, version)
	})
	if err != nil && !errors.Is(err, domain.ErrPartialFailure) {
		log.WithFields(fields).WithError(err).Error("version row deleted but hosting directory was not removed")
		return &domain.PartialFailureError{
			DeploymentID: deployment.ID.String(),
			Version:      version,
			Step:         "hosting directory removal",
			Err:          err,
		}
	}
	return err
}

// DeleteDeployment removes the deployment, every version row and the
// hosting directory.
func (s *LifecycleService) DeleteDeployment(ctx context.Context, deployment *domain.Deployment) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Store) error {
		if err := tx.Deployments().Lock(ctx, deployment.ID); err != nil {
			return err
		}
		if err := s.registry.withStore(tx).Delete(ctx, deployment); err != nil {
			return err
		}
		return s.removeDeploymentDir(ctx, deployment)
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{"deployment": deployment.ID, "subdomain": deployment.Subdomain}).Info("deployment deleted")
	return nil
}

// removeDeploymentDir runs inside the deleting transaction, after the rows
// are gone but before commit. Until then the subdomain stays reserved, so no
// new deployment can write below the directory being removed. A failure
// rolls the deletion back.
func (s *LifecycleService) removeDeploymentDir(ctx context.Context, deployment *domain.Deployment) error {
	path := s.archives.DeploymentPath(deployment.Subdomain)
	if err := s.archives.Delete(context.WithoutCancel(ctx), path); err != nil {
		log.WithError(err).WithField("path", path).Error("failed to remove hosting directory, deletion rolled back")
		return err
	}
	return nil
}

// removeVersionDir deletes a version directory unless a committed row owns
// the label again. Must run under the deployment lock.
func (s *LifecycleService) removeVersionDir(ctx context.Context, tx ports.Store, deployment *domain.Deployment, version string) error {
	_, err := tx.Versions().GetByLabel(ctx, deployment.ID, version)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrVersionNotFound) {
		return err
	}
	return s.archives.Delete(ctx, s.archives.VersionPath(deployment.Subdomain, version))
}

// settle runs the filesystem follow-up of a committed transition under the
// deployment lock, so it cannot interleave with the next transition on the
// same deployment. A deployment deleted in the meantime took its directory
// with it and leaves nothing to do.
func (s *LifecycleService) settle(ctx context.Context, deployment *domain.Deployment, fn func(ctx context.Context, tx ports.Store) error) error {
	err := s.store.WithinTx(context.WithoutCancel(ctx), func(ctx context.Context, tx ports.Store) error {
		if err := tx.Deployments().Lock(ctx, deployment.ID); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
	if errors.Is(err, domain.ErrDeploymentNotFound) {
		return nil
	}
	return err
}

// repoint moves latest to whichever version is active now. A later
// transition may already have superseded the one that triggered the call.
func (s *LifecycleService) repoint(ctx context.Context, tx ports.Store, deployment *domain.Deployment) error {
	versions, err := tx.Versions().ListByDeployment(ctx, deployment.ID)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if v.Active {
			return s.archives.UpdatePointer(ctx, deployment.Subdomain, v.Version)
		}
	}
	return nil
}

// discard removes a directory written by a transition that is about to roll
// back. Callers hold the lock that guards path.
func (s *LifecycleService) discard(ctx context.Context, path string) {
	if err := s.archives.Delete(context.WithoutCancel(ctx), path); err != nil {
		log.WithError(err).WithField("path", path).Warn("failed to clean up after rolled back upload")
	}
}

// reconcile removes the directory of a version whose commit failed, unless
// the commit did land or another upload of the same label got in first.
func (s *LifecycleService) reconcile(ctx context.Context, deployment *domain.Deployment, version string) {
	err := s.settle(ctx, deployment, func(ctx context.Context, tx ports.Store) error {
		return s.removeVersionDir(ctx, tx, deployment, version)
	})
	if err != nil {
		log.WithError(err).WithField("path", s.archives.VersionPath(deployment.Subdomain, version)).
			Warn("failed to clean up after failed commit")
	}
}

func newVersion(deploymentID uuid.UUID, label string) *domain.Version {
	return &domain.Version{
		ID:           uuid.New(),
		DeploymentID: deploymentID,
		Version:      label,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
}
