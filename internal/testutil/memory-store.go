package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"site-deploy-service/internal/core/domain"
	"site-deploy-service/internal/core/ports/output"
)

// MemoryStore is an in-memory ports.Store with the same unique constraints,
// cascade and transaction semantics as the postgres schema. Transactions are
// serialized and work on a private copy that replaces the shared state on
// commit.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	state *memState

	// CommitErr, when set, makes the next commit fail with it.
	CommitErr error
}

type memState struct {
	deployments []domain.Deployment
	versions    []domain.Version
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{}}
}

func (s *memState) clone() *memState {
	return &memState{
		deployments: append([]domain.Deployment(nil), s.deployments...),
		versions:    append([]domain.Version(nil), s.versions...),
	}
}

func (m *MemoryStore) Deployments() ports.DeploymentRepository {
	return &memDeploymentRepo{view: m.sharedView()}
}

func (m *MemoryStore) Versions() ports.VersionRepository {
	return &memVersionRepo{view: m.sharedView()}
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	work := m.state.clone()
	m.mu.Unlock()

	tx := &memTx{view: &memView{state: func() *memState { return work }, lock: func() func() { return func() {} }}}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	if m.CommitErr != nil {
		err := m.CommitErr
		m.CommitErr = nil
		return err
	}

	m.mu.Lock()
	m.state = work
	m.mu.Unlock()
	return nil
}

// Snapshot returns every version row, for invariant checks in tests.
func (m *MemoryStore) Snapshot() ([]domain.Deployment, []domain.Version) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Deployment(nil), m.state.deployments...), append([]domain.Version(nil), m.state.versions...)
}

func (m *MemoryStore) sharedView() *memView {
	return &memView{
		state: func() *memState { return m.state },
		lock: func() func() {
			m.mu.Lock()
			return m.mu.Unlock
		},
	}
}

type memView struct {
	state func() *memState
	lock  func() func()
}

type memTx struct {
	view *memView
}

func (t *memTx) Deployments() ports.DeploymentRepository { return &memDeploymentRepo{view: t.view} }
func (t *memTx) Versions() ports.VersionRepository       { return &memVersionRepo{view: t.view} }

func (t *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Store) error) error {
	return fn(ctx, t)
}

// ============================================================================
// Deployments
// ============================================================================

type memDeploymentRepo struct {
	view *memView
}

func (r *memDeploymentRepo) Create(ctx context.Context, deployment *domain.Deployment) error {
	defer r.view.lock()()
	st := r.view.state()

	for _, d := range st.deployments {
		if d.Name == deployment.Name {
			return domain.ErrNameConflict
		}
		if d.Subdomain == deployment.Subdomain {
			return domain.ErrSubdomainConflict
		}
	}

	row := *deployment
	row.Versions = nil
	st.deployments = append(st.deployments, row)
	return nil
}

func (r *memDeploymentRepo) GetByField(ctx context.Context, field domain.LookupField, value string) (*domain.Deployment, error) {
	defer r.view.lock()()
	st := r.view.state()

	for _, d := range st.deployments {
		var match bool
		switch field {
		case domain.LookupByID:
			match = d.ID.String() == value
		case domain.LookupByName:
			match = d.Name == value
		case domain.LookupBySubdomain:
			match = d.Subdomain == value
		default:
			return nil, domain.ErrInvalidLookupField
		}
		if match {
			return withVersions(st, d), nil
		}
	}
	return nil, domain.ErrDeploymentNotFound
}

func (r *memDeploymentRepo) Lock(ctx context.Context, id uuid.UUID) error {
	defer r.view.lock()()
	for _, d := range r.view.state().deployments {
		if d.ID == id {
			return nil
		}
	}
	return domain.ErrDeploymentNotFound
}

func (r *memDeploymentRepo) List(ctx context.Context) ([]*domain.Deployment, error) {
	defer r.view.lock()()
	st := r.view.state()

	out := make([]*domain.Deployment, 0, len(st.deployments))
	for _, d := range st.deployments {
		out = append(out, withVersions(st, d))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memDeploymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.view.lock()()
	st := r.view.state()

	idx := -1
	for i, d := range st.deployments {
		if d.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrDeploymentNotFound
	}
	st.deployments = append(st.deployments[:idx:idx], st.deployments[idx+1:]...)

	kept := st.versions[:0:0]
	for _, v := range st.versions {
		if v.DeploymentID != id {
			kept = append(kept, v)
		}
	}
	st.versions = kept
	return nil
}

func withVersions(st *memState, d domain.Deployment) *domain.Deployment {
	out := d
	out.Versions = versionsOf(st, d.ID)
	return &out
}

func versionsOf(st *memState, deploymentID uuid.UUID) []*domain.Version {
	var out []*domain.Version
	for _, v := range st.versions {
		if v.DeploymentID == deploymentID {
			row := v
			out = append(out, &row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ============================================================================
// Versions
// ============================================================================

type memVersionRepo struct {
	view *memView
}

var errOrphanVersion = errors.New("insert version: deployment does not exist")

func (r *memVersionRepo) Create(ctx context.Context, version *domain.Version) error {
	defer r.view.lock()()
	st := r.view.state()

	found := false
	for _, d := range st.deployments {
		if d.ID == version.DeploymentID {
			found = true
			break
		}
	}
	if !found {
		return errOrphanVersion
	}

	for _, v := range st.versions {
		if v.DeploymentID != version.DeploymentID {
			continue
		}
		if v.Version == version.Version {
			return domain.ErrVersionConflict
		}
		if v.Active && version.Active {
			return errors.New("insert version: second active version for deployment")
		}
	}

	st.versions = append(st.versions, *version)
	return nil
}

func (r *memVersionRepo) GetByLabel(ctx context.Context, deploymentID uuid.UUID, label string) (*domain.Version, error) {
	defer r.view.lock()()
	for _, v := range r.view.state().versions {
		if v.DeploymentID == deploymentID && v.Version == label {
			row := v
			return &row, nil
		}
	}
	return nil, domain.ErrVersionNotFound
}

func (r *memVersionRepo) ListByDeployment(ctx context.Context, deploymentID uuid.UUID) ([]*domain.Version, error) {
	defer r.view.lock()()
	return versionsOf(r.view.state(), deploymentID), nil
}

func (r *memVersionRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	defer r.view.lock()()
	st := r.view.state()

	idx := -1
	for i, v := range st.versions {
		if v.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrVersionNotFound
	}

	if active {
		for _, v := range st.versions {
			if v.DeploymentID == st.versions[idx].DeploymentID && v.ID != id && v.Active {
				return errors.New("update version: second active version for deployment")
			}
		}
	}
	st.versions[idx].Active = active
	return nil
}

func (r *memVersionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.view.lock()()
	st := r.view.state()

	for i, v := range st.versions {
		if v.ID == id {
			st.versions = append(st.versions[:i:i], st.versions[i+1:]...)
			return nil
		}
	}
	return domain.ErrVersionNotFound
}
