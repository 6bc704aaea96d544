package settingstest

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/keepstone/keepstone/internal/domain"
	"github.com/keepstone/keepstone/internal/store"
)

type projectKey struct {
	projectID int64
	key       string
}

// ProjectOverrideStore is an in-memory store.ProjectConfigOverrideStore.
type ProjectOverrideStore struct {
	mu     sync.Mutex
	rows   map[projectKey]domain.ProjectConfigOverride
	nextID int64
	fail   failures
}

var _ store.ProjectConfigOverrideStore = (*ProjectOverrideStore)(nil)

// NewProjectOverrideStore returns an empty store.
func NewProjectOverrideStore() *ProjectOverrideStore {
	return &ProjectOverrideStore{rows: make(map[projectKey]domain.ProjectConfigOverride)}
}

// Fail makes every later call of op return err. A nil err clears it.
func (s *ProjectOverrideStore) Fail(op string, err error) {
	s.fail.set(op, err)
}

// Values returns the stored text of one project's rows keyed by config key.
func (s *ProjectOverrideStore) Values(projectID int64) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string)
	for k, row := range s.rows {
		if k.projectID == projectID {
			out[k.key] = row.Value
		}
	}
	return out
}

// Len returns the total number of rows across all projects.
func (s *ProjectOverrideStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// ListByProject implements store.ProjectConfigOverrideStore.
func (s *ProjectOverrideStore) ListByProject(ctx context.Context, projectID int64) ([]*domain.ProjectConfigOverride, error) {
	if err := s.fail.get(OpList); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.ProjectConfigOverride
	for k, row := range s.rows {
		if k.projectID == projectID {
			row := row
			out = append(out, &row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Get implements store.ProjectConfigOverrideStore.
func (s *ProjectOverrideStore) Get(ctx context.Context, projectID int64, key string) (*domain.ProjectConfigOverride, error) {
	if err := s.fail.get(OpGet); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[projectKey{projectID, key}]
	if !ok {
		return nil, store.ErrConfigOverrideNotFound
	}
	return &row, nil
}

// Upsert implements store.ProjectConfigOverrideStore.
func (s *ProjectOverrideStore) Upsert(ctx context.Context, o *domain.ProjectConfigOverride) error {
	if err := s.fail.get(OpUpsert); err != nil {
		return err
	}
	if err := o.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	k := projectKey{o.ProjectID, o.Key}
	row, ok := s.rows[k]
	if !ok {
		s.nextID++
		row = domain.ProjectConfigOverride{ID: s.nextID, ProjectID: o.ProjectID, Key: o.Key, CreatedAt: now}
	}
	row.Value = o.Value
	row.Description = o.Description
	row.UpdatedAt = now
	s.rows[k] = row
	return nil
}

// InsertMissing implements store.ProjectConfigOverrideStore.
func (s *ProjectOverrideStore) InsertMissing(
	ctx context.Context,
	projectID int64,
	overrides []*domain.ProjectConfigOverride,
) (int, error) {
	if err := s.fail.get(OpInsert); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	now := time.Now().UTC()
	for _, o := range overrides {
		k := projectKey{projectID, o.Key}
		if _, ok := s.rows[k]; ok {
			continue
		}
		s.nextID++
		s.rows[k] = domain.ProjectConfigOverride{
			ID: s.nextID, ProjectID: projectID, Key: o.Key, Value: o.Value,
			Description: o.Description, CreatedAt: now, UpdatedAt: now,
		}
		added++
	}
	return added, nil
}

// RunInTransaction implements store.ProjectConfigOverrideStore.
func (s *ProjectOverrideStore) RunInTransaction(
	ctx context.Context,
	fn func(ctx context.Context, tx store.ProjectConfigOverrideStore) error,
) error {
	if err := s.fail.get(OpBegin); err != nil {
		return err
	}
	s.mu.Lock()
	snapshot := make(map[projectKey]domain.ProjectConfigOverride, len(s.rows))
	for k, v := range s.rows {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.rows = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// WithTx implements store.ProjectConfigOverrideStore.
func (s *ProjectOverrideStore) WithTx(tx *sql.Tx) store.ProjectConfigOverrideStore {
	return s
}

func (s *ProjectOverrideStore) deleteProject(projectID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.rows {
		if k.projectID == projectID {
			delete(s.rows, k)
		}
	}
}

// ProjectStore is an in-memory store.ProjectStore. Deleting a project also
// deletes its rows from the linked ProjectOverrideStore.
type ProjectStore struct {
	mu        sync.Mutex
	projects  map[int64]domain.Project
	nextID    int64
	overrides *ProjectOverrideStore
	fail      failures
}

var _ store.ProjectStore = (*ProjectStore)(nil)

// NewProjectStore returns an empty store cascading deletes to overrides,
// which may be nil.
func NewProjectStore(overrides *ProjectOverrideStore) *ProjectStore {
	return &ProjectStore{projects: make(map[int64]domain.Project), overrides: overrides}
}

// Fail makes every later call of op return err. A nil err clears it.
func (s *ProjectStore) Fail(op string, err error) {
	s.fail.set(op, err)
}

// Add stores a project with the given ID and name, for test setup.
func (s *ProjectStore) Add(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[id] = domain.Project{ID: id, Name: name, CreatedAt: time.Now().UTC()}
	if id > s.nextID {
		s.nextID = id
	}
}

// Create implements store.ProjectStore.
func (s *ProjectStore) Create(ctx context.Context, p *domain.Project) error {
	if err := s.fail.get(OpInsert); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.projects {
		if existing.Name == p.Name {
			return store.ErrProjectNameExists
		}
	}
	s.nextID++
	p.ID = s.nextID
	s.projects[p.ID] = *p
	return nil
}

// GetByID implements store.ProjectStore.
func (s *ProjectStore) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	if err := s.fail.get(OpGet); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	return &p, nil
}

// List implements store.ProjectStore.
func (s *ProjectStore) List(ctx context.Context) ([]*domain.Project, error) {
	if err := s.fail.get(OpList); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete implements store.ProjectStore.
func (s *ProjectStore) Delete(ctx context.Context, id int64) error {
	if err := s.fail.get(OpDelete); err != nil {
		return err
	}
	s.mu.Lock()
	_, ok := s.projects[id]
	delete(s.projects, id)
	s.mu.Unlock()
	if !ok {
		return store.ErrProjectNotFound
	}
	if s.overrides != nil {
		s.overrides.deleteProject(id)
	}
	return nil
}

// WithTx implements store.ProjectStore.
func (s *ProjectStore) WithTx(tx *sql.Tx) store.ProjectStore {
	return s
}
