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

// Operation names accepted by Fail.
const (
	OpList   = "list"
	OpGet    = "get"
	OpUpsert = "upsert"
	OpInsert = "insert"
	OpDelete = "delete"
	OpBegin  = "begin"
)

type failures struct {
	mu   sync.Mutex
	errs map[string]error
}

func (f *failures) set(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = make(map[string]error)
	}
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

func (f *failures) get(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}

// OverrideStore is an in-memory store.ConfigOverrideStore. Transactions
// snapshot the rows and restore them when the callback fails.
type OverrideStore struct {
	mu     sync.Mutex
	rows   map[string]domain.ConfigOverride
	nextID int64
	fail   failures
}

var _ store.ConfigOverrideStore = (*OverrideStore)(nil)

// NewOverrideStore returns an empty store.
func NewOverrideStore() *OverrideStore {
	return &OverrideStore{rows: make(map[string]domain.ConfigOverride)}
}

// Fail makes every later call of op return err. A nil err clears it.
func (s *OverrideStore) Fail(op string, err error) {
	s.fail.set(op, err)
}

// Values returns the stored text of every row keyed by config key.
func (s *OverrideStore) Values() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.rows))
	for k, row := range s.rows {
		out[k] = row.Value
	}
	return out
}

// Put stores a raw row, bypassing validation.
func (s *OverrideStore) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := time.Now().UTC()
	s.rows[key] = domain.ConfigOverride{ID: s.nextID, Key: key, Value: value, CreatedAt: now, UpdatedAt: now}
}

// List implements store.ConfigOverrideStore.
func (s *OverrideStore) List(ctx context.Context) ([]*domain.ConfigOverride, error) {
	if err := s.fail.get(OpList); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.ConfigOverride, 0, len(s.rows))
	for _, row := range s.rows {
		row := row
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Get implements store.ConfigOverrideStore.
func (s *OverrideStore) Get(ctx context.Context, key string) (*domain.ConfigOverride, error) {
	if err := s.fail.get(OpGet); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key]
	if !ok {
		return nil, store.ErrConfigOverrideNotFound
	}
	return &row, nil
}

// Upsert implements store.ConfigOverrideStore.
func (s *OverrideStore) Upsert(ctx context.Context, o *domain.ConfigOverride) error {
	if err := s.fail.get(OpUpsert); err != nil {
		return err
	}
	if err := o.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	row, ok := s.rows[o.Key]
	if !ok {
		s.nextID++
		row = domain.ConfigOverride{ID: s.nextID, Key: o.Key, CreatedAt: now}
	}
	row.Value = o.Value
	row.Description = o.Description
	row.UpdatedAt = now
	s.rows[o.Key] = row
	return nil
}

// InsertMissing implements store.ConfigOverrideStore.
func (s *OverrideStore) InsertMissing(ctx context.Context, overrides []*domain.ConfigOverride) (int, error) {
	if err := s.fail.get(OpInsert); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	now := time.Now().UTC()
	for _, o := range overrides {
		if _, ok := s.rows[o.Key]; ok {
			continue
		}
		s.nextID++
		s.rows[o.Key] = domain.ConfigOverride{
			ID: s.nextID, Key: o.Key, Value: o.Value, Description: o.Description,
			CreatedAt: now, UpdatedAt: now,
		}
		added++
	}
	return added, nil
}

// DeleteAll implements store.ConfigOverrideStore.
func (s *OverrideStore) DeleteAll(ctx context.Context) error {
	if err := s.fail.get(OpDelete); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[string]domain.ConfigOverride)
	return nil
}

// RunInTransaction implements store.ConfigOverrideStore.
func (s *OverrideStore) RunInTransaction(
	ctx context.Context,
	fn func(ctx context.Context, tx store.ConfigOverrideStore) error,
) error {
	if err := s.fail.get(OpBegin); err != nil {
		return err
	}
	s.mu.Lock()
	snapshot := make(map[string]domain.ConfigOverride, len(s.rows))
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

// WithTx implements store.ConfigOverrideStore. The in-memory store has no
// transactions of its own, so it returns itself.
func (s *OverrideStore) WithTx(tx *sql.Tx) store.ConfigOverrideStore {
	return s
}
