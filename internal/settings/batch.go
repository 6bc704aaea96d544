package settings

import (
	"errors"

	"github.com/keepstone/keepstone/internal/store"
)

// BatchResult reports which keys of a multi-key update were applied and
// which were rejected.
type BatchResult struct {
	Applied  []string    `json:"applied"`
	Rejected []Rejection `json:"rejected"`
}

// Rejection names a key that was not applied and why.
type Rejection struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func newBatchResult() BatchResult {
	return BatchResult{Applied: []string{}, Rejected: []Rejection{}}
}

func (b *BatchResult) add(key string, err error) {
	if err == nil {
		b.Applied = append(b.Applied, key)
		return
	}
	b.Rejected = append(b.Rejected, Rejection{Key: key, Reason: Reason(err), Err: err})
}

// OK reports whether every key was applied.
func (b BatchResult) OK() bool {
	return len(b.Rejected) == 0
}

// Reason returns a short, client-safe description of a settings error.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotEditable):
		return "setting is not editable"
	case errors.Is(err, ErrProjectScoped):
		return "setting can only be changed per project"
	case errors.Is(err, ErrNotProjectScoped):
		return "setting cannot be changed per project"
	case errors.Is(err, ErrInvalidValue):
		return "value does not match the setting's type"
	case errors.Is(err, ErrSerialization):
		return "value cannot be stored"
	case errors.Is(err, ErrConfigAbsent):
		return "setting not found"
	case errors.Is(err, store.ErrNotFound):
		return "project not found"
	default:
		return "setting could not be saved"
	}
}
