package settings

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Defaults is a parsed defaults document. It is immutable once built.
type Defaults struct {
	clean map[string]any
	items []Item
	index map[string]int
}

// ParseDefaults parses a YAML defaults document.
func ParseDefaults(data []byte) (*Defaults, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefaults, err)
	}
	if raw == nil {
		return NewDefaults(nil)
	}
	tree, ok := fromYAML(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidDefaults)
	}
	return NewDefaults(tree)
}

// LoadDefaultsFile reads and parses the defaults document at path.
func LoadDefaultsFile(path string) (*Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read defaults file %s: %w", path, err)
	}
	d, err := ParseDefaults(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse defaults file %s: %w", path, err)
	}
	return d, nil
}

// NewDefaults builds Defaults from an already decoded tree.
func NewDefaults(tree map[string]any) (*Defaults, error) {
	if tree == nil {
		tree = map[string]any{}
	}
	items, err := Flatten(tree)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(items))
	for i, item := range items {
		index[item.Key] = i
	}
	return &Defaults{
		clean: Clean(tree),
		items: items,
		index: index,
	}, nil
}

// Items returns every leaf of the document ordered by key.
func (d *Defaults) Items() []Item {
	out := make([]Item, len(d.items))
	copy(out, d.items)
	return out
}

// Item returns the leaf with the given key.
func (d *Defaults) Item(key string) (Item, bool) {
	i, ok := d.index[key]
	if !ok {
		return Item{}, false
	}
	return d.items[i], true
}

// CleanTree returns a fresh copy of the defaults with metadata stripped.
func (d *Defaults) CleanTree() map[string]any {
	return deepCopy(d.clean).(map[string]any)
}

// GlobalItems returns the editable items stored in the global override table.
func (d *Defaults) GlobalItems() []Item {
	var out []Item
	for _, item := range d.items {
		if item.Editable && !item.ProjectScoped {
			out = append(out, item)
		}
	}
	return out
}

// ProjectItems returns the items that hold an independent value per project.
func (d *Defaults) ProjectItems() []Item {
	var out []Item
	for _, item := range d.items {
		if item.ProjectScoped {
			out = append(out, item)
		}
	}
	return out
}

// ProjectScopedKeys returns the keys of ProjectItems, sorted.
func (d *Defaults) ProjectScopedKeys() []string {
	items := d.ProjectItems()
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = item.Key
	}
	sort.Strings(keys)
	return keys
}

// fromYAML normalizes a decoded YAML document: mappings become
// map[string]any and integers become int.
func fromYAML(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = fromYAML(e)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = fromYAML(e)
		}
		return out
	case []any:
		for i := range x {
			x[i] = fromYAML(x[i])
		}
		return x
	case int64:
		return int(x)
	case uint64:
		if n, ok := toInt(x); ok {
			return n
		}
	}
	return v
}

// DefaultsSource hands out the current defaults document.
type DefaultsSource interface {
	Defaults() *Defaults
}

// Provider holds the defaults document for the whole process. It is loaded
// once at startup and replaced only by an explicit Reload.
type Provider struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	current *Defaults
}

// NewFileProvider loads the defaults document at path.
func NewFileProvider(path string, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d, err := LoadDefaultsFile(path)
	if err != nil {
		return nil, err
	}
	p := &Provider{
		path:    path,
		logger:  logger.With(slog.String("component", "settings_defaults")),
		current: d,
	}
	p.logger.Info("settings defaults loaded",
		slog.String("path", path),
		slog.Int("items", len(d.items)))
	return p, nil
}

// NewStaticProvider wraps an in-memory document. Reload is a no-op.
func NewStaticProvider(d *Defaults) *Provider {
	return &Provider{current: d, logger: slog.Default()}
}

// Defaults implements DefaultsSource.
func (p *Provider) Defaults() *Defaults {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Reload re-reads the defaults file. On failure the previous document stays
// in force.
func (p *Provider) Reload() error {
	if p.path == "" {
		return nil
	}
	d, err := LoadDefaultsFile(p.path)
	if err != nil {
		p.logger.Error("failed to reload settings defaults",
			slog.String("path", p.path),
			slog.String("error", err.Error()))
		return err
	}

	p.mu.Lock()
	p.current = d
	p.mu.Unlock()

	p.logger.Info("settings defaults reloaded",
		slog.String("path", p.path),
		slog.Int("items", len(d.items)))
	return nil
}
