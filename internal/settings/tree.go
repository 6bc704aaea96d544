package settings

import (
	"fmt"
	"sort"
	"strings"
)

const valueField = "value"

// metadataFields are the keys that may sit beside `value` in an item that
// has no `edit` entry.
var metadataFields = map[string]bool{
	"edit":             true,
	"project_scoped":   true,
	"project_settings": true,
	"type":             true,
	"description":      true,
	"options":          true,
	"options_from":     true,
}

// Item is one leaf of the defaults tree, addressed by its dotted key.
type Item struct {
	Key           string
	Value         any
	Editable      bool
	ProjectScoped bool
	Kind          Kind
	Description   string
	Options       []string
	OptionsFrom   string
}

// Normalize converts v to the item's kind, parsing strings as form input.
func (it Item) Normalize(v any) (any, error) {
	return normalize(it.Kind, v)
}

// isLeafItem reports whether node is a structured configuration item: a
// mapping with both `value` and `edit`, whatever else it carries. A mapping
// with `value` but no `edit` is an item only when its other entries are all
// metadata.
func isLeafItem(node map[string]any) bool {
	if _, ok := node[valueField]; !ok {
		return false
	}
	if _, ok := node["edit"]; ok {
		return true
	}
	for k := range node {
		if k != valueField && !metadataFields[k] {
			return false
		}
	}
	return true
}

// Flatten walks tree depth first and returns one Item per leaf, ordered by
// key. Bare values are never editable; a structured item without `edit` is
// not editable either.
func Flatten(tree map[string]any) ([]Item, error) {
	var items []Item
	if err := flattenInto(&items, "", tree); err != nil {
		return nil, err
	}
	return items, nil
}

func flattenInto(items *[]Item, prefix string, node map[string]any) error {
	for _, name := range sortedKeys(node) {
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}

		child, ok := node[name].(map[string]any)
		switch {
		case ok && isLeafItem(child):
			item, err := newItem(key, child)
			if err != nil {
				return err
			}
			*items = append(*items, item)
		case ok:
			if err := flattenInto(items, key, child); err != nil {
				return err
			}
		default:
			*items = append(*items, Item{
				Key:   key,
				Value: deepCopy(node[name]),
				Kind:  inferKind(key, node[name]),
			})
		}
	}
	return nil
}

func newItem(key string, node map[string]any) (Item, error) {
	item := Item{
		Key:           key,
		Value:         deepCopy(node[valueField]),
		Editable:      node["edit"] == true,
		ProjectScoped: node["project_scoped"] == true || node["project_settings"] == true,
	}

	if tag, ok := node["type"]; ok {
		s, isString := tag.(string)
		if !isString {
			return Item{}, fmt.Errorf("%w: %s: type must be a string", ErrInvalidDefaults, key)
		}
		kind, err := ParseKind(s)
		if err != nil {
			return Item{}, fmt.Errorf("%s: %w", key, err)
		}
		if !conforms(kind, item.Value) {
			return Item{}, fmt.Errorf("%w: %s: default %v is not a %s",
				ErrInvalidDefaults, key, item.Value, kind)
		}
		item.Kind = kind
	} else {
		item.Kind = inferKind(key, item.Value)
	}

	if d, ok := node["description"].(string); ok {
		item.Description = d
	}
	if from, ok := node["options_from"].(string); ok {
		item.OptionsFrom = from
	}
	if raw, ok := node["options"]; ok {
		list, isList := raw.([]any)
		if !isList {
			return Item{}, fmt.Errorf("%w: %s: options must be a list", ErrInvalidDefaults, key)
		}
		for _, o := range list {
			item.Options = append(item.Options, fmt.Sprint(o))
		}
	}
	return item, nil
}

// Clean returns a copy of tree with every structured item replaced by its
// value, so only values survive.
func Clean(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		node, ok := v.(map[string]any)
		switch {
		case ok && isLeafItem(node):
			out[k] = deepCopy(node[valueField])
		case ok:
			out[k] = Clean(node)
		default:
			out[k] = deepCopy(v)
		}
	}
	return out
}

// Unflatten builds a nested tree from dotted keys. A key that is both a value
// and the parent of another key yields ErrKeyConflict.
func Unflatten(values map[string]any) (map[string]any, error) {
	root := make(map[string]any)
	for _, key := range sortedKeys(values) {
		if err := insertPath(root, key, deepCopy(values[key])); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func insertPath(root map[string]any, key string, value any) error {
	parts := strings.Split(key, ".")
	node := root
	for i, part := range parts[:len(parts)-1] {
		child, exists := node[part]
		if !exists {
			m := make(map[string]any)
			node[part] = m
			node = m
			continue
		}
		m, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %q holds a value and is the parent of %q",
				ErrKeyConflict, strings.Join(parts[:i+1], "."), key)
		}
		node = m
	}

	last := parts[len(parts)-1]
	if _, exists := node[last]; exists {
		return fmt.Errorf("%w: %q is set twice", ErrKeyConflict, key)
	}
	node[last] = value
	return nil
}

// DeepMerge merges override into base in place. Nested mappings are merged
// key by key; any other override value replaces the base value.
func DeepMerge(base, override map[string]any) {
	for k, ov := range override {
		if om, ok := ov.(map[string]any); ok {
			if bm, ok := base[k].(map[string]any); ok {
				DeepMerge(bm, om)
				continue
			}
		}
		base[k] = ov
	}
}

// Lookup follows a dotted key through a nested tree.
func Lookup(tree map[string]any, key string) (any, bool) {
	var node any = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		if node, ok = m[part]; !ok {
			return nil, false
		}
	}
	return node, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepCopy(e)
		}
		return out
	}
	return v
}
