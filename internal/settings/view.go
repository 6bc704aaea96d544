package settings

import (
	"context"
	"fmt"
	"sort"
)

// Input types for settings-page fields.
const (
	InputText    = "text"
	InputNumber  = "number"
	InputBoolean = "boolean"
	InputSelect  = "select"
)

// Field is one editable setting as presented on a settings page.
type Field struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Value       any      `json:"value"`
	Display     string   `json:"display_value"`
	Input       string   `json:"input_type"`
	Options     []string `json:"options,omitempty"`
	Editable    bool     `json:"editable"`
	Customized  bool     `json:"customized"`
}

// Section groups the fields of one settings-page section.
type Section struct {
	Name   string  `json:"name"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// View returns the global settings page: every editable key that is not
// project scoped, grouped by section.
func (r *Resolver) View(ctx context.Context) ([]Section, error) {
	tree, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	d := r.defaults.Defaults()
	return buildSections(d.GlobalItems(), tree, nil), nil
}

// View returns the project's settings page. Every project-scoped key is
// listed, with the project's value where a row exists and the default
// otherwise.
func (p *ProjectResolver) View(ctx context.Context, projectID int64) ([]Section, error) {
	d := p.defaults.Defaults()
	if err := p.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}
	values, err := p.projectValues(ctx, d, projectID)
	if err != nil {
		return nil, err
	}
	tree, err := merge(d, values)
	if err != nil {
		return nil, err
	}

	customized := make(map[string]bool, len(values))
	for key, v := range values {
		item, _ := d.Item(key)
		customized[key] = displayValue(v) != displayValue(item.Value)
	}
	return buildSections(d.ProjectItems(), tree, customized), nil
}

func buildSections(items []Item, tree map[string]any, customized map[string]bool) []Section {
	byName := make(map[string]*Section)
	for _, item := range items {
		name := SectionOf(item.Key)
		sec, ok := byName[name]
		if !ok {
			sec = &Section{Name: name, Title: SectionTitle(name)}
			byName[name] = sec
		}

		value, ok := Lookup(tree, item.Key)
		if !ok {
			value = item.Value
		}
		options := optionsFor(item, tree)
		sec.Fields = append(sec.Fields, Field{
			Key:         item.Key,
			Title:       Title(item.Key),
			Description: Describe(item),
			Value:       value,
			Display:     displayValue(value),
			Input:       inputFor(item, options),
			Options:     options,
			Editable:    item.Editable,
			Customized:  customized[item.Key],
		})
	}

	sections := make([]Section, 0, len(byName))
	for _, sec := range byName {
		sort.Slice(sec.Fields, func(i, j int) bool { return sec.Fields[i].Key < sec.Fields[j].Key })
		sections = append(sections, *sec)
	}
	sort.Slice(sections, func(i, j int) bool {
		ri, rj := sectionRank(sections[i].Name), sectionRank(sections[j].Name)
		if ri != rj {
			return ri < rj
		}
		return sections[i].Name < sections[j].Name
	})
	return sections
}

func sectionRank(name string) int {
	for i, s := range sectionOrder {
		if s == name {
			return i
		}
	}
	return len(sectionOrder)
}

func optionsFor(item Item, tree map[string]any) []string {
	if len(item.Options) > 0 {
		return item.Options
	}
	from := item.OptionsFrom
	switch {
	case from == "" && item.Key == "default_type":
		from = "type"
	case from == "" && item.Key == "backup.backup_day":
		return weekdayOptions
	}
	if from == "" {
		return nil
	}

	if v, ok := Lookup(tree, from); ok {
		if list, ok := v.([]any); ok && len(list) > 0 {
			out := make([]string, len(list))
			for i, e := range list {
				out[i] = fmt.Sprint(e)
			}
			return out
		}
	}
	if from == "type" {
		return fallbackTypeOptions
	}
	return nil
}

func inputFor(item Item, options []string) string {
	if len(options) > 0 {
		return InputSelect
	}
	switch item.Kind {
	case KindInt, KindFloat:
		return InputNumber
	case KindBool:
		return InputBoolean
	default:
		return InputText
	}
}
