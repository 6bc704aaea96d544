package main

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// printValue writes a setting value: JSON with --json, YAML for composite
// values, plain text otherwise.
func (c *cli) printValue(v any) error {
	if c.jsonOutput {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		_, err = fmt.Fprintln(c.out, string(data))
		return err
	}

	switch v.(type) {
	case map[string]any, []any:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		_, err = fmt.Fprint(c.out, string(data))
		return err
	default:
		_, err := fmt.Fprintln(c.out, v)
		return err
	}
}
