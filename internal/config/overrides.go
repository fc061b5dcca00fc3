package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadOverrides reads a customer name overrides file, a YAML mapping of
// extracted customer name to display name. Entries with an empty display
// name are dropped.
func LoadOverrides(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides file: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse overrides file %s: %w", path, err)
	}

	overrides := make(map[string]string, len(raw))
	for original, display := range raw {
		if display = strings.TrimSpace(display); display != "" {
			overrides[original] = display
		}
	}

	return overrides, nil
}

// WriteOverridesTemplate writes an overrides file mapping every customer to
// itself, in the given order, for the user to edit.
func WriteOverridesTemplate(path string, customers []string) error {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range customers {
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: c},
			&yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: c},
		)
	}

	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: "# Customer display names. Edit the right-hand side; numbering is unaffected.",
		Content:     []*yaml.Node{mapping},
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to render overrides template: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write overrides template: %w", err)
	}
	return nil
}
