package mapping

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"hl7bridge/internal/common"
)

// --- StringList YAML methods ---

// UnmarshalYAML accepts a scalar or a sequence of scalars. Numbers and
// booleans keep their literal text.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*s = nil
			return nil
		}

		*s = StringList{node.Value}

		return nil

	case yaml.SequenceNode:
		out := make(StringList, 0, len(node.Content))

		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: expected scalar list item", item.Line)
			}

			out = append(out, item.Value)
		}

		*s = out

		return nil

	default:
		return fmt.Errorf("line %d: expected scalar or list", node.Line)
	}
}

// --- FilterDef YAML methods ---

// UnmarshalYAML accepts "field" or its alias "field_path", and "value" or
// "values" as a scalar or list.
func (f *FilterDef) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Field     string     `yaml:"field"`
		FieldPath string     `yaml:"field_path"`
		Condition string     `yaml:"condition"`
		Value     StringList `yaml:"value"`
		Values    StringList `yaml:"values"`
		Format    string     `yaml:"format"`
	}

	if err := node.Decode(&raw); err != nil {
		return err
	}

	*f = FilterDef{
		Field:     common.Coalesce(raw.Field, raw.FieldPath),
		Condition: raw.Condition,
		Values:    append(raw.Value, raw.Values...),
		Format:    raw.Format,
	}

	return nil
}

// --- FilterList YAML methods ---

// UnmarshalYAML accepts:
//   - a list of conditions
//   - a single condition: {field: PV1.2, condition: equals, value: I}
//   - membership shorthand: {OBX.3.1: [8867-4, 8480-6]}, meaning equals
//     any of the listed values
func (l *FilterList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var defs []FilterDef
		if err := node.Decode(&defs); err != nil {
			return err
		}

		*l = defs

		return nil

	case yaml.MappingNode:
		if mappingHasKey(node, "condition") {
			var def FilterDef
			if err := node.Decode(&def); err != nil {
				return err
			}

			*l = FilterList{def}

			return nil
		}

		out := make(FilterList, 0, len(node.Content)/2)

		for i := 0; i+1 < len(node.Content); i += 2 {
			var values StringList
			if err := node.Content[i+1].Decode(&values); err != nil {
				return err
			}

			out = append(out, FilterDef{
				Field:     node.Content[i].Value,
				Condition: "equals",
				Values:    values,
			})
		}

		*l = out

		return nil

	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*l = nil
			return nil
		}
	}

	return fmt.Errorf("line %d: expected filter condition or list of conditions", node.Line)
}

// --- SourceRef YAML methods ---

// UnmarshalYAML accepts a bare path or {source: path, filters: [...]}.
func (s *SourceRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = SourceRef{Path: node.Value}
		return nil

	case yaml.MappingNode:
		var raw struct {
			Source  string     `yaml:"source"`
			Filters FilterList `yaml:"filters"`
			Filter  FilterList `yaml:"filter"`
		}

		if err := node.Decode(&raw); err != nil {
			return err
		}

		*s = SourceRef{Path: raw.Source, Filters: append(raw.Filters, raw.Filter...)}

		return nil

	default:
		return fmt.Errorf("line %d: expected source path or {source, filters}", node.Line)
	}
}

// --- FunctionList YAML methods ---

// UnmarshalYAML reads a mapping of name to definition, keeping the order in
// which the functions are declared.
func (l *FunctionList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*l = nil
		return nil
	}

	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: custom_functions must be a mapping of name to definition", node.Line)
	}

	out := make(FunctionList, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		var fn FunctionDef
		if err := node.Content[i+1].Decode(&fn); err != nil {
			return err
		}

		fn.Name = node.Content[i].Value
		out = append(out, fn)
	}

	*l = out

	return nil
}

// --- yaml.Node helpers ---

func mappingHasKey(node *yaml.Node, key string) bool {
	_, ok := mappingValue(node, key)
	return ok
}

func mappingValue(node *yaml.Node, key string) (*yaml.Node, bool) {
	if node.Kind != yaml.MappingNode {
		return nil, false
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1], true
		}
	}

	return nil, false
}

// mappingKeys returns the keys of a mapping node in order.
func mappingKeys(node *yaml.Node) []string {
	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys = append(keys, node.Content[i].Value)
	}

	return keys
}

// resolveAlias follows alias nodes to their anchor.
func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}

	return node
}
