package mapping

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"hl7bridge/internal/diagnostic"
	"hl7bridge/internal/fault"
	"hl7bridge/internal/match"
)

// LoadFile loads and parses a YAML or JSON mapping file from the given path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("mapping file %s: %w", path, err)
	}

	return f, nil
}

// Parse decodes configuration text. JSON is accepted as YAML. The document
// is checked against the configuration schema and for unknown top-level keys
// before it is decoded; all such problems are returned together as a
// fault.List.
func Parse(data []byte) (*File, error) {
	var root yaml.Node

	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fault.New(fault.ConfigError, "failed to parse mapping: %v", err)
	}

	if root.Kind == 0 || (root.Kind == yaml.DocumentNode && len(root.Content) == 0) {
		return nil, fault.New(fault.ConfigError, "empty mapping configuration")
	}

	schemaErrs, err := checkShape(&root)
	if err != nil {
		return nil, fault.Wrap(fault.ConfigError, err)
	}

	var diags diagnostic.Diagnostics

	for _, se := range schemaErrs {
		diags.AddError(fault.ConfigError, CodeSchema, se.Message, "", se.Path)
	}

	if doc := resolveAlias(root.Content[0]); doc.Kind == yaml.MappingNode {
		checkKeys(doc, topLevelKeys, "", &diags)
	}

	if err := diags.Err(); err != nil {
		return nil, err
	}

	var f File
	if err := root.Decode(&f); err != nil {
		return nil, fault.New(fault.ConfigError, "failed to decode mapping: %v", err)
	}

	applyDefaults(&f)

	return &f, nil
}

// applyDefaults fills in default values for optional fields.
func applyDefaults(f *File) {
	f.InputFormat = strings.ToLower(f.InputFormat)
	f.OutputFormat = strings.ToLower(f.OutputFormat)

	if f.InputFormat == "" {
		f.InputFormat = string(FormatHL7)
	}

	if f.OutputFormat == "" {
		if f.InputFormat == string(FormatHL7) {
			f.OutputFormat = string(FormatXML)
		} else {
			f.OutputFormat = string(FormatHL7)
		}
	}

	if f.ConfigName == "" {
		f.ConfigName = "default"
	}

	if f.RootElement == "" {
		f.RootElement = DefaultRootElement
	}

	if f.ErrorHandling.OnExpressionError == "" {
		f.ErrorHandling.OnExpressionError = f.ErrorHandling.OnPythonError
	}
}

// checkKeys reports keys of node not in allowed, with suggestions.
func checkKeys(node *yaml.Node, allowed []string, rule string, diags *diagnostic.Diagnostics) {
	for _, k := range mappingKeys(node) {
		if contains(allowed, k) {
			continue
		}

		diags.AddError(fault.ConfigError, CodeUnknownKey,
			fmt.Sprintf("unknown key %q", k), rule, "", match.Suggest(k, allowed, 2)...)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}
