package mapping

import (
	"gopkg.in/yaml.v3"
)

// File is a mapping configuration as written. The mapping tree itself is
// kept as a yaml.Node so declaration order survives until compilation.
type File struct {
	ConfigName        string        `yaml:"config_name,omitempty"`
	Description       string        `yaml:"description,omitempty"`
	MessageType       string        `yaml:"message_type,omitempty"`
	InputFormat       string        `yaml:"input_format,omitempty"`
	OutputFormat      string        `yaml:"output_format,omitempty"`
	RootElement       string        `yaml:"root_element,omitempty"`
	Delimiters        string        `yaml:"delimiters,omitempty"`
	SegmentTerminator string        `yaml:"segment_terminator,omitempty"`
	GlobalFilters     FilterList    `yaml:"global_filters,omitempty"`
	ErrorHandling     ErrorHandling `yaml:"error_handling,omitempty"`
	CustomFunctions   FunctionList  `yaml:"custom_functions,omitempty"`
	Mappings          yaml.Node     `yaml:"mappings"`
}

// ErrorHandling selects the policy action for each per-message error
// category. Values are error, warn or skip.
type ErrorHandling struct {
	OnMissingRequired  string `yaml:"on_missing_required,omitempty"`
	OnValidationFail   string `yaml:"on_validation_fail,omitempty"`
	OnExpressionError  string `yaml:"on_expression_error,omitempty"`
	OnCoercionError    string `yaml:"on_coercion_error,omitempty"`
	OnMalformedSegment string `yaml:"on_malformed_segment,omitempty"`
	OnInvalidStructure string `yaml:"on_invalid_structure,omitempty"`
	LogLevel           string `yaml:"log_level,omitempty"`

	// OnPythonError is the legacy spelling of OnExpressionError.
	OnPythonError string `yaml:"on_python_error,omitempty"`
}

// FilterDef is one filter condition as written.
type FilterDef struct {
	Field     string
	Condition string
	Values    StringList
	Format    string
}

// FilterList is an ordered list of conditions, combined with AND.
type FilterList []FilterDef

// SourceRef is one entry of a "sources" fallback list: a path, optionally
// guarded by filters that must hold for the entry to be used.
type SourceRef struct {
	Path    string
	Filters FilterList
}

// StringList accepts a scalar or a sequence of scalars.
type StringList []string

// FunctionDef is one named custom function.
type FunctionDef struct {
	Name        string
	Params      []string `yaml:"params"`
	Expression  string   `yaml:"expression"`
	Description string   `yaml:"description"`
}

// FunctionList keeps custom functions in declaration order.
type FunctionList []FunctionDef

// ValidationDef is a rule's validation block.
type ValidationDef struct {
	Regex     string   `yaml:"regex"`
	MinLength *int     `yaml:"min_length"`
	MaxLength *int     `yaml:"max_length"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`
	Severity  string   `yaml:"severity"`
}

// fieldDef is the union of keys a scalar, composite or repeated-group rule
// may carry. Which keys are legal depends on the rule shape.
type fieldDef struct {
	Source       string          `yaml:"source"`
	Sources      []SourceRef     `yaml:"sources"`
	Type         string          `yaml:"type"`
	Format       string          `yaml:"format"`
	OutputFormat string          `yaml:"output_format"`
	Expression   string          `yaml:"expression"`
	Value        *string         `yaml:"value"`
	Default      *string         `yaml:"default"`
	Required     bool            `yaml:"required"`
	Validation   *ValidationDef  `yaml:"validation"`
	Values       map[string]bool `yaml:"values"`
	Template     string          `yaml:"template"`
	Filter       FilterList      `yaml:"filter"`
	ItemElement  string          `yaml:"item_element"`
	Element      string          `yaml:"element"`
	Description  string          `yaml:"description"`
}

// segmentDef is a reverse-direction segment block.
type segmentDef struct {
	Segment       string     `yaml:"segment"`
	Repeat        string     `yaml:"repeat"`
	Filter        FilterList `yaml:"filter"`
	SourceFilters FilterList `yaml:"source_filters"`
	Description   string     `yaml:"description"`
}
