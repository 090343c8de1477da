package mapping

// Diagnostic codes reported while loading and compiling configuration.
const (
	CodeSchema          = "CFG_SCHEMA"
	CodeUnknownKey      = "CFG_UNKNOWN_KEY"
	CodeDuplicateKey    = "CFG_DUPLICATE_KEY"
	CodeDirection       = "CFG_DIRECTION"
	CodeDelimiters      = "CFG_DELIMITERS"
	CodePolicy          = "CFG_POLICY"
	CodeFunction        = "CFG_FUNCTION"
	CodeUnusedFunction  = "CFG_UNUSED_FUNCTION"
	CodePath            = "CFG_PATH"
	CodeFilter          = "CFG_FILTER"
	CodeExpression      = "CFG_EXPRESSION"
	CodeType            = "CFG_TYPE"
	CodeValidation      = "CFG_VALIDATION"
	CodeTemplate        = "CFG_TEMPLATE"
	CodePlaceholder     = "CFG_TEMPLATE_PLACEHOLDER"
	CodeElement         = "CFG_ELEMENT"
	CodeShape           = "CFG_RULE_SHAPE"
	CodeSelfReference   = "CFG_SELF_REFERENCE"
	CodePosition        = "CFG_POSITION"
	CodeSegment         = "CFG_SEGMENT"
	CodeIgnoredKey      = "CFG_IGNORED_KEY"
	CodeEmptyGroup      = "CFG_EMPTY_GROUP"
	CodeRequiredDefault = "CFG_REQUIRED_DEFAULT"
)

var topLevelKeys = []string{
	"config_name", "description", "message_type", "input_format", "output_format",
	"root_element", "delimiters", "segment_terminator", "global_filters",
	"error_handling", "custom_functions", "mappings",
}

// valueKeys make a mapping node a scalar rule.
var valueKeys = []string{"source", "sources", "expression", "value", "default", "type"}

var scalarKeys = []string{
	"source", "sources", "type", "format", "output_format", "expression",
	"value", "default", "required", "validation", "values", "element",
	"description",
}

var compositeKeys = []string{
	"type", "template", "fields", "source", "sources", "expression",
	"default", "required", "validation", "element", "description",
}

var repeatedKeys = []string{
	"source", "type", "fields", "filter", "item_element", "element", "description",
}

// repeatedType is the optional type tag of a repeated group.
const repeatedType = "array"

// groupReserved are the keys of a group that are not child rules.
var groupReserved = []string{"source_filters", "element"}

var segmentKeys = []string{
	"segment", "repeat", "filter", "source_filters", "fields", "description",
}
