package fault

//go:generate go tool stringer -type=Kind -output=kind_string.go

// Kind classifies an Error.
type Kind int

const (
	_ Kind = iota // zero value is reserved for "no kind"

	ConfigError
	MalformedMessageError
	PathResolutionError
	CoercionError
	ExpressionError
	ValidationError
	FilterError
)
