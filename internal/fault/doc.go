// Package fault defines the error taxonomy shared by every stage of a
// transformation.
//
// Each error carries a Kind from a closed set:
//   - ConfigError: malformed or self-referential mapping configuration
//   - MalformedMessageError: unparsable header or segment
//   - PathResolutionError: invalid address syntax
//   - CoercionError: a value that does not convert to its declared type
//   - ExpressionError: an expression that fails to compile or evaluate
//   - ValidationError: a value rejected by its validation block
//   - FilterError: a malformed filter condition
//
// ConfigError, PathResolutionError and FilterError are only produced while a
// configuration is compiled. The remaining kinds are produced per message and
// routed through the configured error-handling policy.
package fault
