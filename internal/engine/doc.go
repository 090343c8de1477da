// Package engine executes compiled mapping plans against messages.
//
// An Engine is built once from a mapping configuration. Building it compiles
// and validates the whole configuration, so a bad rule fails before any
// message is read. The Engine is then immutable and can transform any
// number of messages concurrently.
//
// Each Transform call gets its own transform context: the parsed input, the
// message view exposed to expressions, the clock reading used by date
// filters, and the warnings collected so far. Nothing in it outlives the
// call.
//
// # Directions
//
// Forward plans read wire form and assemble a document, walking the rule
// tree in declaration order. Reverse plans read an XML or JSON document and
// assemble one segment per segment block, or one per matching node when the
// block repeats.
//
// # Error policy
//
// Per-message problems (malformed segments, coercion, expression and
// validation failures, missing required values) are routed through the
// plan's policy. error aborts the message; warn records a warning and
// continues; skip continues silently. A message rejected by a global filter
// is not an error: the Result is marked Excluded.
package engine
