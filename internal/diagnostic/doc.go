// Package diagnostic collects coded problems found while compiling a mapping
// configuration, so that every problem is reported in one pass instead of
// stopping at the first.
//
// Each diagnostic carries:
//   - a stable code (e.g. CFG_UNKNOWN_KEY)
//   - the error kind it surfaces as
//   - the rule path and field path it concerns
//   - "did you mean" suggestions where a key looks misspelled
package diagnostic
