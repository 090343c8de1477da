// Package match provides identifier tokenization and edit-distance matching
// used to suggest corrections for misspelled configuration keys.
//
// Key functions:
//   - Tokens: splits snake_case, kebab-case and CamelCase identifiers
//   - NormalizeIdent: folds an identifier for fuzzy comparison
//   - Levenshtein: computes edit distance between strings
//   - Suggest: ranks known names close to an unknown one
package match
