// Package diag defines the structured errors reported by graph editing and
// compilation.
//
// Every failure carries a Kind, the offending node ids and slot names and,
// for cycles, the full cycle path. Each Kind has a sentinel error so callers
// can branch with errors.Is, while errors.As recovers the *Error with all of
// its detail.
package diag
