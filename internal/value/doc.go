// Package value defines the closed set of value kinds a record field can hold
// and the ordered Record type built from them.
//
// This package imports nothing internal. Every other package that touches
// record data goes through these types, so field access and comparison never
// fall back to reflection or interface{} switches scattered across callers.
//
// Key constraints:
//   - Value is sealed: only Null, Text, Int, Float, Bool, Time, List and *Record implement it
//   - Int and Float are both numbers and compare with each other numerically
//   - Records keep field insertion order; JSON encoding preserves it
//   - Records handed across package boundaries are cloned, never shared
package value
