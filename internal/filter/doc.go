// Package filter models and evaluates filter expressions against records.
//
// A filter Expression is a flat sequence of items:
//
//	[cond, "and", cond, "or", [cond, "and", cond]]
//
// Items are conditions (field, operator, value), connectives ("and"/"or")
// placed between operands, and nested groups evaluated recursively as a
// single operand.
//
// EVALUATION ORDER:
//
// Operands are combined strictly left to right with no precedence between
// "and" and "or":
//
//	A or B and C   ==   (A or B) and C
//
// Use a nested group to force a different grouping. Every condition is
// evaluated before folding, so an invalid condition fails the whole
// expression even when an earlier operand would have decided the result.
//
// An empty expression matches every record.
//
// SEALED INTERFACE:
//
// Item uses the marker method pattern so a type switch over Item in the
// evaluator covers every case.
package filter
