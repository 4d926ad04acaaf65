package filter

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tabula/internal/value"
)

// foldText prepares text for case-insensitive matching: NFC normalization
// followed by full Unicode case folding ("Straße" matches "STRASSE").
// A Caser holds state, so one is created per call.
func foldText(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// matchText stringifies both sides and applies a case-insensitive predicate.
// A null field never matches.
func matchText(field, want value.Value, pred func(s, sub string) bool) bool {
	if value.IsNull(field) {
		return false
	}
	return pred(foldText(value.Stringify(field)), foldText(value.Stringify(want)))
}
