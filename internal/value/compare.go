package value

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrIncomparable is returned by Compare when two values have no defined order.
var ErrIncomparable = errors.New("values are not comparable")

// Equal reports strict equality: same kind (numbers count as one kind) and
// same content. Lists and records compare deeply; record field order is ignored.
func Equal(a, b Value) bool {
	a, b = orNull(a), orNull(b)
	ka, kb := a.Kind(), b.Kind()

	if ka.IsNumber() && kb.IsNumber() {
		return compareNumbers(a, b) == 0
	}
	if ka != kb {
		return false
	}

	switch av := a.(type) {
	case Null:
		return true
	case Text:
		return av == b.(Text)
	case Bool:
		return av == b.(Bool)
	case Time:
		return av.Std().Equal(b.(Time).Std())
	case List:
		bv := b.(List)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Record:
		bv := b.(*Record)
		if av.Len() != bv.Len() {
			return false
		}
		for k, v := range av.All() {
			other, ok := bv.Get(k)
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two non-null values of orderable kinds: numbers, text and
// time. A Text compared against a Time is parsed as RFC 3339. Any other pairing
// returns ErrIncomparable.
func Compare(a, b Value) (int, error) {
	a, b = orNull(a), orNull(b)
	ka, kb := a.Kind(), b.Kind()

	switch {
	case ka.IsNumber() && kb.IsNumber():
		return compareNumbers(a, b), nil
	case ka == KindText && kb == KindText:
		return strings.Compare(string(a.(Text)), string(b.(Text))), nil
	case ka == KindTime && kb == KindTime:
		return a.(Time).Std().Compare(b.(Time).Std()), nil
	case ka == KindTime && kb == KindText:
		t, err := ParseTime(string(b.(Text)))
		if err != nil {
			return 0, fmt.Errorf("%w: %s against unparseable time %q", ErrIncomparable, ka, b)
		}
		return a.(Time).Std().Compare(t), nil
	case ka == KindText && kb == KindTime:
		t, err := ParseTime(string(a.(Text)))
		if err != nil {
			return 0, fmt.Errorf("%w: unparseable time %q against %s", ErrIncomparable, a, kb)
		}
		return t.Compare(b.(Time).Std()), nil
	}
	return 0, fmt.Errorf("%w: %s and %s", ErrIncomparable, ka, kb)
}

// Orderable reports whether values of kind k can be used with Compare.
func Orderable(k Kind) bool {
	return k.IsNumber() || k == KindText || k == KindTime
}

// SortCompare is a total order over values used for sorting. Nulls are not
// handled here; callers place them separately. Values order by kind rank
// first, so Text never orders against Time here. Within a rank, numbers,
// text and times use Compare, and the rest fall back to their canonical key.
func SortCompare(a, b Value) int {
	ra, rb := sortRank(KindOf(a)), sortRank(KindOf(b))
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	if ab, ok := a.(Bool); ok {
		return cmp.Compare(boolInt(bool(ab)), boolInt(bool(b.(Bool))))
	}
	if c, err := Compare(a, b); err == nil {
		return c
	}
	return strings.Compare(Key(a), Key(b))
}

func sortRank(k Kind) int {
	switch k {
	case KindInt, KindFloat:
		return 0
	case KindText:
		return 1
	case KindTime:
		return 2
	case KindBool:
		return 3
	case KindList:
		return 4
	case KindRecord:
		return 5
	}
	return 6
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// compareNumbers compares two numeric values. Int pairs compare exactly.
func compareNumbers(a, b Value) int {
	ai, aIsInt := a.(Int)
	bi, bIsInt := b.(Int)
	if aIsInt && bIsInt {
		return cmp.Compare(ai, bi)
	}
	return cmp.Compare(toFloat(a), toFloat(b))
}

func toFloat(v Value) float64 {
	switch n := v.(type) {
	case Int:
		return float64(n)
	case Float:
		return float64(n)
	}
	return math.NaN()
}

// ParseTime parses RFC 3339 text, with or without fractional seconds.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Stringify renders a value as text for substring matching.
// Null renders as the empty string.
func Stringify(v Value) string {
	switch val := orNull(v).(type) {
	case Null:
		return ""
	case Text:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return formatFloat(float64(val))
	case Bool:
		return strconv.FormatBool(bool(val))
	case Time:
		return val.Std().Format(time.RFC3339Nano)
	default:
		b, err := encodeCanonical(v, false)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Key returns a string that is identical for two values exactly when Equal
// reports them equal. Used for set membership (distinct) and identifier keys.
func Key(v Value) string {
	switch val := orNull(v).(type) {
	case Null:
		return "z:"
	case Text:
		return "s:" + string(val)
	case Int, Float:
		return "n:" + numberKey(val)
	case Bool:
		return "b:" + strconv.FormatBool(bool(val))
	case Time:
		return "t:" + val.Std().UTC().Format(time.RFC3339Nano)
	default:
		b, err := encodeCanonical(v, false)
		if err != nil {
			return "?:" + err.Error()
		}
		return "j:" + string(b)
	}
}

// IDKey renders an identifier value as the text used to key a table.
func IDKey(v Value) string {
	switch val := orNull(v).(type) {
	case Text:
		return string(val)
	case Int, Float:
		return numberKey(val)
	default:
		return Stringify(v)
	}
}

// numberKey renders integral floats like ints so 1 and 1.0 share a key.
func numberKey(v Value) string {
	switch n := v.(type) {
	case Int:
		return strconv.FormatInt(int64(n), 10)
	case Float:
		f := float64(n)
		if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return ""
}

func formatFloat(f float64) string {
	if math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
