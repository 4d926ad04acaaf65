package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = Text("a")
	var _ Value = Int(1)
	var _ Value = Float(1.5)
	var _ Value = Bool(true)
	var _ Value = Time{}
	var _ Value = List{}
	var _ Value = NewRecord()
}

func TestRecord_KeepsInsertionOrder(t *testing.T) {
	r := RecordOf(F("zeta", Int(1)), F("alpha", Int(2)))
	r.Set("mid", Text("x"))
	r.Set("zeta", Int(3)) // overwrite keeps position

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, r.Keys())
	assert.Equal(t, Int(3), r.Lookup("zeta"))
}

func TestRecord_DeleteAndLookup(t *testing.T) {
	r := RecordOf(F("a", Int(1)), F("b", Int(2)))

	assert.True(t, r.Delete("a"))
	assert.False(t, r.Delete("a"))
	assert.Equal(t, []string{"b"}, r.Keys())
	assert.Equal(t, Null{}, r.Lookup("a"))
	assert.False(t, r.Has("a"))
}

func TestRecord_NilIsEmpty(t *testing.T) {
	var r *Record
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Has("x"))
	assert.Equal(t, Null{}, r.Lookup("x"))
	assert.Equal(t, 0, r.Clone().Len())
}

func TestRecord_CloneIsDeep(t *testing.T) {
	inner := RecordOf(F("city", Text("Oslo")))
	r := RecordOf(F("tags", NewList(Text("a"))), F("addr", inner))

	c := r.Clone()
	c.Lookup("addr").(*Record).Set("city", Text("Bergen"))
	c.Lookup("tags").(List)[0] = Text("changed")

	assert.Equal(t, Text("Oslo"), inner.Lookup("city"))
	assert.Equal(t, Text("a"), r.Lookup("tags").(List)[0])
}

func TestRecord_Merge(t *testing.T) {
	r := RecordOf(F("id", Int(1)), F("age", Int(20)))
	r.Merge(RecordOf(F("age", Int(21)), F("role", Text("admin"))))

	assert.Equal(t, []string{"id", "age", "role"}, r.Keys())
	assert.Equal(t, Int(21), r.Lookup("age"))
}

func TestRecord_Project(t *testing.T) {
	r := RecordOf(F("id", Int(1)), F("name", Text("Al")), F("age", Int(3)))

	p := r.Project([]string{"age", "missing", "id"})

	assert.Equal(t, []string{"age", "id"}, p.Keys())
	assert.False(t, p.Has("missing"))
}

func TestRecord_ProjectFullFieldListIsIdentity(t *testing.T) {
	r := RecordOf(F("id", Int(1)), F("name", Text("Al")), F("nested", RecordOf(F("x", Int(1)))))

	p := r.Project(r.Keys())

	assert.True(t, Equal(r, p))
	assert.Equal(t, r.Keys(), p.Keys())
}

func TestRecord_JSONPreservesOrder(t *testing.T) {
	var r Record
	require.NoError(t, r.UnmarshalJSON([]byte(`{"z":1,"a":"x","m":[true,null,2.5],"o":{"k":1}}`)))

	assert.Equal(t, []string{"z", "a", "m", "o"}, r.Keys())
	assert.Equal(t, Int(1), r.Lookup("z"))
	assert.Equal(t, NewList(Bool(true), Null{}, Float(2.5)), r.Lookup("m"))

	out, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":"x","m":[true,null,2.5],"o":{"k":1}}`, string(out))
}

func TestDecodeJSON_RejectsTrailingData(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)
}

func TestRecord_UnmarshalRejectsNonObject(t *testing.T) {
	var r Record
	assert.Error(t, r.UnmarshalJSON([]byte(`[1,2]`)))
}
