package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	r := New("Company name", "BONZA AVIATION PTY LTD", "Country / Territory", "Australia", "2-letter code", "AB")
	require.Equal(t, []string{"Company name", "Country / Territory", "2-letter code"}, r.Keys())

	data, err := r.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t,
		`{"Company name":"BONZA AVIATION PTY LTD","Country / Territory":"Australia","2-letter code":"AB"}`,
		string(data),
	)
	require.Equal(t,
		`{"Company name":"BONZA AVIATION PTY LTD","Country / Territory":"Australia","2-letter code":"AB"}`,
		string(data),
	)
}

func TestRecordSetReplacesInPlace(t *testing.T) {
	t.Parallel()

	r := New("a", "1", "b", "2")
	r.Set("a", "3")
	require.Equal(t, []Field{{Name: "a", Value: "3"}, {Name: "b", Value: "2"}}, r.Fields())
	require.Equal(t, "", r.Value("missing"))
}

func TestRecordKeyIgnoresOrder(t *testing.T) {
	t.Parallel()

	a := New("x", "1", "y", "2")
	b := New("y", "2", "x", "1")
	c := New("x", "1", "y", "3")
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.NotEqual(t, New("ab", "c").Key(), New("a", "bc").Key())
}

func TestRecordRename(t *testing.T) {
	t.Parallel()

	r := New("City Name", "Anaa", "Airport Name", "Anaa Airport", "extra", "kept")
	out := r.Rename(map[string]string{
		"City Name":              "city_name",
		"Airport Name":           "airport_name",
		"3-letter location code": "iata",
	})
	require.Equal(t, []string{"city_name", "airport_name", "extra"}, out.Keys())
	_, ok := out.Get("iata")
	require.False(t, ok)
	require.Equal(t, []string{"City Name", "Airport Name", "extra"}, r.Keys(), "source record untouched")
}

func TestRecordUnmarshal(t *testing.T) {
	t.Parallel()

	var r Record
	require.NoError(t, r.UnmarshalJSON([]byte(`{"b":"2","a":"1","n":null}`)))
	require.Equal(t, []string{"b", "a"}, r.Keys())

	var viaStd Record
	require.NoError(t, json.Unmarshal([]byte(`{"k":"v <&>"}`), &viaStd))
	require.Equal(t, "v <&>", viaStd.Value("k"))

	out, err := viaStd.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `{"k":"v <&>"}`, string(out))
}

func TestRecordUnmarshalRejectsNonObjects(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		`["a"]`,
		`"text"`,
		`{"a":1}`,
		`{"a":{"b":"c"}}`,
		`{"a":"b"`,
		`{"a":"b"} {}`,
		`{"a":"b"}xyz`,
		`{"a":"b"}}`,
		`{"a":"b"},`,
		`not json`,
	} {
		var r Record
		err := r.UnmarshalJSON([]byte(input))
		require.ErrorIs(t, err, ErrNotObject, "input %s", input)
	}
}
