package out

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type mockStringWriter struct {
	strings.Builder
}

func (m *mockStringWriter) WriteString(s string) (int, error) {
	if s == "poison\n" {
		return 0, fmt.Errorf("poison_error")
	}
	return m.Builder.WriteString(s)
}

func featureRecord() Record {
	return Record{
		{Name: "ID", Value: "7", Numeric: true},
		{Name: "TYPE", Value: "gene"},
		{Name: "SEQ", Value: "ACGT"},
	}
}

func TestCSVLine(t *testing.T) {
	opt := DefaultOptions()
	require.Equal(t, "7,gene,ACGT", CSVLine(featureRecord(), opt))

	rec := Record{
		{Name: "A", Value: "x,y"},
		{Name: "B", Null: true},
		{Name: "C", Value: "line1\nline2"},
	}
	require.Equal(t, "x,y,,line1\nline2", CSVLine(rec, opt))

	opt.Separator = "|"
	opt.NullValue = `\N`
	require.Equal(t, `x,y|\N|line1`+"\nline2", CSVLine(rec, opt))
}

func TestJSONObject(t *testing.T) {
	require.Equal(t, `{"ID":7,"TYPE":"gene","SEQ":"ACGT"}`, JSONObject(featureRecord()))

	rec := Record{
		{Name: "N", Value: "007.50", Numeric: true},
		{Name: "BAD", Value: "n/a", Numeric: true},
		{Name: "NIL", Null: true},
		{Name: "DOC", Value: "a\"b\n<c>&"},
	}
	require.Equal(t, `{"N":7.5,"BAD":"n/a","NIL":null,"DOC":"a\"b\n<c>&"}`, JSONObject(rec))
	require.Equal(t, "{}", JSONObject(nil))
}

func TestEncoderCSV(t *testing.T) {
	sw := &mockStringWriter{}
	enc := NewEncoder(sw, DefaultOptions())
	_, err := enc.Begin()
	require.NoError(t, err)
	n, err := enc.Encode(featureRecord())
	require.NoError(t, err)
	require.Equal(t, len("7,gene,ACGT\n"), n)
	_, err = enc.Encode(Record{{Name: "ID", Value: "8"}})
	require.NoError(t, err)
	_, err = enc.End()
	require.NoError(t, err)
	require.Equal(t, "7,gene,ACGT\n8\n", sw.String())
}

func TestEncoderJSONStyles(t *testing.T) {
	rows := []Record{
		{{Name: "ID", Value: "1", Numeric: true}},
		{{Name: "ID", Value: "2", Numeric: true}},
	}
	cases := []struct {
		style JSONStyle
		rows  []Record
		exp   string
	}{
		{JSONLines, rows, "{\"ID\":1}\n{\"ID\":2}\n"},
		{JSONLines, nil, ""},
		{JSONArray, rows, "[\n{\"ID\":1},\n{\"ID\":2}\n]\n"},
		{JSONArray, nil, "[\n]\n"},
	}
	for _, tc := range cases {
		sw := &mockStringWriter{}
		opt := DefaultOptions()
		opt.Format = FormatJSON
		opt.Style = tc.style
		enc := NewEncoder(sw, opt)
		_, err := enc.Begin()
		require.NoError(t, err)
		for _, r := range tc.rows {
			_, err = enc.Encode(r)
			require.NoError(t, err)
		}
		_, err = enc.End()
		require.NoError(t, err)
		require.Equal(t, tc.exp, sw.String(), "style %s", tc.style)
	}
}

func TestEncoderWriteError(t *testing.T) {
	sw := &mockStringWriter{}
	enc := NewEncoder(sw, DefaultOptions())
	_, err := enc.Encode(Record{{Name: "X", Value: "poison"}})
	require.EqualError(t, err, "poison_error")
}

func TestOptionsValidate(t *testing.T) {
	opt := DefaultOptions()
	require.NoError(t, opt.Validate())

	opt.Separator = ""
	require.Error(t, opt.Validate())

	opt = DefaultOptions()
	opt.Format = "xml"
	require.Error(t, opt.Validate())

	opt = DefaultOptions()
	opt.Format = FormatJSON
	opt.Style = "tree"
	require.Error(t, opt.Validate())
	opt.Style = JSONArray
	require.NoError(t, opt.Validate())
}
