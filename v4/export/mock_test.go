package export

import (
	"errors"
	"io"
	"strings"
)

// mockLargeText counts how often it is opened and closed.
type mockLargeText struct {
	text      string
	streamErr error
	readErr   error
	closeErr  error
	opened    int
	closed    int
}

func (m *mockLargeText) CharacterStream() (io.Reader, error) {
	m.opened++
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	if m.readErr != nil {
		return io.MultiReader(strings.NewReader(m.text), &failingReader{err: m.readErr}), nil
	}
	return strings.NewReader(m.text), nil
}

func (m *mockLargeText) Close() error {
	m.closed++
	return m.closeErr
}

type failingReader struct {
	err error
}

func (f *failingReader) Read(_ []byte) (int, error) {
	return 0, f.err
}

// mockStringWriter fails every write once poisoned.
type mockStringWriter struct {
	strings.Builder
	poisoned bool
}

func (m *mockStringWriter) WriteString(s string) (int, error) {
	if m.poisoned {
		return 0, errors.New("disk full")
	}
	return m.Builder.WriteString(s)
}

// mockRowIter serves prepared values.
type mockRowIter struct {
	rows      [][]interface{}
	idx       int
	err       error
	decodeErr error
	closed    bool
}

func (m *mockRowIter) Decode(r RowReceiver) error {
	if m.decodeErr != nil {
		return m.decodeErr
	}
	row := m.rows[m.idx]
	args := make([]interface{}, len(row))
	r.BindAddress(args)
	for i, v := range row {
		*(args[i].(*interface{})) = v
	}
	return nil
}

func (m *mockRowIter) Next() {
	m.idx++
}

func (m *mockRowIter) Error() error {
	return m.err
}

func (m *mockRowIter) HasNext() bool {
	return m.idx < len(m.rows)
}

func (m *mockRowIter) Close() error {
	m.closed = true
	return nil
}

type mockTableIR struct {
	table    string
	colNames []string
	colTypes []string
	iter     *mockRowIter
}

func newMockTableIR(table string, colNames, colTypes []string, rows [][]interface{}) *mockTableIR {
	return &mockTableIR{
		table:    table,
		colNames: colNames,
		colTypes: colTypes,
		iter:     &mockRowIter{rows: rows},
	}
}

func (m *mockTableIR) TableName() string {
	return m.table
}

func (m *mockTableIR) ColumnNames() []string {
	return m.colNames
}

func (m *mockTableIR) ColumnTypes() []string {
	return m.colTypes
}

func (m *mockTableIR) ColumnCount() uint {
	return uint(len(m.colNames))
}

func (m *mockTableIR) Rows() SQLRowIter {
	return m.iter
}
