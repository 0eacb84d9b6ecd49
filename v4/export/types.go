package export

import "io"

// StringIter is the iterator on a collection of strings.
type StringIter interface {
	Next() string
	HasNext() bool
}

// SQLRowIter is a single pass cursor over the rows of a result set.
type SQLRowIter interface {
	// Decode scans the current row into the receiver.
	Decode(RowReceiver) error
	// Next advances to the following row.
	Next()
	// Error returns the error met while advancing.
	Error() error
	HasNext() bool
	Close() error
}

// RowReceiver is the destination of one scanned row.
type RowReceiver interface {
	// BindAddress puts the scan destinations into args.
	BindAddress(args []interface{})
}

// TableDataIR is table data intermediate representation.
type TableDataIR interface {
	TableName() string
	ColumnNames() []string
	ColumnTypes() []string
	ColumnCount() uint

	Rows() SQLRowIter
}

// LargeText is a handle to a large character value still held by the
// database. The stream is read at most once and the handle closed after.
type LargeText interface {
	CharacterStream() (io.Reader, error)
	Close() error
}

// ValueKind tells which variant a Value holds.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueScalar
	ValueLargeText
)

// Value is one column of one row.
type Value struct {
	Kind ValueKind
	// Text is the rendered scalar.
	Text string
	// Numeric marks values from number columns.
	Numeric bool
	// Large is set for ValueLargeText.
	Large LargeText
}

// NullValue returns a null Value.
func NullValue() Value {
	return Value{Kind: ValueNull}
}

// ScalarValue returns a textual Value.
func ScalarValue(text string, numeric bool) Value {
	return Value{Kind: ValueScalar, Text: text, Numeric: numeric}
}

// LargeTextValue returns a Value holding a large text handle.
func LargeTextValue(h LargeText) Value {
	return Value{Kind: ValueLargeText, Large: h}
}

// Row is an ordered mapping from column name to value. A Row is only valid
// until the row iterator moves on.
type Row struct {
	columns []string
	values  []Value
}

// NewRow pairs column names with values, both in result set order.
func NewRow(columns []string, values []Value) Row {
	return Row{columns: columns, values: values}
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.columns)
}

// Column returns the name of the i-th column.
func (r Row) Column(i int) string {
	return r.columns[i]
}

// Value returns the value of the i-th column.
func (r Row) Value(i int) Value {
	return r.values[i]
}
