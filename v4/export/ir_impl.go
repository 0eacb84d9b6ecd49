package export

import (
	"database/sql"

	"github.com/pkg/errors"
)

// rowIter implements the SQLRowIter interface.
// Note: To create a rowIter, please use `newRowIter()` instead of struct literal.
type rowIter struct {
	rows    *sql.Rows
	hasNext bool
	args    []interface{}
}

func newRowIter(rows *sql.Rows, argLen int) *rowIter {
	r := &rowIter{
		rows:    rows,
		hasNext: false,
		args:    make([]interface{}, argLen),
	}
	r.hasNext = r.rows.Next()
	return r
}

func (iter *rowIter) Close() error {
	return iter.rows.Close()
}

func (iter *rowIter) Decode(row RowReceiver) error {
	return decodeFromRows(iter.rows, iter.args, row)
}

func (iter *rowIter) Error() error {
	return errors.WithStack(iter.rows.Err())
}

func (iter *rowIter) Next() {
	iter.hasNext = iter.rows.Next()
}

func (iter *rowIter) HasNext() bool {
	return iter.hasNext
}

func decodeFromRows(rows *sql.Rows, args []interface{}, row RowReceiver) error {
	row.BindAddress(args)
	if err := rows.Scan(args...); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

type stringIter struct {
	idx int
	ss  []string
}

func newStringIter(ss ...string) StringIter {
	return &stringIter{
		idx: 0,
		ss:  ss,
	}
}

func (m *stringIter) Next() string {
	if m.idx >= len(m.ss) {
		return ""
	}
	ret := m.ss[m.idx]
	m.idx++
	return ret
}

func (m *stringIter) HasNext() bool {
	return m.idx < len(m.ss)
}

// tableData is the result set of one table or query.
type tableData struct {
	table    string
	query    string
	rows     *sql.Rows
	colNames []string
	colTypes []string
}

func newTableData(table, query string, rows *sql.Rows) (*tableData, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	td := &tableData{
		table:    table,
		query:    query,
		rows:     rows,
		colNames: make([]string, len(colTypes)),
		colTypes: make([]string, len(colTypes)),
	}
	for i, ct := range colTypes {
		td.colNames[i] = ct.Name()
		td.colTypes[i] = ct.DatabaseTypeName()
	}
	return td, nil
}

func (td *tableData) TableName() string {
	return td.table
}

func (td *tableData) ColumnNames() []string {
	return td.colNames
}

func (td *tableData) ColumnTypes() []string {
	return td.colTypes
}

func (td *tableData) ColumnCount() uint {
	return uint(len(td.colTypes))
}

func (td *tableData) Rows() SQLRowIter {
	return newRowIter(td.rows, len(td.colTypes))
}
