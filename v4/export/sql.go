package export

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	tcontext "github.com/oradump/oradump/v4/context"
)

const (
	listTablesQuery = "SELECT table_name FROM all_tables WHERE owner = :owner"
	// largeTextColumnsQuery finds the CLOB/NCLOB columns of populated tables, materialized views excluded.
	largeTextColumnsQuery = `SELECT c.table_name, c.column_name, c.data_type, NVL(t.num_rows, 0)
FROM all_tab_columns c
JOIN all_tables t ON c.owner = t.owner AND c.table_name = t.table_name
WHERE c.owner = :owner
AND c.data_type IN ('CLOB', 'NCLOB')
AND t.num_rows > 0
AND NOT EXISTS (SELECT 1 FROM all_mviews mv WHERE mv.owner = c.owner AND mv.mview_name = c.table_name)
ORDER BY c.table_name, c.column_name`
	versionQuery    = "SELECT value FROM nls_database_parameters WHERE parameter = 'NLS_RDBMS_VERSION'"
	currentSCNQuery = "SELECT MIN(current_scn) CURRENT_SCN FROM gv$database"
)

// ListTables returns the tables owned by schema, restricted to tablespace
// unless it is empty, ordered by name.
func ListTables(ctx context.Context, db *sql.DB, schema, tablespace string) ([]string, error) {
	var tables oneStrColumnTable
	query := listTablesQuery
	args := []interface{}{sql.Named("owner", schema)}
	if tablespace != "" {
		query += " AND tablespace_name = :tablespace"
		args = append(args, sql.Named("tablespace", tablespace))
	}
	query += " ORDER BY table_name"
	if err := simpleQuery(ctx, db, query, tables.handleOneRow, args...); err != nil {
		return nil, errors.WithMessage(err, query)
	}
	return tables.data, nil
}

// LargeTextColumn is a CLOB or NCLOB column of a populated table.
type LargeTextColumn struct {
	Table    string
	Column   string
	DataType string
	NumRows  int64
}

// ListLargeTextColumns returns the large text columns of the populated tables of schema.
func ListLargeTextColumns(ctx context.Context, db *sql.DB, schema string) ([]LargeTextColumn, error) {
	var cols []LargeTextColumn
	handleOneRow := func(rows *sql.Rows) error {
		var c LargeTextColumn
		if err := rows.Scan(&c.Table, &c.Column, &c.DataType, &c.NumRows); err != nil {
			return err
		}
		cols = append(cols, c)
		return nil
	}
	if err := simpleQuery(ctx, db, largeTextColumnsQuery, handleOneRow, sql.Named("owner", schema)); err != nil {
		return nil, errors.WithMessage(err, "list large text columns")
	}
	return cols, nil
}

// SelectVersion returns the RDBMS version string of the server.
func SelectVersion(ctx context.Context, db *sql.DB) (string, error) {
	var versionInfo string
	handleOneRow := func(rows *sql.Rows) error {
		return rows.Scan(&versionInfo)
	}
	err := simpleQuery(ctx, db, versionQuery, handleOneRow)
	if err != nil {
		return "", errors.WithMessage(err, versionQuery)
	}
	return versionInfo, nil
}

// SelectCurrentSCN returns the current system change number of the database.
func SelectCurrentSCN(ctx context.Context, db *sql.DB) (uint64, error) {
	var scn string
	handleOneRow := func(rows *sql.Rows) error {
		return rows.Scan(&scn)
	}
	if err := simpleQuery(ctx, db, currentSCNQuery, handleOneRow); err != nil {
		return 0, errors.WithMessage(err, currentSCNQuery)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(scn), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse current scn %q", scn)
	}
	return n, nil
}

func buildSelectAllQuery(schema, table string, snapshotSCN uint64) string {
	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	if schema != "" {
		sb.WriteString(schema)
		sb.WriteByte('.')
	}
	sb.WriteString(table)
	if snapshotSCN > 0 {
		fmt.Fprintf(&sb, " AS OF SCN %d", snapshotSCN)
	}
	return sb.String()
}

// SelectAllFromTable opens a row stream over every row of table, read as of
// snapshotSCN unless it is 0.
func SelectAllFromTable(tctx *tcontext.Context, conf *Config, db *sql.DB, table string, snapshotSCN uint64) (TableDataIR, error) {
	query := buildSelectAllQuery(conf.Schema, table, snapshotSCN)
	return selectFromQuery(tctx, conf, db, table, query)
}

// SelectFromQuery opens a row stream over an arbitrary query, exported
// under the subject name.
func SelectFromQuery(tctx *tcontext.Context, conf *Config, db *sql.DB, subject, query string) (TableDataIR, error) {
	return selectFromQuery(tctx, conf, db, subject, query)
}

func selectFromQuery(tctx *tcontext.Context, conf *Config, db *sql.DB, name, query string) (TableDataIR, error) {
	tctx.L().Debug("select from table", zap.String("table", name), zap.String("query", query))
	rows, err := db.QueryContext(tctx.Context(), query, conf.queryOptions()...)
	if err != nil {
		return nil, errors.WithMessage(errors.WithStack(err), query)
	}
	td, err := newTableData(name, query, rows)
	if err != nil {
		rows.Close()
		return nil, errors.WithMessage(err, query)
	}
	return td, nil
}

type oneStrColumnTable struct {
	data []string
}

func (o *oneStrColumnTable) handleOneRow(rows *sql.Rows) error {
	var str string
	if err := rows.Scan(&str); err != nil {
		return errors.WithStack(err)
	}
	o.data = append(o.data, str)
	return nil
}

func simpleQuery(ctx context.Context, db *sql.DB, query string, handleOneRow func(*sql.Rows) error, args ...interface{}) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return errors.WithStack(err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := handleOneRow(rows); err != nil {
			return errors.WithStack(err)
		}
	}
	return errors.WithStack(rows.Err())
}
