package export

import (
	"bytes"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	tcontext "github.com/oradump/oradump/v4/context"
)

func newTestDumper(t *testing.T, conf *Config) (*Dumper, sqlmock.Sqlmock, *bytes.Buffer) {
	d, mock, progress := newTestDumperWithVersion(t, conf, "19.0.0.0.0")
	require.Equal(t, int64(19), d.ServerInfo().ServerVersion.Major)
	return d, mock, progress
}

func newTestDumperWithVersion(t *testing.T, conf *Config, version string) (*Dumper, sqlmock.Sqlmock, *bytes.Buffer) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	progress := &bytes.Buffer{}
	conf.Driver = DriverGoOra
	conf.Out = progress
	if conf.User == "" {
		conf.User = "cgm_ddb"
	}
	require.NoError(t, conf.Adjust())

	if version == "" {
		mock.ExpectQuery(regexp.QuoteMeta(versionQuery)).WillReturnError(errors.New("ORA-00942: table or view does not exist"))
	} else {
		mock.ExpectQuery(regexp.QuoteMeta(versionQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"VALUE"}).AddRow(version))
	}
	d := newDumper(tcontext.Background(), conf, db, "test-run")
	return d, mock, progress
}

func featureRows() *sqlmock.Rows {
	return sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("FEATURE_ID").OfType("NUMBER", int64(0)),
		sqlmock.NewColumn("UNIQUENAME").OfType("VARCHAR2", ""),
		sqlmock.NewColumn("RESIDUES").OfType("CLOB", ""),
	).
		AddRow(int64(1), "DDB_G0267178", "ATG\nTAA").
		AddRow(int64(2), "DDB_G0267180", nil)
}

func TestDumpTables(t *testing.T) {
	conf := DefaultConfig()
	conf.OutputDirPath = filepath.Join(t.TempDir(), "export")
	d, mock, progress := newTestDumper(t, conf)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM CGM_DDB.FEATURE")).WillReturnRows(featureRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM CGM_DDB.MISSING")).
		WillReturnError(errors.New("ORA-00942: table or view does not exist"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM CGM_DDB.PUB")).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("PUB_ID").OfType("NUMBER", int64(0)),
		))

	summary, err := d.Dump([]string{"FEATURE", "MISSING", "--", "PUB;"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, summary.Jobs, 4)
	states := make([]JobState, 0, 4)
	for _, job := range summary.Jobs {
		states = append(states, job.State)
	}
	require.Equal(t, []JobState{JobDone, JobErrored, JobSkipped, JobDone}, states)
	require.True(t, summary.HasErrors())
	require.Equal(t, uint64(2), summary.TotalRows())
	require.True(t, IsKind(summary.Jobs[1].Err, ErrQuery))
	var qerr *Error
	require.True(t, errors.As(summary.Jobs[1].Err, &qerr))
	require.Equal(t, "MISSING", qerr.Table())

	content, err := os.ReadFile(filepath.Join(conf.OutputDirPath, "FEATURE.json"))
	require.NoError(t, err)
	require.Equal(t,
		"{\"FEATURE_ID\":1,\"UNIQUENAME\":\"DDB_G0267178\",\"RESIDUES\":\"ATG\\nTAA\"}\n"+
			"{\"FEATURE_ID\":2,\"UNIQUENAME\":\"DDB_G0267180\",\"RESIDUES\":null}\n",
		string(content))
	content, err = os.ReadFile(filepath.Join(conf.OutputDirPath, "PUB.json"))
	require.NoError(t, err)
	require.Empty(t, content)

	lines := progress.String()
	require.Contains(t, lines, "processing FEATURE\n")
	require.Contains(t, lines, "wrote 2 rows to "+filepath.Join(conf.OutputDirPath, "FEATURE.json")+"\n")
	require.Contains(t, lines, "error on MISSING: ")
	require.Contains(t, lines, "ORA-00942")
	require.Contains(t, lines, "skipping invalid table name \"--\"\n")
	require.Contains(t, lines, "export completed: 4 tables, 2 done, 1 errored, 1 skipped\n")
	require.Less(t, strings.Index(lines, "processing FEATURE"), strings.Index(lines, "processing MISSING"))
}

func TestDumpCSVAsOfSCN(t *testing.T) {
	conf := DefaultConfig()
	conf.OutputDirPath = t.TempDir()
	conf.FileType = "csv"
	conf.Consistency = ConsistencySCN
	d, mock, _ := newTestDumper(t, conf)

	mock.ExpectQuery(regexp.QuoteMeta(currentSCNQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"CURRENT_SCN"}).AddRow("777"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM CGM_DDB.FEATURE AS OF SCN 777")).WillReturnRows(featureRows())

	summary, err := d.Dump([]string{"FEATURE"})
	require.NoError(t, err)
	require.False(t, summary.HasErrors())
	require.NoError(t, mock.ExpectationsWereMet())

	require.Empty(t, conf.Snapshot)

	content, err := os.ReadFile(filepath.Join(conf.OutputDirPath, "FEATURE.csv"))
	require.NoError(t, err)
	require.Equal(t, "1,DDB_G0267178,ATG\nTAA\n2,DDB_G0267180,\n", string(content))
}

func TestDumpSCNFailureIsFatal(t *testing.T) {
	conf := DefaultConfig()
	conf.OutputDirPath = filepath.Join(t.TempDir(), "never")
	conf.Consistency = ConsistencySCN
	d, mock, _ := newTestDumper(t, conf)

	mock.ExpectQuery(regexp.QuoteMeta(currentSCNQuery)).WillReturnError(errors.New("ORA-01031: insufficient privileges"))
	_, err := d.Dump([]string{"FEATURE"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	_, statErr := os.Stat(conf.OutputDirPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestDumpSCNNeedsCurrentSCNSupport(t *testing.T) {
	conf := DefaultConfig()
	conf.OutputDirPath = filepath.Join(t.TempDir(), "never")
	conf.Consistency = ConsistencySCN
	d, mock, _ := newTestDumperWithVersion(t, conf, "9.2.0.8.0")
	require.Equal(t, "9.2", d.ServerInfo().String())

	_, err := d.Dump([]string{"FEATURE"})
	require.True(t, IsKind(err, ErrUsage))
	require.Contains(t, err.Error(), "server is 9.2")
	require.NoError(t, mock.ExpectationsWereMet())
	_, statErr := os.Stat(conf.OutputDirPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestDumpConfiguredSnapshotWithUnknownVersion(t *testing.T) {
	conf := DefaultConfig()
	conf.OutputDirPath = t.TempDir()
	conf.Snapshot = "4242"
	d, mock, _ := newTestDumperWithVersion(t, conf, "")
	require.Nil(t, d.ServerInfo().ServerVersion)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM CGM_DDB.FEATURE AS OF SCN 4242")).WillReturnRows(featureRows())
	summary, err := d.Dump([]string{"FEATURE"})
	require.NoError(t, err)
	require.Equal(t, JobDone, summary.Jobs[0].State)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Equal(t, "4242", conf.Snapshot)
}

func TestDumpFromMissingFile(t *testing.T) {
	conf := DefaultConfig()
	conf.OutputDirPath = filepath.Join(t.TempDir(), "never")
	d, mock, progress := newTestDumper(t, conf)

	_, err := d.DumpFromFile(filepath.Join(t.TempDir(), "nope.txt"))
	require.True(t, IsKind(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
	require.Empty(t, progress.String())
	_, statErr := os.Stat(conf.OutputDirPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestDumpFromFile(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "tables.txt")
	_, err := WriteTableNameFile(listPath, []string{"FEATURE"})
	require.NoError(t, err)

	conf := DefaultConfig()
	conf.OutputDirPath = filepath.Join(dir, "out")
	conf.Compress = CompressGzip
	d, mock, _ := newTestDumper(t, conf)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM CGM_DDB.FEATURE")).WillReturnRows(featureRows())

	summary, err := d.DumpFromFile(listPath)
	require.NoError(t, err)
	require.Equal(t, JobDone, summary.Jobs[0].State)
	require.Equal(t, filepath.Join(conf.OutputDirPath, "FEATURE.json.gz"), summary.Jobs[0].FilePath)
	require.Contains(t, readCompressed(t, summary.Jobs[0].FilePath, CompressGzip), "DDB_G0267178")
}

func TestDumpQuery(t *testing.T) {
	conf := DefaultConfig()
	conf.OutputDirPath = t.TempDir()
	conf.FileType = "csv"
	d, mock, progress := newTestDumper(t, conf)

	const query = "SELECT f.uniquename, f.residues FROM feature f JOIN cvterm c ON c.cvterm_id = f.type_id"
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("UNIQUENAME").OfType("VARCHAR2", ""),
			sqlmock.NewColumn("RESIDUES").OfType("CLOB", ""),
		).AddRow("DDB_G0267178", "AC\r\nGT\r\n"))

	job, err := d.DumpQuery("feature_clob", query)
	require.NoError(t, err)
	require.Equal(t, JobDone, job.State)
	require.NoError(t, mock.ExpectationsWereMet())

	content, err := os.ReadFile(filepath.Join(conf.OutputDirPath, "feature_clob.csv"))
	require.NoError(t, err)
	require.Equal(t, "DDB_G0267178,AC\nGT\n", string(content))
	require.Contains(t, progress.String(), "wrote 1 rows to ")

	_, err = d.DumpQuery("!!", query)
	require.True(t, IsKind(err, ErrUsage))
	_, err = d.DumpQuery("subject", "")
	require.True(t, IsKind(err, ErrUsage))
}

func TestWriteTableList(t *testing.T) {
	conf := DefaultConfig()
	conf.Tablespace = "cgm_ddb"
	conf.ExcludeTables = []string{"CHADO_LOGS"}
	d, mock, progress := newTestDumper(t, conf)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT table_name FROM all_tables WHERE owner = :owner AND tablespace_name = :tablespace")).
		WithArgs(sql.Named("owner", "CGM_DDB"), sql.Named("tablespace", "CGM_DDB")).
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).
			AddRow("CHADO_LOGS").AddRow("FEATURE").AddRow("FEATUREPROP"))

	path := filepath.Join(t.TempDir(), "tables.txt")
	got, n, err := d.WriteTableList(path)
	require.NoError(t, err)
	require.Equal(t, path, got)
	require.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())

	names, err := ReadTableNameFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"FEATURE", "FEATUREPROP"}, names)
	require.Contains(t, progress.String(), "wrote 2 table names to "+path)
}

func TestWriteTableListQueryFailure(t *testing.T) {
	conf := DefaultConfig()
	d, mock, _ := newTestDumper(t, conf)
	mock.ExpectQuery("SELECT table_name FROM all_tables").WillReturnError(errors.New("ORA-12541: TNS:no listener"))

	path := filepath.Join(t.TempDir(), "tables.txt")
	_, _, err := d.WriteTableList(path)
	require.True(t, IsKind(err, ErrQuery))
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestLargeTextColumns(t *testing.T) {
	conf := DefaultConfig()
	conf.ExcludeTables = []string{"featureprop"}
	d, mock, _ := newTestDumper(t, conf)
	mock.ExpectQuery(regexp.QuoteMeta("FROM all_tab_columns c")).
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "COLUMN_NAME", "DATA_TYPE", "NUM_ROWS"}).
			AddRow("FEATURE", "RESIDUES", "CLOB", int64(12)).
			AddRow("FEATUREPROP", "VALUE", "CLOB", int64(4)).
			AddRow("STOCK", "NOTES", "VARCHAR2", int64(9)))

	cols, err := d.LargeTextColumns()
	require.NoError(t, err)
	require.Len(t, cols, 1)
	require.Equal(t, "RESIDUES", cols[0].Column)
}

func TestDumpRowErrorOnlyFailsItsTable(t *testing.T) {
	conf := DefaultConfig()
	conf.OutputDirPath = t.TempDir()
	d, mock, progress := newTestDumper(t, conf)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM CGM_DDB.FEATURE")).
		WillReturnRows(featureRows().RowError(1, errors.New("ORA-03113: end-of-file on communication channel")))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM CGM_DDB.PUB")).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("PUB_ID").OfType("NUMBER", int64(0)),
		).AddRow(int64(5)))

	summary, err := d.Dump([]string{"FEATURE", "PUB"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Equal(t, JobErrored, summary.Jobs[0].State)
	require.Equal(t, uint64(1), summary.Jobs[0].Rows)
	require.True(t, IsKind(summary.Jobs[0].Err, ErrQuery))
	require.Equal(t, JobDone, summary.Jobs[1].State)
	require.Contains(t, progress.String(), "error on FEATURE: ")
	require.Contains(t, progress.String(), "wrote 1 rows to ")
}
