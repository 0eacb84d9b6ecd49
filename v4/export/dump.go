package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	tcontext "github.com/oradump/oradump/v4/context"
	"github.com/oradump/oradump/v4/log"
)

// Dumper is the export driver of one run. Tables are exported one after the
// other on a single connection, each attempted exactly once.
type Dumper struct {
	tctx       *tcontext.Context
	conf       *Config
	dbHandle   *sql.DB
	runID      string
	serverInfo ServerInfo
}

// NewDumper checks conf, connects to the database and returns a Dumper.
func NewDumper(ctx context.Context, conf *Config) (*Dumper, error) {
	if err := conf.Adjust(); err != nil {
		return nil, err
	}
	if err := conf.ValidateConnection(); err != nil {
		return nil, err
	}
	runID := uuid.New().String()
	tctx := tcontext.Background().WithContext(ctx).WithFields(zap.String("run", runID))
	tctx.L().Info("begin to run oradump", zap.Stringer("config", conf))

	db, err := openDB(tctx, conf)
	if err != nil {
		return nil, QueryError("", err)
	}
	return newDumper(tctx, conf, db, runID), nil
}

func newDumper(tctx *tcontext.Context, conf *Config, db *sql.DB, runID string) *Dumper {
	d := &Dumper{
		tctx:     tctx,
		conf:     conf,
		dbHandle: db,
		runID:    runID,
	}
	info, err := detectServerInfo(tctx, db)
	if err != nil {
		tctx.L().Warn("detect server version failed", log.ShortError(err))
	} else {
		tctx.L().Info("detected server version", zap.Stringer("version", info))
	}
	d.serverInfo = info
	return d
}

// ServerInfo returns the detected server version.
func (d *Dumper) ServerInfo() ServerInfo {
	return d.serverInfo
}

// Close releases the database connection.
func (d *Dumper) Close() error {
	return d.dbHandle.Close()
}

func (d *Dumper) progress(format string, args ...interface{}) {
	fmt.Fprintf(d.conf.Out, format+"\n", args...)
}

// ListTables returns the filtered tables of the configured schema and tablespace.
func (d *Dumper) ListTables() ([]string, error) {
	return prepareTableList(d.tctx.Context(), d.tctx, d.conf, d.dbHandle)
}

// WriteTableList lists the tables and writes them to path, or to the
// default file of the schema when path is empty. It returns the path used
// and the number of names written.
func (d *Dumper) WriteTableList(path string) (string, int, error) {
	tables, err := d.ListTables()
	if err != nil {
		return "", 0, err
	}
	if path == "" {
		path = DefaultTableListPath(d.conf.Schema)
	}
	n, err := WriteTableNameFile(path, tables)
	if err != nil {
		return path, n, err
	}
	d.progress("wrote %d table names to %s", n, path)
	return path, n, nil
}

// LargeTextColumns returns the CLOB and NCLOB columns of the populated,
// filtered tables of the schema.
func (d *Dumper) LargeTextColumns() ([]LargeTextColumn, error) {
	cols, err := ListLargeTextColumns(d.tctx.Context(), d.dbHandle, d.conf.Schema)
	if err != nil {
		return nil, QueryError("", err)
	}
	filter := NewTableFilter(d.conf.IncludeTables, d.conf.ExcludeTables)
	kept := cols[:0]
	for _, c := range cols {
		if filter.MatchTable(c.Table) && IsLargeTextType(c.DataType) {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// DumpFromFile reads the table name file at path and exports every table
// named in it.
func (d *Dumper) DumpFromFile(path string) (*Summary, error) {
	names, err := ReadTableNameFile(path)
	if err != nil {
		return nil, err
	}
	return d.Dump(names)
}

// Dump exports every name to its own file and returns one outcome per name.
// Failures of a table are recorded in its job, the returned error is only
// set for failures that stop the whole run.
func (d *Dumper) Dump(names []string) (*Summary, error) {
	start := time.Now()
	conCtrl, err := NewConsistencyController(d.conf, d.dbHandle, d.serverInfo)
	if err != nil {
		return nil, err
	}
	if err = conCtrl.Setup(d.tctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := conCtrl.TearDown(d.tctx); err != nil {
			d.tctx.L().Warn("tear down consistency failed", zap.Error(err))
		}
	}()

	writer, err := NewSimpleWriter(d.conf)
	if err != nil {
		return nil, err
	}

	summary := &Summary{RunID: d.runID, Jobs: make([]*ExportJob, 0, len(names))}
	iter := newStringIter(names...)
	for iter.HasNext() {
		job := NewExportJob(iter.Next())
		summary.Jobs = append(summary.Jobs, job)
		d.dumpTable(writer, job, conCtrl.SnapshotSCN())
	}
	summary.Elapsed = time.Since(start)

	d.renderSummary(summary)
	d.tctx.L().Info("dump finished",
		zap.Int("tables", len(summary.Jobs)),
		zap.Int("errored", summary.Count(JobErrored)),
		zap.Uint64("rows", summary.TotalRows()),
		zap.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

func (d *Dumper) dumpTable(writer Writer, job *ExportJob, snapshotSCN uint64) {
	defer observeJob(job)
	if job.Table == "" {
		_ = job.transit(JobSkipped)
		d.progress("skipping invalid table name %q", job.Name)
		d.tctx.L().Warn("skipping invalid table name", zap.String("name", job.Name))
		return
	}
	if job.Table != job.Name {
		d.tctx.L().Warn("sanitized table name", zap.String("name", job.Name), zap.String("table", job.Table))
	}

	d.progress("processing %s", job.Table)
	tctx := d.tctx.WithFields(zap.String("table", job.Table))
	if d.conf.TableTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = tctx.WithTimeout(d.conf.TableTimeout)
		defer cancel()
	}
	if tctx.L().IsDebug() {
		tctx.L().Debug("table query", zap.String("query", buildSelectAllQuery(d.conf.Schema, job.Table, snapshotSCN)))
	}
	open := func(tctx *tcontext.Context) (TableDataIR, error) {
		return SelectAllFromTable(tctx, d.conf, d.dbHandle, job.Table, snapshotSCN)
	}
	if err := writer.WriteTableData(tctx, job, open); err != nil {
		d.progress("error on %s: %v", job.Table, err)
		tctx.L().Error("dump table failed", log.ShortError(err))
		return
	}
	d.progress("wrote %d rows to %s", job.Rows, job.FilePath)
}

// DumpQuery exports the rows of an arbitrary query into the file named after
// subject.
func (d *Dumper) DumpQuery(subject, query string) (*ExportJob, error) {
	job := NewExportJob(subject)
	if job.Table == "" {
		return job, UsageError("invalid subject %q", subject)
	}
	if query == "" {
		return job, UsageError("missing query for subject %s", job.Table)
	}
	writer, err := NewSimpleWriter(d.conf)
	if err != nil {
		return job, err
	}
	defer observeJob(job)

	d.progress("processing %s", job.Table)
	tctx := d.tctx.WithFields(zap.String("subject", job.Table))
	open := func(tctx *tcontext.Context) (TableDataIR, error) {
		return SelectFromQuery(tctx, d.conf, d.dbHandle, job.Table, query)
	}
	if err = writer.WriteTableData(tctx, job, open); err != nil {
		d.progress("error on %s: %v", job.Table, err)
		return job, err
	}
	d.progress("wrote %d rows to %s", job.Rows, job.FilePath)
	return job, nil
}

func (d *Dumper) renderSummary(s *Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(d.conf.Out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "State", "Rows", "Size", "Elapsed", "File"})
	for _, job := range s.Jobs {
		name := job.Table
		if name == "" {
			name = fmt.Sprintf("%q", job.Name)
		}
		t.AppendRow(table.Row{
			name,
			job.State.String(),
			job.Rows,
			units.HumanSize(float64(job.Bytes)),
			job.Elapsed.Round(time.Millisecond).String(),
			job.FilePath,
		})
	}
	t.AppendFooter(table.Row{
		"Total", "", s.TotalRows(), units.HumanSize(float64(s.TotalBytes())),
		s.Elapsed.Round(time.Millisecond).String(), "",
	})
	t.Render()
	d.progress("export completed: %d tables, %d done, %d errored, %d skipped",
		len(s.Jobs), s.Count(JobDone), s.Count(JobErrored), s.Count(JobSkipped))
}
