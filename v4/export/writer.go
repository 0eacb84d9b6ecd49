package export

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	tcontext "github.com/oradump/oradump/v4/context"
	"github.com/oradump/oradump/v4/out"
)

// Writer exports the rows opened by a job into its output file.
type Writer interface {
	WriteTableData(tctx *tcontext.Context, job *ExportJob, open TableOpener) error
}

// TableOpener runs the query of a job once its output is open.
type TableOpener func(*tcontext.Context) (TableDataIR, error)

// SimpleWriter writes one file per job into the output directory.
type SimpleWriter struct {
	cfg *Config
	opt out.Options
}

// NewSimpleWriter creates the output directory and returns a writer in it.
func NewSimpleWriter(config *Config) (*SimpleWriter, error) {
	sw := &SimpleWriter{cfg: config, opt: config.outOptions()}
	if err := os.MkdirAll(config.OutputDirPath, 0o755); err != nil {
		return nil, IOError("", errors.WithStack(err))
	}
	return sw, nil
}

// FileName returns the output file name of table.
func (f *SimpleWriter) FileName(table string) string {
	return table + "." + f.opt.Format.Extension() + compressExtension(f.cfg.Compress)
}

// WriteTableData drives job from JobPending to JobDone or JobErrored. The
// output file is closed on every path.
func (f *SimpleWriter) WriteTableData(tctx *tcontext.Context, job *ExportJob, open TableOpener) error {
	if err := job.transit(JobOpeningOutput); err != nil {
		return err
	}
	job.FilePath = filepath.Join(f.cfg.OutputDirPath, f.FileName(job.Table))
	tctx.L().Debug("start dumping table...", zap.String("table", job.Table), zap.String("path", job.FilePath))

	fileWriter, tearDown, err := buildFileWriter(job.FilePath, f.cfg.Compress)
	if err != nil {
		return f.abort(job, IOError(job.Table, err), nil)
	}
	if err = job.transit(JobStreaming); err != nil {
		return f.abort(job, err, tearDown)
	}

	tblIR, err := open(tctx)
	if err != nil {
		return f.abort(job, QueryError(job.Table, err), tearDown)
	}
	intWriter := &InterceptStringWriter{StringWriter: fileWriter}
	job.Rows, err = WriteRecords(tctx, tblIR, intWriter, f.opt)
	job.Bytes = intWriter.WrittenBytes
	if err != nil {
		return f.abort(job, err, tearDown)
	}

	if err = job.transit(JobClosing); err != nil {
		return f.abort(job, err, tearDown)
	}
	if err = tearDown(); err != nil {
		return f.abort(job, IOError(job.Table, err), nil)
	}
	if err = job.transit(JobDone); err != nil {
		return err
	}
	tctx.L().Debug("dumping table successfully",
		zap.String("table", job.Table),
		zap.Uint64("rows", job.Rows))
	return nil
}

func (f *SimpleWriter) abort(job *ExportJob, err error, tearDown func() error) error {
	if tearDown != nil {
		_ = tearDown()
	}
	if terr := job.fail(err); terr != nil {
		return terr
	}
	return job.Err
}
