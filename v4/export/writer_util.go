package export

import (
	"bufio"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	tcontext "github.com/oradump/oradump/v4/context"
	"github.com/oradump/oradump/v4/log"
	"github.com/oradump/oradump/v4/out"
)

// compressExtension returns the file name suffix of a compress type.
func compressExtension(compress string) string {
	switch compress {
	case CompressGzip:
		return ".gz"
	case CompressZstd:
		return ".zst"
	default:
		return ""
	}
}

// buildFileWriter creates or truncates path and returns a buffered writer on
// it. tearDown flushes the buffer, closes the compressor and the file in this
// order and returns the first error met.
func buildFileWriter(path string, compress string) (io.StringWriter, func() error, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		log.Error("open file failed",
			zap.String("path", path),
			zap.Error(err))
		return nil, nil, errors.WithStack(err)
	}
	log.Debug("opened file", zap.String("path", path))

	var (
		w          io.Writer = file
		compressor io.WriteCloser
	)
	switch compress {
	case CompressGzip:
		compressor = gzip.NewWriter(file)
	case CompressZstd:
		enc, err := zstd.NewWriter(file)
		if err != nil {
			file.Close()
			return nil, nil, errors.WithStack(err)
		}
		compressor = enc
	}
	if compressor != nil {
		w = compressor
	}
	buf := bufio.NewWriter(w)

	tearDownRoutine := func() error {
		firstErr := buf.Flush()
		if compressor != nil {
			if err := compressor.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if firstErr != nil {
			log.Error("close file failed",
				zap.String("path", path),
				zap.Error(firstErr))
		}
		return errors.WithStack(firstErr)
	}
	return buf, tearDownRoutine, nil
}

// InterceptStringWriter is an interceptor of io.StringWriter,
// tracking whether and how much a StringWriter has written.
type InterceptStringWriter struct {
	io.StringWriter
	SomethingIsWritten bool
	WrittenBytes       uint64
}

func (w *InterceptStringWriter) WriteString(str string) (int, error) {
	if len(str) > 0 {
		w.SomethingIsWritten = true
	}
	n, err := w.StringWriter.WriteString(str)
	w.WrittenBytes += uint64(n)
	return n, err
}

// buildRecord resolves the large text values of row and pairs every value
// with its column name. Every large text handle of the row is closed, also
// when an extraction fails.
func buildRecord(row Row) (out.Record, error) {
	rec := make(out.Record, row.Len())
	for i := 0; i < row.Len(); i++ {
		v := row.Value(i)
		f := out.Field{Name: row.Column(i)}
		switch v.Kind {
		case ValueNull:
			f.Null = true
		case ValueScalar:
			f.Value = v.Text
			f.Numeric = v.Numeric
		case ValueLargeText:
			text, err := ExtractLargeText(v.Large)
			if err != nil {
				closeValues(row.values[i+1:])
				return nil, errors.WithMessagef(err, "column %s", row.Column(i))
			}
			f.Value = text
		}
		rec[i] = f
	}
	return rec, nil
}

// WriteRecords streams every row of tblIR into w as one document and returns
// the number of rows written. The row iterator is closed on return.
func WriteRecords(tctx *tcontext.Context, tblIR TableDataIR, w io.StringWriter, opt out.Options) (rowCount uint64, err error) {
	table := tblIR.TableName()
	rowIter := tblIR.Rows()
	defer func() {
		if cerr := rowIter.Close(); cerr != nil && err == nil {
			err = QueryError(table, cerr)
		}
	}()

	enc := out.NewEncoder(w, opt)
	if _, err = enc.Begin(); err != nil {
		return 0, IOError(table, err)
	}
	var (
		receiver = MakeRowReceiver(tblIR.ColumnTypes())
		columns  = tblIR.ColumnNames()
		values   []Value
		rec      out.Record
	)
	for ; rowIter.HasNext(); rowIter.Next() {
		if err = tctx.Context().Err(); err != nil {
			return rowCount, QueryError(table, err)
		}
		if err = rowIter.Decode(receiver); err != nil {
			tctx.L().Error("scanning from sql.Row failed", zap.String("table", table), log.ShortError(err))
			return rowCount, QueryError(table, err)
		}
		values, err = receiver.Values()
		if err != nil {
			return rowCount, QueryError(table, err)
		}
		rec, err = buildRecord(NewRow(columns, values))
		if err != nil {
			return rowCount, QueryError(table, err)
		}
		start := time.Now()
		if _, err = enc.Encode(rec); err != nil {
			return rowCount, IOError(table, err)
		}
		writeTimeHistogram.Observe(time.Since(start).Seconds())
		rowCount++
	}
	if err = rowIter.Error(); err != nil {
		return rowCount, QueryError(table, err)
	}
	if _, err = enc.End(); err != nil {
		return rowCount, IOError(table, err)
	}
	tctx.L().Debug("dumping table",
		zap.String("table", table),
		zap.Uint64("record counts", rowCount))
	return rowCount, nil
}
