package out

import (
	"io"
	"strings"
)

// CSVLine joins the record values with the separator. Values are written
// verbatim: separators, quotes and line breaks inside a value are not
// escaped, so such values do not round-trip through a CSV parser.
func CSVLine(rec Record, opt Options) string {
	return strings.Join(rec.Values(opt.NullValue), opt.Separator)
}

// JSONObject renders the record as one JSON object with keys in column order.
func JSONObject(rec Record) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, f := range rec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(quoteJSONString(f.Name))
		sb.WriteByte(':')
		switch {
		case f.Null:
			sb.WriteString("null")
		case f.Numeric:
			if n, ok := normalizeNumber(f.Value); ok {
				sb.WriteString(n)
				continue
			}
			sb.WriteString(quoteJSONString(f.Value))
		default:
			sb.WriteString(quoteJSONString(f.Value))
		}
	}
	sb.WriteByte('}')
	return sb.String()
}

// Encoder writes a sequence of records as one document.
type Encoder struct {
	w     io.StringWriter
	opt   Options
	count int
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.StringWriter, opt Options) *Encoder {
	return &Encoder{w: w, opt: opt}
}

// Begin writes the document prologue.
func (e *Encoder) Begin() (int, error) {
	if e.opt.Format == FormatJSON && e.opt.Style == JSONArray {
		return write(e.w, "["+e.opt.LineSplitter)
	}
	return 0, nil
}

// Encode appends one record and returns the number of bytes written.
func (e *Encoder) Encode(rec Record) (int, error) {
	var line string
	switch e.opt.Format {
	case FormatJSON:
		line = JSONObject(rec)
		if e.opt.Style == JSONArray && e.count > 0 {
			line = "," + e.opt.LineSplitter + line
		}
	default:
		line = CSVLine(rec, e.opt)
	}
	if e.opt.Format != FormatJSON || e.opt.Style != JSONArray {
		line += e.opt.LineSplitter
	}
	e.count++
	return write(e.w, line)
}

// End writes the document epilogue.
func (e *Encoder) End() (int, error) {
	if e.opt.Format != FormatJSON || e.opt.Style != JSONArray {
		return 0, nil
	}
	if e.count > 0 {
		return write(e.w, e.opt.LineSplitter+"]"+e.opt.LineSplitter)
	}
	return write(e.w, "]"+e.opt.LineSplitter)
}

func write(w io.StringWriter, s string) (int, error) {
	return w.WriteString(s)
}
