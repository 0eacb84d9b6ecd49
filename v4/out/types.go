package out

// Field is one column of a serialized record.
type Field struct {
	Name  string
	Value string
	// Null marks a database NULL, Value is ignored.
	Null bool
	// Numeric marks values from number columns, emitted unquoted in JSON.
	Numeric bool
}

// Record is one row of a result set in column order.
type Record []Field

// Values returns the textual values of the record, nulls rendered as nullValue.
func (r Record) Values(nullValue string) []string {
	vals := make([]string, len(r))
	for i, f := range r {
		if f.Null {
			vals[i] = nullValue
			continue
		}
		vals[i] = f.Value
	}
	return vals
}

// FileFormat is the document format of an exported file.
type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatJSON FileFormat = "json"
)

// Extension returns the file name extension of the format.
func (f FileFormat) Extension() string {
	return string(f)
}

// JSONStyle decides how JSON records are framed inside one file.
type JSONStyle string

const (
	// JSONLines writes one object per line.
	JSONLines JSONStyle = "lines"
	// JSONArray wraps every object of the file in a single array.
	JSONArray JSONStyle = "array"
)
