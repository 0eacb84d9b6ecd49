package out

import "fmt"

// Options controls how records are rendered.
type Options struct {
	Format FileFormat
	// Separator joins CSV fields.
	Separator string
	// NullValue is written for NULL CSV fields.
	NullValue string
	// Style frames JSON records.
	Style JSONStyle
	// LineSplitter ends every record.
	LineSplitter string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Format:       FormatCSV,
		Separator:    ",",
		NullValue:    "",
		Style:        JSONLines,
		LineSplitter: "\n",
	}
}

// Validate checks the option values.
func (o Options) Validate() error {
	switch o.Format {
	case FormatCSV:
		if o.Separator == "" {
			return fmt.Errorf("csv separator must not be empty")
		}
	case FormatJSON:
		switch o.Style {
		case JSONLines, JSONArray:
		default:
			return fmt.Errorf("unknown json style %q, expected %q or %q", o.Style, JSONLines, JSONArray)
		}
	default:
		return fmt.Errorf("unknown file format %q, expected %q or %q", o.Format, FormatCSV, FormatJSON)
	}
	if o.LineSplitter == "" {
		return fmt.Errorf("line splitter must not be empty")
	}
	return nil
}
