package export

import (
	"fmt"
	"regexp"
	"strings"
)

var invalidTableNameChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeTableName removes every character outside [A-Za-z0-9_]. An empty
// result means the name must be skipped.
func SanitizeTableName(name string) string {
	return invalidTableNameChars.ReplaceAllString(name, "")
}

// DefaultTableListPath is the table name file written for schema when no
// path is given.
func DefaultTableListPath(schema string) string {
	return fmt.Sprintf("%s_tables.txt", strings.ToLower(schema))
}
