package naughty_strings

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pingcap/errors"

	"github.com/oradump/oradump/v4/export"
)

const tableName = "ORADUMP_NAUGHTY_STRINGS"

// NaughtyStringTestRunner round trips hostile strings through a CLOB column.
type NaughtyStringTestRunner struct{}

func NewNaughtyStringTestRunner() *NaughtyStringTestRunner {
	return &NaughtyStringTestRunner{}
}

func (n *NaughtyStringTestRunner) RelativeTestDataPath() string {
	return filepath.Join("naughty_strings", "strings.json")
}

func (n *NaughtyStringTestRunner) BuildConfig() *export.Config {
	conf := export.DefaultConfig()
	conf.FileType = "json"
	conf.JSONStyle = "lines"
	conf.Out = os.Stdout
	return conf
}

func (n *NaughtyStringTestRunner) Tables() []string {
	return []string{tableName}
}

func (n *NaughtyStringTestRunner) Prepare(dataFilePath string, db *sql.DB) error {
	strs, err := readStrings(dataFilePath)
	if err != nil {
		return err
	}

	_, err = db.Exec("BEGIN EXECUTE IMMEDIATE 'DROP TABLE " + tableName + " PURGE'; EXCEPTION WHEN OTHERS THEN NULL; END;")
	if err != nil {
		return errors.Trace(err)
	}
	_, err = db.Exec("CREATE TABLE " + tableName + " (ID NUMBER(10) PRIMARY KEY, A CLOB)")
	if err != nil {
		return errors.Trace(err)
	}
	for i, str := range strs {
		_, err = db.Exec("INSERT INTO "+tableName+" (ID, A) VALUES (:1, :2)", i, str)
		if err != nil {
			return errors.Annotatef(err, "insert string %d", i)
		}
	}
	return nil
}

type exportedRow struct {
	ID int     `json:"ID"`
	A  *string `json:"A"`
}

func (n *NaughtyStringTestRunner) Verify(dataFilePath, outputDir string) error {
	strs, err := readStrings(dataFilePath)
	if err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(outputDir, tableName+".json"))
	if err != nil {
		return errors.Trace(err)
	}
	defer f.Close()

	seen := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var row exportedRow
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			return errors.Annotatef(err, "line %d is not a JSON object", seen+1)
		}
		if row.ID < 0 || row.ID >= len(strs) {
			return errors.Errorf("unexpected ID %d", row.ID)
		}
		want := joinedLines(strs[row.ID])
		// Oracle stores the empty string as NULL.
		got := ""
		if row.A != nil {
			got = *row.A
		}
		if got != want {
			return errors.Errorf("string %d: got %q, want %q", row.ID, got, want)
		}
		seen++
	}
	if err := scanner.Err(); err != nil {
		return errors.Trace(err)
	}
	if seen != len(strs) {
		return errors.Errorf("exported %d rows, want %d", seen, len(strs))
	}
	return nil
}

// joinedLines is what the export makes of a large text: LF separated lines,
// a CR before a LF dropped, no trailing line break.
func joinedLines(s string) string {
	parts := strings.Split(s, "\n")
	last := parts[len(parts)-1]
	parts = parts[:len(parts)-1]
	for i := range parts {
		parts[i] = strings.TrimSuffix(parts[i], "\r")
	}
	if last != "" {
		parts = append(parts, last)
	}
	return strings.Join(parts, "\n")
}

func readStrings(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var strs []string
	if err = json.Unmarshal(data, &strs); err != nil {
		return nil, errors.Annotatef(err, "parse %s", path)
	}
	return strs, nil
}
