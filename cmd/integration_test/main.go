package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"path/filepath"

	"github.com/pingcap/errors"
	flag "github.com/spf13/pflag"

	"github.com/oradump/oradump/cmd/integration_test/naughty_strings"
	"github.com/oradump/oradump/v4/export"
)

// TestRunner prepares a table on a live database and checks what oradump
// exported from it.
type TestRunner interface {
	RelativeTestDataPath() string
	BuildConfig() *export.Config
	Tables() []string
	Prepare(dataFilePath string, db *sql.DB) error
	Verify(dataFilePath, outputDir string) error
}

var (
	integrationTestDir string
	envFile            string
)

func init() {
	wd, err := os.Getwd()
	mustSucceed(err)
	flag.StringVar(&integrationTestDir, "src", wd, "the path of directory that contains test data")
	flag.StringVar(&envFile, "env-file", "", "dotenv file with the ORADUMP_* connection variables")
}

func main() {
	flag.Parse()
	allTestRunners := []TestRunner{
		naughty_strings.NewNaughtyStringTestRunner(),
	}

	for _, runner := range allTestRunners {
		testDataPath := filepath.Join(integrationTestDir, runner.RelativeTestDataPath())

		conf := runner.BuildConfig()
		mustSucceed(processConfig(conf))
		db, err := export.OpenDB(context.Background(), conf)
		mustSucceed(err)
		mustSucceed(runner.Prepare(testDataPath, db))
		mustSucceed(db.Close())

		mustSucceed(dump(conf, runner.Tables()))
		mustSucceed(runner.Verify(testDataPath, conf.OutputDirPath))
		log.Printf("%T passed", runner)
	}
}

func processConfig(conf *export.Config) error {
	tempOutputDir := filepath.Join(os.TempDir(), "test-oradump")
	if err := os.RemoveAll(tempOutputDir); err != nil {
		return errors.Trace(err)
	}
	conf.OutputDirPath = tempOutputDir
	if err := conf.LoadFromEnv(envFile); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(conf.Adjust())
}

func dump(conf *export.Config, tables []string) error {
	d, err := export.NewDumper(context.Background(), conf)
	if err != nil {
		return errors.Trace(err)
	}
	defer d.Close()

	summary, err := d.Dump(tables)
	if err != nil {
		return errors.Trace(err)
	}
	for _, job := range summary.Jobs {
		if job.State != export.JobDone {
			return errors.Errorf("table %s ended %s: %v", job.Name, job.State, job.Err)
		}
	}
	return nil
}

func mustSucceed(err error) {
	if err != nil {
		log.Fatalf("%+v", errors.WithStack(err))
	}
}
