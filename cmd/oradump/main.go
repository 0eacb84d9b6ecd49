package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	tcontext "github.com/oradump/oradump/v4/context"
	"github.com/oradump/oradump/v4/export"
	"github.com/oradump/oradump/v4/log"
)

const (
	exitOK          = 0
	exitFatal       = 1
	exitTableErrors = 3
)

const (
	flagConfig   = "config"
	flagEnvFile  = "env-file"
	flagListFile = "list-file"
	flagSQL      = "sql"
	flagSubject  = "subject"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app holds the state shared by the commands of one invocation.
type app struct {
	conf       *export.Config
	configFile string
	envFile    string
	stdout     io.Writer
	exitCode   int
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{conf: export.DefaultConfig(), stdout: stdout}
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "oradump: %s\n", strings.ReplaceAll(err.Error(), "\n", " "))
		return exitFatal
	}
	return a.exitCode
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oradump [flags] <table-list-file>",
		Short: "Export the tables of an Oracle schema to CSV or JSON files",
		Long: "oradump exports every table named in a table list file, one name per line,\n" +
			"to its own CSV or JSON file. Use the list command to create such a file.",
		Args:              cobra.ArbitraryArgs,
		PersistentPreRunE: a.loadConfig,
		RunE:              a.runDump,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	flags := cmd.PersistentFlags()
	a.conf.DefineFlags(flags)
	flags.StringVar(&a.configFile, flagConfig, "", "TOML config `file`")
	flags.StringVar(&a.envFile, flagEnvFile, "", "dotenv `file` with ORADUMP_* variables, e.g. ORADUMP_PASSWORD")

	cmd.AddCommand(a.listCmd(), a.queryCmd(), a.pingCmd(), a.clobStatsCmd())
	return cmd
}

// loadConfig layers defaults, the TOML file, the environment and the flags
// set on the command line, in increasing precedence.
func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	conf := export.DefaultConfig()
	if a.configFile != "" {
		if err := conf.LoadFromTOML(a.configFile); err != nil {
			return err
		}
	}
	if err := conf.LoadFromEnv(a.envFile); err != nil {
		return err
	}
	if err := conf.ParseFromFlags(cmd.Flags()); err != nil {
		return export.UsageError("%v", err)
	}
	conf.Out = a.stdout
	if err := conf.Adjust(); err != nil {
		return err
	}
	a.conf = conf
	return nil
}

func (a *app) runDump(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return export.UsageError("expected exactly one table list file argument, got %d", len(args))
	}
	names, err := export.ReadTableNameFile(args[0])
	if err != nil {
		return err
	}
	return a.withDumper(cmd.Context(), func(d *export.Dumper) error {
		summary, err := d.Dump(names)
		if err != nil {
			return err
		}
		if summary.HasErrors() {
			a.exitCode = exitTableErrors
		}
		return nil
	})
}

func (a *app) listCmd() *cobra.Command {
	var listFile string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Write the tables of the schema to a table list file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDumper(cmd.Context(), func(d *export.Dumper) error {
				_, _, err := d.WriteTableList(listFile)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&listFile, flagListFile, "", "Table list `path`, defaults to <schema>_tables.txt")
	return cmd
}

func (a *app) queryCmd() *cobra.Command {
	var query, subject string
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Export the rows of an arbitrary query to <subject>.<filetype>",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(query) == "" {
				return export.UsageError("missing --%s", flagSQL)
			}
			if export.SanitizeTableName(subject) == "" {
				return export.UsageError("missing or invalid --%s %q", flagSubject, subject)
			}
			return a.withDumper(cmd.Context(), func(d *export.Dumper) error {
				if _, err := d.DumpQuery(subject, query); err != nil {
					if export.IsKind(err, export.ErrUsage) {
						return err
					}
					a.exitCode = exitTableErrors
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&query, flagSQL, "", "The `query` to export")
	cmd.Flags().StringVar(&subject, flagSubject, "", "Output file `name` of the query")
	return cmd
}

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the database can be reached with the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDumper(cmd.Context(), func(d *export.Dumper) error {
				fmt.Fprintln(a.stdout, pingMessage(a.conf.Schema, d.ServerInfo()))
				return nil
			})
		},
	}
}

func pingMessage(schema string, info export.ServerInfo) string {
	return fmt.Sprintf("connected to %s (Oracle %s)", schema, info)
}

func (a *app) clobStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clob-stats",
		Short: "List the CLOB and NCLOB columns of the populated tables of the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDumper(cmd.Context(), func(d *export.Dumper) error {
				cols, err := d.LargeTextColumns()
				if err != nil {
					return err
				}
				renderLargeTextColumns(a.stdout, cols)
				return nil
			})
		},
	}
}

func renderLargeTextColumns(w io.Writer, cols []export.LargeTextColumn) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Column", "Type", "Rows"})
	for _, c := range cols {
		t.AppendRow(table.Row{c.Table, c.Column, c.DataType, c.NumRows})
	}
	t.Render()
}

// withDumper sets up logging, metrics and the optional status server, then
// runs fn on a connected Dumper. The status server stops once fn returns.
func (a *app) withDumper(ctx context.Context, fn func(*export.Dumper) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, _, err := log.InitAppLogger(&log.Config{
		Level:  a.conf.LogLevel,
		File:   a.conf.LogFile,
		Format: a.conf.LogFormat,
	})
	if err != nil {
		return export.UsageError("init logger: %v", err)
	}
	tctx := tcontext.NewContext(ctx, logger)

	registry := prometheus.NewRegistry()
	export.RegisterMetrics(registry)
	var status *export.StatusServer
	if a.conf.StatusAddr != "" {
		if status, err = export.NewStatusServer(a.conf.StatusAddr, registry); err != nil {
			return export.UsageError("%v", err)
		}
	}

	eg, ectx := errgroup.WithContext(ctx)
	if status != nil {
		eg.Go(func() error {
			return status.Serve(tctx)
		})
	}
	eg.Go(func() error {
		if status != nil {
			defer func() {
				if err := status.Shutdown(context.Background()); err != nil {
					log.Warn("shutdown status server failed", log.ShortError(err))
				}
			}()
		}
		d, err := export.NewDumper(ectx, a.conf)
		if err != nil {
			return err
		}
		defer d.Close()
		return fn(d)
	})
	err = eg.Wait()
	log.Info("oradump finished", zap.Int("exit code", a.exitCode), zap.Bool("failed", err != nil))
	return err
}
