package export

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/godror/godror"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/oradump/oradump/v4/out"
)

const (
	flagDriver        = "driver"
	flagUser          = "user"
	flagPassword      = "password"
	flagHost          = "host"
	flagPort          = "port"
	flagServiceName   = "service-name"
	flagConnectString = "connect-string"
	flagSessionParams = "session-params"
	flagSchema        = "schema"
	flagTablespace    = "tablespace"
	flagInclude       = "include-tables"
	flagExclude       = "exclude-tables"
	flagOutput        = "output"
	flagFiletype      = "filetype"
	flagJSONStyle     = "json-style"
	flagCsvSeparator  = "csv-separator"
	flagCsvNullValue  = "csv-null-value"
	flagCompress      = "compress"
	flagFetchSize     = "fetch-size"
	flagTableTimeout  = "table-timeout"
	flagConsistency   = "consistency"
	flagSnapshot      = "snapshot"
	flagLogLevel      = "loglevel"
	flagLogFile       = "logfile"
	flagLogFormat     = "logfmt"
	flagStatusAddr    = "status-addr"

	// EnvPrefix prefixes the environment variables read into the config.
	EnvPrefix = "ORADUMP_"
)

const (
	DriverGodror = "godror"
	DriverGoOra  = "go-ora"

	CompressNone = "none"
	CompressGzip = "gzip"
	CompressZstd = "zstd"

	ConsistencyNone = "none"
	ConsistencySCN  = "scn"
)

// Config is the configuration of one export run.
type Config struct {
	Driver        string   `toml:"driver" json:"driver"`
	User          string   `toml:"user" json:"user"`
	Password      string   `toml:"password" json:"-"`
	Host          string   `toml:"host" json:"host"`
	Port          int      `toml:"port" json:"port"`
	ServiceName   string   `toml:"service-name" json:"service-name"`
	ConnectString string   `toml:"connect-string" json:"connect-string"`
	SessionParams []string `toml:"session-params" json:"session-params"`

	Schema        string   `toml:"schema" json:"schema"`
	Tablespace    string   `toml:"tablespace" json:"tablespace"`
	IncludeTables []string `toml:"include-tables" json:"include-tables"`
	ExcludeTables []string `toml:"exclude-tables" json:"exclude-tables"`

	OutputDirPath string        `toml:"output" json:"output"`
	FileType      string        `toml:"filetype" json:"filetype"`
	JSONStyle     string        `toml:"json-style" json:"json-style"`
	CsvSeparator  string        `toml:"csv-separator" json:"csv-separator"`
	CsvNullValue  string        `toml:"csv-null-value" json:"csv-null-value"`
	Compress      string        `toml:"compress" json:"compress"`
	FetchSize     int           `toml:"fetch-size" json:"fetch-size"`
	TableTimeout  time.Duration `toml:"table-timeout" json:"table-timeout"`

	Consistency string `toml:"consistency" json:"consistency"`
	Snapshot    string `toml:"snapshot" json:"snapshot"`

	LogLevel   string `toml:"log-level" json:"log-level"`
	LogFile    string `toml:"log-file" json:"log-file"`
	LogFormat  string `toml:"log-format" json:"log-format"`
	StatusAddr string `toml:"status-addr" json:"status-addr"`

	// Out receives the operator progress lines.
	Out io.Writer `toml:"-" json:"-"`

}

// DefaultConfig returns the default export Config for oradump
func DefaultConfig() *Config {
	return &Config{
		Driver:        DriverGodror,
		Host:          "127.0.0.1",
		Port:          1521,
		OutputDirPath: ".",
		FileType:      string(out.FormatJSON),
		JSONStyle:     string(out.JSONLines),
		CsvSeparator:  ",",
		CsvNullValue:  "",
		Compress:      CompressNone,
		FetchSize:     256,
		Consistency:   ConsistencyNone,
		LogLevel:      "info",
		LogFormat:     "text",
		Out:           os.Stdout,
	}
}

// String returns the config in a human readable form, the password masked.
func (conf *Config) String() string {
	cfg := *conf
	if cfg.Password != "" {
		cfg.Password = "******"
	}
	return fmt.Sprintf("driver=%s user=%s host=%s port=%d service=%s schema=%s tablespace=%s output=%s filetype=%s compress=%s consistency=%s",
		cfg.Driver, cfg.User, cfg.Host, cfg.Port, cfg.ServiceName, cfg.Schema, cfg.Tablespace,
		cfg.OutputDirPath, cfg.FileType, cfg.Compress, cfg.Consistency)
}

// DefineFlags defines flags of export's configuration
func (conf *Config) DefineFlags(flags *pflag.FlagSet) {
	def := DefaultConfig()
	flags.String(flagDriver, def.Driver, "Oracle driver to use, godror or go-ora")
	flags.StringP(flagUser, "u", def.User, "Username with privileges to read the schema")
	flags.StringP(flagPassword, "p", def.Password, "User password, prefer ORADUMP_PASSWORD")
	flags.StringP(flagHost, "H", def.Host, "The host to connect to")
	flags.IntP(flagPort, "P", def.Port, "TCP/IP port to connect to")
	flags.String(flagServiceName, def.ServiceName, "Oracle service name")
	flags.String(flagConnectString, def.ConnectString, "Full connect string, overrides host, port and service name")
	flags.StringSlice(flagSessionParams, nil, "Statements run on every new session, e.g. \"ALTER SESSION SET NLS_DATE_FORMAT='YYYY-MM-DD'\"")
	flags.StringP(flagSchema, "B", def.Schema, "Schema owning the tables, defaults to the user")
	flags.String(flagTablespace, def.Tablespace, "Only list tables stored in this tablespace")
	flags.StringSlice(flagInclude, nil, "Only export these tables")
	flags.StringSlice(flagExclude, nil, "Never export these tables")
	flags.StringP(flagOutput, "o", def.OutputDirPath, "Output directory")
	flags.String(flagFiletype, def.FileType, "The type of export file (csv/json)")
	flags.String(flagJSONStyle, def.JSONStyle, "JSON framing, one object per line (lines) or one array per file (array)")
	flags.String(flagCsvSeparator, def.CsvSeparator, "The separator for csv files, default ','")
	flags.String(flagCsvNullValue, def.CsvNullValue, "The null value used when export to csv")
	flags.String(flagCompress, def.Compress, "Compress output file type, support 'none', 'gzip' and 'zstd'")
	flags.Int(flagFetchSize, def.FetchSize, "Rows fetched from the server per round trip")
	flags.Duration(flagTableTimeout, def.TableTimeout, "Give up on a table after this long, 0 means no limit")
	flags.String(flagConsistency, def.Consistency, "Consistency level during dumping: {none|scn}")
	flags.String(flagSnapshot, def.Snapshot, "SCN to read every table as of, implies --consistency scn")
	flags.String(flagLogLevel, def.LogLevel, "Log level: {debug|info|warn|error|dpanic|panic|fatal}")
	flags.StringP(flagLogFile, "L", def.LogFile, "Log file `path`, leave empty to write to console")
	flags.String(flagLogFormat, def.LogFormat, "Log `format`: {text|json}")
	flags.String(flagStatusAddr, def.StatusAddr, "Serve prometheus metrics on this address, e.g. ':8281'")
}

// ParseFromFlags applies the flags the user set explicitly on top of conf.
func (conf *Config) ParseFromFlags(flags *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}
	strs := func(name string, dst *[]string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetStringSlice(name)
		}
	}
	integer := func(name string, dst *int) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetInt(name)
		}
	}

	str(flagDriver, &conf.Driver)
	str(flagUser, &conf.User)
	str(flagPassword, &conf.Password)
	str(flagHost, &conf.Host)
	integer(flagPort, &conf.Port)
	str(flagServiceName, &conf.ServiceName)
	str(flagConnectString, &conf.ConnectString)
	strs(flagSessionParams, &conf.SessionParams)
	str(flagSchema, &conf.Schema)
	str(flagTablespace, &conf.Tablespace)
	strs(flagInclude, &conf.IncludeTables)
	strs(flagExclude, &conf.ExcludeTables)
	str(flagOutput, &conf.OutputDirPath)
	str(flagFiletype, &conf.FileType)
	str(flagJSONStyle, &conf.JSONStyle)
	str(flagCsvSeparator, &conf.CsvSeparator)
	str(flagCsvNullValue, &conf.CsvNullValue)
	str(flagCompress, &conf.Compress)
	integer(flagFetchSize, &conf.FetchSize)
	if err == nil && flags.Changed(flagTableTimeout) {
		conf.TableTimeout, err = flags.GetDuration(flagTableTimeout)
	}
	str(flagConsistency, &conf.Consistency)
	str(flagSnapshot, &conf.Snapshot)
	str(flagLogLevel, &conf.LogLevel)
	str(flagLogFile, &conf.LogFile)
	str(flagLogFormat, &conf.LogFormat)
	str(flagStatusAddr, &conf.StatusAddr)
	return errors.WithStack(err)
}

// LoadFromTOML overlays the settings of a TOML file.
func (conf *Config) LoadFromTOML(path string) error {
	md, err := toml.DecodeFile(path, conf)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return NotFoundError(path, err)
		}
		return UsageError("invalid config file %s: %v", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return UsageError("config file %s contains unknown items: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadFromEnv overlays the ORADUMP_* variables of the environment and, when
// path is not empty, of a dotenv file. The process environment wins.
func (conf *Config) LoadFromEnv(path string) error {
	fileEnv := map[string]string{}
	if path != "" {
		var err error
		fileEnv, err = godotenv.Read(path)
		if err != nil {
			if os.IsNotExist(errors.Cause(err)) {
				return NotFoundError(path, err)
			}
			return UsageError("invalid env file %s: %v", path, err)
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			return v, true
		}
		v, ok := fileEnv[EnvPrefix+key]
		return v, ok
	}
	return conf.applyEnv(lookup)
}

func (conf *Config) applyEnv(lookup func(string) (string, bool)) error {
	strVars := map[string]*string{
		"DRIVER":         &conf.Driver,
		"USER":           &conf.User,
		"PASSWORD":       &conf.Password,
		"HOST":           &conf.Host,
		"SERVICE_NAME":   &conf.ServiceName,
		"CONNECT_STRING": &conf.ConnectString,
		"SCHEMA":         &conf.Schema,
		"TABLESPACE":     &conf.Tablespace,
	}
	for key, dst := range strVars {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	if v, ok := lookup("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return UsageError("invalid %sPORT %q", EnvPrefix, v)
		}
		conf.Port = port
	}
	return nil
}

// Adjust normalizes the config and checks the values that do not need a
// database connection.
func (conf *Config) Adjust() error {
	conf.Driver = strings.ToLower(strings.TrimSpace(conf.Driver))
	switch conf.Driver {
	case DriverGodror, DriverGoOra:
	default:
		return UsageError("unknown driver %q, expected %s or %s", conf.Driver, DriverGodror, DriverGoOra)
	}
	if conf.Schema == "" {
		conf.Schema = conf.User
	}
	conf.Schema = strings.ToUpper(strings.TrimSpace(conf.Schema))
	conf.Tablespace = strings.ToUpper(strings.TrimSpace(conf.Tablespace))

	conf.FileType = strings.ToLower(conf.FileType)
	conf.JSONStyle = strings.ToLower(conf.JSONStyle)
	if err := conf.outOptions().Validate(); err != nil {
		return UsageError("%v", err)
	}

	conf.Compress = strings.ToLower(conf.Compress)
	switch conf.Compress {
	case "":
		conf.Compress = CompressNone
	case CompressNone, CompressGzip, CompressZstd:
	default:
		return UsageError("unknown compress type %q, expected none, gzip or zstd", conf.Compress)
	}

	if conf.Snapshot != "" {
		if _, err := strconv.ParseUint(conf.Snapshot, 10, 64); err != nil {
			return UsageError("invalid snapshot %q, expected a SCN", conf.Snapshot)
		}
		conf.Consistency = ConsistencySCN
	}
	conf.Consistency = strings.ToLower(strings.TrimSpace(conf.Consistency))
	switch conf.Consistency {
	case "":
		conf.Consistency = ConsistencyNone
	case ConsistencyNone, ConsistencySCN:
	default:
		return UsageError("invalid consistency option %s", conf.Consistency)
	}

	if conf.FetchSize <= 0 {
		return UsageError("fetch-size must be positive, got %d", conf.FetchSize)
	}
	if conf.TableTimeout < 0 {
		return UsageError("table-timeout must not be negative")
	}
	if conf.Out == nil {
		conf.Out = io.Discard
	}
	return nil
}

// ValidateConnection checks the settings needed to reach the database.
func (conf *Config) ValidateConnection() error {
	if conf.User == "" {
		return UsageError("missing user, set --%s or %sUSER", flagUser, EnvPrefix)
	}
	if conf.ConnectString == "" && conf.ServiceName == "" {
		return UsageError("missing --%s or --%s", flagServiceName, flagConnectString)
	}
	return nil
}

func (conf *Config) outOptions() out.Options {
	opt := out.DefaultOptions()
	opt.Format = out.FileFormat(conf.FileType)
	opt.Style = out.JSONStyle(conf.JSONStyle)
	opt.Separator = conf.CsvSeparator
	opt.NullValue = conf.CsvNullValue
	return opt
}

// snapshotSCN returns the configured snapshot, 0 when none is set. Adjust
// has validated it.
func (conf *Config) snapshotSCN() uint64 {
	scn, _ := strconv.ParseUint(conf.Snapshot, 10, 64)
	return scn
}

// queryOptions returns the driver specific arguments of row streaming
// statements: a bounded fetch array and CLOBs delivered as readers.
func (conf *Config) queryOptions() []interface{} {
	if conf.Driver != DriverGodror {
		return nil
	}
	return []interface{}{godror.FetchArraySize(conf.FetchSize), godror.LobAsReader()}
}

func (conf *Config) connectString() string {
	if conf.ConnectString != "" {
		return conf.ConnectString
	}
	return fmt.Sprintf("%s:%d/%s", conf.Host, conf.Port, conf.ServiceName)
}
