package export

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/godror/godror"
	"github.com/pkg/errors"
	go_ora "github.com/sijms/go-ora/v2"
	"go.uber.org/zap"

	tcontext "github.com/oradump/oradump/v4/context"
)

// OpenDB validates the connection settings of conf and opens a checked
// connection pool, for callers that need the database outside a Dumper.
func OpenDB(ctx context.Context, conf *Config) (*sql.DB, error) {
	if err := conf.ValidateConnection(); err != nil {
		return nil, err
	}
	db, err := openDB(tcontext.Background().WithContext(ctx), conf)
	if err != nil {
		return nil, QueryError("", err)
	}
	return db, nil
}

// openDB opens the connection pool of the configured driver and checks it
// with a ping. The export reads one statement at a time, so the pool keeps a
// single session.
func openDB(tctx *tcontext.Context, conf *Config) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch conf.Driver {
	case DriverGoOra:
		db, err = openGoOra(conf)
	default:
		db = openGodror(conf)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if conf.Driver == DriverGoOra {
		for _, stmt := range conf.SessionParams {
			if _, err = db.ExecContext(tctx.Context(), stmt); err != nil {
				db.Close()
				return nil, errors.WithMessagef(errors.WithStack(err), "run session statement %q", stmt)
			}
		}
	}
	if err = db.PingContext(tctx.Context()); err != nil {
		db.Close()
		return nil, errors.WithMessage(errors.WithStack(err), "ping oracle database")
	}
	tctx.L().Info("connected to oracle", zap.String("driver", conf.Driver), zap.String("connect", conf.connectString()))
	return db, nil
}

func openGodror(conf *Config) *sql.DB {
	params := godror.ConnectionParams{
		CommonParams: godror.CommonParams{
			Username:      conf.User,
			Password:      godror.NewPassword(conf.Password),
			ConnectString: conf.connectString(),
			OnInitStmts:   conf.SessionParams,
		},
	}
	return sql.OpenDB(godror.NewConnector(params))
}

func openGoOra(conf *Config) (*sql.DB, error) {
	urlOptions := map[string]string{
		"PREFETCH_ROWS": strconv.Itoa(conf.FetchSize),
	}
	var connStr string
	if conf.ConnectString != "" {
		connStr = go_ora.BuildJDBC(conf.User, conf.Password, conf.ConnectString, urlOptions)
	} else {
		connStr = go_ora.BuildUrl(conf.Host, conf.Port, conf.ServiceName, conf.User, conf.Password, urlOptions)
	}
	return sql.Open("oracle", connStr)
}
