package export

import (
	"database/sql"
	"fmt"

	"github.com/coreos/go-semver/semver"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	tcontext "github.com/oradump/oradump/v4/context"
)

// minSnapshotSCNVersion is the first release exposing gv$database.current_scn.
var minSnapshotSCNVersion = semver.New("10.0.0")

// NewConsistencyController returns the controller of conf.Consistency.
func NewConsistencyController(conf *Config, db *sql.DB, info ServerInfo) (ConsistencyController, error) {
	switch conf.Consistency {
	case ConsistencySCN:
		return &ConsistencySnapshotSCN{db: db, serverInfo: info, snapshot: conf.snapshotSCN()}, nil
	case ConsistencyNone:
		return &consistencyNone{}, nil
	default:
		return nil, withStack(fmt.Errorf("invalid consistency option %s", conf.Consistency))
	}
}

// ConsistencyController prepares the view of the data every table is read
// from. SnapshotSCN is only meaningful after Setup.
type ConsistencyController interface {
	Setup(*tcontext.Context) error
	TearDown(*tcontext.Context) error
	SnapshotSCN() uint64
}

// consistencyNone reads every table at the time its query starts.
type consistencyNone struct{}

func (c *consistencyNone) Setup(_ *tcontext.Context) error {
	return nil
}

func (c *consistencyNone) TearDown(_ *tcontext.Context) error {
	return nil
}

func (c *consistencyNone) SnapshotSCN() uint64 {
	return 0
}

// ConsistencySnapshotSCN reads every table as of one system change number,
// the configured snapshot or the current SCN when the run starts.
type ConsistencySnapshotSCN struct {
	db         *sql.DB
	serverInfo ServerInfo
	snapshot   uint64
}

func (c *ConsistencySnapshotSCN) Setup(tctx *tcontext.Context) error {
	if v := c.serverInfo.ServerVersion; v == nil {
		tctx.L().Warn("server version unknown, assume it supports flashback queries")
	} else if v.LessThan(*minSnapshotSCNVersion) {
		return UsageError("consistency %s needs Oracle %s or later, server is %s",
			ConsistencySCN, minSnapshotSCNVersion, c.serverInfo)
	}
	if c.snapshot == 0 {
		scn, err := SelectCurrentSCN(tctx.Context(), c.db)
		if err != nil {
			return QueryError("", errors.WithMessage(err, "get current scn"))
		}
		c.snapshot = scn
	}
	tctx.L().Info("dump tables as of scn", zap.Uint64("scn", c.snapshot))
	return nil
}

func (c *ConsistencySnapshotSCN) TearDown(_ *tcontext.Context) error {
	return nil
}

func (c *ConsistencySnapshotSCN) SnapshotSCN() uint64 {
	return c.snapshot
}
