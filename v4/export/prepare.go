package export

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/coreos/go-semver/semver"
	"go.uber.org/zap"

	tcontext "github.com/oradump/oradump/v4/context"
)

// ServerInfo is the version information of the connected database.
type ServerInfo struct {
	VersionString string
	ServerVersion *semver.Version
}

// String returns the parsed major.minor release, or the raw version string
// when it could not be parsed.
func (info ServerInfo) String() string {
	if info.ServerVersion == nil {
		if info.VersionString == "" {
			return "unknown"
		}
		return info.VersionString
	}
	return fmt.Sprintf("%d.%d", info.ServerVersion.Major, info.ServerVersion.Minor)
}

var versionRegex = regexp.MustCompile(`^\d+(\.\d+){1,4}`)

// ParseServerInfo parses the NLS_RDBMS_VERSION value, e.g. "19.0.0.0.0".
func ParseServerInfo(tctx *tcontext.Context, versionStr string) ServerInfo {
	info := ServerInfo{VersionString: versionStr}
	matched := versionRegex.FindString(versionStr)
	if matched == "" {
		tctx.L().Warn("can't parse oracle version", zap.String("version", versionStr))
		return info
	}
	// semver takes exactly three components
	parts := strings.Split(matched, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	v, err := semver.NewVersion(parts[0] + "." + parts[1] + "." + parts[2])
	if err != nil {
		tctx.L().Warn("invalid oracle version", zap.String("version", versionStr), zap.Error(err))
		return info
	}
	info.ServerVersion = v
	return info
}

func detectServerInfo(tctx *tcontext.Context, db *sql.DB) (ServerInfo, error) {
	versionStr, err := SelectVersion(tctx.Context(), db)
	if err != nil {
		return ServerInfo{}, err
	}
	return ParseServerInfo(tctx, versionStr), nil
}

// prepareTableList lists the tables of the configured schema and drops the
// ones the filter rejects.
func prepareTableList(ctx context.Context, tctx *tcontext.Context, conf *Config, db *sql.DB) ([]string, error) {
	tables, err := ListTables(ctx, db, conf.Schema, conf.Tablespace)
	if err != nil {
		return nil, QueryError("", err)
	}
	filter := NewTableFilter(conf.IncludeTables, conf.ExcludeTables)
	kept, ignored := filterTables(tables, filter)
	if len(ignored) > 0 {
		tctx.L().Debug("ignore tables", zap.Strings("tables", ignored))
	}
	tctx.L().Info("list tables",
		zap.String("schema", conf.Schema),
		zap.String("tablespace", conf.Tablespace),
		zap.Int("count", len(kept)))
	return kept, nil
}
