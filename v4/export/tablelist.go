package export

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/oradump/oradump/v4/log"
)

// WriteTableNameFile creates or truncates path and writes one name per
// line, each ended by "\n". Blank names are left out. It returns the number
// of names written.
func WriteTableNameFile(path string, names []string) (int, error) {
	w, tearDown, err := buildFileWriter(path, CompressNone)
	if err != nil {
		return 0, IOError("", err)
	}
	written := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err = w.WriteString(name + "\n"); err != nil {
			_ = tearDown()
			return written, IOError("", errors.WithStack(err))
		}
		written++
	}
	if err = tearDown(); err != nil {
		return written, IOError("", err)
	}
	log.Debug("wrote table name file", zap.String("path", path), zap.Int("tables", written))
	return written, nil
}

// ReadTableNameFile returns the trimmed, non blank lines of path in order.
func ReadTableNameFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NotFoundError(path, err)
		}
		return nil, IOError("", errors.WithStack(err))
	}
	defer file.Close()

	var names []string
	br := bufio.NewReader(file)
	for {
		line, rerr := br.ReadString('\n')
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			return nil, IOError("", errors.WithMessage(rerr, "read "+path))
		}
	}
	return names, nil
}
