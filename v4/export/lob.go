package export

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// readerLob is a LargeText backed by a driver LOB stream.
type readerLob struct {
	r    io.Reader
	once sync.Once
	err  error
}

func newReaderLob(r io.Reader) *readerLob {
	return &readerLob{r: r}
}

func (l *readerLob) CharacterStream() (io.Reader, error) {
	return l.r, nil
}

// Close releases the stream, further calls return the first result.
func (l *readerLob) Close() error {
	l.once.Do(func() {
		if c, ok := l.r.(io.Closer); ok {
			l.err = c.Close()
		}
	})
	return l.err
}

// stringLob is a LargeText the driver already fetched into memory.
type stringLob struct {
	s      string
	closed bool
}

func newStringLob(s string) *stringLob {
	return &stringLob{s: s}
}

func (l *stringLob) CharacterStream() (io.Reader, error) {
	if l.closed {
		return nil, errors.New("large text handle already closed")
	}
	return strings.NewReader(l.s), nil
}

func (l *stringLob) Close() error {
	l.closed = true
	return nil
}

// ExtractLargeText reads the whole value behind h as lines joined with "\n".
// A CR right before a LF is dropped and a trailing line break is not kept.
// h is closed exactly once whatever the outcome.
func ExtractLargeText(h LargeText) (text string, err error) {
	defer func() {
		cerr := h.Close()
		if err == nil && cerr != nil {
			text, err = "", errors.WithMessage(cerr, "close large text")
		}
	}()

	r, err := h.CharacterStream()
	if err != nil {
		return "", errors.WithMessage(err, "open large text stream")
	}
	br := bufio.NewReader(r)
	var sb strings.Builder
	lines := 0
	for {
		line, rerr := br.ReadString('\n')
		if rerr != nil && rerr != io.EOF {
			return "", errors.WithMessage(rerr, "read large text")
		}
		if rerr == io.EOF && line == "" {
			break
		}
		if strings.HasSuffix(line, "\n") {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		}
		if lines > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
		lines++
		if rerr == io.EOF {
			break
		}
	}
	return sb.String(), nil
}
