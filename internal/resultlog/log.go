package resultlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/hotseat-chess/internal/obslog"
)

var ErrMultilineRecord = errors.New("result record must be a single line")

// MaxRecordLen bounds a line ReadRecent keeps; longer lines are skipped.
const MaxRecordLen = 4096

// Log is an append-only text file holding one finished-game outcome per line.
type Log struct {
	path string
}

// Open prepares a log at path. The file itself is created on first Append.
func Open(path string) (*Log, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("result log path is required")
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("create result log dir: %w", err)
	}
	return &Log{path: path}, nil
}

func (l *Log) Path() string { return l.path }

// Append writes record plus a newline and syncs before returning.
func (l *Log) Append(record string) (err error) {
	if strings.ContainsAny(record, "\r\n") {
		return ErrMultilineRecord
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open result log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close result log: %w", cerr)
		}
	}()
	if _, err := f.WriteString(record + "\n"); err != nil {
		return fmt.Errorf("write result log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync result log: %w", err)
	}
	return nil
}

// ReadRecent returns up to the last n records, oldest first.
// A log that was never written reads as empty.
func (l *Log) ReadRecent(n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open result log: %w", err)
	}
	defer f.Close()

	// ring of the last n lines; the log is small and read only after a game ends
	ring := make([]string, 0, n)
	r := bufio.NewReader(f)
	var (
		buf     []byte
		tooLong bool
		lineNo  int
	)
	for {
		frag, isPrefix, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read result log: %w", err)
		}
		if !tooLong {
			buf = append(buf, frag...)
			if len(buf) > MaxRecordLen {
				tooLong, buf = true, buf[:0]
			}
		}
		if isPrefix {
			continue
		}
		lineNo++
		if tooLong {
			obslog.L().Warn("result_log_line_skipped", zap.String("path", l.path), zap.Int("line", lineNo))
		} else if line := strings.TrimSpace(string(buf)); line != "" {
			if len(ring) == n {
				ring = append(ring[:0], ring[1:]...)
			}
			ring = append(ring, line)
		}
		buf, tooLong = buf[:0], false
	}
	return ring, nil
}

func ensureDir(dir string) error {
	if strings.TrimSpace(dir) == "" || dir == "." {
		return nil
	}
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
