package logsink

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/yanun0323/errors"
)

const csvBufferSize = 64 * 1024

// CSV appends rows to a comma-separated file, one row per line.
type CSV struct {
	f *os.File
	w *bufio.Writer
}

// NewCSV creates (truncating) the target file.
func NewCSV(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	return &CSV{f: f, w: bufio.NewWriterSize(f, csvBufferSize)}, nil
}

func (c *CSV) Write(row []string) error {
	if _, err := c.w.WriteString(strings.Join(row, ",")); err != nil {
		return errors.Wrap(err, "write row")
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "write row")
	}
	return nil
}

func (c *CSV) Close() error {
	if err := c.w.Flush(); err != nil {
		_ = c.f.Close()
		return errors.Wrap(err, "flush")
	}
	return c.f.Close()
}

// CSVFactory writes each log to <dir>/<name>.csv, creating dir if needed.
func CSVFactory(dir string) Factory {
	return func(name string) (Sink, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "mkdir %s", dir)
		}
		return NewCSV(filepath.Join(dir, name+".csv"))
	}
}
