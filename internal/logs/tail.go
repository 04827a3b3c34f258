package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileName is the log file written under the configured log directory.
const FileName = "mubi1000.log"

// FilePath returns the log file location for logDir, or "" when no log
// directory is configured.
func FilePath(logDir string) string {
	logDir = strings.TrimSpace(logDir)
	if logDir == "" {
		return ""
	}
	return filepath.Join(logDir, FileName)
}

// Page is a batch of complete lines and the offset just past them.
type Page struct {
	Lines  []string
	Offset int64
}

// Last returns the final n complete lines of path. n <= 0 returns every line.
// A missing file is an empty page.
func Last(path string, n int) (Page, error) {
	page, err := Since(path, 0)
	if err != nil || n <= 0 || len(page.Lines) <= n {
		return page, err
	}
	page.Lines = page.Lines[len(page.Lines)-n:]
	return page, nil
}

// Since returns the complete lines written after offset. When the file is
// shorter than offset it was truncated or replaced, and reading restarts at
// the beginning.
func Since(path string, offset int64) (Page, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Page{}, nil
		}
		return Page{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Page{Offset: offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return Page{Offset: offset}, fmt.Errorf("log path %q is a directory", path)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Page{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}

	page := Page{Offset: offset}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Partial line; a writer is mid-record.
				return page, nil
			}
			return page, fmt.Errorf("read log file: %w", err)
		}
		page.Offset += int64(len(line))
		page.Lines = append(page.Lines, strings.TrimRight(line, "\r\n"))
	}
}

// Follow polls path every interval and passes each new line to emit until
// ctx is cancelled. Cancellation is not an error.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		page, err := Since(path, offset)
		if err != nil {
			return err
		}
		for _, line := range page.Lines {
			emit(line)
		}
		offset = page.Offset

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
