package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// RotatingWriter is an io.WriteCloser that rotates the underlying file
// when a write would push it past maxBytes, keeping at most maxBackups
// numbered backups (file.log.1 is the newest).
type RotatingWriter struct {
	mu         sync.Mutex
	file       *os.File
	path       string
	maxBytes   int64
	maxBackups int
	written    int64
}

// NewRotatingWriter opens (or creates) the log file at path.
func NewRotatingWriter(path string, maxBytes int64, maxBackups int) (*RotatingWriter, error) {
	w := &RotatingWriter{
		path:       path,
		maxBytes:   maxBytes,
		maxBackups: maxBackups,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.written+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

// Close closes the current log file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

func (w *RotatingWriter) open() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return err
	}
	w.file = file
	w.written = info.Size()
	return nil
}

// rotate shifts backups up by one index, dropping the oldest, and moves
// the live file to index 1 before reopening it empty.
func (w *RotatingWriter) rotate() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return err
		}
	}

	_ = os.Remove(w.backupPath(w.maxBackups))
	for i := w.maxBackups - 1; i >= 1; i-- {
		from := w.backupPath(i)
		if _, err := os.Stat(from); err == nil {
			if err := os.Rename(from, w.backupPath(i+1)); err != nil {
				return err
			}
		}
	}
	_ = os.Rename(w.path, w.backupPath(1))

	if err := w.open(); err != nil {
		return err
	}
	w.written = 0
	return nil
}

func (w *RotatingWriter) backupPath(index int) string {
	return filepath.Join(filepath.Dir(w.path), fmt.Sprintf("%s.%d", filepath.Base(w.path), index))
}

var _ io.WriteCloser = (*RotatingWriter)(nil)
