package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

const defaultMaxSize = 2 * 1024 * 1024 // 2MB

// Options controls the log file location and rotation threshold.
type Options struct {
	Path    string
	MaxSize int64
}

// RotatingWriter appends to a log file and swaps it for a fresh one when
// it grows past MaxSize, keeping a single .1 backup.
type RotatingWriter struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	size    int64
	maxSize int64
}

// Setup points the standard logger at stdout plus a rotating file and
// returns the writer so main can close it on shutdown.
func Setup(opts Options) (*RotatingWriter, error) {
	if opts.Path == "" {
		opts.Path = "fightsync.log"
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = defaultMaxSize
	}
	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	rw := &RotatingWriter{
		file:    f,
		path:    opts.Path,
		size:    size,
		maxSize: opts.MaxSize,
	}
	if size > rw.maxSize {
		rw.rotate()
	}

	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetOutput(io.MultiWriter(os.Stdout, rw))
	return rw, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	w.size += int64(n)
	if w.size > w.maxSize {
		w.rotate()
	}
	return n, err
}

func (w *RotatingWriter) rotate() {
	w.file.Close()
	os.Rename(w.path, w.path+".1")

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return
	}
	w.file = f
	w.size = 0
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
