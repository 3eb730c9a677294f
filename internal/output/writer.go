// Package output persists article records as size-bounded, append-only JSONL
// segment files.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultPrefix is used when no file prefix is configured.
	DefaultPrefix = "data"
	// DefaultMaxEntries is the per-file record cap used when none is configured.
	DefaultMaxEntries = 5000
	// DefaultExt is the segment file extension.
	DefaultExt = ".jsonl"

	timeLayout = "2006-01-02 15:04:05"
	nameLayout = "20060102_150405"
)

// ErrClosed is returned by writes on a closed Writer.
var ErrClosed = errors.New("output: writer closed")

// Record is one persisted line.
type Record struct {
	Title   string `json:"title"`
	Time    string `json:"time"`
	Content string `json:"content"`
}

// Options configures a Writer.
type Options struct {
	BasePath   string
	Prefix     string
	MaxEntries int
	Ext        string
	// Now is the clock used for file names and missing timestamps.
	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if strings.TrimSpace(o.BasePath) == "" {
		o.BasePath = "."
	}
	if strings.TrimSpace(o.Prefix) == "" {
		o.Prefix = DefaultPrefix
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	if o.Ext == "" {
		o.Ext = DefaultExt
	}
	if !strings.HasPrefix(o.Ext, ".") {
		o.Ext = "." + o.Ext
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Writer appends records to the current segment file and rotates to a new
// file once MaxEntries records have been written to it. A Writer is safe for
// use by multiple goroutines, though a run only ever writes sequentially.
type Writer struct {
	mu     sync.Mutex
	opts   Options
	log    logrus.FieldLogger
	file   *os.File
	path   string
	count  int
	files  []string
	closed bool
}

// NewWriter creates the output directory if needed and opens the first
// segment file.
func NewWriter(opts Options, log logrus.FieldLogger) (*Writer, error) {
	opts.applyDefaults()
	if log == nil {
		log = discardLogger()
	}

	if err := os.MkdirAll(opts.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	w := &Writer{opts: opts, log: log}
	if err := w.openNext(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write appends one record and returns the file it landed in. An empty ts is
// replaced by the current time.
func (w *Writer) Write(title, content, ts string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.write(Record{Title: title, Time: ts, Content: content})
}

// WriteBatch writes records one after another. It stops at the first failure;
// records written before it stay written.
func (w *Writer) WriteBatch(records []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, rec := range records {
		if _, err := w.write(rec); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

func (w *Writer) write(rec Record) (string, error) {
	if w.closed {
		return "", ErrClosed
	}

	if w.file == nil || w.count >= w.opts.MaxEntries {
		if err := w.rotate(); err != nil {
			return "", err
		}
	}

	if rec.Time == "" {
		rec.Time = w.opts.Now().Format(timeLayout)
	}

	line, err := encodeLine(rec)
	if err != nil {
		return "", err
	}

	if _, err := w.file.Write(line); err != nil {
		return "", fmt.Errorf("failed to write record to %s: %w", w.path, err)
	}
	if err := w.file.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync %s: %w", w.path, err)
	}

	w.count++
	return w.path, nil
}

// Files returns every segment file this Writer has opened, in order.
func (w *Writer) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	files := make([]string, len(w.files))
	copy(files, w.files)
	return files
}

// Close releases the current file. Calling it more than once is harmless.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.closeFile()
}

func (w *Writer) rotate() error {
	if err := w.closeFile(); err != nil {
		return err
	}
	return w.openNext()
}

func (w *Writer) closeFile() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.log.WithFields(logrus.Fields{
		"file":    w.path,
		"records": w.count,
	}).Debug("Closed output file")
	w.file = nil
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", w.path, err)
	}
	return nil
}

// openNext opens a fresh segment. The ordinal is the number of files already
// present with the same prefix, bumped until the name is free.
func (w *Writer) openNext() error {
	n, err := countSegments(w.opts.BasePath, w.opts.Prefix, w.opts.Ext)
	if err != nil {
		return err
	}

	stamp := w.opts.Now().Format(nameLayout)
	for {
		name := w.opts.Prefix + "_" + stamp + w.opts.Ext
		if n > 0 {
			name = fmt.Sprintf("%s_%s_%d%s", w.opts.Prefix, stamp, n, w.opts.Ext)
		}
		path := filepath.Join(w.opts.BasePath, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0644)
		if errors.Is(err, os.ErrExist) {
			n++
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}

		w.file = f
		w.path = path
		w.count = 0
		w.files = append(w.files, path)
		w.log.WithField("file", path).Info("Opened output file")
		return nil
	}
}

func countSegments(dir, prefix, ext string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan output directory: %w", err)
	}

	n := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, prefix+"_") && strings.HasSuffix(name, ext) {
			n++
		}
	}
	return n, nil
}

func encodeLine(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return buf.Bytes(), nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
