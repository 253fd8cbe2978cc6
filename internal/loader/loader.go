// Package loader reads listing datasets from disk or uploaded bytes into
// typed tables and memoizes them per source.
package loader

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/KaramelBytes/listings-eda/internal/table"
)

// Options controls parsing.
type Options struct {
	// Delimiter for delimited text. If 0, ',' is used, or '\t' for .tsv.
	Delimiter rune
	// Sheet selects an XLSX worksheet by name. Empty means the first sheet.
	Sheet string
}

// Stats counts loader activity.
type Stats struct {
	Parses  int `json:"parses"`
	Hits    int `json:"hits"`
	Entries int `json:"entries"`
}

// Loader parses sources into tables and caches the result by source key.
// Cached tables are shared and must be treated as read-only.
type Loader struct {
	opts   Options
	logger *slog.Logger

	group singleflight.Group

	mu     sync.Mutex
	cache  map[string]*table.Table
	parses int
	hits   int
}

// New creates a loader. A nil logger discards log output.
func New(opts Options, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{
		opts:   opts,
		logger: logger.With("component", "loader"),
		cache:  make(map[string]*table.Table),
	}
}

// Load returns the table for src, parsing it only on the first request for
// its key. Failures are returned as *ReadError and never cached.
func (l *Loader) Load(src Source) (*table.Table, error) {
	key := src.Key()
	if t, ok := l.lookup(key, true); ok {
		l.logger.Debug("dataset cache hit", "source", src.String(), "key", key)
		return t, nil
	}
	v, err, _ := l.group.Do(key, func() (any, error) {
		if t, ok := l.lookup(key, false); ok {
			return t, nil
		}
		t, err := l.parse(src)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cache[key] = t
		l.parses++
		l.mu.Unlock()
		l.logger.Debug("dataset parsed", "source", src.String(), "rows", t.Len(), "columns", t.Width())
		return t, nil
	})
	if err != nil {
		l.logger.Warn("dataset load failed", "source", src.String(), "error", err)
		return nil, err
	}
	return v.(*table.Table), nil
}

// Lookup returns a cached table without parsing.
func (l *Loader) Lookup(key string) (*table.Table, bool) {
	return l.lookup(key, false)
}

// Invalidate drops one cache entry.
func (l *Loader) Invalidate(key string) {
	l.mu.Lock()
	delete(l.cache, key)
	l.mu.Unlock()
}

// Reset drops every cache entry. Counters are kept.
func (l *Loader) Reset() {
	l.mu.Lock()
	l.cache = make(map[string]*table.Table)
	l.mu.Unlock()
}

func (l *Loader) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{Parses: l.parses, Hits: l.hits, Entries: len(l.cache)}
}

func (l *Loader) lookup(key string, count bool) (*table.Table, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.cache[key]
	if ok && count {
		l.hits++
	}
	return t, ok
}

func (l *Loader) parse(src Source) (*table.Table, error) {
	data := src.Data
	name := src.Name
	if data == nil {
		if src.Path == "" {
			return nil, &ReadError{Source: src.String(), Err: fmt.Errorf("source has neither path nor data")}
		}
		b, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, &ReadError{Source: src.String(), Err: err}
		}
		data = b
		name = src.Path
	}
	if len(data) == 0 {
		return nil, &ReadError{Source: src.String(), Err: ErrNoColumns}
	}
	f := detect(name, data)
	header, rows, err := f.Read(data, name, l.opts)
	if err != nil {
		return nil, &ReadError{Source: src.String(), Err: fmt.Errorf("%s: %w", f.Name(), err)}
	}
	t, err := buildTable(header, rows)
	if err != nil {
		return nil, &ReadError{Source: src.String(), Err: err}
	}
	return t, nil
}
