package server

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/listings-eda/internal/filter"
	"github.com/KaramelBytes/listings-eda/internal/table"
)

// Dataset is a loaded and cleaned table the API can summarize.
type Dataset struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Rows     int            `json:"rows"`
	Columns  []string       `json:"columns"`
	Options  filter.Options `json:"options"`
	Default  filter.Spec    `json:"default_filter"`
	LoadedAt time.Time      `json:"loaded_at"`

	key   string
	clean *table.Table
}

// datasets indexes loaded tables by id and by loader cache key, so loading
// the same source twice returns the same dataset.
type datasets struct {
	mu    sync.RWMutex
	byID  map[string]*Dataset
	byKey map[string]string
}

func newDatasets() *datasets {
	return &datasets{byID: map[string]*Dataset{}, byKey: map[string]string{}}
}

func (d *datasets) add(key, name string, clean *table.Table, sliderCap, defaultMax float64) *Dataset {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.byKey[key]; ok {
		return d.byID[id]
	}
	opts := filter.Observe(clean, sliderCap)
	ds := &Dataset{
		ID:       uuid.NewString(),
		Name:     name,
		Rows:     clean.Len(),
		Columns:  clean.Names(),
		Options:  opts,
		Default:  opts.Default(defaultMax),
		LoadedAt: time.Now().UTC(),
		key:      key,
		clean:    clean,
	}
	d.byID[ds.ID] = ds
	d.byKey[key] = ds.ID
	return ds
}

func (d *datasets) get(id string) (*Dataset, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ds, ok := d.byID[id]
	return ds, ok
}

// remove forgets the dataset and returns its loader key.
func (d *datasets) remove(id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ds, ok := d.byID[id]
	if !ok {
		return "", false
	}
	delete(d.byID, id)
	delete(d.byKey, ds.key)
	return ds.key, true
}

func (d *datasets) len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

func (d *datasets) list() []*Dataset {
	d.mu.RLock()
	out := make([]*Dataset, 0, len(d.byID))
	for _, ds := range d.byID {
		out = append(out, ds)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].LoadedAt.Before(out[j].LoadedAt) })
	return out
}
