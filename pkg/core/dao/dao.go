// Package dao implements the versioned key-value cache every state
// mutation in the node goes through: an in-memory overlay over a
// backing Store (or another cache), tracking per-key Added/Changed/
// Deleted state so Commit can flush precisely and CreateSnapshot can
// fork cheaply (spec.md §3 "DataCache", §4.6).
package dao

import (
	"bytes"
	"sort"

	"github.com/nspcc-dev/neo-go-core/pkg/core/storage"
)

// TrackState is the lifecycle of one cached key since the cache was
// created or last committed.
type TrackState byte

const (
	None TrackState = iota
	Added
	Changed
	Deleted
)

type cacheEntry struct {
	value []byte
	state TrackState
}

// backing is whatever a Simple cache overlays: either a raw Store or
// another Simple cache (for CreateSnapshot chains).
type backing interface {
	Get(key []byte) ([]byte, error)
	Seek(prefix []byte, dir storage.SeekDir, f func(k, v []byte) bool)
}

// Simple is the DataCache implementation: a single-level overlay with
// TrackState bookkeeping, committable into its backing layer.
type Simple struct {
	store   storage.Store // non-nil only at the root of the chain
	parent  *Simple       // non-nil for every snapshot but the root
	entries map[string]*cacheEntry
}

// NewSimple creates a root cache directly over a Store.
func NewSimple(store storage.Store) *Simple {
	return &Simple{store: store, entries: make(map[string]*cacheEntry)}
}

// GetPrivate returns a fresh overlay over this cache, used when an
// interop context needs its own write-isolated view (spec.md §4.2's
// per-call snapshot).
func (d *Simple) GetPrivate() *Simple {
	return &Simple{parent: d, entries: make(map[string]*cacheEntry)}
}

// CreateSnapshot is an alias for GetPrivate matching spec.md's naming.
func (d *Simple) CreateSnapshot() *Simple { return d.GetPrivate() }

func (d *Simple) backingGet(key []byte) ([]byte, error) {
	if d.store != nil {
		return d.store.Get(key)
	}
	return d.parent.Get(key)
}

// Get returns the value for key: the local overlay if touched, else the
// backing layer, honoring local deletes.
func (d *Simple) Get(key []byte) ([]byte, error) {
	if e, ok := d.entries[string(key)]; ok {
		if e.state == Deleted {
			return nil, storage.ErrKeyNotFound
		}
		cp := make([]byte, len(e.value))
		copy(cp, e.value)
		return cp, nil
	}
	return d.backingGet(key)
}

// Put records an Add or Change against key.
func (d *Simple) Put(key, value []byte) {
	state := Changed
	if _, err := d.backingGet(key); err != nil {
		state = Added
	}
	if e, ok := d.entries[string(key)]; ok && e.state == Added {
		state = Added
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	d.entries[string(key)] = &cacheEntry{value: cp, state: state}
}

// Delete records key as removed, regardless of whether it exists.
func (d *Simple) Delete(key []byte) {
	d.entries[string(key)] = &cacheEntry{state: Deleted}
}

// Seek iterates prefix-matching keys in the given direction, merging
// the local overlay with the backing layer and suppressing deletes.
func (d *Simple) Seek(prefix []byte, dir storage.SeekDir, f func(k, v []byte) bool) {
	seen := make(map[string]bool)
	var local []storage.KeyValue
	for k, e := range d.entries {
		if len(prefix) > 0 && !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		seen[k] = true
		if e.state != Deleted {
			local = append(local, storage.KeyValue{Key: []byte(k), Value: e.value})
		}
	}
	sort.Slice(local, func(i, j int) bool {
		if dir == storage.SeekAsc {
			return bytes.Compare(local[i].Key, local[j].Key) < 0
		}
		return bytes.Compare(local[i].Key, local[j].Key) > 0
	})

	var backingEntries []storage.KeyValue
	if d.store != nil {
		d.store.Seek(prefix, dir, func(k, v []byte) bool {
			if !seen[string(k)] {
				backingEntries = append(backingEntries, storage.KeyValue{Key: append([]byte{}, k...), Value: append([]byte{}, v...)})
			}
			return true
		})
	} else if d.parent != nil {
		d.parent.Seek(prefix, dir, func(k, v []byte) bool {
			if !seen[string(k)] {
				backingEntries = append(backingEntries, storage.KeyValue{Key: append([]byte{}, k...), Value: append([]byte{}, v...)})
			}
			return true
		})
	}

	merged := mergeSorted(local, backingEntries, dir)
	for _, kv := range merged {
		if !f(kv.Key, kv.Value) {
			return
		}
	}
}

func mergeSorted(a, b []storage.KeyValue, dir storage.SeekDir) []storage.KeyValue {
	out := append(append([]storage.KeyValue{}, a...), b...)
	sort.Slice(out, func(i, j int) bool {
		c := bytes.Compare(out[i].Key, out[j].Key)
		if dir == storage.SeekAsc {
			return c < 0
		}
		return c > 0
	})
	return out
}

// Commit flushes every tracked change into the backing layer: a Store
// write if this is the root cache, or a merge into the parent overlay
// otherwise (spec.md §3 "Commit flushes to the layer below").
func (d *Simple) Commit() error {
	if d.store != nil {
		puts := make(map[string][]byte)
		dels := make(map[string]bool)
		for k, e := range d.entries {
			if e.state == Deleted {
				dels[k] = true
			} else {
				puts[k] = e.value
			}
		}
		if err := d.store.PutChangeSet(puts, dels); err != nil {
			return err
		}
		d.entries = make(map[string]*cacheEntry)
		return nil
	}
	for k, e := range d.entries {
		if e.state == Deleted {
			d.parent.Delete([]byte(k))
		} else {
			d.parent.Put([]byte(k), e.value)
		}
	}
	d.entries = make(map[string]*cacheEntry)
	return nil
}
