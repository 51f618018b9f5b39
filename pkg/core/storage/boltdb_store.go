package storage

import (
	"bytes"

	"go.etcd.io/bbolt"
)

var bucket = []byte("neo-go-core")

// BoltDBStore is an alternate disk-backed Store implementation (spec.md
// §4.6 only requires one disk backend be present, but the teacher ships
// both LevelDB and BoltDB options behind the same Store contract, so
// operators can pick the on-disk engine that suits their deployment).
type BoltDBStore struct {
	db *bbolt.DB
}

// NewBoltDBStore opens (creating if absent) a BoltDB database at path.
func NewBoltDBStore(path string) (*BoltDBStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltDBStore{db: db}, nil
}

func (s *BoltDBStore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucket).Get(key)
		if v == nil {
			return ErrKeyNotFound
		}
		out = append([]byte{}, v...)
		return nil
	})
	return out, err
}

func (s *BoltDBStore) Seek(prefix []byte, dir SeekDir, f func(k, v []byte) bool) {
	_ = s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		if dir == SeekAsc {
			for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
				if !f(k, v) {
					return nil
				}
			}
			return nil
		}
		// BoltDB cursors have no native prefix-descending seek; collect
		// the ascending range then walk it backward.
		var keys [][2][]byte
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			keys = append(keys, [2][]byte{append([]byte{}, k...), append([]byte{}, v...)})
		}
		for i := len(keys) - 1; i >= 0; i-- {
			if !f(keys[i][0], keys[i][1]) {
				return nil
			}
		}
		return nil
	})
}

func (s *BoltDBStore) PutChangeSet(puts map[string][]byte, dels map[string]bool) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		for k, v := range puts {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		for k := range dels {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltDBStore) Close() error { return s.db.Close() }
