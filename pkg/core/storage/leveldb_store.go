package storage

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore is the LSM-tree disk-backed Store (spec.md §4.6's
// "disk-backed implementation"), wired straight onto goleveldb the way
// the teacher's own LevelDBStore does.
type LevelDBStore struct {
	db *leveldb.DB
}

// NewLevelDBStore opens (creating if absent) a LevelDB database at path.
func NewLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

func (s *LevelDBStore) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *LevelDBStore) Seek(prefix []byte, dir SeekDir, f func(k, v []byte) bool) {
	var it iterator.Iterator
	if len(prefix) > 0 {
		it = s.db.NewIterator(util.BytesPrefix(prefix), nil)
	} else {
		it = s.db.NewIterator(nil, nil)
	}
	defer it.Release()
	if dir == SeekAsc {
		for ok := it.First(); ok; ok = it.Next() {
			if !f(it.Key(), it.Value()) {
				return
			}
		}
		return
	}
	for ok := it.Last(); ok; ok = it.Prev() {
		if !f(it.Key(), it.Value()) {
			return
		}
	}
}

func (s *LevelDBStore) PutChangeSet(puts map[string][]byte, dels map[string]bool) error {
	batch := new(leveldb.Batch)
	for k, v := range puts {
		batch.Put([]byte(k), v)
	}
	for k := range dels {
		batch.Delete([]byte(k))
	}
	return s.db.Write(batch, nil)
}

func (s *LevelDBStore) Close() error { return s.db.Close() }
