// Package history keeps a Badger-backed log of completed sync passes.
package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// Key prefixes
const (
	prefixPass = "p:" // p:<unix nanos, big endian><id> -> PassReport JSON
	prefixMeta = "m:"
)

// CurrentSchemaVersion is written on open.
// 1 - pass reports keyed by finish time
const CurrentSchemaVersion = 1

const schemaKey = prefixMeta + "__schema__"

// ErrNotFound is returned by Last on an empty store.
var ErrNotFound = errors.New("no recorded passes")

// Schema holds database schema information.
type Schema struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store records pass reports.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store in dir.
func Open(dir string) (*Store, error) {
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Store, error) {
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}

	s := &Store{db: db}
	if s.Schema() == nil {
		if err := s.setSchema(&Schema{Version: CurrentSchemaVersion, UpdatedAt: time.Now()}); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Schema returns the stored schema, or nil if none was written.
func (s *Store) Schema() *Schema {
	var schema *Schema

	_ = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			schema = &Schema{}
			return json.Unmarshal(val, schema)
		})
	})

	return schema
}

func (s *Store) setSchema(schema *Schema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(schemaKey), data)
	})
}

func passKey(r *types.PassReport) []byte {
	key := make([]byte, 0, len(prefixPass)+8+len(r.ID))
	key = append(key, prefixPass...)
	key = binary.BigEndian.AppendUint64(key, uint64(r.Finished.UnixNano()))
	return append(key, r.ID...)
}

// Record stores a finished pass.
func (s *Store) Record(r *types.PassReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(passKey(r), data)
	})
}

// List returns up to limit passes, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]*types.PassReport, error) {
	var reports []*types.PassReport

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixPass)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts from the last key not greater than the seek key.
		seek := append([]byte(prefixPass), 0xff)
		for it.Seek(seek); it.ValidForPrefix([]byte(prefixPass)); it.Next() {
			if limit > 0 && len(reports) >= limit {
				break
			}

			var r types.PassReport
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			reports = append(reports, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// Last returns the most recent pass.
func (s *Store) Last() (*types.PassReport, error) {
	reports, err := s.List(1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, ErrNotFound
	}
	return reports[0], nil
}

// Prune keeps the newest keep passes and deletes the rest. It returns the
// number of passes removed.
func (s *Store) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixPass)
		it := txn.NewIterator(opts)
		defer it.Close()

		seen := 0
		seek := append([]byte(prefixPass), 0xff)
		for it.Seek(seek); it.ValidForPrefix([]byte(prefixPass)); it.Next() {
			seen++
			if seen > keep {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(stale), nil
}
