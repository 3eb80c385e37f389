// Package history keeps a local index of every commitment made on this
// machine, so past commitments can be listed without scanning secret files.
package history

import (
	"encoding/json"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v3"

	"github.com/atinyakov/CommitKeeper/internal/models"
)

const entryPrefix = "commit/"

// Store is a Badger-backed history index.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the history database in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory returns a history that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add records an entry. Entries are keyed by ID; adding the same ID twice
// keeps the latest.
func (s *Store) Add(e models.HistoryEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(entryPrefix+e.ID), b)
	})
}

// Get returns the entry for id, or false if there is none.
func (s *Store) Get(id string) (models.HistoryEntry, bool, error) {
	var (
		e     models.HistoryEntry
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(entryPrefix + id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		found = true
		return json.Unmarshal(v, &e)
	})
	if err != nil {
		return models.HistoryEntry{}, false, err
	}
	return e, found, nil
}

// List returns all entries, oldest first.
func (s *Store) List() ([]models.HistoryEntry, error) {
	result := make([]models.HistoryEntry, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(entryPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var e models.HistoryEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			result = append(result, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Delete removes the entry for id. The secret file itself is not touched.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(entryPrefix + id))
	})
}
