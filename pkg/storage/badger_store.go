package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/ariasbenraq/scrap-url-broke/pkg/log"
	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
	"github.com/ariasbenraq/scrap-url-broke/pkg/utils"
)

const checkNamespace = "check" // Key namespace for memoized check results

// BadgerStore implements RunStore on an in-memory BadgerDB.
// Nothing is written to disk and the contents vanish on Close.
type BadgerStore struct {
	db  *badger.DB
	log *logrus.Entry
}

// NewBadgerStore opens a fresh in-memory store for one run
func NewBadgerStore(logger *logrus.Entry) (*BadgerStore, error) {
	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening in-memory store: %w", utils.ErrDatabase, err)
	}
	logger.Debug("Run store initialized (in-memory).")
	return &BadgerStore{db: db, log: logger}, nil
}

func storeKey(namespace, key string) []byte {
	return []byte(namespace + ":" + key)
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := 0; i < maxConflictRetries; i++ {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// MarkVisited implements the VisitedSet interface
func (s *BadgerStore) MarkVisited(namespace, key string) (bool, error) {
	added := false
	k := storeKey(namespace, key)

	err := s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(k)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			errSet := txn.SetEntry(badger.NewEntry(k, []byte{}))
			if errSet == nil {
				added = true
			}
			return errSet
		}
		return errGet // nil when the key already exists
	})
	if err != nil {
		s.log.WithField("key", string(k)).Errorf("DB Update error in MarkVisited: %v", err)
		return false, fmt.Errorf("%w: marking key '%s': %w", utils.ErrDatabase, string(k), err)
	}
	return added, nil
}

// IsVisited implements the VisitedSet interface
func (s *BadgerStore) IsVisited(namespace, key string) (bool, error) {
	found := false
	k := storeKey(namespace, key)
	err := s.db.View(func(txn *badger.Txn) error {
		_, errGet := txn.Get(k)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return errGet
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: reading key '%s': %w", utils.ErrDatabase, string(k), err)
	}
	return found, nil
}

// GetCheck implements the CheckCache interface
func (s *BadgerStore) GetCheck(targetURL string) (*models.CheckDBEntry, bool, error) {
	var entry *models.CheckDBEntry
	k := storeKey(checkNamespace, targetURL)

	errView := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(k)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting check key '%s': %w", utils.ErrDatabase, string(k), errGet)
		}
		return item.Value(func(val []byte) error {
			var decoded models.CheckDBEntry
			if errJSON := json.Unmarshal(val, &decoded); errJSON != nil {
				s.log.Warnf("Failed to unmarshal CheckDBEntry for key '%s': %v. Treating as missing.", string(k), errJSON)
				return nil
			}
			entry = &decoded
			return nil
		})
	})
	if errView != nil {
		s.log.Errorf("DB View error in GetCheck for key '%s': %v", string(k), errView)
		return nil, false, errView
	}
	return entry, entry != nil, nil
}

// PutCheck implements the CheckCache interface
func (s *BadgerStore) PutCheck(targetURL string, entry *models.CheckDBEntry) error {
	k := storeKey(checkNamespace, targetURL)

	entryBytes, errJSON := json.Marshal(entry)
	if errJSON != nil {
		return fmt.Errorf("%w: failed to marshal CheckDBEntry for key '%s': %w", utils.ErrParsing, string(k), errJSON)
	}

	err := s.dbUpdate(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(k, entryBytes))
	})
	if err != nil {
		s.log.WithField("key", string(k)).Errorf("DB Update error in PutCheck: %v", err)
		return fmt.Errorf("%w: failed storing check for key '%s': %w", utils.ErrDatabase, string(k), err)
	}
	return nil
}

// Count implements the StoreAdmin interface
func (s *BadgerStore) Count(namespace string) (int, error) {
	count := 0
	err := s.scan(namespace, func([]byte) { count++ })
	return count, err
}

// Keys implements the StoreAdmin interface
func (s *BadgerStore) Keys(namespace string) ([]string, error) {
	var keys []string
	err := s.scan(namespace, func(key []byte) { keys = append(keys, string(key)) })
	return keys, err
}

// scan calls fn with every key under namespace, prefix stripped.
func (s *BadgerStore) scan(namespace string, fn func(key []byte)) error {
	prefix := storeKey(namespace, "")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			fn(bytes.TrimPrefix(key, prefix))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: scanning namespace '%s': %w", utils.ErrDatabase, namespace, err)
	}
	return nil
}

// Close implements the StoreAdmin interface
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing run store: %v", err)
			return err
		}
		s.log.Debug("Run store closed.")
	}
	return nil
}
