package seen

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "seen/"

// BadgerStore keeps one key per seen id under a fixed prefix.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(path string) (*BadgerStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("badger directory is required")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger's default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Load(ctx context.Context) (mapset.Set[string], error) {
	_ = ctx
	ids := mapset.NewThreadUnsafeSet[string]()
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids.Add(strings.TrimPrefix(string(it.Item().Key()), badgerKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load seen ids: %w", err)
	}
	return ids, nil
}

// Save replaces every key under the prefix within one transaction.
func (b *BadgerStore) Save(ctx context.Context, ids mapset.Set[string]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	want := mapset.NewThreadUnsafeSet[string](sortedIDs(ids)...)
	stamp := []byte(time.Now().UTC().Format(time.RFC3339))
	return b.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		prefix := []byte(badgerKeyPrefix)
		existing := mapset.NewThreadUnsafeSet[string]()
		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			id := strings.TrimPrefix(string(key), badgerKeyPrefix)
			existing.Add(id)
			if !want.Contains(id) {
				stale = append(stale, key)
			}
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for _, id := range want.Difference(existing).ToSlice() {
			if err := txn.Set([]byte(badgerKeyPrefix+id), stamp); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BadgerStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
