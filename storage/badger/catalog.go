package badger

import (
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/prodmatch/core"
	"github.com/poiesic/prodmatch/storage"
)

// CatalogRepository implements storage.CatalogRepository for BadgerDB.
type CatalogRepository struct {
	backend *Backend
}

var _ storage.CatalogRepository = (*CatalogRepository)(nil)

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(backend *Backend) *CatalogRepository {
	return &CatalogRepository{backend: backend}
}

// Close releases repository resources.
func (r *CatalogRepository) Close() error {
	return nil
}

// Replace atomically replaces the entire catalog with the given entries,
// preserving their order.
func (r *CatalogRepository) Replace(ctx context.Context, entries []core.CatalogEntry) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		// Collect existing keys first; badger iterators must be closed
		// before the transaction writes.
		prefix := []byte(catalogRecordPrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var stale [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			stale = append(stale, slices.Clone(iter.Item().Key()))
		}
		iter.Close()

		for _, key := range stale {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}

		for i := range entries {
			key := makeCatalogRecordKey(uint64(i))
			if err := tx.Set(key, storage.MarshalCatalogEntry(&entries[i])); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// List retrieves all catalog entries in load order.
// Returns storage.ErrDataUnavailable if no catalog has been loaded.
func (r *CatalogRepository) List(ctx context.Context) ([]core.CatalogEntry, error) {
	var results []core.CatalogEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(catalogRecordPrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *core.CatalogEntry
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalCatalogEntry(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, *entry)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, storage.ErrDataUnavailable
	}
	return results, nil
}

// Count returns the number of stored catalog entries.
func (r *CatalogRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(catalogRecordPrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}
