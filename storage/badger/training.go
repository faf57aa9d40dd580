package badger

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/prodmatch/core"
	"github.com/poiesic/prodmatch/storage"
)

// TrainingRepository implements storage.TrainingRepository for BadgerDB.
type TrainingRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
	ordSeq  *badger.Sequence
}

var _ storage.TrainingRepository = (*TrainingRepository)(nil)

// NewTrainingRepository creates a new TrainingRepository.
func NewTrainingRepository(backend *Backend) (*TrainingRepository, error) {
	idSeq, err := backend.GetSequence(trainingIDSeq)
	if err != nil {
		return nil, err
	}
	ordSeq, err := backend.GetSequence(trainingOrderSeq)
	if err != nil {
		idSeq.Release()
		return nil, err
	}

	return &TrainingRepository{
		backend: backend,
		idSeq:   idSeq,
		ordSeq:  ordSeq,
	}, nil
}

// Close releases the ID and order sequences.
func (r *TrainingRepository) Close() error {
	err := r.idSeq.Release()
	if err2 := r.ordSeq.Release(); err == nil {
		err = err2
	}
	return err
}

// Add stores one or more training examples.
func (r *TrainingRepository) Add(ctx context.Context, examples ...*core.TrainingExample) ([]*core.TrainingExample, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, example := range examples {
			if err := r.insertExample(tx, example); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return examples, err
}

// Delete removes a training example by ID. Returns false if no example
// with that ID exists.
func (r *TrainingRepository) Delete(ctx context.Context, id core.ID) (bool, error) {
	found := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeTrainingRecordKey(id)
		example, err := r.readTrainingExample(tx, key)
		if err != nil {
			return err
		}
		if example == nil {
			return nil
		}
		found = true

		// Remove from the insertion-order index
		if err := r.deleteOrderEntry(tx, id); err != nil {
			return err
		}

		// The pair index entry outlives this example while duplicates with
		// the same (query, code) pair remain: re-point it at a survivor,
		// and delete it only when this was the last one.
		pairKey := makeTrainingPairKey(core.IDFromContent(example.PairKey()))
		if item, err := tx.Get(pairKey); err == nil {
			var indexed core.ID
			if err := item.Value(func(val []byte) error {
				var err error
				indexed, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}
			if indexed == id {
				survivor, err := r.findPairSurvivor(tx, example.PairKey(), id)
				if err != nil {
					return err
				}
				if survivor == 0 {
					if err := tx.Delete(pairKey); err != nil {
						return err
					}
				} else if err := tx.Set(pairKey, storage.MarshalID(survivor)); err != nil {
					return err
				}
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return found, err
}

// Get retrieves a single training example by ID.
func (r *TrainingRepository) Get(ctx context.Context, id core.ID) (*core.TrainingExample, error) {
	var result *core.TrainingExample
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeTrainingRecordKey(id)
		var err error
		result, err = r.readTrainingExample(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// List retrieves all training examples in stable insertion order.
func (r *TrainingRepository) List(ctx context.Context) ([]core.TrainingExample, error) {
	var results []core.TrainingExample
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(trainingOrderPrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			example, err := r.readTrainingExample(tx, makeTrainingRecordKey(id))
			if err != nil {
				return err
			}
			if example != nil {
				results = append(results, *example)
			}
		}
		return nil
	}, false)

	return results, err
}

// BulkInsert stores multiple examples in a single transaction, skipping
// blank rows silently and optionally skipping duplicate (query, code) pairs.
func (r *TrainingRepository) BulkInsert(ctx context.Context, examples []*core.TrainingExample, skipDuplicates bool) (*storage.BulkInsertResult, error) {
	result := &storage.BulkInsertResult{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, example := range examples {
			if strings.TrimSpace(example.CustomerQuery) == "" || strings.TrimSpace(example.OrderCode) == "" {
				continue
			}

			if skipDuplicates {
				pairKey := makeTrainingPairKey(core.IDFromContent(example.PairKey()))
				_, err := tx.Get(pairKey)
				if err == nil {
					result.Duplicates++
					continue
				}
				if err != badger.ErrKeyNotFound {
					return err
				}
			}

			if err := r.insertExample(tx, example); err != nil {
				return err
			}
			result.Added++
		}
		return tx.Commit()
	}, true)

	return result, err
}

// Count returns the number of stored training examples.
func (r *TrainingRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(trainingOrderPrefix + ":")
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

// Helper methods

// insertExample writes an example, its insertion-order entry and its pair
// index entry within the transaction.
func (r *TrainingRepository) insertExample(tx *badger.Txn, example *core.TrainingExample) error {
	if example.Id == 0 {
		nextID, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if nextID == 0 {
			nextID, err = r.idSeq.Next()
			if err != nil {
				return err
			}
		}
		example.Id = core.ID(nextID)
	}

	now := time.Now().UTC()
	if example.InsertedAt.IsZero() {
		example.InsertedAt = now
	}
	example.UpdatedAt = now

	key := makeTrainingRecordKey(example.Id)
	if err := tx.Set(key, storage.MarshalTrainingExample(example)); err != nil {
		return err
	}

	seq, err := r.ordSeq.Next()
	if err != nil {
		return err
	}
	if err := tx.Set(makeTrainingOrderKey(seq), storage.MarshalID(example.Id)); err != nil {
		return err
	}

	pairKey := makeTrainingPairKey(core.IDFromContent(example.PairKey()))
	return tx.Set(pairKey, storage.MarshalID(example.Id))
}

// readTrainingExample reads a training example from the transaction.
func (r *TrainingRepository) readTrainingExample(tx *badger.Txn, key []byte) (*core.TrainingExample, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var example *core.TrainingExample
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		example, unmarshalErr = storage.UnmarshalTrainingExample(val)
		return unmarshalErr
	})
	return example, err
}

// deleteOrderEntry scans the insertion-order index for the entry pointing
// at id and removes it.
func (r *TrainingRepository) deleteOrderEntry(tx *badger.Txn, id core.ID) error {
	prefix := []byte(trainingOrderPrefix + ":")
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)

	var orderKey []byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		var indexed core.ID
		err := iter.Item().Value(func(val []byte) error {
			var err error
			indexed, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			iter.Close()
			return err
		}
		if indexed == id {
			orderKey = slices.Clone(iter.Item().Key())
			break
		}
	}
	iter.Close()

	if orderKey == nil {
		return nil
	}
	return tx.Delete(orderKey)
}

// findPairSurvivor scans the stored examples for another one sharing the
// (query, code) pair. Returns 0 when no duplicate remains.
func (r *TrainingRepository) findPairSurvivor(tx *badger.Txn, pairKey string, exclude core.ID) (core.ID, error) {
	prefix := []byte(trainingRecordPrefix + ":")
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)

	var survivor core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		var example *core.TrainingExample
		err := iter.Item().Value(func(val []byte) error {
			var err error
			example, err = storage.UnmarshalTrainingExample(val)
			return err
		})
		if err != nil {
			iter.Close()
			return 0, err
		}
		if example.Id != exclude && example.PairKey() == pairKey {
			survivor = example.Id
			break
		}
	}
	iter.Close()
	return survivor, nil
}
