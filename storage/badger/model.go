package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/prodmatch/storage"
)

// ModelRepository implements storage.ModelRepository for BadgerDB. Fitted
// model bundles are stored whole under fixed keys; a save replaces the
// previous version.
type ModelRepository struct {
	backend *Backend
}

var _ storage.ModelRepository = (*ModelRepository)(nil)

// NewModelRepository creates a new ModelRepository.
func NewModelRepository(backend *Backend) *ModelRepository {
	return &ModelRepository{backend: backend}
}

// SaveFastModel persists the fast matcher bundle.
func (r *ModelRepository) SaveFastModel(ctx context.Context, bundle *storage.FastModelBundle) error {
	return r.saveArtifact(fastModelKey, storage.MarshalFastModelBundle(bundle))
}

// LoadFastModel retrieves the fast matcher bundle.
func (r *ModelRepository) LoadFastModel(ctx context.Context) (*storage.FastModelBundle, error) {
	var bundle *storage.FastModelBundle
	err := r.loadArtifact(fastModelKey, func(val []byte) error {
		var err error
		bundle, err = storage.UnmarshalFastModelBundle(val)
		return err
	})
	return bundle, err
}

// SaveScorerModel persists the probabilistic scorer bundle.
func (r *ModelRepository) SaveScorerModel(ctx context.Context, bundle *storage.ScorerModelBundle) error {
	return r.saveArtifact(scorerModelKey, storage.MarshalScorerModelBundle(bundle))
}

// LoadScorerModel retrieves the probabilistic scorer bundle.
func (r *ModelRepository) LoadScorerModel(ctx context.Context) (*storage.ScorerModelBundle, error) {
	var bundle *storage.ScorerModelBundle
	err := r.loadArtifact(scorerModelKey, func(val []byte) error {
		var err error
		bundle, err = storage.UnmarshalScorerModelBundle(val)
		return err
	})
	return bundle, err
}

func (r *ModelRepository) saveArtifact(key string, value []byte) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(key), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (r *ModelRepository) loadArtifact(key string, decode func(val []byte) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			if err := decode(val); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			return nil
		})
	}, false)
}
