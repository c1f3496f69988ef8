package badger

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/vectorstore"
)

// VectorStore implements vectorstore.Store on the same BadgerDB as the
// course data. Queries are brute-force cosine scans over one collection.
type VectorStore struct {
	backend *Backend
}

var _ vectorstore.Store = (*VectorStore)(nil)

// NewVectorStore creates a vector store on top of an open backend.
func NewVectorStore(backend *Backend) *VectorStore {
	return &VectorStore{backend: backend}
}

// Upsert writes items into the course collection, registering it on first use.
func (v *VectorStore) Upsert(ctx context.Context, courseID core.ID, items []vectorstore.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	name := vectorstore.CollectionName(courseID)
	err := v.backend.update(ctx, func(tx *badger.Txn) error {
		if err := tx.Set(makeCollectionKey(name), []byte(name)); err != nil {
			return err
		}
		for _, item := range items {
			if strings.TrimSpace(item.ID) == "" {
				return errors.New("vector item id is required")
			}
			value, err := json.Marshal(item)
			if err != nil {
				return err
			}
			if err := tx.Set(makeVectorKey(name, item.ID), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Query ranks the collection's items by cosine similarity to vector.
func (v *VectorStore) Query(ctx context.Context, courseID core.ID, vector []float32, topK int, filter map[string]any) ([]vectorstore.Hit, error) {
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	filter = vectorstore.CleanFilter(filter)
	name := vectorstore.CollectionName(courseID)

	var hits []vectorstore.Hit
	err := v.backend.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorPrefix(name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var item vectorstore.Item
			if err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			}); err != nil {
				return err
			}
			if !vectorstore.MatchesFilter(item.Metadata, filter) {
				continue
			}
			hits = append(hits, vectorstore.Hit{
				ID:       item.ID,
				Text:     item.Text,
				Metadata: item.Metadata,
				Score:    vectorstore.CosineSimilarity(vector, item.Vector),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(hits, func(a, b vectorstore.Hit) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Count returns the number of items in the course collection.
func (v *VectorStore) Count(ctx context.Context, courseID core.ID) (int, error) {
	count := 0
	err := v.backend.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeVectorPrefix(vectorstore.CollectionName(courseID))
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// DeleteCollection drops every item of the course collection and its registration.
func (v *VectorStore) DeleteCollection(ctx context.Context, courseID core.ID) error {
	name := vectorstore.CollectionName(courseID)
	keys := [][]byte{makeCollectionKey(name)}
	err := v.backend.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeVectorPrefix(name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return v.backend.deleteKeys(ctx, keys)
}

// ListCollections returns the registered collection names in lexical order.
func (v *VectorStore) ListCollections(ctx context.Context) ([]string, error) {
	var names []string
	err := v.backend.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(collectionPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := iter.Item().Value(func(val []byte) error {
				names = append(names, string(val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return names, err
}
