package meta

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/sir_venger/resumable_lite/internal/models"
	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

const badgerKeyPrefix = "artifact:"

// BadgerStore — встроенное хранилище метаданных; значения кодируются msgpack.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger открывает базу в каталоге dir. Пустой dir — база в памяти.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return NewBadgerStore(db), nil
}

// NewBadgerStore оборачивает уже открытую базу.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func badgerKey(name string) []byte {
	return []byte(badgerKeyPrefix + name)
}

func (s *BadgerStore) Get(_ context.Context, name string) (models.Artifact, error) {
	var a models.Artifact
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return msgpack.Unmarshal(v, &a)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.Artifact{}, transferproto.ErrNotFound
	}
	if err != nil {
		return models.Artifact{}, fmt.Errorf("get artifact %s: %w", name, err)
	}
	return a, nil
}

func (s *BadgerStore) Save(_ context.Context, a models.Artifact) error {
	data, err := msgpack.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(a.Name), data)
	})
}

func (s *BadgerStore) Delete(_ context.Context, name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(name))
	})
}

// List обходит ключи по префиксу; порядок — лексикографический по имени.
func (s *BadgerStore) List(_ context.Context) ([]models.Artifact, error) {
	var out []models.Artifact
	prefix := []byte(badgerKeyPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var a models.Artifact
				if err := msgpack.Unmarshal(v, &a); err != nil {
					return fmt.Errorf("unmarshal artifact: %w", err)
				}
				out = append(out, a)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
