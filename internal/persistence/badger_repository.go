package persistence

import (
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v3"

	"dexgrid-bot-go/internal/models"
)

// badgerRepository is the BadgerDB implementation of the GridRepository.
type badgerRepository struct {
	db *badger.DB
}

// NewBadgerRepository creates and returns a new repository instance connected
// to a BadgerDB database at dbPath.
func NewBadgerRepository(dbPath string) (GridRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	// Badger's own logging is noisy; errors still surface from DB operations.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &badgerRepository{db: db}, nil
}

func gridKey(pair string) []byte {
	return []byte("grid_state:" + pair)
}

// SaveGrid marshals the order collection into JSON and saves it under the
// pair's key in a single transaction.
func (r *badgerRepository) SaveGrid(pair string, orders []models.GridOrder) error {
	data, err := json.Marshal(orders)
	if err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(gridKey(pair), data)
	})
}

// LoadGrid loads the order collection for a pair.
// A missing key returns (nil, nil) to indicate no snapshot is present.
func (r *badgerRepository) LoadGrid(pair string) ([]models.GridOrder, error) {
	var orders []models.GridOrder

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gridKey(pair))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 0 {
				return errors.New("grid snapshot is empty in database")
			}
			return json.Unmarshal(val, &orders)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil // expected "no snapshot" case
	}
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// Close gracefully closes the connection to the database.
func (r *badgerRepository) Close() error {
	return r.db.Close()
}
