package persistence

import "dexgrid-bot-go/internal/models"

// GridRepository defines the interface for grid snapshot persistence.
// It abstracts the underlying storage mechanism (e.g., BadgerDB, in-memory)
// from the rest of the application. The snapshot is an opaque array of
// GridOrder-shaped records; the manager's merge adapter owns its meaning.
type GridRepository interface {
	// SaveGrid atomically saves the full order collection for a trading pair.
	SaveGrid(pair string, orders []models.GridOrder) error

	// LoadGrid loads the order collection for a trading pair.
	// If no snapshot is found, it returns (nil, nil).
	LoadGrid(pair string) ([]models.GridOrder, error)

	// Close gracefully closes the connection to the database.
	Close() error
}
