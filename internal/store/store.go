package store

import (
	"marketflow/internal/models"
)

// Seed holds the records a Store starts with
type Seed struct {
	Products   []models.Product
	Categories []models.Category
	Orders     []models.Order
	Reviews    []models.Review
}

// Store groups the four resource tables. Each table is independent; nothing
// here enforces references between them.
type Store struct {
	Products   *Table[models.Product]
	Categories *Table[models.Category]
	Orders     *Table[models.Order]
	Reviews    *Table[models.Review]
}

// New creates a store whose tables hold copies of the seed records
func New(seed Seed) *Store {
	return &Store{
		Products:   NewTable("Product", seed.Products),
		Categories: NewTable("Category", seed.Categories),
		Orders:     NewTable("Order", seed.Orders),
		Reviews:    NewTable("Review", seed.Reviews),
	}
}
