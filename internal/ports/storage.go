// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

import "time"

// InventoryStore caches classifier inventories so that re-redacting the same
// document does not call the classifier again. Entries are keyed by document
// ID (a digest of the document text). Concurrent reads are safe; writes are
// serialized by the adapter.
//
// Only inventories are stored. Match reports are recomputed on every call.
type InventoryStore interface {
	// SaveInventory persists the inventory for a document.
	// Overwrites any prior inventory for this documentID.
	SaveInventory(documentID string, inv *StoredInventory) error

	// LoadInventory retrieves the inventory for a document.
	// Returns nil, nil if no inventory exists.
	LoadInventory(documentID string) (*StoredInventory, error)

	// ListInventories returns a summary of every cached inventory,
	// ordered by document ID.
	ListInventories() ([]InventorySummary, error)

	// DeleteInventory removes one cached inventory.
	// Idempotent: deleting a nonexistent entry is not an error.
	DeleteInventory(documentID string) error

	// Wipe removes every cached inventory.
	Wipe() error
}

// StoredInventory is the persisted form of one classifier run.
type StoredInventory struct {
	DocumentID string           `json:"document_id"`
	Source     string           `json:"source,omitempty"` // file path or "stdin", informational
	Model      string           `json:"model"`
	CreatedAt  time.Time        `json:"created_at"`
	Items      []ClassifiedItem `json:"items"`
}

// InventorySummary is a lightweight listing entry.
type InventorySummary struct {
	DocumentID string    `json:"document_id"`
	Source     string    `json:"source,omitempty"`
	Model      string    `json:"model"`
	CreatedAt  time.Time `json:"created_at"`
	ItemCount  int       `json:"item_count"`
}
