// Package bbolt implements the ports.InventoryStore interface using bbolt (embedded B+ tree).
// All inventories live in a single "inventories" bucket, keyed by document ID, with
// JSON-serialized values. Writes are transactional; a crash mid-write cannot corrupt
// previously committed data.
package bbolt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corey/silencio/internal/ports"
)

// Bucket keys
var (
	bucketInventories = []byte("inventories")
)

// Store implements ports.InventoryStore backed by bbolt.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// IsLockTimeout reports whether err is bbolt failing to acquire the file lock
// within the open deadline, i.e. another process holds the database.
func IsLockTimeout(err error) bool {
	return errors.Is(err, bolt.ErrTimeout)
}

// SaveInventory persists the inventory for a document.
func (s *Store) SaveInventory(documentID string, inv *ports.StoredInventory) error {
	if inv == nil {
		return fmt.Errorf("nil inventory")
	}
	if documentID == "" {
		return fmt.Errorf("empty document id")
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshal inventory: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketInventories)
		if err != nil {
			return err
		}
		return b.Put([]byte(documentID), data)
	})
}

// LoadInventory retrieves the inventory for a document.
// Returns nil, nil if none is cached.
func (s *Store) LoadInventory(documentID string) (*ports.StoredInventory, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInventories)
		if b == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := b.Get([]byte(documentID)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var inv ports.StoredInventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("unmarshal inventory %s: %w", documentID, err)
	}
	return &inv, nil
}

// ListInventories returns a summary of every cached inventory, ordered by
// document ID (bbolt keys are sorted).
func (s *Store) ListInventories() ([]ports.InventorySummary, error) {
	var out []ports.InventorySummary
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInventories)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var inv ports.StoredInventory
			if err := json.Unmarshal(v, &inv); err != nil {
				return fmt.Errorf("unmarshal inventory %s: %w", k, err)
			}
			out = append(out, ports.InventorySummary{
				DocumentID: string(k),
				Source:     inv.Source,
				Model:      inv.Model,
				CreatedAt:  inv.CreatedAt,
				ItemCount:  len(inv.Items),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteInventory removes one cached inventory.
// Idempotent: deleting a nonexistent entry is not an error.
func (s *Store) DeleteInventory(documentID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInventories)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(documentID))
	})
}

// Wipe removes every cached inventory.
func (s *Store) Wipe() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketInventories); errors.Is(err, bolt.ErrBucketNotFound) {
			return nil // idempotent
		} else {
			return err
		}
	})
}
