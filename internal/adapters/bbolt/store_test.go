package bbolt

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/silencio/internal/ports"
)

// =============================================================================
// bbolt Inventory Cache: save/load classifier inventories, survive reopen
// Expectation: one entry per document ID; missing entries are nil, nil.
// =============================================================================

// newTestStore creates a temporary bbolt store for testing.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

// makeTestInventory creates a realistic cached inventory.
func makeTestInventory(id string) *ports.StoredInventory {
	return &ports.StoredInventory{
		DocumentID: id,
		Source:     "incident-report.md",
		Model:      "gpt-5-mini",
		CreatedAt:  time.Unix(1700000000, 0).UTC(),
		Items: []ports.ClassifiedItem{
			{Item: "Jane Doe", Code: "(1)(A)(a)", Desc: "Real names", Aliases: []string{"J. Doe", "Jane"}},
			{Item: "jane@corp.example", Code: "(1)(A)(c)", Desc: "E-mail addresses"},
			{Item: "AKIAEXAMPLEKEY", Code: "(3)(A)(b)", Desc: "API keys", Notes: "AWS access key id"},
		},
	}
}

func TestStore_SaveLoad(t *testing.T) {
	store, _ := newTestStore(t)
	inv := makeTestInventory("doc1")

	require.NoError(t, store.SaveInventory("doc1", inv))
	got, err := store.LoadInventory("doc1")
	require.NoError(t, err)
	assert.Equal(t, inv, got)
}

func TestStore_LoadMissing(t *testing.T) {
	store, _ := newTestStore(t)
	got, err := store.LoadInventory("nope")
	assert.NoError(t, err)
	assert.Nil(t, got, "fresh store returns nil, nil")

	require.NoError(t, store.SaveInventory("doc1", makeTestInventory("doc1")))
	got, err = store.LoadInventory("doc2")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_Overwrite(t *testing.T) {
	store, _ := newTestStore(t)
	first := makeTestInventory("doc1")
	require.NoError(t, store.SaveInventory("doc1", first))

	second := makeTestInventory("doc1")
	second.Items = second.Items[:1]
	second.Model = "gpt-5"
	require.NoError(t, store.SaveInventory("doc1", second))

	got, err := store.LoadInventory("doc1")
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", got.Model)
	assert.Len(t, got.Items, 1)
}

func TestStore_InvalidSave(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Error(t, store.SaveInventory("doc1", nil))
	assert.Error(t, store.SaveInventory("", makeTestInventory("")))
}

func TestStore_SurvivesReopen(t *testing.T) {
	store, path := newTestStore(t)
	inv := makeTestInventory("doc1")
	require.NoError(t, store.SaveInventory("doc1", inv))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.LoadInventory("doc1")
	require.NoError(t, err)
	assert.Equal(t, inv, got)
}

func TestStore_List(t *testing.T) {
	store, _ := newTestStore(t)
	list, err := store.ListInventories()
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, store.SaveInventory("bbb", makeTestInventory("bbb")))
	require.NoError(t, store.SaveInventory("aaa", makeTestInventory("aaa")))

	list, err = store.ListInventories()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "aaa", list[0].DocumentID, "ordered by key")
	assert.Equal(t, "bbb", list[1].DocumentID)
	assert.Equal(t, 3, list[0].ItemCount)
	assert.Equal(t, "incident-report.md", list[0].Source)
}

func TestStore_DeleteIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.DeleteInventory("never-existed"))

	require.NoError(t, store.SaveInventory("doc1", makeTestInventory("doc1")))
	require.NoError(t, store.DeleteInventory("doc1"))
	require.NoError(t, store.DeleteInventory("doc1"))
	got, err := store.LoadInventory("doc1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_Wipe(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Wipe(), "wiping an empty store is fine")

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("doc%d", i)
		require.NoError(t, store.SaveInventory(id, makeTestInventory(id)))
	}
	require.NoError(t, store.Wipe())
	list, err := store.ListInventories()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_LockTimeout(t *testing.T) {
	_, path := newTestStore(t)
	// Second open of a locked db must fail after the 1s timeout.
	_, err := NewStore(path)
	require.Error(t, err)
	assert.True(t, IsLockTimeout(err))
}

func TestStore_ConcurrentReads(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveInventory("doc1", makeTestInventory("doc1")))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.LoadInventory("doc1")
			assert.NoError(t, err)
			assert.NotNil(t, got)
		}()
	}
	wg.Wait()
}
