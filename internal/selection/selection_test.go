package selection

import (
	"errors"
	"sync"
	"testing"

	"github.com/mfierros/routina/internal/catalog"
	"github.com/mfierros/routina/internal/localstore"
)

// memPersister is an in-memory Persister; failSave makes every save fail.
type memPersister struct {
	ids      []int
	saves    int
	failSave bool
	failLoad bool
}

func (p *memPersister) SaveSelectedIDs(ids []int) error {
	p.saves++
	if p.failSave {
		return errors.New("quota exceeded")
	}
	p.ids = append([]int(nil), ids...)
	return nil
}

func (p *memPersister) LoadSelectedIDs() ([]int, error) {
	if p.failLoad {
		return nil, errors.New("storage unreadable")
	}
	return p.ids, nil
}

var testProducts = []catalog.Product{
	{ID: 1, Name: "Hydra Cleanser", Brand: "CeraPure", Category: "cleanser"},
	{ID: 2, Name: "Revita Serum", Brand: "DermaLab", Category: "serum"},
	{ID: 3, Name: "Night Repair Cream", Brand: "CeraPure", Category: "moisturizer"},
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestToggleInvolution(t *testing.T) {
	store := New(&memPersister{}, nil)

	store.Toggle(1, testProducts[0])
	if !store.Contains(1) {
		t.Fatal("product 1 not selected after first toggle")
	}
	store.Toggle(1, testProducts[0])
	if store.Contains(1) || store.Len() != 0 {
		t.Fatal("double toggle did not restore original membership")
	}
}

func TestToggleOrderAndSerialize(t *testing.T) {
	persister := &memPersister{}
	store := New(persister, nil)

	store.Toggle(1, testProducts[0])
	store.Toggle(2, testProducts[1])

	if got := store.Serialize(); !equalInts(got, []int{1, 2}) {
		t.Errorf("Serialize = %v, want [1 2]", got)
	}
	if !equalInts(persister.ids, []int{1, 2}) {
		t.Errorf("persisted ids = %v, want [1 2]", persister.ids)
	}

	store.Clear()
	if got := store.Serialize(); len(got) != 0 {
		t.Errorf("Serialize after Clear = %v, want []", got)
	}
	if len(persister.ids) != 0 {
		t.Errorf("persisted ids after Clear = %v, want []", persister.ids)
	}
}

func TestEveryMutationPersists(t *testing.T) {
	persister := &memPersister{}
	store := New(persister, nil)

	store.Toggle(1, testProducts[0])
	store.Toggle(1, testProducts[0])
	store.Clear()

	if persister.saves != 3 {
		t.Errorf("saves = %d, want 3", persister.saves)
	}
}

func TestRestoreDropsUnresolvedIDs(t *testing.T) {
	persister := &memPersister{ids: []int{3, 99, 1}}
	store := New(persister, nil)

	store.Restore(testProducts)

	if got := store.Serialize(); !equalInts(got, []int{3, 1}) {
		t.Errorf("restored ids = %v, want [3 1]", got)
	}
	if store.Contains(99) {
		t.Error("id 99 restored despite missing from catalog")
	}
	// Restore itself does not write back.
	if persister.saves != 0 {
		t.Errorf("Restore persisted %d times, want 0", persister.saves)
	}
}

func TestSerializeRestoreRoundTrip(t *testing.T) {
	persister := &memPersister{}
	store := New(persister, nil)
	store.Toggle(2, testProducts[1])
	store.Toggle(1, testProducts[0])

	restored := New(persister, nil)
	restored.Restore(testProducts)

	if got := restored.Serialize(); !equalInts(got, []int{2, 1}) {
		t.Errorf("round trip = %v, want [2 1]", got)
	}
}

func TestPersistenceFailuresAreSwallowed(t *testing.T) {
	store := New(&memPersister{failSave: true}, nil)

	// Must not panic or lose the in-memory mutation.
	store.Toggle(1, testProducts[0])
	if !store.Contains(1) {
		t.Error("failed save blocked the in-memory toggle")
	}

	broken := New(&memPersister{failLoad: true}, nil)
	broken.Restore(testProducts)
	if broken.Len() != 0 {
		t.Error("failed load produced selections")
	}
}

func TestProductsSnapshot(t *testing.T) {
	store := New(&memPersister{}, nil)
	store.Toggle(2, testProducts[1])
	store.Toggle(3, testProducts[2])

	products := store.Products()
	if len(products) != 2 || products[0].ID != 2 || products[1].ID != 3 {
		t.Errorf("Products = %+v, want products 2 then 3", products)
	}
}

func TestConcurrentToggleAndSnapshot(t *testing.T) {
	// The TUI toggles products in the event loop while a routine command
	// snapshots the selection from its own goroutine.
	store := New(&memPersister{}, nil)

	var wg sync.WaitGroup
	for i, p := range testProducts {
		wg.Add(2)
		go func(id int, product catalog.Product) {
			defer wg.Done()
			for range 100 {
				store.Toggle(id, product)
			}
		}(i+1, p)
		go func() {
			defer wg.Done()
			for range 200 {
				store.Products()
				store.Serialize()
				store.Contains(1)
			}
		}()
	}
	wg.Wait()

	// Each id was toggled an even number of times.
	if got := store.Len(); got != 0 {
		t.Errorf("Len = %d, want 0 after even toggles", got)
	}
}

func TestLocalPersister(t *testing.T) {
	ls, err := localstore.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	persister := LocalPersister{Store: ls}

	store := New(persister, nil)
	store.Toggle(1, testProducts[0])
	store.Toggle(3, testProducts[2])

	restored := New(persister, nil)
	restored.Restore(testProducts)
	if got := restored.Serialize(); !equalInts(got, []int{1, 3}) {
		t.Errorf("restored through localstore = %v, want [1 3]", got)
	}
}
