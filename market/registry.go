package market

import (
	"errors"
	"sync"

	"github.com/stellar/go/keypair"
)

// ErrNotFound indicates the referenced SKU was never allocated.
var ErrNotFound = errors.New("item not found")

// record wraps an item with the lock that guards it. The lock is held for the
// duration of exactly one operation on the item.
type record struct {
	mu   sync.Mutex
	item Item
}

// Registry is the authoritative store of item records. It allocates SKUs
// sequentially starting at 0 and never reuses or deletes them. The Registry
// performs no authorization or state-transition logic, that is the Market's
// responsibility.
type Registry struct {
	mu    sync.RWMutex
	items []*record
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Create stores a new item in the ForSale state with no buyer and returns the
// SKU allocated to it.
func (r *Registry) Create(name string, price int64, seller *keypair.FromAddress) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	sku := int64(len(r.items))
	r.items = append(r.items, &record{
		item: Item{
			SKU:    sku,
			Name:   name,
			Price:  price,
			State:  StateForSale,
			Seller: seller,
		},
	})
	return sku
}

// Item returns a copy of the item's full record.
func (r *Registry) Item(sku int64) (Item, error) {
	rec, err := r.lookup(sku)
	if err != nil {
		return Item{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.item, nil
}

// Len returns the number of items ever created.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Registry) lookup(sku int64) (*record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if sku < 0 || sku >= int64(len(r.items)) {
		return nil, ErrNotFound
	}
	return r.items[sku], nil
}

func (r *Registry) snapshotItems() []Item {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]Item, 0, len(r.items))
	for _, rec := range r.items {
		rec.mu.Lock()
		items = append(items, rec.item)
		rec.mu.Unlock()
	}
	return items
}

func newRegistryFromItems(items []Item) *Registry {
	r := &Registry{items: make([]*record, 0, len(items))}
	for _, item := range items {
		r.items = append(r.items, &record{item: item})
	}
	return r
}
