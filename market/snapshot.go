package market

import (
	"github.com/google/go-cmp/cmp"
)

// Snapshot is a serializable copy of everything a Market needs to continue
// from where it left off, excluding anything provided in the Config when
// constructing it. A Snapshot can be restored into a Market using
// NewMarketFromSnapshot.
type Snapshot struct {
	Items []Item
}

// Snapshot returns a snapshot of the market's items.
func (m *Market) Snapshot() Snapshot {
	return Snapshot{Items: m.registry.snapshotItems()}
}

// Equal returns true if the snapshots contain identical items, comparing
// addresses by their account ID.
func (s Snapshot) Equal(s2 Snapshot) bool {
	if len(s.Items) == 0 && len(s2.Items) == 0 {
		return true
	}
	return cmp.Equal(s.Items, s2.Items, cmp.Comparer(addressesEqual))
}

// NewMarketFromSnapshot creates a market with the same items as the market the
// snapshot was taken from. The same config should be provided that was in use
// when the snapshot was created.
func NewMarketFromSnapshot(c Config, s Snapshot) *Market {
	m := NewMarket(c)
	m.registry = newRegistryFromItems(s.Items)
	return m
}
