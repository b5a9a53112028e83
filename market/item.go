package market

import (
	"fmt"

	"github.com/stellar/go/keypair"
)

// State is the lifecycle state of an item. States are ordered and an item's
// state only ever advances, by exactly one state per successful operation.
type State int

const (
	StateForSale  = State(0)
	StateSold     = State(1)
	StateShipped  = State(2)
	StateReceived = State(3)
)

func (s State) String() string {
	switch s {
	case StateForSale:
		return "forsale"
	case StateSold:
		return "sold"
	case StateShipped:
		return "shipped"
	case StateReceived:
		return "received"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Item is a single listed item and its full record: the immutable fields fixed
// at listing, the buyer fixed at the moment of sale, and the current lifecycle
// state.
type Item struct {
	SKU    int64
	Name   string
	Price  int64
	State  State
	Seller *keypair.FromAddress
	Buyer  *keypair.FromAddress
}

// Equal returns true if the two items are identical, comparing addresses by
// their account ID.
func (i Item) Equal(i2 Item) bool {
	return i.SKU == i2.SKU &&
		i.Name == i2.Name &&
		i.Price == i2.Price &&
		i.State == i2.State &&
		addressesEqual(i.Seller, i2.Seller) &&
		addressesEqual(i.Buyer, i2.Buyer)
}

func addressesEqual(a, b *keypair.FromAddress) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Address() == b.Address()
}
