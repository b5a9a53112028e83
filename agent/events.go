package agent

import (
	"github.com/stellar/go/keypair"
	"github.com/stellar/tradelight/sdk/market"
)

// Event is an event that occurs while the agent hosts the market.
type Event interface{}

// ErrorEvent occurs when an error has occurred, and contains the error
// occurred.
type ErrorEvent struct {
	Err error
}

// ConnectedEvent occurs when a participant's hello handshake succeeds and the
// connection is bound to their identity.
type ConnectedEvent struct {
	Participant *keypair.FromAddress
}

// ListedEvent occurs when a new item has been listed for sale.
type ListedEvent struct {
	Item market.Item
}

// PurchasedEvent occurs when an item has been bought and its price is held in
// escrow.
type PurchasedEvent struct {
	Item market.Item
}

// ShippedEvent occurs when an item's seller has shipped it.
type ShippedEvent struct {
	Item market.Item
}

// ReceivedEvent occurs when an item's buyer has confirmed receipt and the
// escrowed price has been released to the seller.
type ReceivedEvent struct {
	Item market.Item
}
