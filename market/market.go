package market

import (
	"errors"
	"fmt"

	"github.com/stellar/go/keypair"
)

// ErrInvalidState indicates the operation was attempted while the item is not
// in the state the operation requires.
var ErrInvalidState = errors.New("item not in required state")

// ErrUnauthorized indicates the caller is not the identity recorded as
// authorized for the operation.
var ErrUnauthorized = errors.New("caller not authorized")

// ErrValueMismatch indicates the value attached to a buy does not satisfy the
// item's price under the market's payment policy.
var ErrValueMismatch = errors.New("attached value does not match price")

// ErrTransferFailed indicates the value-transfer primitive could not complete
// a capture or release. The underlying transfer error is attached.
var ErrTransferFailed = errors.New("value transfer failed")

// Capturer atomically moves an amount of value from an account into the
// market's custody. It fails without capturing anything if the full amount
// cannot be moved.
type Capturer interface {
	Capture(from *keypair.FromAddress, amount int64) error
}

// Releaser atomically moves an amount of value from the market's custody to an
// account.
type Releaser interface {
	Release(to *keypair.FromAddress, amount int64) error
}

// PaymentPolicy controls how the value attached to a buy is compared against
// the item's price.
type PaymentPolicy int

const (
	// PaymentExact requires the attached value to equal the price exactly.
	// Both under- and over-payment are rejected.
	PaymentExact = PaymentPolicy(0)

	// PaymentAtLeast accepts any attached value of at least the price. Only
	// the price is captured into escrow, any surplus stays with the buyer.
	PaymentAtLeast = PaymentPolicy(1)
)

type Config struct {
	Capturer Capturer
	Releaser Releaser

	// PaymentPolicy defaults to PaymentExact.
	PaymentPolicy PaymentPolicy
}

type noCopy struct{}

// Market is the sole mutator of its item Registry. It validates caller
// identity, item state and attached value for each operation, then applies the
// state change and any value movement as one unit. If any check or the value
// transfer fails the operation has no effect.
type Market struct {
	noCopy

	registry      *Registry
	capturer      Capturer
	releaser      Releaser
	paymentPolicy PaymentPolicy
}

func NewMarket(c Config) *Market {
	return &Market{
		registry:      NewRegistry(),
		capturer:      c.Capturer,
		releaser:      c.Releaser,
		paymentPolicy: c.PaymentPolicy,
	}
}

// List creates a new item owned by the caller as seller, in the ForSale state,
// and returns the SKU allocated to it.
func (m *Market) List(seller *keypair.FromAddress, name string, price int64) (int64, error) {
	if seller == nil {
		return 0, fmt.Errorf("listing item: seller required")
	}
	if price < 0 {
		return 0, fmt.Errorf("listing item: price must not be negative, got %d", price)
	}
	return m.registry.Create(name, price, seller), nil
}

// Buy captures the attached value into escrow, records the caller as the
// item's buyer and advances the item to Sold. The item must be ForSale and the
// attached value must satisfy the price under the market's payment policy. On
// any failure nothing is captured and the item is unchanged, so any value the
// caller attempted to attach stays with the caller.
func (m *Market) Buy(buyer *keypair.FromAddress, sku int64, attached int64) error {
	if buyer == nil {
		return fmt.Errorf("buying item %d: %w", sku, ErrUnauthorized)
	}
	rec, err := m.registry.lookup(sku)
	if err != nil {
		return fmt.Errorf("buying item %d: %w", sku, err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.item.State != StateForSale {
		return fmt.Errorf("buying item %d in state %v: %w", sku, rec.item.State, ErrInvalidState)
	}
	if !m.priceSatisfied(rec.item.Price, attached) {
		return fmt.Errorf("buying item %d with %d attached, price %d: %w", sku, attached, rec.item.Price, ErrValueMismatch)
	}
	// Capture is sequenced after all validation and only the price is ever
	// captured, so escrow held for the item equals its price exactly from
	// Sold until Received. A zero price moves no value.
	if rec.item.Price > 0 {
		err = m.capturer.Capture(buyer, rec.item.Price)
		if err != nil {
			return fmt.Errorf("capturing %d for item %d: %w: %v", rec.item.Price, sku, ErrTransferFailed, err)
		}
	}
	rec.item.Buyer = buyer
	rec.item.State = StateSold
	return nil
}

// Ship advances a Sold item to Shipped. The caller must be the item's seller.
// No value moves.
func (m *Market) Ship(seller *keypair.FromAddress, sku int64) error {
	rec, err := m.registry.lookup(sku)
	if err != nil {
		return fmt.Errorf("shipping item %d: %w", sku, err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if seller == nil || !seller.Equal(rec.item.Seller) {
		return fmt.Errorf("shipping item %d: %w", sku, ErrUnauthorized)
	}
	if rec.item.State != StateSold {
		return fmt.Errorf("shipping item %d in state %v: %w", sku, rec.item.State, ErrInvalidState)
	}
	rec.item.State = StateShipped
	return nil
}

// Receive advances a Shipped item to Received and releases the escrowed price
// to the seller. The caller must be the item's buyer. The release and the
// state advance are one unit: if the release fails the item stays Shipped and
// the escrow stays held.
func (m *Market) Receive(buyer *keypair.FromAddress, sku int64) error {
	rec, err := m.registry.lookup(sku)
	if err != nil {
		return fmt.Errorf("receiving item %d: %w", sku, err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if buyer == nil || !buyer.Equal(rec.item.Buyer) {
		return fmt.Errorf("receiving item %d: %w", sku, ErrUnauthorized)
	}
	if rec.item.State != StateShipped {
		return fmt.Errorf("receiving item %d in state %v: %w", sku, rec.item.State, ErrInvalidState)
	}
	if rec.item.Price > 0 {
		err = m.releaser.Release(rec.item.Seller, rec.item.Price)
		if err != nil {
			return fmt.Errorf("releasing %d for item %d: %w: %v", rec.item.Price, sku, ErrTransferFailed, err)
		}
	}
	rec.item.State = StateReceived
	return nil
}

// Item returns a copy of the item's full record. It has no preconditions
// beyond the item existing.
func (m *Market) Item(sku int64) (Item, error) {
	return m.registry.Item(sku)
}

// Len returns the number of items ever listed.
func (m *Market) Len() int {
	return m.registry.Len()
}

func (m *Market) priceSatisfied(price, attached int64) bool {
	if m.paymentPolicy == PaymentAtLeast {
		return attached >= price
	}
	return attached == price
}
