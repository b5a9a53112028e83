package market

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stellar/tradelight/sdk/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturerFunc func(from *keypair.FromAddress, amount int64) error

func (f capturerFunc) Capture(from *keypair.FromAddress, amount int64) error {
	return f(from, amount)
}

type releaserFunc func(to *keypair.FromAddress, amount int64) error

func (f releaserFunc) Release(to *keypair.FromAddress, amount int64) error {
	return f(to, amount)
}

func TestMarket_lifecycle(t *testing.T) {
	seller := keypair.MustRandom().FromAddress()
	buyer := keypair.MustRandom().FromAddress()
	book := ledger.NewBook()
	require.NoError(t, book.Deposit(buyer, 10))
	m := NewMarket(Config{Capturer: book, Releaser: book})

	// Listing allocates SKU 0 and the item starts for sale.
	sku, err := m.List(seller, "Test Item", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sku)
	item, err := m.Item(sku)
	require.NoError(t, err)
	assert.Equal(t, StateForSale, item.State)
	assert.Nil(t, item.Buyer)

	// Buying with less than the price fails and changes nothing.
	err = m.Buy(buyer, sku, 4)
	require.ErrorIs(t, err, ErrValueMismatch)
	item, err = m.Item(sku)
	require.NoError(t, err)
	assert.Equal(t, StateForSale, item.State)
	assert.Nil(t, item.Buyer)
	assert.Equal(t, int64(10), book.Balance(buyer))
	assert.Equal(t, int64(0), book.Custody())

	// Buying with the exact price captures it into escrow.
	err = m.Buy(buyer, sku, 5)
	require.NoError(t, err)
	item, err = m.Item(sku)
	require.NoError(t, err)
	assert.Equal(t, StateSold, item.State)
	require.NotNil(t, item.Buyer)
	assert.Equal(t, buyer.Address(), item.Buyer.Address())
	assert.Equal(t, int64(5), book.Balance(buyer))
	assert.Equal(t, int64(5), book.Custody())

	// The buyer cannot ship.
	err = m.Ship(buyer, sku)
	require.ErrorIs(t, err, ErrUnauthorized)
	item, err = m.Item(sku)
	require.NoError(t, err)
	assert.Equal(t, StateSold, item.State)

	// The seller ships, no value moves.
	err = m.Ship(seller, sku)
	require.NoError(t, err)
	item, err = m.Item(sku)
	require.NoError(t, err)
	assert.Equal(t, StateShipped, item.State)
	assert.Equal(t, int64(5), book.Custody())

	// The seller cannot receive.
	err = m.Receive(seller, sku)
	require.ErrorIs(t, err, ErrUnauthorized)

	// The buyer receives, releasing the escrow to the seller.
	err = m.Receive(buyer, sku)
	require.NoError(t, err)
	item, err = m.Item(sku)
	require.NoError(t, err)
	assert.Equal(t, StateReceived, item.State)
	assert.Equal(t, int64(0), book.Custody())
	assert.Equal(t, int64(5), book.Balance(seller))

	// A concluded item cannot be bought again.
	err = m.Buy(buyer, sku, 5)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestMarket_list(t *testing.T) {
	seller := keypair.MustRandom().FromAddress()
	m := NewMarket(Config{})

	sku, err := m.List(seller, "a", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sku)
	sku, err = m.List(seller, "b", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sku)

	_, err = m.List(seller, "c", -1)
	require.EqualError(t, err, "listing item: price must not be negative, got -1")
	_, err = m.List(nil, "d", 1)
	require.EqualError(t, err, "listing item: seller required")
	assert.Equal(t, 2, m.Len())
}

func TestMarket_buy_notFound(t *testing.T) {
	buyer := keypair.MustRandom().FromAddress()
	m := NewMarket(Config{})

	err := m.Buy(buyer, 0, 5)
	require.ErrorIs(t, err, ErrNotFound)
	err = m.Buy(buyer, -1, 5)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarket_buy_overpaymentRejectedByDefault(t *testing.T) {
	seller := keypair.MustRandom().FromAddress()
	buyer := keypair.MustRandom().FromAddress()
	book := ledger.NewBook()
	require.NoError(t, book.Deposit(buyer, 100))
	m := NewMarket(Config{Capturer: book, Releaser: book})

	sku, err := m.List(seller, "item", 5)
	require.NoError(t, err)

	err = m.Buy(buyer, sku, 6)
	require.ErrorIs(t, err, ErrValueMismatch)
	assert.Equal(t, int64(100), book.Balance(buyer))
	assert.Equal(t, int64(0), book.Custody())
}

func TestMarket_buy_overpaymentAcceptedAtLeastPolicy(t *testing.T) {
	seller := keypair.MustRandom().FromAddress()
	buyer := keypair.MustRandom().FromAddress()
	book := ledger.NewBook()
	require.NoError(t, book.Deposit(buyer, 100))
	m := NewMarket(Config{Capturer: book, Releaser: book, PaymentPolicy: PaymentAtLeast})

	sku, err := m.List(seller, "item", 5)
	require.NoError(t, err)

	err = m.Buy(buyer, sku, 4)
	require.ErrorIs(t, err, ErrValueMismatch)

	// Only the price is captured, the surplus stays with the buyer.
	err = m.Buy(buyer, sku, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(95), book.Balance(buyer))
	assert.Equal(t, int64(5), book.Custody())
}

func TestMarket_buy_captureFailureLeavesItemUnchanged(t *testing.T) {
	seller := keypair.MustRandom().FromAddress()
	buyer := keypair.MustRandom().FromAddress()
	m := NewMarket(Config{
		Capturer: capturerFunc(func(from *keypair.FromAddress, amount int64) error {
			return errors.New("transfer rejected")
		}),
	})

	sku, err := m.List(seller, "item", 5)
	require.NoError(t, err)

	err = m.Buy(buyer, sku, 5)
	require.ErrorIs(t, err, ErrTransferFailed)
	item, err := m.Item(sku)
	require.NoError(t, err)
	assert.Equal(t, StateForSale, item.State)
	assert.Nil(t, item.Buyer)
}

func TestMarket_buy_insufficientBalance(t *testing.T) {
	seller := keypair.MustRandom().FromAddress()
	buyer := keypair.MustRandom().FromAddress()
	book := ledger.NewBook()
	require.NoError(t, book.Deposit(buyer, 3))
	m := NewMarket(Config{Capturer: book, Releaser: book})

	sku, err := m.List(seller, "item", 5)
	require.NoError(t, err)

	// The attached value matches the price but the buyer cannot cover the
	// capture, so the buy fails whole and nothing is captured.
	err = m.Buy(buyer, sku, 5)
	require.ErrorIs(t, err, ErrTransferFailed)
	assert.True(t, errors.Is(err, ErrTransferFailed))
	item, err := m.Item(sku)
	require.NoError(t, err)
	assert.Equal(t, StateForSale, item.State)
	assert.Nil(t, item.Buyer)
	assert.Equal(t, int64(3), book.Balance(buyer))
	assert.Equal(t, int64(0), book.Custody())
}

func TestMarket_ship_preconditions(t *testing.T) {
	seller := keypair.MustRandom().FromAddress()
	buyer := keypair.MustRandom().FromAddress()
	book := ledger.NewBook()
	require.NoError(t, book.Deposit(buyer, 10))
	m := NewMarket(Config{Capturer: book, Releaser: book})

	err := m.Ship(seller, 0)
	require.ErrorIs(t, err, ErrNotFound)

	sku, err := m.List(seller, "item", 5)
	require.NoError(t, err)

	// Shipping an unsold item fails.
	err = m.Ship(seller, sku)
	require.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, m.Buy(buyer, sku, 5))

	// Only the seller may ship.
	err = m.Ship(buyer, sku)
	require.ErrorIs(t, err, ErrUnauthorized)
	err = m.Ship(nil, sku)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, m.Ship(seller, sku))

	// Shipping twice fails.
	err = m.Ship(seller, sku)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestMarket_receive_preconditions(t *testing.T) {
	seller := keypair.MustRandom().FromAddress()
	buyer := keypair.MustRandom().FromAddress()
	book := ledger.NewBook()
	require.NoError(t, book.Deposit(buyer, 10))
	m := NewMarket(Config{Capturer: book, Releaser: book})

	err := m.Receive(buyer, 0)
	require.ErrorIs(t, err, ErrNotFound)

	sku, err := m.List(seller, "item", 5)
	require.NoError(t, err)

	// An unsold item has no buyer, so any caller is unauthorized.
	err = m.Receive(buyer, sku)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, m.Buy(buyer, sku, 5))

	// The item is sold but not shipped.
	err = m.Receive(buyer, sku)
	require.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, m.Ship(seller, sku))
	err = m.Receive(seller, sku)
	require.ErrorIs(t, err, ErrUnauthorized)
	err = m.Receive(nil, sku)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, m.Receive(buyer, sku))

	// Receiving twice fails and releases nothing more.
	err = m.Receive(buyer, sku)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, int64(5), book.Balance(seller))
	assert.Equal(t, int64(0), book.Custody())
}

func TestMarket_receive_releaseFailureLeavesItemShipped(t *testing.T) {
	seller := keypair.MustRandom().FromAddress()
	buyer := keypair.MustRandom().FromAddress()
	book := ledger.NewBook()
	require.NoError(t, book.Deposit(buyer, 10))

	releaseErr := error(errors.New("network unavailable"))
	m := NewMarket(Config{
		Capturer: book,
		Releaser: releaserFunc(func(to *keypair.FromAddress, amount int64) error {
			return releaseErr
		}),
	})

	sku, err := m.List(seller, "item", 5)
	require.NoError(t, err)
	require.NoError(t, m.Buy(buyer, sku, 5))
	require.NoError(t, m.Ship(seller, sku))

	// The release fails, so the state does not advance and the escrow stays
	// held.
	err = m.Receive(buyer, sku)
	require.ErrorIs(t, err, ErrTransferFailed)
	item, err := m.Item(sku)
	require.NoError(t, err)
	assert.Equal(t, StateShipped, item.State)
	assert.Equal(t, int64(5), book.Custody())

	// Once the release can complete, receiving succeeds.
	releaseErr = nil
	err = m.Receive(buyer, sku)
	require.NoError(t, err)
	item, err = m.Item(sku)
	require.NoError(t, err)
	assert.Equal(t, StateReceived, item.State)
}

func TestMarket_zeroPriceMovesNoValue(t *testing.T) {
	seller := keypair.MustRandom().FromAddress()
	buyer := keypair.MustRandom().FromAddress()
	m := NewMarket(Config{
		Capturer: capturerFunc(func(from *keypair.FromAddress, amount int64) error {
			return fmt.Errorf("unexpected capture of %d", amount)
		}),
		Releaser: releaserFunc(func(to *keypair.FromAddress, amount int64) error {
			return fmt.Errorf("unexpected release of %d", amount)
		}),
	})

	sku, err := m.List(seller, "free item", 0)
	require.NoError(t, err)
	require.NoError(t, m.Buy(buyer, sku, 0))
	require.NoError(t, m.Ship(seller, sku))
	require.NoError(t, m.Receive(buyer, sku))
	item, err := m.Item(sku)
	require.NoError(t, err)
	assert.Equal(t, StateReceived, item.State)
}

func TestMarket_failuresAreIdempotent(t *testing.T) {
	seller := keypair.MustRandom().FromAddress()
	buyer := keypair.MustRandom().FromAddress()
	book := ledger.NewBook()
	require.NoError(t, book.Deposit(buyer, 10))
	m := NewMarket(Config{Capturer: book, Releaser: book})

	sku, err := m.List(seller, "item", 5)
	require.NoError(t, err)
	require.NoError(t, m.Buy(buyer, sku, 5))

	// Repeating a failing operation with unchanged inputs fails identically
	// and accumulates no side effect.
	var firstErr error
	for i := 0; i < 3; i++ {
		err := m.Buy(buyer, sku, 5)
		require.ErrorIs(t, err, ErrInvalidState)
		if firstErr == nil {
			firstErr = err
		} else {
			assert.Equal(t, firstErr.Error(), err.Error())
		}
		assert.Equal(t, int64(5), book.Balance(buyer))
		assert.Equal(t, int64(5), book.Custody())
	}

	snapshotBefore := m.Snapshot()
	for i := 0; i < 3; i++ {
		err := m.Ship(buyer, sku)
		require.ErrorIs(t, err, ErrUnauthorized)
	}
	assert.True(t, snapshotBefore.Equal(m.Snapshot()))
}

func TestMarket_statesAdvanceByOne(t *testing.T) {
	seller := keypair.MustRandom().FromAddress()
	buyer := keypair.MustRandom().FromAddress()
	book := ledger.NewBook()
	require.NoError(t, book.Deposit(buyer, 10))
	m := NewMarket(Config{Capturer: book, Releaser: book})

	sku, err := m.List(seller, "item", 5)
	require.NoError(t, err)

	states := []State{StateForSale}
	step := func(op func() error) {
		require.NoError(t, op())
		item, err := m.Item(sku)
		require.NoError(t, err)
		states = append(states, item.State)
	}
	step(func() error { return m.Buy(buyer, sku, 5) })
	step(func() error { return m.Ship(seller, sku) })
	step(func() error { return m.Receive(buyer, sku) })

	assert.Equal(t, []State{StateForSale, StateSold, StateShipped, StateReceived}, states)
	for i := 1; i < len(states); i++ {
		assert.Equal(t, int(states[i-1])+1, int(states[i]))
	}
}
