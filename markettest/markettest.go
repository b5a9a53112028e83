// Package markettest provides fixtures for tests and examples that need a
// market with funded participants.
package markettest

import (
	"fmt"

	"github.com/stellar/go/keypair"
	"github.com/stellar/tradelight/sdk/ledger"
	"github.com/stellar/tradelight/sdk/market"
)

// The book is the value-transfer primitive markets in tests run against.
var _ market.Capturer = &ledger.Book{}
var _ market.Releaser = &ledger.Book{}

// Participant is a test participant: a signing key and the address the market
// identifies them by.
type Participant struct {
	Signer  *keypair.Full
	Address *keypair.FromAddress
}

// NewParticipant returns a participant with a random key.
func NewParticipant() Participant {
	signer := keypair.MustRandom()
	return Participant{
		Signer:  signer,
		Address: signer.FromAddress(),
	}
}

// NewFundedBook returns a book with each participant's balance credited with
// the given amount.
func NewFundedBook(balance int64, participants ...Participant) (*ledger.Book, error) {
	book := ledger.NewBook()
	for _, p := range participants {
		err := book.Deposit(p.Address, balance)
		if err != nil {
			return nil, fmt.Errorf("funding %s: %w", p.Address.Address(), err)
		}
	}
	return book, nil
}

// NewMarket returns a market backed by a funded book, along with a seller and
// a buyer holding the given balance each.
func NewMarket(balance int64) (*market.Market, *ledger.Book, Participant, Participant, error) {
	seller := NewParticipant()
	buyer := NewParticipant()
	book, err := NewFundedBook(balance, seller, buyer)
	if err != nil {
		return nil, nil, Participant{}, Participant{}, err
	}
	m := market.NewMarket(market.Config{
		Capturer: book,
		Releaser: book,
	})
	return m, book, seller, buyer, nil
}
