// Package ledger provides an account book that performs the atomic value
// movements a market depends on.
//
// The Book keeps balances for participant accounts and a custody balance for
// value held in escrow. In embedded and test deployments the Book is the whole
// ledger. In network deployments the ledger/horizon package moves value
// between the Book and the Stellar network: deposits to the custody account
// credit participant balances, and released value is paid back out.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/stellar/go/keypair"
)

// ErrInsufficientBalance indicates an account does not hold enough value to
// cover a capture or withdrawal.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Book is an account book. The zero value is not usable, use NewBook.
//
// Book satisfies the market's Capturer and Releaser interfaces.
type Book struct {
	mu       sync.Mutex
	balances map[string]int64
	custody  int64
}

func NewBook() *Book {
	return &Book{balances: map[string]int64{}}
}

// Deposit credits an account with value that arrived from outside the book.
func (b *Book) Deposit(account *keypair.FromAddress, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("depositing %d: amount must be positive", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account.Address()] += amount
	return nil
}

// Withdraw debits an account for value leaving the book.
func (b *Book) Withdraw(account *keypair.FromAddress, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("withdrawing %d: amount must be positive", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	addr := account.Address()
	if b.balances[addr] < amount {
		return fmt.Errorf("withdrawing %d from %s holding %d: %w", amount, addr, b.balances[addr], ErrInsufficientBalance)
	}
	b.balances[addr] -= amount
	return nil
}

// Balance returns the account's balance.
func (b *Book) Balance(account *keypair.FromAddress) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account.Address()]
}

// Custody returns the value currently held in custody.
func (b *Book) Custody() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.custody
}

// Capture moves an amount from an account into custody. If the account does
// not hold the full amount nothing moves.
func (b *Book) Capture(from *keypair.FromAddress, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("capturing %d: amount must be positive", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	addr := from.Address()
	if b.balances[addr] < amount {
		return fmt.Errorf("capturing %d from %s holding %d: %w", amount, addr, b.balances[addr], ErrInsufficientBalance)
	}
	b.balances[addr] -= amount
	b.custody += amount
	return nil
}

// Release moves an amount from custody to an account.
func (b *Book) Release(to *keypair.FromAddress, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("releasing %d: amount must be positive", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.custody < amount {
		return fmt.Errorf("releasing %d with %d in custody: %w", amount, b.custody, ErrInsufficientBalance)
	}
	b.custody -= amount
	b.balances[to.Address()] += amount
	return nil
}
