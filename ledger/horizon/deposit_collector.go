// Package horizon moves value between a ledger.Book and the Stellar network
// via Horizon, crediting the book for deposits made to the custody account and
// paying withdrawn value back out.
package horizon

import (
	"fmt"

	"github.com/stellar/go/amount"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/protocols/horizon/operations"
	"github.com/stellar/tradelight/sdk/ledger"
)

// DepositCollector credits a book with native asset payments made to the
// custody account, by querying Horizon's payments endpoint. Each call to
// Collect resumes from the last payment seen.
type DepositCollector struct {
	HorizonClient  horizonclient.ClientInterface
	CustodyAccount *keypair.FromAddress
	Book           *ledger.Book

	cursor string
}

// Collect queries Horizon for payments to the custody account that have not
// been seen yet and credits the book with each, returning the number of
// deposits credited.
func (c *DepositCollector) Collect() (int, error) {
	page, err := c.HorizonClient.Payments(horizonclient.OperationRequest{
		ForAccount: c.CustodyAccount.Address(),
		Cursor:     c.cursor,
		Order:      horizonclient.OrderAsc,
	})
	if err != nil {
		return 0, fmt.Errorf("getting payments of %s: %w", c.CustodyAccount.Address(), buildErr(err))
	}
	credited := 0
	for _, record := range page.Embedded.Records {
		c.cursor = record.PagingToken()
		payment, ok := record.(operations.Payment)
		if !ok {
			continue
		}
		if payment.To != c.CustodyAccount.Address() {
			continue
		}
		if payment.Asset.Type != "native" {
			continue
		}
		from, err := keypair.ParseAddress(payment.From)
		if err != nil {
			return credited, fmt.Errorf("parsing payment sender %s: %w", payment.From, err)
		}
		depositAmount, err := amount.ParseInt64(payment.Amount)
		if err != nil {
			return credited, fmt.Errorf("parsing payment amount %s from %s: %w", payment.Amount, payment.From, err)
		}
		err = c.Book.Deposit(from, depositAmount)
		if err != nil {
			return credited, fmt.Errorf("crediting deposit of %d from %s: %w", depositAmount, payment.From, err)
		}
		credited++
	}
	return credited, nil
}
