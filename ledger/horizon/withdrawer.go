package horizon

import (
	"fmt"

	"github.com/stellar/go/amount"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/tradelight/sdk/ledger"
)

// Withdrawer pays value out of a book to an account on the network, as a
// payment transaction from the custody account signed by the custody signer.
type Withdrawer struct {
	HorizonClient     horizonclient.ClientInterface
	NetworkPassphrase string
	CustodyAccount    *keypair.FromAddress
	CustodySigner     *keypair.Full
	BaseFee           int64
	Book              *ledger.Book
}

// Withdraw debits the account's book balance and submits a payment of the
// amount from the custody account to the account. If the submission fails the
// book balance is restored.
func (w *Withdrawer) Withdraw(to *keypair.FromAddress, withdrawalAmount int64) error {
	err := w.Book.Withdraw(to, withdrawalAmount)
	if err != nil {
		return fmt.Errorf("debiting book balance of %s: %w", to.Address(), err)
	}
	err = w.submitPayment(to, withdrawalAmount)
	if err != nil {
		// The value never left custody, return it to the book.
		if depositErr := w.Book.Deposit(to, withdrawalAmount); depositErr != nil {
			return fmt.Errorf("restoring book balance of %s after failed submission %v: %w", to.Address(), err, depositErr)
		}
		return err
	}
	return nil
}

func (w *Withdrawer) submitPayment(to *keypair.FromAddress, paymentAmount int64) error {
	account, err := w.HorizonClient.AccountDetail(horizonclient.AccountRequest{AccountID: w.CustodyAccount.Address()})
	if err != nil {
		return fmt.Errorf("getting account %s: %w", w.CustodyAccount.Address(), buildErr(err))
	}
	seqNum, err := account.GetSequenceNumber()
	if err != nil {
		return fmt.Errorf("getting sequence number of account %s: %w", w.CustodyAccount.Address(), err)
	}
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount: &txnbuild.SimpleAccount{
			AccountID: w.CustodyAccount.Address(),
			Sequence:  seqNum + 1,
		},
		BaseFee:    w.BaseFee,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(300)},
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{
				Destination: to.Address(),
				Amount:      amount.StringFromInt64(paymentAmount),
				Asset:       txnbuild.NativeAsset{},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("building payment tx to %s: %w", to.Address(), err)
	}
	tx, err = tx.Sign(w.NetworkPassphrase, w.CustodySigner)
	if err != nil {
		return fmt.Errorf("signing payment tx to %s: %w", to.Address(), err)
	}
	txeBase64, err := tx.Base64()
	if err != nil {
		return fmt.Errorf("encoding tx as base64: %w", err)
	}
	_, err = w.HorizonClient.SubmitTransactionXDR(txeBase64)
	if err != nil {
		return fmt.Errorf("submitting tx to %s: %w", to.Address(), buildErr(err))
	}
	return nil
}

func buildErr(err error) error {
	if hErr := horizonclient.GetError(err); hErr != nil {
		resultString, rErr := hErr.ResultString()
		if rErr != nil {
			resultString = "<error getting result string: " + rErr.Error() + ">"
		}
		return fmt.Errorf("%w (%v)", err, resultString)
	}
	return err
}
