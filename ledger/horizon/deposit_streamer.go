package horizon

import (
	"context"
	"sync"

	"github.com/stellar/go/amount"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/protocols/horizon/operations"
	"github.com/stellar/tradelight/sdk/ledger"
)

// Deposit is a native asset payment to the custody account that has been
// credited to the book.
type Deposit struct {
	Cursor string
	From   *keypair.FromAddress
	Amount int64
}

// DepositStreamer is the streaming counterpart of DepositCollector: it
// credits the book with deposits as Horizon reports them instead of on
// demand.
type DepositStreamer struct {
	HorizonClient  horizonclient.ClientInterface
	CustodyAccount *keypair.FromAddress
	Book           *ledger.Book
	ErrorHandler   func(error)
}

// StreamDeposits streams native asset payments made to the custody account,
// crediting the book with each and sending it to the deposits channel
// returned. StreamDeposits can be stopped by calling the cancel function
// returned. The given cursor supports resuming a previous stream.
func (s *DepositStreamer) StreamDeposits(cursor string) (deposits <-chan Deposit, cancel func()) {
	depositsCh := make(chan Deposit)

	// cancelCh will be used to signal the streamer to stop.
	cancelCh := make(chan struct{})

	go func() {
		defer close(depositsCh)
		s.streamDeposits(cursor, depositsCh, cancelCh)
	}()

	cancelOnce := sync.Once{}
	cancel = func() {
		cancelOnce.Do(func() {
			close(cancelCh)
		})
	}
	return depositsCh, cancel
}

func (s *DepositStreamer) streamDeposits(cursor string, deposits chan<- Deposit, cancel <-chan struct{}) {
	ctx, ctxCancel := context.WithCancel(context.Background())
	go func() {
		<-cancel
		ctxCancel()
	}()
	for {
		req := horizonclient.OperationRequest{
			ForAccount: s.CustodyAccount.Address(),
			Cursor:     cursor,
		}
		err := s.HorizonClient.StreamPayments(ctx, req, func(op operations.Operation) {
			cursor = op.PagingToken()
			payment, ok := op.(operations.Payment)
			if !ok {
				return
			}
			if payment.To != s.CustodyAccount.Address() {
				return
			}
			if payment.Asset.Type != "native" {
				return
			}
			from, err := keypair.ParseAddress(payment.From)
			if err != nil {
				s.handleErr(err)
				return
			}
			depositAmount, err := amount.ParseInt64(payment.Amount)
			if err != nil {
				s.handleErr(err)
				return
			}
			err = s.Book.Deposit(from, depositAmount)
			if err != nil {
				s.handleErr(err)
				return
			}
			select {
			case <-cancel:
				ctxCancel()
			case deposits <- Deposit{Cursor: cursor, From: from, Amount: depositAmount}:
			}
		})
		if err == nil || ctx.Err() != nil {
			break
		}
		s.handleErr(err)
	}
}

func (s *DepositStreamer) handleErr(err error) {
	if s.ErrorHandler != nil {
		s.ErrorHandler(err)
	}
}
