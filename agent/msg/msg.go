// Package msg contains the messages passed between an agent hosting a market
// and the participants connected to it.
package msg

import (
	"encoding/gob"
	"io"

	"github.com/stellar/go/keypair"
	"github.com/stellar/tradelight/sdk/market"
)

type Type int

const (
	TypeHello Type = 10

	TypeListRequest  Type = 20
	TypeListResponse Type = 21

	TypeBuyRequest  Type = 30
	TypeBuyResponse Type = 31

	TypeShipRequest  Type = 40
	TypeShipResponse Type = 41

	TypeReceiveRequest  Type = 50
	TypeReceiveResponse Type = 51

	TypeFetchRequest  Type = 60
	TypeFetchResponse Type = 61
)

func (t Type) String() string {
	switch t {
	case TypeHello:
		return "hello"
	case TypeListRequest:
		return "list_request"
	case TypeListResponse:
		return "list_response"
	case TypeBuyRequest:
		return "buy_request"
	case TypeBuyResponse:
		return "buy_response"
	case TypeShipRequest:
		return "ship_request"
	case TypeShipResponse:
		return "ship_response"
	case TypeReceiveRequest:
		return "receive_request"
	case TypeReceiveResponse:
		return "receive_response"
	case TypeFetchRequest:
		return "fetch_request"
	case TypeFetchResponse:
		return "fetch_response"
	}
	return "unrecognized"
}

type Message struct {
	Type Type

	Hello *Hello

	ListRequest  *ListRequest
	ListResponse *ListResponse

	BuyRequest  *BuyRequest
	BuyResponse *BuyResponse

	ShipRequest  *ShipRequest
	ShipResponse *ShipResponse

	ReceiveRequest  *ReceiveRequest
	ReceiveResponse *ReceiveResponse

	FetchRequest  *FetchRequest
	FetchResponse *FetchResponse
}

// Hello identifies the participant a connection acts as. The signature is the
// participant's signature of the agent's challenge hash and binds the
// connection to the participant's address.
type Hello struct {
	Participant keypair.FromAddress
	Signature   []byte
}

type ListRequest struct {
	Name  string
	Price int64
}

type ListResponse struct {
	Result
	SKU int64
}

type BuyRequest struct {
	SKU      int64
	Attached int64
}

type BuyResponse struct {
	Result
	Item market.Item
}

type ShipRequest struct {
	SKU int64
}

type ShipResponse struct {
	Result
	Item market.Item
}

type ReceiveRequest struct {
	SKU int64
}

type ReceiveResponse struct {
	Result
	Item market.Item
}

type FetchRequest struct {
	SKU int64
}

type FetchResponse struct {
	Result
	Item market.Item
}

// Result carries the outcome of an operation. Error is empty when OK is true.
type Result struct {
	OK    bool
	Error string
}

type Encoder = gob.Encoder

func NewEncoder(w io.Writer) *Encoder {
	return gob.NewEncoder(w)
}

type Decoder = gob.Decoder

func NewDecoder(r io.Reader) *Decoder {
	return gob.NewDecoder(r)
}
