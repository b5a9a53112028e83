// Package agent contains a rudimentary and experimental implementation of an
// agent that hosts a market over TCP connections, identifying each connected
// participant with a handshake and relaying their market operations to the
// market's state machine.
//
// The agent is intended for use in examples only at this point and is not
// intended to be stable or reliable.
package agent

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/stellar/go/keypair"
	"github.com/stellar/tradelight/sdk/agent/msg"
	"github.com/stellar/tradelight/sdk/market"
)

// Snapshotter is given a snapshot of the market whenever its meaningful state
// changes. Snapshots can be restored using market.NewMarketFromSnapshot.
type Snapshotter interface {
	Snapshot(a *Agent, s market.Snapshot)
}

type Config struct {
	NetworkPassphrase string

	Market      *market.Market
	Snapshotter Snapshotter

	LogWriter io.Writer

	Events chan<- Event
}

func NewAgent(c Config) *Agent {
	agent := &Agent{
		networkPassphrase: c.NetworkPassphrase,
		market:            c.Market,
		snapshotter:       c.Snapshotter,
		logWriter:         c.LogWriter,
		events:            c.Events,
	}
	return agent
}

// Agent hosts a market over TCP connections. Each connection acts as the
// participant its hello handshake identifies, and the market's own checks
// decide whether that participant may perform an operation.
type Agent struct {
	networkPassphrase string

	market      *market.Market
	snapshotter Snapshotter

	logWriter io.Writer

	events chan<- Event

	// mu is a lock for the mutable fields of this type. The market has its
	// own internal locking and is not guarded by it.
	mu sync.Mutex

	ln net.Listener
}

func (a *Agent) snapshot() {
	if a.snapshotter == nil {
		return
	}
	a.snapshotter.Snapshot(a, a.market.Snapshot())
}

// Snapshot returns a snapshot of the market the agent hosts.
func (a *Agent) Snapshot() market.Snapshot {
	return a.market.Snapshot()
}

// session is the state of a single participant connection. A session handles
// one message at a time, so its fields are not guarded by a lock.
type session struct {
	conn        net.Conn
	participant *keypair.FromAddress
}

func (a *Agent) serveConn(conn net.Conn) {
	defer conn.Close()
	sess := &session{conn: conn}
	recv := msg.NewDecoder(io.TeeReader(conn, a.logWriter))
	send := msg.NewEncoder(io.MultiWriter(conn, a.logWriter))
	for {
		m := msg.Message{}
		err := recv.Decode(&m)
		if err == io.EOF {
			fmt.Fprintf(a.logWriter, "connection from %v closed\n", conn.RemoteAddr())
			return
		}
		if err != nil {
			fmt.Fprintf(a.logWriter, "error reading and decoding from %v: %v\n", conn.RemoteAddr(), err)
			return
		}
		err = a.handle(sess, m, send)
		if err != nil {
			fmt.Fprintf(a.logWriter, "error handling message from %v: %v\n", conn.RemoteAddr(), err)
		}
	}
}

func (a *Agent) handle(sess *session, m msg.Message, send *msg.Encoder) error {
	fmt.Fprintf(a.logWriter, "handling %v\n", m.Type)
	handler := handlerMap[m.Type]
	if handler == nil {
		err := fmt.Errorf("handling message %d: unrecognized message type", m.Type)
		if a.events != nil {
			a.events <- ErrorEvent{Err: err}
		}
		return err
	}
	err := handler(a, sess, m, send)
	if err != nil {
		err = fmt.Errorf("handling message %d: %w", m.Type, err)
		if a.events != nil {
			a.events <- ErrorEvent{Err: err}
		}
		return err
	}
	return nil
}

var handlerMap = map[msg.Type]func(*Agent, *session, msg.Message, *msg.Encoder) error{
	msg.TypeHello:          (*Agent).handleHello,
	msg.TypeListRequest:    (*Agent).handleListRequest,
	msg.TypeBuyRequest:     (*Agent).handleBuyRequest,
	msg.TypeShipRequest:    (*Agent).handleShipRequest,
	msg.TypeReceiveRequest: (*Agent).handleReceiveRequest,
	msg.TypeFetchRequest:   (*Agent).handleFetchRequest,
}

func (a *Agent) handleHello(sess *session, m msg.Message, send *msg.Encoder) error {
	h := m.Hello

	hash := challengeHash(a.networkPassphrase, h.Participant.Address())
	err := h.Participant.Verify(hash[:], h.Signature)
	if err != nil {
		return fmt.Errorf("verifying hello signature of %s: %w", h.Participant.Address(), err)
	}

	sess.participant = &h.Participant

	fmt.Fprintf(a.logWriter, "participant: %v\n", sess.participant.Address())

	if a.events != nil {
		a.events <- ConnectedEvent{Participant: sess.participant}
	}

	return nil
}

func (a *Agent) handleListRequest(sess *session, m msg.Message, send *msg.Encoder) error {
	req := m.ListRequest

	defer a.snapshot()

	resp := msg.ListResponse{}
	if sess.participant == nil {
		resp.Error = "hello required"
	} else {
		sku, err := a.market.List(sess.participant, req.Name, req.Price)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.OK = true
			resp.SKU = sku
			fmt.Fprintf(a.logWriter, "item %d listed by %v\n", sku, sess.participant.Address())
			if a.events != nil {
				item, itemErr := a.market.Item(sku)
				if itemErr == nil {
					a.events <- ListedEvent{Item: item}
				}
			}
		}
	}
	err := send.Encode(msg.Message{Type: msg.TypeListResponse, ListResponse: &resp})
	if err != nil {
		return fmt.Errorf("encoding list response to send back: %w", err)
	}
	return nil
}

func (a *Agent) handleBuyRequest(sess *session, m msg.Message, send *msg.Encoder) error {
	req := m.BuyRequest

	defer a.snapshot()

	resp := msg.BuyResponse{}
	if sess.participant == nil {
		resp.Error = "hello required"
	} else {
		err := a.market.Buy(sess.participant, req.SKU, req.Attached)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.OK = true
			resp.Item, _ = a.market.Item(req.SKU)
			fmt.Fprintf(a.logWriter, "item %d bought by %v\n", req.SKU, sess.participant.Address())
			if a.events != nil {
				a.events <- PurchasedEvent{Item: resp.Item}
			}
		}
	}
	err := send.Encode(msg.Message{Type: msg.TypeBuyResponse, BuyResponse: &resp})
	if err != nil {
		return fmt.Errorf("encoding buy response to send back: %w", err)
	}
	return nil
}

func (a *Agent) handleShipRequest(sess *session, m msg.Message, send *msg.Encoder) error {
	req := m.ShipRequest

	defer a.snapshot()

	resp := msg.ShipResponse{}
	if sess.participant == nil {
		resp.Error = "hello required"
	} else {
		err := a.market.Ship(sess.participant, req.SKU)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.OK = true
			resp.Item, _ = a.market.Item(req.SKU)
			fmt.Fprintf(a.logWriter, "item %d shipped by %v\n", req.SKU, sess.participant.Address())
			if a.events != nil {
				a.events <- ShippedEvent{Item: resp.Item}
			}
		}
	}
	err := send.Encode(msg.Message{Type: msg.TypeShipResponse, ShipResponse: &resp})
	if err != nil {
		return fmt.Errorf("encoding ship response to send back: %w", err)
	}
	return nil
}

func (a *Agent) handleReceiveRequest(sess *session, m msg.Message, send *msg.Encoder) error {
	req := m.ReceiveRequest

	defer a.snapshot()

	resp := msg.ReceiveResponse{}
	if sess.participant == nil {
		resp.Error = "hello required"
	} else {
		err := a.market.Receive(sess.participant, req.SKU)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.OK = true
			resp.Item, _ = a.market.Item(req.SKU)
			fmt.Fprintf(a.logWriter, "item %d received by %v, escrow released\n", req.SKU, sess.participant.Address())
			if a.events != nil {
				a.events <- ReceivedEvent{Item: resp.Item}
			}
		}
	}
	err := send.Encode(msg.Message{Type: msg.TypeReceiveResponse, ReceiveResponse: &resp})
	if err != nil {
		return fmt.Errorf("encoding receive response to send back: %w", err)
	}
	return nil
}

func (a *Agent) handleFetchRequest(sess *session, m msg.Message, send *msg.Encoder) error {
	req := m.FetchRequest

	resp := msg.FetchResponse{}
	item, err := a.market.Item(req.SKU)
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.OK = true
		resp.Item = item
	}
	err = send.Encode(msg.Message{Type: msg.TypeFetchResponse, FetchResponse: &resp})
	if err != nil {
		return fmt.Errorf("encoding fetch response to send back: %w", err)
	}
	return nil
}
