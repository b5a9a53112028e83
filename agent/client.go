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

type ClientConfig struct {
	NetworkPassphrase string

	// Signer is the key of the participant the connection acts as. Its
	// address is the identity the market's role checks compare against.
	Signer *keypair.Full

	LogWriter io.Writer
}

func NewClient(c ClientConfig) *Client {
	return &Client{
		networkPassphrase: c.NetworkPassphrase,
		signer:            c.Signer,
		logWriter:         c.LogWriter,
	}
}

// Client is the participant side of an agent connection. Its operations are
// synchronous: each sends one request and waits for the agent's response.
type Client struct {
	networkPassphrase string
	signer            *keypair.Full
	logWriter         io.Writer

	mu sync.Mutex

	conn net.Conn
	enc  *msg.Encoder
	dec  *msg.Decoder
}

// ConnectTCP connects to an agent and performs the hello handshake that binds
// the connection to the signer's address.
func (c *Client) ConnectTCP(addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return fmt.Errorf("already connected")
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	fmt.Fprintf(c.logWriter, "connected to %v\n", conn.RemoteAddr())
	c.conn = conn
	c.enc = msg.NewEncoder(io.MultiWriter(conn, c.logWriter))
	c.dec = msg.NewDecoder(io.TeeReader(conn, c.logWriter))
	err = c.hello()
	if err != nil {
		return fmt.Errorf("sending hello: %w", err)
	}
	return nil
}

// Close closes the connection to the agent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) hello() error {
	hash := challengeHash(c.networkPassphrase, c.signer.Address())
	sig, err := c.signer.Sign(hash[:])
	if err != nil {
		return fmt.Errorf("signing hello challenge: %w", err)
	}
	err = c.enc.Encode(msg.Message{
		Type: msg.TypeHello,
		Hello: &msg.Hello{
			Participant: *c.signer.FromAddress(),
			Signature:   sig,
		},
	})
	if err != nil {
		return fmt.Errorf("encoding hello: %w", err)
	}
	return nil
}

func (c *Client) roundTrip(out msg.Message, wantType msg.Type) (msg.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return msg.Message{}, fmt.Errorf("not connected")
	}
	err := c.enc.Encode(out)
	if err != nil {
		return msg.Message{}, fmt.Errorf("encoding %v: %w", out.Type, err)
	}
	in := msg.Message{}
	err = c.dec.Decode(&in)
	if err != nil {
		return msg.Message{}, fmt.Errorf("decoding response to %v: %w", out.Type, err)
	}
	if in.Type != wantType {
		return msg.Message{}, fmt.Errorf("received %v in response to %v, expected %v", in.Type, out.Type, wantType)
	}
	return in, nil
}

// List lists a new item for sale with the connection's participant as seller,
// returning the SKU the market allocated to it.
func (c *Client) List(name string, price int64) (int64, error) {
	in, err := c.roundTrip(msg.Message{
		Type:        msg.TypeListRequest,
		ListRequest: &msg.ListRequest{Name: name, Price: price},
	}, msg.TypeListResponse)
	if err != nil {
		return 0, err
	}
	resp := in.ListResponse
	if resp == nil {
		return 0, fmt.Errorf("list response missing")
	}
	if !resp.OK {
		return 0, fmt.Errorf("listing item: %s", resp.Error)
	}
	return resp.SKU, nil
}

// Buy buys an item with the attached value, with the connection's participant
// as buyer.
func (c *Client) Buy(sku int64, attached int64) (market.Item, error) {
	in, err := c.roundTrip(msg.Message{
		Type:       msg.TypeBuyRequest,
		BuyRequest: &msg.BuyRequest{SKU: sku, Attached: attached},
	}, msg.TypeBuyResponse)
	if err != nil {
		return market.Item{}, err
	}
	resp := in.BuyResponse
	if resp == nil {
		return market.Item{}, fmt.Errorf("buy response missing")
	}
	if !resp.OK {
		return market.Item{}, fmt.Errorf("buying item %d: %s", sku, resp.Error)
	}
	return resp.Item, nil
}

// Ship marks an item shipped. The connection's participant must be the item's
// seller.
func (c *Client) Ship(sku int64) (market.Item, error) {
	in, err := c.roundTrip(msg.Message{
		Type:        msg.TypeShipRequest,
		ShipRequest: &msg.ShipRequest{SKU: sku},
	}, msg.TypeShipResponse)
	if err != nil {
		return market.Item{}, err
	}
	resp := in.ShipResponse
	if resp == nil {
		return market.Item{}, fmt.Errorf("ship response missing")
	}
	if !resp.OK {
		return market.Item{}, fmt.Errorf("shipping item %d: %s", sku, resp.Error)
	}
	return resp.Item, nil
}

// Receive confirms receipt of an item, releasing its escrowed price to the
// seller. The connection's participant must be the item's buyer.
func (c *Client) Receive(sku int64) (market.Item, error) {
	in, err := c.roundTrip(msg.Message{
		Type:           msg.TypeReceiveRequest,
		ReceiveRequest: &msg.ReceiveRequest{SKU: sku},
	}, msg.TypeReceiveResponse)
	if err != nil {
		return market.Item{}, err
	}
	resp := in.ReceiveResponse
	if resp == nil {
		return market.Item{}, fmt.Errorf("receive response missing")
	}
	if !resp.OK {
		return market.Item{}, fmt.Errorf("receiving item %d: %s", sku, resp.Error)
	}
	return resp.Item, nil
}

// Fetch returns an item's full record.
func (c *Client) Fetch(sku int64) (market.Item, error) {
	in, err := c.roundTrip(msg.Message{
		Type:         msg.TypeFetchRequest,
		FetchRequest: &msg.FetchRequest{SKU: sku},
	}, msg.TypeFetchResponse)
	if err != nil {
		return market.Item{}, err
	}
	resp := in.FetchResponse
	if resp == nil {
		return market.Item{}, fmt.Errorf("fetch response missing")
	}
	if !resp.OK {
		return market.Item{}, fmt.Errorf("fetching item %d: %s", sku, resp.Error)
	}
	return resp.Item, nil
}
