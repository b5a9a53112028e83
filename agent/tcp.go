package agent

import (
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"
)

// ListenTCP binds the agent to a TCP address. Serve must be called to start
// accepting connections.
func (a *Agent) ListenTCP(addr string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ln != nil {
		return fmt.Errorf("already listening")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	fmt.Fprintf(a.logWriter, "listening on %v\n", ln.Addr())
	a.ln = ln
	return nil
}

// Addr returns the address the agent is listening on.
func (a *Agent) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ln == nil {
		return nil
	}
	return a.ln.Addr()
}

// Serve accepts incoming connections and serves each on its own goroutine
// until the listener is closed. Each connection acts as the participant its
// hello identifies.
func (a *Agent) Serve() error {
	a.mu.Lock()
	ln := a.ln
	a.mu.Unlock()
	if ln == nil {
		return fmt.Errorf("not listening")
	}
	g := errgroup.Group{}
	for {
		conn, err := ln.Accept()
		if err != nil {
			fmt.Fprintf(a.logWriter, "stopping accepting connections: %v\n", err)
			break
		}
		fmt.Fprintf(a.logWriter, "accepted connection from %v\n", conn.RemoteAddr())
		g.Go(func() error {
			a.serveConn(conn)
			return nil
		})
	}
	return g.Wait()
}

// ServeTCP binds the agent to a TCP address and serves connections until the
// agent is closed.
func (a *Agent) ServeTCP(addr string) error {
	err := a.ListenTCP(addr)
	if err != nil {
		return err
	}
	return a.Serve()
}

// Close stops the agent accepting connections.
func (a *Agent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ln == nil {
		return nil
	}
	err := a.ln.Close()
	a.ln = nil
	return err
}
