// Package relay provides a thin adapter for invoking market operations on
// behalf of a caller that only observes success or failure. The relay reports
// a boolean outcome, keeps the error detail to its log, and refuses further
// invocations once its budget is exhausted, so a failing caller cannot spend
// unbounded work.
//
// The market behaves identically whether invoked directly or through a relay.
package relay

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

type Config struct {
	// Budget is the number of invocations the relay will perform before
	// refusing. Zero or negative means unlimited.
	Budget int

	LogWriter io.Writer
}

func NewRelay(c Config) *Relay {
	return &Relay{
		budget:    c.Budget,
		logWriter: c.LogWriter,
	}
}

type Relay struct {
	logWriter io.Writer

	mu      sync.Mutex
	budget  int
	invoked int
}

// Remaining returns how many invocations are left in the budget, or a
// negative number if the budget is unlimited.
func (r *Relay) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.budget <= 0 {
		return -1
	}
	return r.budget - r.invoked
}

// Invoke runs one operation and reports only whether it succeeded. The error
// detail, if any, is written to the relay's log under a unique invocation id.
// A panic inside the operation is treated as a failure. Once the budget is
// exhausted Invoke returns false without running the operation.
func (r *Relay) Invoke(name string, op func() error) (ok bool) {
	r.mu.Lock()
	if r.budget > 0 && r.invoked >= r.budget {
		r.mu.Unlock()
		fmt.Fprintf(r.logWriter, "relay: refusing %s: budget of %d exhausted\n", name, r.budget)
		return false
	}
	r.invoked++
	r.mu.Unlock()

	id := uuid.NewString()
	defer func() {
		if p := recover(); p != nil {
			fmt.Fprintf(r.logWriter, "relay: %s %s panicked: %v\n", id, name, p)
			ok = false
		}
	}()
	err := op()
	if err != nil {
		fmt.Fprintf(r.logWriter, "relay: %s %s failed: %v\n", id, name, err)
		return false
	}
	fmt.Fprintf(r.logWriter, "relay: %s %s succeeded\n", id, name)
	return true
}
