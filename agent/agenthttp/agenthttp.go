// Package agenthttp provides a read-only HTTP surface for an agent's market:
// a snapshot of the whole market, the item list, and single item records. All
// mutations go through the agent's TCP connections.
package agenthttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/cors"
	"github.com/stellar/tradelight/sdk/agent"
	"github.com/stellar/tradelight/sdk/market"
)

func New(a *agent.Agent) http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/", handleSnapshot(a))
	m.HandleFunc("/items", handleItems(a))
	m.HandleFunc("/items/", handleItem(a))
	return cors.Default().Handler(m)
}

func handleSnapshot(a *agent.Agent) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, a.Snapshot())
	}
}

func handleItems(a *agent.Agent) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, a.Snapshot().Items)
	}
}

func handleItem(a *agent.Agent) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		skuStr := strings.TrimPrefix(r.URL.Path, "/items/")
		sku, err := strconv.ParseInt(skuStr, 10, 64)
		if err != nil {
			http.Error(w, "invalid sku", http.StatusBadRequest)
			return
		}
		items := a.Snapshot().Items
		if sku < 0 || sku >= int64(len(items)) {
			writeError(w, market.ErrNotFound)
			return
		}
		writeJSON(w, items[sku])
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	err := enc.Encode(v)
	if err != nil {
		panic(err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, market.ErrNotFound) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}
