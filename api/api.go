// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api exposes the pure query surface over HTTP. Mutating
// operations stay off the wire; they belong to the execution
// environment, not to this read side.
package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/tombchain/tombcore/masonry"
	"github.com/tombchain/tombcore/metrics"
	"github.com/tombchain/tombcore/treasury"
)

// New builds the query handler for the given components. With
// enableMetrics the prometheus endpoint is mounted under /metrics.
func New(t *treasury.Treasury, m *masonry.Masonry, enableMetrics bool) http.Handler {
	router := mux.NewRouter()

	(&treasuryEndpoints{treasury: t}).mount(router)
	(&masonryEndpoints{masonry: m}).mount(router)

	if enableMetrics {
		if h := metrics.HTTPHandler(); h != nil {
			router.PathPrefix("/metrics").Handler(h)
		}
	}

	return handlers.CompressHandler(router)
}
