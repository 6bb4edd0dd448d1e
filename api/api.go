// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api serves a read only JSON view of a deployment over HTTP.
package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/anchorprotocol/ethanchor/api/balances"
	"github.com/anchorprotocol/ethanchor/api/events"
	"github.com/anchorprotocol/ethanchor/api/operations"
	"github.com/anchorprotocol/ethanchor/api/queues"
	"github.com/anchorprotocol/ethanchor/api/rates"
	"github.com/anchorprotocol/ethanchor/api/terra"
	"github.com/anchorprotocol/ethanchor/api/utils"
	"github.com/anchorprotocol/ethanchor/genesis"
	"github.com/anchorprotocol/ethanchor/log"
	"github.com/anchorprotocol/ethanchor/logdb"
	"github.com/anchorprotocol/ethanchor/metrics"
	"github.com/anchorprotocol/ethanchor/runtime"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins  string
	EnableReqLogger bool
	EnableMetrics   bool
	LogsLimit       uint64
	QueueLimit      uint64
}

// New returns the api handler. The event routes are skipped when logDB is nil.
func New(rt *runtime.Runtime, d *genesis.Deployment, logDB *logdb.LogDB, opts Options) http.HandlerFunc {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	router.Path("/deployment").
		Methods(http.MethodGet).
		Name("deployment_get").
		HandlerFunc(utils.WrapHandlerFunc(func(w http.ResponseWriter, _ *http.Request) error {
			return utils.WriteJSON(w, d)
		}))

	operations.New(rt, d.Store).
		Mount(router, "/operations")
	queues.New(rt, d.Store, opts.QueueLimit).
		Mount(router, "/store")
	terra.New(rt, d.Factory).
		Mount(router, "/factory/terra-addresses")
	rates.New(rt, d.Feeder).
		Mount(router, "/feeder/rates")
	balances.New(rt).
		Mount(router, "/tokens")
	if logDB != nil {
		events.New(logDB, opts.LogsLimit).
			Mount(router, "/logs/event")
	}

	if opts.EnableMetrics {
		router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	if opts.EnableReqLogger {
		handler = RequestLoggerHandler(handler, logger)
	}
	return handler.ServeHTTP
}
