// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/api/utils"
	"github.com/anchorprotocol/ethanchor/logdb"
)

const defaultLogLimit uint64 = 1000

type Events struct {
	db    *logdb.LogDB
	limit uint64
}

func New(db *logdb.LogDB, logsLimit uint64) *Events {
	if logsLimit == 0 {
		logsLimit = defaultLogLimit
	}
	return &Events{db, logsLimit}
}

// filter builds the event filter from the query string.
func (e *Events) filter(req *http.Request) (*logdb.EventFilter, error) {
	query := req.URL.Query()
	filter := &logdb.EventFilter{Name: query.Get("name")}

	if s := query.Get("address"); s != "" {
		addr, err := anchor.ParseAddress(s)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "address"))
		}
		filter.Address = &addr
	}

	switch order := logdb.Order(query.Get("order")); order {
	case "", logdb.ASC, logdb.DESC:
		filter.Order = order
	default:
		return nil, utils.BadRequest(errors.Errorf("order: unknown %q", order))
	}

	from, err := utils.ParseUint(req, "from", 0)
	if err != nil {
		return nil, err
	}
	to, err := utils.ParseUint(req, "to", 0)
	if err != nil {
		return nil, err
	}
	if from > 0 || to > 0 {
		if from > uint64(^uint32(0)) || to > uint64(^uint32(0)) {
			return nil, utils.BadRequest(errors.New("range: block number out of bound"))
		}
		filter.Range = &logdb.Range{From: uint32(from), To: uint32(to)}
	}

	offset, err := utils.ParseUint(req, "offset", 0)
	if err != nil {
		return nil, err
	}
	limit, err := utils.ParseUint(req, "limit", e.limit)
	if err != nil {
		return nil, err
	}
	if limit > e.limit {
		return nil, utils.BadRequest(errors.Errorf("options.limit exceeds the maximum allowed value of %d", e.limit))
	}
	filter.Options = &logdb.Options{Offset: offset, Limit: limit}
	return filter, nil
}

func (e *Events) handleFilter(w http.ResponseWriter, req *http.Request) error {
	filter, err := e.filter(req)
	if err != nil {
		return err
	}
	events, err := e.db.FilterEvents(req.Context(), filter)
	if err != nil {
		return err
	}
	if events == nil {
		events = []*logdb.Event{}
	}
	return utils.WriteJSON(w, events)
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("logs_filter_event").
		HandlerFunc(utils.WrapHandlerFunc(e.handleFilter))
}
