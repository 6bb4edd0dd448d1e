// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package queues serves the instance pools held by the operation store.
package queues

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/api/utils"
	"github.com/anchorprotocol/ethanchor/runtime"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/store"
)

const defaultLimit = 100

// Queue lists the instances of a queue from the front, up to the limit.
type Queue struct {
	Name  string           `json:"name"`
	Count uint64           `json:"count"`
	Items []anchor.Address `json:"items"`
}

type Queues struct {
	rt       *runtime.Runtime
	store    anchor.Address
	maxLimit uint64
}

func New(rt *runtime.Runtime, storeAddr anchor.Address, maxLimit uint64) *Queues {
	if maxLimit == 0 {
		maxLimit = defaultLimit
	}
	return &Queues{rt, storeAddr, maxLimit}
}

func (q *Queues) limit(req *http.Request) (uint64, error) {
	limit, err := utils.ParseUint(req, "limit", min(defaultLimit, q.maxLimit))
	if err != nil {
		return 0, err
	}
	if limit > q.maxLimit {
		return 0, utils.BadRequest(errors.Errorf("limit exceeds %v", q.maxLimit))
	}
	return limit, nil
}

func (q *Queues) handleGetAvailable(w http.ResponseWriter, req *http.Request) error {
	limit, err := q.limit(req)
	if err != nil {
		return err
	}
	result := Queue{Name: store.QueueIdle.String(), Items: []anchor.Address{}}
	if err := q.rt.View(func(st *state.State) error {
		s := store.New(q.store, st)
		if result.Count, err = s.AvailableCount(); err != nil {
			return err
		}
		items, err := s.ListAvailable(int(limit))
		if err != nil {
			return err
		}
		result.Items = append(result.Items, items...)
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (q *Queues) handleGetQueue(w http.ResponseWriter, req *http.Request) error {
	name := strings.ToUpper(mux.Vars(req)["queue"])
	which, ok := store.ParseQueue(name)
	if !ok || (which != store.QueueRunning && which != store.QueueFailed) {
		return utils.NotFound(errors.Errorf("unknown queue %q", mux.Vars(req)["queue"]))
	}
	limit, err := q.limit(req)
	if err != nil {
		return err
	}

	result := Queue{Name: name, Items: []anchor.Address{}}
	if err := q.rt.View(func(st *state.State) error {
		s := store.New(q.store, st)
		count, at := s.RunningCount, s.GetRunningOperationAt
		if which == store.QueueFailed {
			count, at = s.FailedCount, s.GetFailedOperationAt
		}
		n, err := count()
		if err != nil {
			return err
		}
		result.Count = n
		for i := uint64(0); i < min(n, limit); i++ {
			id, err := at(i)
			if err != nil {
				return err
			}
			result.Items = append(result.Items, id)
		}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (q *Queues) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/available").
		Methods(http.MethodGet).
		Name("store_get_available").
		HandlerFunc(utils.WrapHandlerFunc(q.handleGetAvailable))
	sub.Path("/queues/{queue}").
		Methods(http.MethodGet).
		Name("store_get_queue").
		HandlerFunc(utils.WrapHandlerFunc(q.handleGetQueue))
}
