// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operations

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/api/utils"
	"github.com/anchorprotocol/ethanchor/operation"
	"github.com/anchorprotocol/ethanchor/runtime"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/store"
)

type Operations struct {
	rt    *runtime.Runtime
	store anchor.Address
}

func New(rt *runtime.Runtime, storeAddr anchor.Address) *Operations {
	return &Operations{rt, storeAddr}
}

func (o *Operations) handleGetOperation(w http.ResponseWriter, req *http.Request) error {
	id, err := anchor.ParseAddress(mux.Vars(req)["id"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}

	var result *Operation
	if err := o.rt.View(func(st *state.State) error {
		code, err := st.GetCode(id)
		if err != nil {
			return err
		}
		if string(code) != operation.Code {
			return utils.NotFound(errors.Errorf("no operation at %v", id))
		}
		op := operation.New(id, st)
		cfg, err := op.Config()
		if err != nil {
			return err
		}
		info, err := op.GetCurrentStatus()
		if err != nil {
			return err
		}
		auto, err := op.AutoFinish()
		if err != nil {
			return err
		}

		s := store.New(o.store, st)
		allocated, err := s.IsAllocated(id)
		if err != nil {
			return err
		}
		status, err := s.GetStatusOf(id)
		if err != nil {
			return err
		}
		q, err := s.GetQueueOf(id)
		if err != nil {
			return err
		}

		result = &Operation{
			ID:           id,
			TerraAddress: cfg.TerraAddress,
			Status:       info.Status.String(),
			Type:         info.Typ.String(),
			Operator:     info.Operator,
			Amount:       (*math.HexOrDecimal256)(info.Amount),
			Input:        info.Input,
			Output:       info.Output,
			Swapper:      info.Swapper,
			SwapDest:     info.SwapDest,
			AutoFinish:   auto,
			Record:       Record{allocated, status.String(), q.String()},
		}
		if !allocated {
			result.Record.Status, result.Record.Queue = "", ""
		}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (o *Operations) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{id}").
		Methods(http.MethodGet).
		Name("operations_get_operation").
		HandlerFunc(utils.WrapHandlerFunc(o.handleGetOperation))
}
