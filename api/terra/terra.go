// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package terra

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/api/utils"
	"github.com/anchorprotocol/ethanchor/factory"
	"github.com/anchorprotocol/ethanchor/runtime"
	"github.com/anchorprotocol/ethanchor/state"
)

// Next is the terra address the next built instance binds to. It is null
// when the pool is empty.
type Next struct {
	Next  *anchor.Bytes32 `json:"next"`
	Count uint64          `json:"count"`
}

type Terra struct {
	rt      *runtime.Runtime
	factory anchor.Address
}

func New(rt *runtime.Runtime, factoryAddr anchor.Address) *Terra {
	return &Terra{rt, factoryAddr}
}

func (t *Terra) handleGetNext(w http.ResponseWriter, _ *http.Request) error {
	var result Next
	if err := t.rt.View(func(st *state.State) error {
		f := factory.New(t.factory, st)
		count, err := f.TerraAddressCount()
		if err != nil {
			return err
		}
		result.Count = count
		if count == 0 {
			return nil
		}
		next, err := f.FetchNextTerraAddress()
		if err != nil {
			return err
		}
		result.Next = &next
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, &result)
}

func (t *Terra) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/next").
		Methods(http.MethodGet).
		Name("factory_get_next_terra_address").
		HandlerFunc(utils.WrapHandlerFunc(t.handleGetNext))
}
