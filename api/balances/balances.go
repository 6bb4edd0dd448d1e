// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package balances

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/api/utils"
	"github.com/anchorprotocol/ethanchor/runtime"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/token"
)

type Balance struct {
	Token    anchor.Address        `json:"token"`
	Symbol   string                `json:"symbol"`
	Decimals uint8                 `json:"decimals"`
	Holder   anchor.Address        `json:"holder"`
	Balance  *math.HexOrDecimal256 `json:"balance"`
}

type Balances struct {
	rt *runtime.Runtime
}

func New(rt *runtime.Runtime) *Balances {
	return &Balances{rt}
}

func (b *Balances) handleGetBalance(w http.ResponseWriter, req *http.Request) error {
	addr, err := anchor.ParseAddress(mux.Vars(req)["token"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "token"))
	}
	holder, err := anchor.ParseAddress(mux.Vars(req)["holder"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "holder"))
	}

	var result *Balance
	if err := b.rt.View(func(st *state.State) error {
		code, err := st.GetCode(addr)
		if err != nil {
			return err
		}
		if string(code) != token.Code {
			return utils.NotFound(errors.Errorf("no token at %v", addr))
		}
		tok := token.New(addr, st)
		symbol, err := tok.Symbol()
		if err != nil {
			return err
		}
		decimals, err := tok.Decimals()
		if err != nil {
			return err
		}
		bal, err := tok.BalanceOf(holder)
		if err != nil {
			return err
		}
		result = &Balance{addr, symbol, decimals, holder, (*math.HexOrDecimal256)(bal)}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (b *Balances) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{token}/balances/{holder}").
		Methods(http.MethodGet).
		Name("tokens_get_balance").
		HandlerFunc(utils.WrapHandlerFunc(b.handleGetBalance))
}
