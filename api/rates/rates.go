// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rates

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/api/utils"
	"github.com/anchorprotocol/ethanchor/feeder"
	"github.com/anchorprotocol/ethanchor/runtime"
	"github.com/anchorprotocol/ethanchor/state"
)

// Rate is the exchange rate schedule of a token, in 18 decimals.
type Rate struct {
	Token         anchor.Address        `json:"token"`
	Status        string                `json:"status"`
	ExchangeRate  *math.HexOrDecimal256 `json:"exchangeRate"`
	Simulated     *math.HexOrDecimal256 `json:"simulated"`
	Period        uint64                `json:"period"`
	Weight        *math.HexOrDecimal256 `json:"weight"`
	LastUpdatedAt uint64                `json:"lastUpdatedAt"`
}

var statusNames = map[feeder.Status]string{
	feeder.StatusNeutral: "NEUTRAL",
	feeder.StatusRunning: "RUNNING",
	feeder.StatusStopped: "STOPPED",
}

type Rates struct {
	rt     *runtime.Runtime
	feeder anchor.Address
}

func New(rt *runtime.Runtime, feederAddr anchor.Address) *Rates {
	return &Rates{rt, feederAddr}
}

func (r *Rates) handleGetRate(w http.ResponseWriter, req *http.Request) error {
	token, err := anchor.ParseAddress(mux.Vars(req)["token"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "token"))
	}
	now, err := r.rt.Now()
	if err != nil {
		return err
	}

	var result *Rate
	if err := r.rt.View(func(st *state.State) error {
		f := feeder.New(r.feeder, st)
		tok, err := f.Tokens(token)
		if err != nil {
			if errors.Is(err, feeder.ErrTokenNotFound) {
				return utils.NotFound(err)
			}
			return err
		}
		simulated, err := f.SimulateExchangeRateOf(token, now)
		if err != nil {
			return err
		}
		result = &Rate{
			Token:         token,
			Status:        statusNames[tok.Status],
			ExchangeRate:  (*math.HexOrDecimal256)(tok.ExchangeRate.ToBig()),
			Simulated:     (*math.HexOrDecimal256)(simulated.ToBig()),
			Period:        tok.Period,
			Weight:        (*math.HexOrDecimal256)(tok.Weight.ToBig()),
			LastUpdatedAt: tok.LastUpdatedAt,
		}
		return nil
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (r *Rates) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{token}").
		Methods(http.MethodGet).
		Name("feeder_get_rate").
		HandlerFunc(utils.WrapHandlerFunc(r.handleGetRate))
}
