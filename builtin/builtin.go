// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package builtin binds every contract code of the protocol to its native
// implementation.
package builtin

import (
	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/controller"
	"github.com/anchorprotocol/ethanchor/factory"
	"github.com/anchorprotocol/ethanchor/feeder"
	"github.com/anchorprotocol/ethanchor/operation"
	"github.com/anchorprotocol/ethanchor/pool"
	"github.com/anchorprotocol/ethanchor/router"
	"github.com/anchorprotocol/ethanchor/runtime"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/store"
	"github.com/anchorprotocol/ethanchor/swapper"
	"github.com/anchorprotocol/ethanchor/token"
)

func bind[T any](ctor func(anchor.Address, *state.State) T) runtime.Binder {
	return func(addr anchor.Address, st *state.State) any {
		return ctor(addr, st)
	}
}

// NewRegistry returns a registry resolving all builtin contracts.
func NewRegistry() *runtime.Registry {
	r := runtime.NewRegistry()
	r.Register(token.Code, bind(token.New))
	r.Register(operation.Code, bind(operation.New))
	r.Register(store.Code, bind(store.New))
	r.Register(factory.Code, bind(factory.New))
	r.Register(router.Code, bind(router.New))
	r.Register(controller.Code, bind(controller.New))
	r.Register(feeder.Code, bind(feeder.New))
	r.Register(swapper.UniswapCode, bind(swapper.NewUniswap))
	r.Register(pool.Code, bind(pool.New))
	return r
}
