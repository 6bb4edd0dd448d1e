// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package swapper converts one token into another.
package swapper

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/xenv"
)

// Swapper swaps amount of from, pulled from the caller, into to and pays the
// proceeds to recipient. A swap either completes or fails as a whole.
type Swapper interface {
	SwapToken(env *xenv.Environment, from, to anchor.Address, amount, minAmountOut *big.Int, recipient anchor.Address) (*big.Int, error)
}

// At resolves the swapper deployed at addr.
func At(env *xenv.Environment, addr anchor.Address) (Swapper, error) {
	impl, err := env.Resolve(addr)
	if err != nil {
		return nil, err
	}
	s, ok := impl.(Swapper)
	if !ok {
		return nil, errors.Errorf("contract at %v is not a swapper", addr)
	}
	return s, nil
}
