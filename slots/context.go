// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package slots provides typed views over the storage slots of a contract
// account, similar to state variables in Solidity.
package slots

import (
	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/state"
)

// Context binds slot accessors to a contract address and a state.
type Context struct {
	address anchor.Address
	state   *state.State
}

func NewContext(address anchor.Address, state *state.State) *Context {
	return &Context{address: address, state: state}
}

func (c *Context) Address() anchor.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}

// Pos returns the slot position for a named state variable.
func Pos(name string) anchor.Bytes32 {
	return anchor.Blake2b([]byte(name))
}
