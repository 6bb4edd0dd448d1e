// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/state"
)

// BlockContext block context.
type BlockContext struct {
	Number uint32
	Time   uint64
}

// TransactionContext transaction context.
type TransactionContext struct {
	ID     anchor.Bytes32
	Origin anchor.Address
}

// Event is emitted by a contract during a transaction.
type Event struct {
	Address anchor.Address `json:"address"`
	Name    string         `json:"name"`
	Args    []any          `json:"args"`
}

// Resolver maps a deployed contract address to its native implementation.
type Resolver interface {
	Resolve(state *state.State, addr anchor.Address) (any, error)
}

// Environment an env to execute native contract methods.
// Caller is the immediate caller, To the contract being executed.
type Environment struct {
	state    *state.State
	blockCtx *BlockContext
	txCtx    *TransactionContext
	resolver Resolver
	events   *[]Event
	caller   anchor.Address
	to       anchor.Address
}

// New create a new env for a transaction sent by txCtx.Origin.
func New(
	state *state.State,
	resolver Resolver,
	blockCtx *BlockContext,
	txCtx *TransactionContext,
) *Environment {
	return &Environment{
		state:    state,
		blockCtx: blockCtx,
		txCtx:    txCtx,
		resolver: resolver,
		events:   new([]Event),
		caller:   txCtx.Origin,
	}
}

func (env *Environment) State() *state.State                     { return env.state }
func (env *Environment) TransactionContext() *TransactionContext { return env.txCtx }
func (env *Environment) BlockContext() *BlockContext             { return env.blockCtx }
func (env *Environment) Caller() anchor.Address                  { return env.caller }
func (env *Environment) To() anchor.Address                      { return env.to }

// At returns an env executing the contract at addr with the same caller.
// It is used when an externally owned account sends a transaction to addr.
func (env *Environment) At(addr anchor.Address) *Environment {
	cpy := *env
	cpy.to = addr
	return &cpy
}

// Call returns an env for a nested call from the executing contract into
// the contract at addr.
func (env *Environment) Call(addr anchor.Address) *Environment {
	cpy := *env
	cpy.caller = env.to
	cpy.to = addr
	return &cpy
}

// Log emits an event on behalf of the executing contract.
func (env *Environment) Log(name string, args ...any) {
	*env.events = append(*env.events, Event{
		Address: env.to,
		Name:    name,
		Args:    args,
	})
}

// Events returns events emitted so far by this transaction.
func (env *Environment) Events() []Event {
	return *env.events
}

// Deploy installs code at addr. It fails when addr is already occupied.
func (env *Environment) Deploy(addr anchor.Address, code []byte) error {
	exists, err := env.state.Exists(addr)
	if err != nil {
		return err
	}
	if exists {
		return errors.Errorf("deploy: address %v occupied", addr)
	}
	env.state.SetCode(addr, code)
	return nil
}

// Resolve returns the native implementation deployed at addr.
func (env *Environment) Resolve(addr anchor.Address) (any, error) {
	if env.resolver == nil {
		return nil, errors.New("resolve: no resolver")
	}
	return env.resolver.Resolve(env.state, addr)
}
