// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/runtime"
	"github.com/anchorprotocol/ethanchor/xenv"
)

// Builder helper to build the genesis transaction.
type Builder struct {
	owner anchor.Address
	nonce uint64
	calls []call
}

type call struct {
	name string
	fn   func(env *xenv.Environment) error
}

// NewBuilder creates a builder deploying from owner.
func NewBuilder(owner anchor.Address) *Builder {
	return &Builder{owner: owner}
}

// Owner returns the account every contract is deployed from.
func (b *Builder) Owner() anchor.Address { return b.owner }

// NextAddress reserves the address of the next contract deployed by owner.
func (b *Builder) NextAddress() anchor.Address {
	addr := anchor.CreateContractAddress(b.owner, b.nonce)
	b.nonce++
	return addr
}

// Call add a named step.
func (b *Builder) Call(name string, fn func(env *xenv.Environment) error) *Builder {
	b.calls = append(b.calls, call{name, fn})
	return b
}

// Build executes all steps as a single transaction sent by owner.
func (b *Builder) Build(rt *runtime.Runtime) (*runtime.Receipt, error) {
	return rt.Exec(b.owner, func(env *xenv.Environment) error {
		for _, c := range b.calls {
			if err := c.fn(env); err != nil {
				return errors.WithMessage(err, c.name)
			}
		}
		return nil
	})
}
