// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package access provides role checks held by contracts through composition.
package access

import (
	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/slots"
	"github.com/anchorprotocol/ethanchor/xenv"
)

var (
	ErrNotOwner    = reverts.Unauthorized("Operator: not owner")
	ErrNotOperator = reverts.Unauthorized("Operator: not operator")
	ErrNotGranted  = reverts.Unauthorized("Operator: not granted")
)

// Guard keeps an owner and an operator. The owner administers roles,
// the operator drives day to day calls.
type Guard struct {
	owner    *slots.Address
	operator *slots.Address
}

func NewGuard(ctx *slots.Context) *Guard {
	return &Guard{
		owner:    slots.NewAddress(ctx, slots.Pos("guard.owner")),
		operator: slots.NewAddress(ctx, slots.Pos("guard.operator")),
	}
}

// Setup grants both roles to deployer.
func (g *Guard) Setup(env *xenv.Environment, deployer anchor.Address) {
	g.owner.Set(deployer)
	g.operator.Set(deployer)
	env.Log("OwnershipTransferred", anchor.Address{}, deployer)
	env.Log("OperatorTransferred", anchor.Address{}, deployer)
}

func (g *Guard) Owner() (anchor.Address, error)    { return g.owner.Get() }
func (g *Guard) Operator() (anchor.Address, error) { return g.operator.Get() }

func (g *Guard) IsOwner(addr anchor.Address) (bool, error) {
	owner, err := g.owner.Get()
	if err != nil {
		return false, err
	}
	return owner == addr, nil
}

func (g *Guard) IsOperator(addr anchor.Address) (bool, error) {
	operator, err := g.operator.Get()
	if err != nil {
		return false, err
	}
	return operator == addr, nil
}

func (g *Guard) IsGranted(addr anchor.Address) (bool, error) {
	if ok, err := g.IsOwner(addr); err != nil || ok {
		return ok, err
	}
	return g.IsOperator(addr)
}

func (g *Guard) RequireOwner(env *xenv.Environment) error {
	return demand(g.IsOwner(env.Caller()))(ErrNotOwner)
}

func (g *Guard) RequireOperator(env *xenv.Environment) error {
	return demand(g.IsOperator(env.Caller()))(ErrNotOperator)
}

func (g *Guard) RequireGranted(env *xenv.Environment) error {
	return demand(g.IsGranted(env.Caller()))(ErrNotGranted)
}

func (g *Guard) TransferOwnership(env *xenv.Environment, next anchor.Address) error {
	return transfer(env, g.RequireOwner, g.owner, next, "OwnershipTransferred")
}

func (g *Guard) TransferOperator(env *xenv.Environment, next anchor.Address) error {
	return transfer(env, g.RequireOwner, g.operator, next, "OperatorTransferred")
}

// demand turns a role check result into the given revert on failure.
func demand(ok bool, err error) func(revert error) error {
	return func(revert error) error {
		if err != nil {
			return err
		}
		if !ok {
			return revert
		}
		return nil
	}
}

func transfer(
	env *xenv.Environment,
	check func(*xenv.Environment) error,
	role *slots.Address,
	next anchor.Address,
	event string,
) error {
	if err := check(env); err != nil {
		return err
	}
	prev, err := role.Get()
	if err != nil {
		return err
	}
	role.Set(next)
	env.Log(event, prev, next)
	return nil
}
