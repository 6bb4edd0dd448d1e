// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package access

import (
	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/slots"
	"github.com/anchorprotocol/ethanchor/xenv"
)

var (
	ErrNotRouter     = reverts.Unauthorized("ACL: not router")
	ErrNotController = reverts.Unauthorized("ACL: not controller")
	ErrNotAllowed    = reverts.Unauthorized("ACL: not allowed")
)

// ACL keeps an owner plus the router and controller roles, for contracts
// driven by both dispatchers.
type ACL struct {
	owner      *slots.Address
	router     *slots.Address
	controller *slots.Address
}

func NewACL(ctx *slots.Context) *ACL {
	return &ACL{
		owner:      slots.NewAddress(ctx, slots.Pos("acl.owner")),
		router:     slots.NewAddress(ctx, slots.Pos("acl.router")),
		controller: slots.NewAddress(ctx, slots.Pos("acl.controller")),
	}
}

// Setup grants every role to deployer.
func (a *ACL) Setup(env *xenv.Environment, deployer anchor.Address) {
	a.owner.Set(deployer)
	a.router.Set(deployer)
	a.controller.Set(deployer)
	env.Log("OwnershipTransferred", anchor.Address{}, deployer)
	env.Log("RouterTransferred", anchor.Address{}, deployer)
	env.Log("ControllerTransferred", anchor.Address{}, deployer)
}

func (a *ACL) Owner() (anchor.Address, error)      { return a.owner.Get() }
func (a *ACL) Router() (anchor.Address, error)     { return a.router.Get() }
func (a *ACL) Controller() (anchor.Address, error) { return a.controller.Get() }

func (a *ACL) is(role *slots.Address, addr anchor.Address) (bool, error) {
	v, err := role.Get()
	if err != nil {
		return false, err
	}
	return v == addr, nil
}

func (a *ACL) IsOwner(addr anchor.Address) (bool, error)      { return a.is(a.owner, addr) }
func (a *ACL) IsRouter(addr anchor.Address) (bool, error)     { return a.is(a.router, addr) }
func (a *ACL) IsController(addr anchor.Address) (bool, error) { return a.is(a.controller, addr) }

// IsGranted reports whether addr holds any of the roles.
func (a *ACL) IsGranted(addr anchor.Address) (bool, error) {
	for _, role := range []*slots.Address{a.owner, a.router, a.controller} {
		if ok, err := a.is(role, addr); err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (a *ACL) RequireOwner(env *xenv.Environment) error {
	return demand(a.IsOwner(env.Caller()))(ErrNotOwner)
}

func (a *ACL) RequireRouter(env *xenv.Environment) error {
	return demand(a.IsRouter(env.Caller()))(ErrNotRouter)
}

func (a *ACL) RequireController(env *xenv.Environment) error {
	return demand(a.IsController(env.Caller()))(ErrNotController)
}

func (a *ACL) RequireGranted(env *xenv.Environment) error {
	return demand(a.IsGranted(env.Caller()))(ErrNotAllowed)
}

func (a *ACL) TransferOwnership(env *xenv.Environment, next anchor.Address) error {
	return transfer(env, a.RequireOwner, a.owner, next, "OwnershipTransferred")
}

func (a *ACL) TransferRouter(env *xenv.Environment, next anchor.Address) error {
	return transfer(env, a.RequireOwner, a.router, next, "RouterTransferred")
}

func (a *ACL) TransferController(env *xenv.Environment, next anchor.Address) error {
	return transfer(env, a.RequireOwner, a.controller, next, "ControllerTransferred")
}
