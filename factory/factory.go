// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package factory builds operation instances from standard blueprints, each
// bound to its own terra address.
package factory

import (
	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/access"
	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/operation"
	"github.com/anchorprotocol/ethanchor/queue"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/slots"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/store"
	"github.com/anchorprotocol/ethanchor/xenv"
)

// Code tags factory accounts.
const Code = "factory"

var (
	ErrNoTerraAddress  = reverts.Exhausted("OperationFactory: no terra address available")
	ErrInvalidStandard = reverts.New("OperationFactory: invalid standard index")
)

// Standard is a blueprint: the roles a built instance answers to and the
// master instance its assets are copied from.
type Standard struct {
	Router     anchor.Address `json:"router"`
	Controller anchor.Address `json:"controller"`
	Operation  anchor.Address `json:"operation"`
}

type Factory struct {
	addr       anchor.Address
	acl        *access.ACL
	store      *slots.Address
	nonce      *slots.Uint64
	standards  *slots.Mapping[slots.Index, Standard]
	stdCount   *slots.Uint64
	terraAddrs *queue.Queue
}

func New(addr anchor.Address, st *state.State) *Factory {
	ctx := slots.NewContext(addr, st)
	return &Factory{
		addr:       addr,
		acl:        access.NewACL(ctx),
		store:      slots.NewAddress(ctx, slots.Pos("store")),
		nonce:      slots.NewUint64(ctx, slots.Pos("nonce")),
		standards:  slots.NewMapping[slots.Index, Standard](ctx, slots.Pos("standards")),
		stdCount:   slots.NewUint64(ctx, slots.Pos("standards.count")),
		terraAddrs: queue.New(ctx, "terra"),
	}
}

// Deploy installs a factory at addr registering its instances with storeAddr.
func Deploy(env *xenv.Environment, addr, storeAddr anchor.Address) (*Factory, error) {
	if err := env.Deploy(addr, []byte(Code)); err != nil {
		return nil, err
	}
	f := New(addr, env.State())
	f.acl.Setup(env.Call(addr), env.Caller())
	f.store.Set(storeAddr)
	return f, nil
}

// At resolves the factory deployed at addr.
func At(env *xenv.Environment, addr anchor.Address) (*Factory, error) {
	impl, err := env.Resolve(addr)
	if err != nil {
		return nil, err
	}
	f, ok := impl.(*Factory)
	if !ok {
		return nil, errors.Errorf("contract at %v is not a factory", addr)
	}
	return f, nil
}

func (f *Factory) Address() anchor.Address { return f.addr }

func (f *Factory) ACL() *access.ACL { return f.acl }

func (f *Factory) Store() (anchor.Address, error) { return f.store.Get() }

func (f *Factory) StandardCount() (uint64, error) { return f.stdCount.Get() }

func (f *Factory) Standards(index uint64) (Standard, error) {
	count, err := f.stdCount.Get()
	if err != nil {
		return Standard{}, err
	}
	if index >= count {
		return Standard{}, ErrInvalidStandard
	}
	return f.standards.Get(slots.Index(index))
}

// PushStandardOperation appends a blueprint and returns its index.
func (f *Factory) PushStandardOperation(env *xenv.Environment, router, controller, master anchor.Address) (uint64, error) {
	count, err := f.stdCount.Get()
	if err != nil {
		return 0, err
	}
	return count, f.SetStandardOperation(env, count, router, controller, master)
}

// SetStandardOperation replaces the blueprint at index, or appends it when
// index is the current count.
func (f *Factory) SetStandardOperation(env *xenv.Environment, index uint64, router, controller, master anchor.Address) error {
	if err := f.acl.RequireOwner(env); err != nil {
		return err
	}
	count, err := f.stdCount.Get()
	if err != nil {
		return err
	}
	if index > count {
		return ErrInvalidStandard
	}
	if err := f.standards.Set(slots.Index(index), Standard{router, controller, master}); err != nil {
		return err
	}
	if index == count {
		f.stdCount.Set(count + 1)
	}
	env.Log("StandardOperationSet", index, router, controller, master)
	return nil
}

func (f *Factory) PushTerraAddresses(env *xenv.Environment, addrs []anchor.Bytes32) error {
	if err := f.acl.RequireOwner(env); err != nil {
		return err
	}
	for _, addr := range addrs {
		if err := f.terraAddrs.Produce(addr); err != nil {
			return err
		}
		env.Log("TerraAddressPushed", addr)
	}
	return nil
}

// FetchNextTerraAddress returns the terra address the next build binds, zero
// if the pool is empty.
func (f *Factory) FetchNextTerraAddress() (anchor.Bytes32, error) {
	return f.terraAddrs.ItemAt(0)
}

func (f *Factory) TerraAddressCount() (uint64, error) {
	return f.terraAddrs.Len()
}

// Build deploys a fresh instance from the blueprint at index, binds it to the
// next terra address and allocates it in the store.
func (f *Factory) Build(env *xenv.Environment, index uint64) (anchor.Address, error) {
	if err := f.acl.RequireGranted(env); err != nil {
		return anchor.Address{}, err
	}
	std, err := f.Standards(index)
	if err != nil {
		return anchor.Address{}, err
	}
	terra, err := f.terraAddrs.Consume()
	if err != nil {
		if errors.Is(err, queue.ErrEmptyQueue) {
			return anchor.Address{}, ErrNoTerraAddress
		}
		return anchor.Address{}, err
	}

	master, err := operation.At(env, std.Operation)
	if err != nil {
		return anchor.Address{}, err
	}
	cfg, err := master.InitPayload(std.Router, std.Controller, terra)
	if err != nil {
		return anchor.Address{}, err
	}

	nonce, err := f.nonce.Get()
	if err != nil {
		return anchor.Address{}, err
	}
	f.nonce.Set(nonce + 1)
	instance := anchor.CreateContractAddress(f.addr, nonce)

	if _, err := operation.Deploy(env, instance, cfg); err != nil {
		return anchor.Address{}, err
	}
	env.Log("ContractDeployed", instance, std.Controller, terra)

	storeAddr, err := f.store.Get()
	if err != nil {
		return anchor.Address{}, err
	}
	s, err := store.At(env, storeAddr)
	if err != nil {
		return anchor.Address{}, err
	}
	if err := s.Allocate(env.Call(storeAddr), instance); err != nil {
		return anchor.Address{}, err
	}
	return instance, nil
}
