// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package controller is the operator facing batch driver of the store and
// its operation instances.
package controller

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/access"
	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/factory"
	"github.com/anchorprotocol/ethanchor/operation"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/slots"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/store"
	"github.com/anchorprotocol/ethanchor/xenv"
)

// Code tags controller accounts.
const Code = "controller"

var (
	ErrAlreadyInitialized = reverts.New("Controller: already initialized")
	ErrNotInitialized     = reverts.New("Controller: not initialized")
)

type Config struct {
	Store    anchor.Address `json:"store"`
	StdOptID uint64         `json:"stdOptId"`
	Factory  anchor.Address `json:"factory"`
}

type Controller struct {
	addr        anchor.Address
	guard       *access.Guard
	initialized *slots.Bool
	config      *slots.Value[Config]
}

func New(addr anchor.Address, st *state.State) *Controller {
	ctx := slots.NewContext(addr, st)
	return &Controller{
		addr:        addr,
		guard:       access.NewGuard(ctx),
		initialized: slots.NewBool(ctx, slots.Pos("initialized")),
		config:      slots.NewValue[Config](ctx, slots.Pos("config")),
	}
}

// Deploy installs a controller at addr, owned and operated by the caller of env.
func Deploy(env *xenv.Environment, addr anchor.Address) (*Controller, error) {
	if err := env.Deploy(addr, []byte(Code)); err != nil {
		return nil, err
	}
	c := New(addr, env.State())
	c.guard.Setup(env.Call(addr), env.Caller())
	return c, nil
}

// At resolves the controller deployed at addr.
func At(env *xenv.Environment, addr anchor.Address) (*Controller, error) {
	impl, err := env.Resolve(addr)
	if err != nil {
		return nil, err
	}
	c, ok := impl.(*Controller)
	if !ok {
		return nil, errors.Errorf("contract at %v is not a controller", addr)
	}
	return c, nil
}

func (c *Controller) Address() anchor.Address { return c.addr }

func (c *Controller) Guard() *access.Guard { return c.guard }

func (c *Controller) Initialize(env *xenv.Environment, storeAddr anchor.Address, stdOptID uint64, factoryAddr anchor.Address) error {
	if err := c.guard.RequireOwner(env); err != nil {
		return err
	}
	ok, err := c.initialized.Get()
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	if err := c.config.Set(Config{storeAddr, stdOptID, factoryAddr}); err != nil {
		return err
	}
	c.initialized.Set(true)
	return nil
}

func (c *Controller) Config() (Config, error) {
	ok, err := c.initialized.Get()
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Config{}, ErrNotInitialized
	}
	return c.config.Get()
}

// Allocate builds n instances ahead of demand.
func (c *Controller) Allocate(env *xenv.Environment, n uint64) ([]anchor.Address, error) {
	cfg, err := c.granted(env)
	if err != nil {
		return nil, err
	}
	f, err := factory.At(env, cfg.Factory)
	if err != nil {
		return nil, err
	}
	var ids []anchor.Address
	for range n {
		id, err := f.Build(env.Call(cfg.Factory), cfg.StdOptID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Finish settles instance id once its output has arrived.
func (c *Controller) Finish(env *xenv.Environment, id anchor.Address) error {
	return c.FinishWithMin(env, id, new(big.Int))
}

func (c *Controller) FinishWithMin(env *xenv.Environment, id anchor.Address, minAmountOut *big.Int) error {
	cfg, err := c.granted(env)
	if err != nil {
		return err
	}
	return c.drive(env, cfg, id,
		func(op *operation.Operation, env *xenv.Environment) error { return op.FinishWithMin(env, minAmountOut) },
		(*store.Store).Finish)
}

// Flush moves up to n instances off the running queue.
func (c *Controller) Flush(env *xenv.Environment, n uint64) (uint64, error) {
	return c.flush(env, store.QueueRunning, n)
}

// FlushStopped moves up to n instances off the failed queue.
func (c *Controller) FlushStopped(env *xenv.Environment, n uint64) (uint64, error) {
	return c.flush(env, store.QueueFailed, n)
}

// Halt freezes the action of instance id and fails it in the store.
func (c *Controller) Halt(env *xenv.Environment, id anchor.Address) error {
	cfg, err := c.granted(env)
	if err != nil {
		return err
	}
	return c.drive(env, cfg, id, (*operation.Operation).Halt, (*store.Store).Halt)
}

// Recover brings a halted instance back to neutral and marks it recovered,
// ready to be flushed back to the available pool.
func (c *Controller) Recover(env *xenv.Environment, id anchor.Address) error {
	cfg, err := c.granted(env)
	if err != nil {
		return err
	}
	return c.drive(env, cfg, id, (*operation.Operation).Recover, (*store.Store).Recover)
}

// EmergencyWithdraw drains asset held by the halted instance id to to.
func (c *Controller) EmergencyWithdraw(env *xenv.Environment, id, asset, to anchor.Address) error {
	if err := c.guard.RequireOwner(env); err != nil {
		return err
	}
	op, err := operation.At(env, id)
	if err != nil {
		return err
	}
	return op.EmergencyWithdraw(env.Call(id), asset, to)
}

// Deallocate retires the failed instance id.
func (c *Controller) Deallocate(env *xenv.Environment, id anchor.Address) error {
	if err := c.guard.RequireOwner(env); err != nil {
		return err
	}
	cfg, err := c.Config()
	if err != nil {
		return err
	}
	s, err := store.At(env, cfg.Store)
	if err != nil {
		return err
	}
	return s.Deallocate(env.Call(cfg.Store), id)
}

func (c *Controller) flush(env *xenv.Environment, q store.Queue, n uint64) (uint64, error) {
	cfg, err := c.granted(env)
	if err != nil {
		return 0, err
	}
	s, err := store.At(env, cfg.Store)
	if err != nil {
		return 0, err
	}
	return s.Flush(env.Call(cfg.Store), q, n)
}

// drive applies the same transition to the instance and to its store record.
func (c *Controller) drive(
	env *xenv.Environment,
	cfg Config,
	id anchor.Address,
	onOperation func(*operation.Operation, *xenv.Environment) error,
	onStore func(*store.Store, *xenv.Environment, anchor.Address) error,
) error {
	op, err := operation.At(env, id)
	if err != nil {
		return err
	}
	if err := onOperation(op, env.Call(id)); err != nil {
		return err
	}
	s, err := store.At(env, cfg.Store)
	if err != nil {
		return err
	}
	return onStore(s, env.Call(cfg.Store), id)
}

func (c *Controller) granted(env *xenv.Environment) (Config, error) {
	if err := c.guard.RequireGranted(env); err != nil {
		return Config{}, err
	}
	return c.Config()
}
