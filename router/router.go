// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package router is the user facing entry point. It binds each deposit or
// redemption to an available operation instance, building one if needed.
package router

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
	"github.com/anchorprotocol/ethanchor/token"
	"github.com/anchorprotocol/ethanchor/xenv"
)

// Code tags router accounts.
const Code = "router"

var (
	ErrAlreadyInitialized = reverts.New("Router: already initialized")
	ErrNotInitialized     = reverts.New("Router: not initialized")
	ErrNotActionOperator  = reverts.Unauthorized("Router: caller is not the operator of the action")
)

// Config wires a router to the rest of the protocol.
type Config struct {
	Store          anchor.Address `json:"store"`
	StdOptID       uint64         `json:"stdOptId"`
	Factory        anchor.Address `json:"factory"`
	WrappedStable  anchor.Address `json:"wrappedStable"`
	AnchoredStable anchor.Address `json:"anchoredStable"`
}

type Router struct {
	addr        anchor.Address
	guard       *access.Guard
	initialized *slots.Bool
	config      *slots.Value[Config]
}

func New(addr anchor.Address, st *state.State) *Router {
	ctx := slots.NewContext(addr, st)
	return &Router{
		addr:        addr,
		guard:       access.NewGuard(ctx),
		initialized: slots.NewBool(ctx, slots.Pos("initialized")),
		config:      slots.NewValue[Config](ctx, slots.Pos("config")),
	}
}

// Deploy installs a router at addr, owned and operated by the caller of env.
func Deploy(env *xenv.Environment, addr anchor.Address) (*Router, error) {
	if err := env.Deploy(addr, []byte(Code)); err != nil {
		return nil, err
	}
	r := New(addr, env.State())
	r.guard.Setup(env.Call(addr), env.Caller())
	return r, nil
}

// At resolves the router deployed at addr.
func At(env *xenv.Environment, addr anchor.Address) (*Router, error) {
	impl, err := env.Resolve(addr)
	if err != nil {
		return nil, err
	}
	r, ok := impl.(*Router)
	if !ok {
		return nil, errors.Errorf("contract at %v is not a router", addr)
	}
	return r, nil
}

func (r *Router) Address() anchor.Address { return r.addr }

func (r *Router) Guard() *access.Guard { return r.guard }

func (r *Router) Initialize(env *xenv.Environment, storeAddr anchor.Address, stdOptID uint64, factoryAddr, wUST, aUST anchor.Address) error {
	if err := r.guard.RequireOwner(env); err != nil {
		return err
	}
	ok, err := r.initialized.Get()
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	if err := r.config.Set(Config{storeAddr, stdOptID, factoryAddr, wUST, aUST}); err != nil {
		return err
	}
	r.initialized.Set(true)
	return nil
}

func (r *Router) Config() (Config, error) {
	ok, err := r.initialized.Get()
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Config{}, ErrNotInitialized
	}
	return r.config.Get()
}

// DepositStable deposits amount of wUST for the caller, finished automatically.
func (r *Router) DepositStable(env *xenv.Environment, amount *big.Int) (anchor.Address, error) {
	return r.dispatch(env, operation.TypeDeposit, env.Caller(), amount, anchor.Address{}, anchor.Address{}, true)
}

// InitDepositStable deposits amount of wUST for the caller, to be finished by hand.
func (r *Router) InitDepositStable(env *xenv.Environment, amount *big.Int) (anchor.Address, error) {
	return r.dispatch(env, operation.TypeDeposit, env.Caller(), amount, anchor.Address{}, anchor.Address{}, false)
}

func (r *Router) RedeemStable(env *xenv.Environment, amount *big.Int) (anchor.Address, error) {
	return r.dispatch(env, operation.TypeRedeem, env.Caller(), amount, anchor.Address{}, anchor.Address{}, true)
}

func (r *Router) InitRedeemStable(env *xenv.Environment, amount *big.Int) (anchor.Address, error) {
	return r.dispatch(env, operation.TypeRedeem, env.Caller(), amount, anchor.Address{}, anchor.Address{}, false)
}

// DepositStableFor deposits amount of wUST pulled from the caller on behalf
// of operator, who receives the proceeds.
func (r *Router) DepositStableFor(
	env *xenv.Environment,
	operator anchor.Address,
	amount *big.Int,
	swapperAddr, swapDest anchor.Address,
	autoFinish bool,
) (anchor.Address, error) {
	return r.dispatch(env, operation.TypeDeposit, operator, amount, swapperAddr, swapDest, autoFinish)
}

// RedeemStableFor redeems amount of aUST pulled from the caller on behalf of
// operator. A non zero swapper converts the redeemed wUST into swapDest.
func (r *Router) RedeemStableFor(
	env *xenv.Environment,
	operator anchor.Address,
	amount *big.Int,
	swapperAddr, swapDest anchor.Address,
	autoFinish bool,
) (anchor.Address, error) {
	return r.dispatch(env, operation.TypeRedeem, operator, amount, swapperAddr, swapDest, autoFinish)
}

func (r *Router) dispatch(
	env *xenv.Environment,
	typ operation.Type,
	operator anchor.Address,
	amount *big.Int,
	swapperAddr, swapDest anchor.Address,
	autoFinish bool,
) (anchor.Address, error) {
	cfg, err := r.Config()
	if err != nil {
		return anchor.Address{}, err
	}
	s, err := store.At(env, cfg.Store)
	if err != nil {
		return anchor.Address{}, err
	}

	next, err := s.GetAvailableOperation()
	if err != nil {
		return anchor.Address{}, err
	}
	if next.IsZero() {
		if _, err := r.build(env, cfg, 1); err != nil {
			return anchor.Address{}, err
		}
	}
	id, err := s.Init(env.Call(cfg.Store), autoFinish)
	if err != nil {
		return anchor.Address{}, err
	}

	input := cfg.WrappedStable
	if typ == operation.TypeRedeem {
		input = cfg.AnchoredStable
	}
	tok := token.New(input, env.State())
	if err := tok.TransferFrom(env.Call(input), env.Caller(), r.addr, amount); err != nil {
		return anchor.Address{}, err
	}
	if err := tok.Approve(env.Call(input), id, amount); err != nil {
		return anchor.Address{}, err
	}

	op, err := operation.At(env, id)
	if err != nil {
		return anchor.Address{}, err
	}
	if typ == operation.TypeRedeem {
		err = op.InitRedeemStable(env.Call(id), operator, amount, swapperAddr, swapDest, autoFinish)
	} else {
		err = op.InitDepositStable(env.Call(id), operator, amount, swapperAddr, swapDest, autoFinish)
	}
	if err != nil {
		return anchor.Address{}, err
	}
	return id, nil
}

// Finish settles the action of instance id. Anyone may finish a plain
// action, the payout always goes to the recorded operator. An action paid
// out through a swap is finished by its operator or a granted account only.
func (r *Router) Finish(env *xenv.Environment, id anchor.Address) error {
	return r.finish(env, id, new(big.Int), false)
}

// FinishWithMin is Finish with a lower bound on the swap proceeds, open to
// the operator of the action and granted accounts.
func (r *Router) FinishWithMin(env *xenv.Environment, id anchor.Address, minAmountOut *big.Int) error {
	return r.finish(env, id, minAmountOut, true)
}

func (r *Router) finish(env *xenv.Environment, id anchor.Address, minAmountOut *big.Int, bounded bool) error {
	cfg, err := r.Config()
	if err != nil {
		return err
	}
	op, err := operation.At(env, id)
	if err != nil {
		return err
	}
	info, err := op.GetCurrentStatus()
	if err != nil {
		return err
	}
	if bounded || !info.Swapper.IsZero() {
		if err := r.requireActionOperator(env, info.Operator); err != nil {
			return err
		}
	}
	if err := op.FinishWithMin(env.Call(id), minAmountOut); err != nil {
		return err
	}
	s, err := store.At(env, cfg.Store)
	if err != nil {
		return err
	}
	return s.Finish(env.Call(cfg.Store), id)
}

func (r *Router) requireActionOperator(env *xenv.Environment, operator anchor.Address) error {
	if env.Caller() == operator {
		return nil
	}
	ok, err := r.guard.IsGranted(env.Caller())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotActionOperator
	}
	return nil
}

// Allocate builds n instances ahead of demand.
func (r *Router) Allocate(env *xenv.Environment, n uint64) ([]anchor.Address, error) {
	if err := r.guard.RequireGranted(env); err != nil {
		return nil, err
	}
	cfg, err := r.Config()
	if err != nil {
		return nil, err
	}
	return r.build(env, cfg, n)
}

// Flush moves up to n instances off the running queue.
func (r *Router) Flush(env *xenv.Environment, n uint64) (uint64, error) {
	if err := r.guard.RequireGranted(env); err != nil {
		return 0, err
	}
	cfg, err := r.Config()
	if err != nil {
		return 0, err
	}
	s, err := store.At(env, cfg.Store)
	if err != nil {
		return 0, err
	}
	return s.Flush(env.Call(cfg.Store), store.QueueRunning, n)
}

func (r *Router) build(env *xenv.Environment, cfg Config, n uint64) ([]anchor.Address, error) {
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
