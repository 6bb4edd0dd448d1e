// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package operation implements the reusable custody instance that carries
// one deposit or redemption at a time.
package operation

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/access"
	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/slots"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/swapper"
	"github.com/anchorprotocol/ethanchor/token"
	"github.com/anchorprotocol/ethanchor/xenv"
)

// Code tags operation accounts.
const Code = "operation"

var (
	ErrAlreadyInitialized        = reverts.New("Operation: already initialized")
	ErrNotInitialized            = reverts.New("Operation: not initialized")
	ErrNoBridge                  = reverts.New("Operation: bridge not set")
	ErrAlreadyRunning            = reverts.New("Operation: already running")
	ErrNotRunning                = reverts.New("Operation: not running")
	ErrNotHalted                 = reverts.New("Operation: not halted")
	ErrInvalidAmount             = reverts.New("Operation: amount must be positive")
	ErrNotAnEmergency            = reverts.New("Operation: not an emergency")
	ErrWithdrawalRejected        = reverts.New("Operation: withdrawal rejected")
	ErrInsufficientOutputBalance = reverts.External("Operation: insufficient output balance")
)

type Operation struct {
	addr        anchor.Address
	initialized *slots.Bool
	config      *slots.Value[Config]
	info        *slots.Value[Info]
	autoFinish  *slots.Bool
}

func New(addr anchor.Address, st *state.State) *Operation {
	ctx := slots.NewContext(addr, st)
	return &Operation{
		addr:        addr,
		initialized: slots.NewBool(ctx, slots.Pos("initialized")),
		config:      slots.NewValue[Config](ctx, slots.Pos("config")),
		info:        slots.NewValue[Info](ctx, slots.Pos("info")),
		autoFinish:  slots.NewBool(ctx, slots.Pos("autoFinish")),
	}
}

// Deploy installs an instance at addr and initializes it with cfg.
func Deploy(env *xenv.Environment, addr anchor.Address, cfg Config) (*Operation, error) {
	if err := env.Deploy(addr, []byte(Code)); err != nil {
		return nil, err
	}
	op := New(addr, env.State())
	if err := op.Initialize(env.Call(addr), cfg); err != nil {
		return nil, err
	}
	return op, nil
}

// At resolves the instance deployed at addr.
func At(env *xenv.Environment, addr anchor.Address) (*Operation, error) {
	impl, err := env.Resolve(addr)
	if err != nil {
		return nil, err
	}
	op, ok := impl.(*Operation)
	if !ok {
		return nil, errors.Errorf("contract at %v is not an operation", addr)
	}
	return op, nil
}

func (o *Operation) Address() anchor.Address { return o.addr }

func (o *Operation) Initialize(env *xenv.Environment, cfg Config) error {
	ok, err := o.initialized.Get()
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	if cfg.Bridge.IsZero() {
		return ErrNoBridge
	}
	if err := o.config.Set(cfg); err != nil {
		return err
	}
	o.initialized.Set(true)
	return nil
}

// InitPayload derives the config of a clone bound to the given roles and
// terra address, keeping the assets and bridge of this instance.
func (o *Operation) InitPayload(router, controller anchor.Address, terraAddress anchor.Bytes32) (Config, error) {
	cfg, err := o.Config()
	if err != nil {
		return Config{}, err
	}
	cfg.Router = router
	cfg.Controller = controller
	cfg.TerraAddress = terraAddress
	return cfg, nil
}

func (o *Operation) Config() (Config, error) {
	ok, err := o.initialized.Get()
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Config{}, ErrNotInitialized
	}
	return o.config.Get()
}

func (o *Operation) TerraAddress() (anchor.Bytes32, error) {
	cfg, err := o.Config()
	if err != nil {
		return anchor.Bytes32{}, err
	}
	return cfg.TerraAddress, nil
}

// GetCurrentStatus returns the in-flight action.
func (o *Operation) GetCurrentStatus() (Info, error) {
	info, err := o.info.Get()
	if err != nil {
		return Info{}, err
	}
	if info.Amount == nil {
		info.Amount = new(big.Int)
	}
	return info, nil
}

func (o *Operation) AutoFinish() (bool, error) {
	return o.autoFinish.Get()
}

func (o *Operation) InitDepositStable(
	env *xenv.Environment,
	operator anchor.Address,
	amount *big.Int,
	swapperAddr, swapDest anchor.Address,
	autoFinish bool,
) error {
	return o.init(env, TypeDeposit, operator, amount, swapperAddr, swapDest, autoFinish)
}

func (o *Operation) InitRedeemStable(
	env *xenv.Environment,
	operator anchor.Address,
	amount *big.Int,
	swapperAddr, swapDest anchor.Address,
	autoFinish bool,
) error {
	return o.init(env, TypeRedeem, operator, amount, swapperAddr, swapDest, autoFinish)
}

func (o *Operation) init(
	env *xenv.Environment,
	typ Type,
	operator anchor.Address,
	amount *big.Int,
	swapperAddr, swapDest anchor.Address,
	autoFinish bool,
) error {
	cfg, err := o.Config()
	if err != nil {
		return err
	}
	if env.Caller() != cfg.Router {
		return access.ErrNotRouter
	}
	info, err := o.GetCurrentStatus()
	if err != nil {
		return err
	}
	if info.Status != StatusNeutral {
		return ErrAlreadyRunning
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	input, output := cfg.WrappedStable, cfg.AnchoredStable
	if typ == TypeRedeem {
		input, output = output, input
	}

	// forwarded at once, custody only ever holds settled output
	in := token.New(input, env.State())
	if err := in.TransferFrom(env.Call(input), env.Caller(), o.addr, amount); err != nil {
		return err
	}
	if err := in.Transfer(env.Call(input), cfg.Bridge, amount); err != nil {
		return err
	}

	if err := o.info.Set(Info{
		Status:   StatusRunning,
		Typ:      typ,
		Operator: operator,
		Amount:   new(big.Int).Set(amount),
		Input:    input,
		Output:   output,
		Swapper:  swapperAddr,
		SwapDest: swapDest,
	}); err != nil {
		return err
	}

	event := "InitDeposit"
	if typ == TypeRedeem {
		event = "InitRedemption"
	}
	env.Log(event, operator, new(big.Int).Set(amount), cfg.TerraAddress)

	o.autoFinish.Set(autoFinish)
	if autoFinish {
		env.Log("AutoFinishEnabled", o.addr)
	}
	return nil
}

// Finish pays out the running action once its output has arrived.
func (o *Operation) Finish(env *xenv.Environment) error {
	return o.FinishWithMin(env, new(big.Int))
}

// FinishWithMin is Finish with a lower bound on the swap proceeds.
func (o *Operation) FinishWithMin(env *xenv.Environment, minAmountOut *big.Int) error {
	cfg, err := o.Config()
	if err != nil {
		return err
	}
	if caller := env.Caller(); caller != cfg.Router && caller != cfg.Controller {
		return access.ErrNotAllowed
	}
	info, err := o.GetCurrentStatus()
	if err != nil {
		return err
	}
	if info.Status != StatusRunning {
		return ErrNotRunning
	}
	if err := o.payout(env, &info, minAmountOut); err != nil {
		return err
	}
	o.reset()
	return nil
}

func (o *Operation) Halt(env *xenv.Environment) error {
	if err := o.requireController(env); err != nil {
		return err
	}
	info, err := o.GetCurrentStatus()
	if err != nil {
		return err
	}
	if info.Status != StatusRunning {
		return ErrNotRunning
	}
	info.Status = StatusHalted
	if err := o.info.Set(info); err != nil {
		return err
	}
	env.Log("Halted", o.addr)
	return nil
}

// EmergencyWithdraw moves the whole balance of asset to to. The output the
// halted action still owes stays in custody.
func (o *Operation) EmergencyWithdraw(env *xenv.Environment, asset, to anchor.Address) error {
	if err := o.requireController(env); err != nil {
		return err
	}
	info, err := o.GetCurrentStatus()
	if err != nil {
		return err
	}
	if info.Status != StatusHalted {
		return ErrNotAnEmergency
	}
	if asset == info.Output {
		return ErrWithdrawalRejected
	}

	tok, err := tokenAt(env, asset)
	if err != nil {
		return err
	}
	bal, err := tok.BalanceOf(o.addr)
	if err != nil {
		return err
	}
	if err := tok.Transfer(env.Call(asset), to, bal); err != nil {
		return err
	}
	env.Log("EmergencyWithdrawActivated", asset, new(big.Int).Set(bal))
	return nil
}

// Recover brings a halted instance back to NEUTRAL. The action is paid out
// when its output has arrived, abandoned otherwise.
func (o *Operation) Recover(env *xenv.Environment) error {
	if err := o.requireController(env); err != nil {
		return err
	}
	info, err := o.GetCurrentStatus()
	if err != nil {
		return err
	}
	if info.Status != StatusHalted {
		return ErrNotHalted
	}

	bal, err := token.New(info.Output, env.State()).BalanceOf(o.addr)
	if err != nil {
		return err
	}
	paid := bal.Cmp(info.Amount) >= 0
	if paid {
		if err := o.payout(env, &info, new(big.Int)); err != nil {
			return err
		}
	}
	o.reset()
	env.Log("Recovered", o.addr, paid)
	return nil
}

func (o *Operation) payout(env *xenv.Environment, info *Info, minAmountOut *big.Int) error {
	output := token.New(info.Output, env.State())
	bal, err := output.BalanceOf(o.addr)
	if err != nil {
		return err
	}
	if bal.Cmp(info.Amount) < 0 {
		return ErrInsufficientOutputBalance
	}

	if info.Swapper.IsZero() {
		if err := output.Transfer(env.Call(info.Output), info.Operator, info.Amount); err != nil {
			return err
		}
	} else {
		sw, err := swapper.At(env, info.Swapper)
		if err != nil {
			return err
		}
		if err := output.Approve(env.Call(info.Output), info.Swapper, info.Amount); err != nil {
			return err
		}
		if _, err := sw.SwapToken(env.Call(info.Swapper), info.Output, info.SwapDest, info.Amount, minAmountOut, info.Operator); err != nil {
			return err
		}
	}

	event := "FinishDeposit"
	if info.Typ == TypeRedeem {
		event = "FinishRedemption"
	}
	env.Log(event, info.Operator, new(big.Int).Set(info.Amount))
	return nil
}

func (o *Operation) reset() {
	o.info.Clear()
	o.autoFinish.Set(false)
}

func (o *Operation) requireController(env *xenv.Environment) error {
	cfg, err := o.Config()
	if err != nil {
		return err
	}
	if env.Caller() != cfg.Controller {
		return access.ErrNotController
	}
	return nil
}

func tokenAt(env *xenv.Environment, addr anchor.Address) (*token.Token, error) {
	impl, err := env.Resolve(addr)
	if err != nil {
		return nil, err
	}
	tok, ok := impl.(*token.Token)
	if !ok {
		return nil, errors.Errorf("contract at %v is not a token", addr)
	}
	return tok, nil
}
