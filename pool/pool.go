// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package pool anchors stablecoins other than UST. Deposits are swapped into
// wUST and routed, and the depositor receives an anchored receipt token
// priced by the feeder.
package pool

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/access"
	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/feeder"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/router"
	"github.com/anchorprotocol/ethanchor/slots"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/swapper"
	"github.com/anchorprotocol/ethanchor/token"
	"github.com/anchorprotocol/ethanchor/xenv"
)

// Code tags pool accounts.
const Code = "conversion-pool"

var (
	ErrAlreadyInitialized = reverts.New("ConversionPool: already initialized")
	ErrNotInitialized     = reverts.New("ConversionPool: not initialized")
	ErrInvalidAmount      = reverts.New("ConversionPool: amount must be positive")
)

type Config struct {
	InputToken       anchor.Address `json:"inputToken"`
	OutputToken      anchor.Address `json:"outputToken"`
	ProxyInputToken  anchor.Address `json:"proxyInputToken"`
	ProxyOutputToken anchor.Address `json:"proxyOutputToken"`
	Router           anchor.Address `json:"router"`
	Swapper          anchor.Address `json:"swapper"`
	Feeder           anchor.Address `json:"feeder"`
}

type Pool struct {
	addr        anchor.Address
	guard       *access.Guard
	initialized *slots.Bool
	config      *slots.Value[Config]
}

func New(addr anchor.Address, st *state.State) *Pool {
	ctx := slots.NewContext(addr, st)
	return &Pool{
		addr:        addr,
		guard:       access.NewGuard(ctx),
		initialized: slots.NewBool(ctx, slots.Pos("initialized")),
		config:      slots.NewValue[Config](ctx, slots.Pos("config")),
	}
}

// Deploy installs a pool at addr, owned by the caller of env.
func Deploy(env *xenv.Environment, addr anchor.Address) (*Pool, error) {
	if err := env.Deploy(addr, []byte(Code)); err != nil {
		return nil, err
	}
	p := New(addr, env.State())
	p.guard.Setup(env.Call(addr), env.Caller())
	return p, nil
}

// At resolves the pool deployed at addr.
func At(env *xenv.Environment, addr anchor.Address) (*Pool, error) {
	impl, err := env.Resolve(addr)
	if err != nil {
		return nil, err
	}
	p, ok := impl.(*Pool)
	if !ok {
		return nil, errors.Errorf("contract at %v is not a conversion pool", addr)
	}
	return p, nil
}

func (p *Pool) Address() anchor.Address { return p.addr }

func (p *Pool) Guard() *access.Guard { return p.guard }

// Initialize deploys the output token, minted and burnt by the pool only.
func (p *Pool) Initialize(
	env *xenv.Environment,
	name, symbol string,
	input, proxyInput, proxyOutput, routerAddr, swapperAddr, feederAddr anchor.Address,
) error {
	if err := p.guard.RequireOwner(env); err != nil {
		return err
	}
	ok, err := p.initialized.Get()
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}

	decimals, err := token.New(input, env.State()).Decimals()
	if err != nil {
		return err
	}
	output := anchor.CreateContractAddress(p.addr, 0)
	if _, err := token.Deploy(env, output, name, symbol, decimals, p.addr); err != nil {
		return err
	}

	if err := p.config.Set(Config{
		InputToken:       input,
		OutputToken:      output,
		ProxyInputToken:  proxyInput,
		ProxyOutputToken: proxyOutput,
		Router:           routerAddr,
		Swapper:          swapperAddr,
		Feeder:           feederAddr,
	}); err != nil {
		return err
	}
	p.initialized.Set(true)
	return nil
}

func (p *Pool) Config() (Config, error) {
	ok, err := p.initialized.Get()
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Config{}, ErrNotInitialized
	}
	return p.config.Get()
}

func (p *Pool) OutputToken() (anchor.Address, error) {
	cfg, err := p.Config()
	return cfg.OutputToken, err
}

// Deposit converts amount of input into wUST, routes it as a deposit held by
// the pool and mints the anchored token to the caller. It returns the amount
// minted.
func (p *Pool) Deposit(env *xenv.Environment, amount *big.Int) (*big.Int, error) {
	return p.DepositWithMin(env, amount, new(big.Int))
}

// DepositWithMin is Deposit with a lower bound on the wUST swapped into.
func (p *Pool) DepositWithMin(env *xenv.Environment, amount, minAmountOut *big.Int) (*big.Int, error) {
	cfg, err := p.Config()
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	input := token.New(cfg.InputToken, env.State())
	if err := input.TransferFrom(env.Call(cfg.InputToken), env.Caller(), p.addr, amount); err != nil {
		return nil, err
	}
	if err := input.Approve(env.Call(cfg.InputToken), cfg.Swapper, amount); err != nil {
		return nil, err
	}
	sw, err := swapper.At(env, cfg.Swapper)
	if err != nil {
		return nil, err
	}
	converted, err := sw.SwapToken(env.Call(cfg.Swapper), cfg.InputToken, cfg.ProxyInputToken, amount, minAmountOut, p.addr)
	if err != nil {
		return nil, err
	}

	if err := token.New(cfg.ProxyInputToken, env.State()).Approve(env.Call(cfg.ProxyInputToken), cfg.Router, converted); err != nil {
		return nil, err
	}
	r, err := router.At(env, cfg.Router)
	if err != nil {
		return nil, err
	}
	if _, err := r.DepositStableFor(env.Call(cfg.Router), p.addr, converted, anchor.Address{}, anchor.Address{}, true); err != nil {
		return nil, err
	}

	rate, err := p.rateOf(env, cfg, cfg.InputToken)
	if err != nil {
		return nil, err
	}
	minted := new(big.Int).Mul(amount, feeder.One.ToBig())
	minted.Div(minted, rate)

	if err := token.New(cfg.OutputToken, env.State()).Mint(env.Call(cfg.OutputToken), env.Caller(), minted); err != nil {
		return nil, err
	}
	env.Log("Deposited", env.Caller(), new(big.Int).Set(amount), new(big.Int).Set(minted))
	return minted, nil
}

// Redeem burns amount of the anchored token from the caller and routes the
// matching aUST held by the pool as a redemption paying the caller in input.
// It returns the aUST redeemed.
func (p *Pool) Redeem(env *xenv.Environment, amount *big.Int) (*big.Int, error) {
	cfg, err := p.Config()
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := token.New(cfg.OutputToken, env.State()).Burn(env.Call(cfg.OutputToken), env.Caller(), amount); err != nil {
		return nil, err
	}

	inputRate, err := p.rateOf(env, cfg, cfg.InputToken)
	if err != nil {
		return nil, err
	}
	proxyRate, err := p.rateOf(env, cfg, cfg.ProxyInputToken)
	if err != nil {
		return nil, err
	}
	anchored := new(big.Int).Mul(amount, inputRate)
	anchored.Div(anchored, proxyRate)

	if err := token.New(cfg.ProxyOutputToken, env.State()).Approve(env.Call(cfg.ProxyOutputToken), cfg.Router, anchored); err != nil {
		return nil, err
	}
	r, err := router.At(env, cfg.Router)
	if err != nil {
		return nil, err
	}
	if _, err := r.RedeemStableFor(env.Call(cfg.Router), env.Caller(), anchored, cfg.Swapper, cfg.InputToken, true); err != nil {
		return nil, err
	}
	env.Log("Redeemed", env.Caller(), new(big.Int).Set(amount), new(big.Int).Set(anchored))
	return anchored, nil
}

// rateOf returns the exchange rate of tok as of the current block.
func (p *Pool) rateOf(env *xenv.Environment, cfg Config, tok anchor.Address) (*big.Int, error) {
	f, err := feeder.At(env, cfg.Feeder)
	if err != nil {
		return nil, err
	}
	rate, err := f.SimulateExchangeRateOf(tok, env.BlockContext().Time)
	if err != nil {
		return nil, err
	}
	return rate.ToBig(), nil
}
