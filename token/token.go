// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token implements a fungible asset with ERC20 semantics and a
// minter role allowed to mint and burn.
package token

import (
	"math/big"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/slots"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/xenv"
)

// Code tags token accounts.
const Code = "token"

var (
	ErrInsufficientBalance   = reverts.External("ERC20: transfer amount exceeds balance")
	ErrInsufficientAllowance = reverts.External("ERC20: transfer amount exceeds allowance")
	ErrNotMinter             = reverts.Unauthorized("ERC20Controlled: not minter")
	ErrAlreadyInitialized    = reverts.New("ERC20: already initialized")
	ErrNegativeAmount        = reverts.New("ERC20: negative amount")
)

// MaxAllowance is the unlimited allowance.
var MaxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

type metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

type allowanceKey struct {
	owner   anchor.Address
	spender anchor.Address
}

func (k allowanceKey) Bytes() []byte {
	return append(k.owner.Bytes(), k.spender.Bytes()...)
}

type Token struct {
	addr       anchor.Address
	meta       *slots.Value[metadata]
	supply     *slots.Uint256
	minter     *slots.Address
	balances   *slots.Mapping[anchor.Address, *big.Int]
	allowances *slots.Mapping[allowanceKey, *big.Int]
}

func New(addr anchor.Address, st *state.State) *Token {
	ctx := slots.NewContext(addr, st)
	return &Token{
		addr:       addr,
		meta:       slots.NewValue[metadata](ctx, slots.Pos("meta")),
		supply:     slots.NewUint256(ctx, slots.Pos("supply")),
		minter:     slots.NewAddress(ctx, slots.Pos("minter")),
		balances:   slots.NewMapping[anchor.Address, *big.Int](ctx, slots.Pos("balances")),
		allowances: slots.NewMapping[allowanceKey, *big.Int](ctx, slots.Pos("allowances")),
	}
}

// Deploy installs a token at addr with minter as the minter role.
func Deploy(env *xenv.Environment, addr anchor.Address, name, symbol string, decimals uint8, minter anchor.Address) (*Token, error) {
	if err := env.Deploy(addr, []byte(Code)); err != nil {
		return nil, err
	}
	t := New(addr, env.State())
	if err := t.Initialize(env.Call(addr), name, symbol, decimals, minter); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Token) Address() anchor.Address { return t.addr }

func (t *Token) Initialize(env *xenv.Environment, name, symbol string, decimals uint8, minter anchor.Address) error {
	meta, err := t.meta.Get()
	if err != nil {
		return err
	}
	if meta.Symbol != "" {
		return ErrAlreadyInitialized
	}
	if err := t.meta.Set(metadata{name, symbol, decimals}); err != nil {
		return err
	}
	t.minter.Set(minter)
	env.Log("MinterTransferred", anchor.Address{}, minter)
	return nil
}

func (t *Token) Name() (string, error) {
	meta, err := t.meta.Get()
	return meta.Name, err
}

func (t *Token) Symbol() (string, error) {
	meta, err := t.meta.Get()
	return meta.Symbol, err
}

func (t *Token) Decimals() (uint8, error) {
	meta, err := t.meta.Get()
	return meta.Decimals, err
}

func (t *Token) Minter() (anchor.Address, error) { return t.minter.Get() }

func (t *Token) TotalSupply() (*big.Int, error) { return t.supply.Get() }

func (t *Token) BalanceOf(holder anchor.Address) (*big.Int, error) {
	return t.balances.Get(holder)
}

func (t *Token) Allowance(owner, spender anchor.Address) (*big.Int, error) {
	return t.allowances.Get(allowanceKey{owner, spender})
}

// Transfer moves amount from the caller to to.
func (t *Token) Transfer(env *xenv.Environment, to anchor.Address, amount *big.Int) error {
	return t.transfer(env, env.Caller(), to, amount)
}

// TransferFrom moves amount from from to to, spending the caller's allowance.
func (t *Token) TransferFrom(env *xenv.Environment, from, to anchor.Address, amount *big.Int) error {
	key := allowanceKey{from, env.Caller()}
	allowance, err := t.allowances.Get(key)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if allowance.Cmp(MaxAllowance) != 0 {
		if err := t.allowances.Set(key, allowance.Sub(allowance, amount)); err != nil {
			return err
		}
	}
	return t.transfer(env, from, to, amount)
}

func (t *Token) Approve(env *xenv.Environment, spender anchor.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if err := t.allowances.Set(allowanceKey{env.Caller(), spender}, amount); err != nil {
		return err
	}
	env.Log("Approval", env.Caller(), spender, new(big.Int).Set(amount))
	return nil
}

func (t *Token) Mint(env *xenv.Environment, to anchor.Address, amount *big.Int) error {
	if err := t.requireMinter(env); err != nil {
		return err
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if err := t.addBalance(to, amount); err != nil {
		return err
	}
	if err := t.supply.Add(amount); err != nil {
		return err
	}
	env.Log("Transfer", anchor.Address{}, to, new(big.Int).Set(amount))
	return nil
}

func (t *Token) Burn(env *xenv.Environment, from anchor.Address, amount *big.Int) error {
	if err := t.requireMinter(env); err != nil {
		return err
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if err := t.subBalance(from, amount); err != nil {
		return err
	}
	if err := t.supply.Sub(amount); err != nil {
		return err
	}
	env.Log("Transfer", from, anchor.Address{}, new(big.Int).Set(amount))
	return nil
}

func (t *Token) TransferMinter(env *xenv.Environment, next anchor.Address) error {
	if err := t.requireMinter(env); err != nil {
		return err
	}
	t.minter.Set(next)
	env.Log("MinterTransferred", env.Caller(), next)
	return nil
}

func (t *Token) requireMinter(env *xenv.Environment) error {
	minter, err := t.minter.Get()
	if err != nil {
		return err
	}
	if minter != env.Caller() {
		return ErrNotMinter
	}
	return nil
}

func (t *Token) transfer(env *xenv.Environment, from, to anchor.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if err := t.subBalance(from, amount); err != nil {
		return err
	}
	if err := t.addBalance(to, amount); err != nil {
		return err
	}
	env.Log("Transfer", from, to, new(big.Int).Set(amount))
	return nil
}

func (t *Token) subBalance(holder anchor.Address, amount *big.Int) error {
	bal, err := t.balances.Get(holder)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	return t.setBalance(holder, bal.Sub(bal, amount))
}

func (t *Token) addBalance(holder anchor.Address, amount *big.Int) error {
	bal, err := t.balances.Get(holder)
	if err != nil {
		return err
	}
	return t.setBalance(holder, bal.Add(bal, amount))
}

func (t *Token) setBalance(holder anchor.Address, bal *big.Int) error {
	if bal.Sign() == 0 {
		t.balances.Delete(holder)
		return nil
	}
	return t.balances.Set(holder, bal)
}
