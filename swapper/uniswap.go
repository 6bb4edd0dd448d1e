// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package swapper

import (
	"bytes"
	"math/big"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/slots"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/token"
	"github.com/anchorprotocol/ethanchor/xenv"
)

// UniswapCode tags constant product swapper accounts.
const UniswapCode = "uniswap"

var (
	ErrNoPool                   = reverts.New("UniswapSwapper: pool not exists")
	ErrInsufficientOutputAmount = reverts.New("UniswapSwapper: insufficient output amount")
	ErrInsufficientLiquidity    = reverts.New("UniswapSwapper: insufficient liquidity")
	ErrIdenticalAddresses       = reverts.New("UniswapSwapper: identical addresses")
)

type pairKey struct {
	token0, token1 anchor.Address
}

func (k pairKey) Bytes() []byte {
	return append(k.token0.Bytes(), k.token1.Bytes()...)
}

// sortPair orders a and b the way pools are keyed.
func sortPair(a, b anchor.Address) (pairKey, bool) {
	if bytes.Compare(a[:], b[:]) < 0 {
		return pairKey{a, b}, false
	}
	return pairKey{b, a}, true
}

type reserves struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
}

func (r reserves) exists() bool {
	return r.Reserve0 != nil && r.Reserve0.Sign() > 0 && r.Reserve1 != nil && r.Reserve1.Sign() > 0
}

// Uniswap is a constant product market over token pairs, charging a 0.3% fee.
type Uniswap struct {
	addr  anchor.Address
	pools *slots.Mapping[pairKey, reserves]
}

func NewUniswap(addr anchor.Address, st *state.State) *Uniswap {
	return &Uniswap{
		addr:  addr,
		pools: slots.NewMapping[pairKey, reserves](slots.NewContext(addr, st), slots.Pos("pools")),
	}
}

func DeployUniswap(env *xenv.Environment, addr anchor.Address) (*Uniswap, error) {
	if err := env.Deploy(addr, []byte(UniswapCode)); err != nil {
		return nil, err
	}
	return NewUniswap(addr, env.State()), nil
}

func (u *Uniswap) Address() anchor.Address { return u.addr }

// GetAmountOut returns the output of swapping amountIn against the given reserves.
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(997))
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, big.NewInt(1000))
	denominator.Add(denominator, amountInWithFee)
	return numerator.Div(numerator, denominator)
}

// Reserves returns the pool reserves ordered as (from, to).
func (u *Uniswap) Reserves(from, to anchor.Address) (*big.Int, *big.Int, error) {
	key, flipped := sortPair(from, to)
	r, err := u.pools.Get(key)
	if err != nil {
		return nil, nil, err
	}
	if !r.exists() {
		return nil, nil, ErrNoPool
	}
	if flipped {
		return r.Reserve1, r.Reserve0, nil
	}
	return r.Reserve0, r.Reserve1, nil
}

// Quote returns the output of swapping amount of from into to.
func (u *Uniswap) Quote(from, to anchor.Address, amount *big.Int) (*big.Int, error) {
	reserveIn, reserveOut, err := u.Reserves(from, to)
	if err != nil {
		return nil, err
	}
	return GetAmountOut(amount, reserveIn, reserveOut), nil
}

// AddLiquidity pulls amountA of a and amountB of b from the caller into the pool.
func (u *Uniswap) AddLiquidity(env *xenv.Environment, a, b anchor.Address, amountA, amountB *big.Int) error {
	if a == b {
		return ErrIdenticalAddresses
	}
	if err := pull(env, a, amountA); err != nil {
		return err
	}
	if err := pull(env, b, amountB); err != nil {
		return err
	}

	key, flipped := sortPair(a, b)
	r, err := u.pools.Get(key)
	if err != nil {
		return err
	}
	if !r.exists() {
		r = reserves{new(big.Int), new(big.Int)}
	}
	if flipped {
		amountA, amountB = amountB, amountA
	}
	r.Reserve0.Add(r.Reserve0, amountA)
	r.Reserve1.Add(r.Reserve1, amountB)
	if err := u.pools.Set(key, r); err != nil {
		return err
	}
	env.Log("LiquidityAdded", key.token0, key.token1, new(big.Int).Set(amountA), new(big.Int).Set(amountB))
	return nil
}

// SwapToken implements Swapper.
func (u *Uniswap) SwapToken(env *xenv.Environment, from, to anchor.Address, amount, minAmountOut *big.Int, recipient anchor.Address) (*big.Int, error) {
	reserveIn, reserveOut, err := u.Reserves(from, to)
	if err != nil {
		return nil, err
	}
	out := GetAmountOut(amount, reserveIn, reserveOut)
	if out.Cmp(minAmountOut) < 0 {
		return nil, ErrInsufficientOutputAmount
	}
	if out.Cmp(reserveOut) >= 0 {
		return nil, ErrInsufficientLiquidity
	}

	if err := pull(env, from, amount); err != nil {
		return nil, err
	}
	if err := token.New(to, env.State()).Transfer(env.Call(to), recipient, out); err != nil {
		return nil, err
	}

	key, flipped := sortPair(from, to)
	newIn := new(big.Int).Add(reserveIn, amount)
	newOut := new(big.Int).Sub(reserveOut, out)
	r := reserves{newIn, newOut}
	if flipped {
		r = reserves{newOut, newIn}
	}
	if err := u.pools.Set(key, r); err != nil {
		return nil, err
	}
	env.Log("Swapped", from, to, new(big.Int).Set(amount), new(big.Int).Set(out), recipient)
	return out, nil
}

// pull moves amount of tok from the caller into the swapper.
func pull(env *xenv.Environment, tok anchor.Address, amount *big.Int) error {
	return token.New(tok, env.State()).TransferFrom(env.Call(tok), env.Caller(), env.To(), amount)
}
