// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package testnet runs a fully deployed protocol in memory for tests.
package testnet

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/builtin"
	"github.com/anchorprotocol/ethanchor/genesis"
	"github.com/anchorprotocol/ethanchor/logdb"
	"github.com/anchorprotocol/ethanchor/lvldb"
	"github.com/anchorprotocol/ethanchor/runtime"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/token"
	"github.com/anchorprotocol/ethanchor/xenv"
)

var (
	Owner = anchor.BytesToAddress([]byte("owner"))
	Bot   = anchor.BytesToAddress([]byte("bot"))
	User  = anchor.BytesToAddress([]byte("user"))

	// LaunchTime is the block time of the genesis transaction.
	LaunchTime = uint64(1_700_000_000)
)

// Ether returns n tokens of 18 decimals.
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

// Net is a deployed protocol over an in-memory ledger.
type Net struct {
	*genesis.Deployment
	Config *genesis.Config
	RT     *runtime.Runtime
	LogDB  *logdb.LogDB

	now uint64
}

// New deploys genesis.DevConfig, optionally tweaked by opts.
func New(t testing.TB, opts ...func(*genesis.Config)) *Net {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logDB, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { logDB.Close() })

	n := &Net{now: LaunchTime, LogDB: logDB}
	n.RT = runtime.New(db, builtin.NewRegistry(),
		runtime.WithClock(func() uint64 { return n.now }),
		runtime.WithEventWriter(logDB),
	)
	n.Config = genesis.DevConfig(Owner, Bot)
	for _, opt := range opts {
		opt(n.Config)
	}
	n.Deployment, err = genesis.Build(n.RT, n.Config)
	require.NoError(t, err)
	return n
}

// Now returns the time of the next transaction.
func (n *Net) Now() uint64 { return n.now }

// Advance moves the clock forward.
func (n *Net) Advance(seconds uint64) { n.now += seconds }

// Token returns the address of symbol.
func (n *Net) Token(t testing.TB, symbol string) anchor.Address {
	addr, ok := n.Tokens[symbol]
	require.True(t, ok, "unknown token %v", symbol)
	return addr
}

// Exec sends a transaction from origin and requires it to commit.
func (n *Net) Exec(t testing.TB, origin anchor.Address, fn func(env *xenv.Environment) error) *runtime.Receipt {
	receipt, err := n.RT.Exec(origin, fn)
	require.NoError(t, err)
	return receipt
}

// TryExec sends a transaction from origin.
func (n *Net) TryExec(origin anchor.Address, fn func(env *xenv.Environment) error) error {
	_, err := n.RT.Exec(origin, fn)
	return err
}

// View reads the committed state.
func (n *Net) View(t testing.TB, fn func(st *state.State)) {
	require.NoError(t, n.RT.View(func(st *state.State) error {
		fn(st)
		return nil
	}))
}

// Mint mints amount of symbol to holder.
func (n *Net) Mint(t testing.TB, symbol string, holder anchor.Address, amount *big.Int) {
	addr := n.Token(t, symbol)
	n.Exec(t, Owner, func(env *xenv.Environment) error {
		return token.New(addr, env.State()).Mint(env.At(addr), holder, amount)
	})
}

// Approve lets spender pull amount of symbol from holder.
func (n *Net) Approve(t testing.TB, symbol string, holder, spender anchor.Address, amount *big.Int) {
	addr := n.Token(t, symbol)
	n.Exec(t, holder, func(env *xenv.Environment) error {
		return token.New(addr, env.State()).Approve(env.At(addr), spender, amount)
	})
}

// Fund mints amount of symbol to holder and approves spender for all of it.
func (n *Net) Fund(t testing.TB, symbol string, holder, spender anchor.Address, amount *big.Int) {
	n.Mint(t, symbol, holder, amount)
	n.Approve(t, symbol, holder, spender, amount)
}

// BalanceOf returns the balance of holder in symbol.
func (n *Net) BalanceOf(t testing.TB, symbol string, holder anchor.Address) *big.Int {
	addr := n.Token(t, symbol)
	var bal *big.Int
	n.View(t, func(st *state.State) {
		var err error
		bal, err = token.New(addr, st).BalanceOf(holder)
		require.NoError(t, err)
	})
	return bal
}
