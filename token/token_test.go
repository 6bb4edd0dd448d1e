// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/lvldb"
	"github.com/anchorprotocol/ethanchor/runtime"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/token"
	"github.com/anchorprotocol/ethanchor/xenv"
)

var (
	owner   = anchor.BytesToAddress([]byte("owner"))
	alice   = anchor.BytesToAddress([]byte("alice"))
	bob     = anchor.BytesToAddress([]byte("bob"))
	tokAddr = anchor.CreateContractAddress(owner, 0)
)

func setup(t *testing.T) *runtime.Runtime {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	registry := runtime.NewRegistry()
	registry.Register(token.Code, func(addr anchor.Address, st *state.State) any { return token.New(addr, st) })
	rt := runtime.New(db, registry)

	_, err = rt.Exec(owner, func(env *xenv.Environment) error {
		_, err := token.Deploy(env, tokAddr, "Wrapped UST", "wUST", 18, owner)
		return err
	})
	require.NoError(t, err)
	return rt
}

// send executes fn against the token as a transaction from sender.
func send(rt *runtime.Runtime, sender anchor.Address, fn func(tok *token.Token, env *xenv.Environment) error) (*runtime.Receipt, error) {
	return rt.Exec(sender, func(env *xenv.Environment) error {
		return fn(token.New(tokAddr, env.State()), env.At(tokAddr))
	})
}

func balanceOf(t *testing.T, rt *runtime.Runtime, holder anchor.Address) *big.Int {
	var bal *big.Int
	require.NoError(t, rt.View(func(st *state.State) (err error) {
		bal, err = token.New(tokAddr, st).BalanceOf(holder)
		return
	}))
	return bal
}

func TestMetadata(t *testing.T) {
	rt := setup(t)
	require.NoError(t, rt.View(func(st *state.State) error {
		tok := token.New(tokAddr, st)
		name, _ := tok.Name()
		symbol, _ := tok.Symbol()
		decimals, _ := tok.Decimals()
		minter, _ := tok.Minter()
		assert.Equal(t, "Wrapped UST", name)
		assert.Equal(t, "wUST", symbol)
		assert.Equal(t, uint8(18), decimals)
		assert.Equal(t, owner, minter)
		return nil
	}))

	_, err := send(rt, owner, func(tok *token.Token, env *xenv.Environment) error {
		return tok.Initialize(env, "x", "x", 0, owner)
	})
	assert.ErrorIs(t, err, token.ErrAlreadyInitialized)
}

func TestTransfer(t *testing.T) {
	rt := setup(t)

	receipt, err := send(rt, owner, func(tok *token.Token, env *xenv.Environment) error {
		return tok.Mint(env, alice, big.NewInt(100))
	})
	require.NoError(t, err)
	assert.Equal(t, []xenv.Event{
		{Address: tokAddr, Name: "Transfer", Args: []any{anchor.Address{}, alice, big.NewInt(100)}},
	}, receipt.Events)

	_, err = send(rt, alice, func(tok *token.Token, env *xenv.Environment) error {
		return tok.Mint(env, alice, big.NewInt(1))
	})
	assert.ErrorIs(t, err, token.ErrNotMinter)

	_, err = send(rt, alice, func(tok *token.Token, env *xenv.Environment) error {
		return tok.Transfer(env, bob, big.NewInt(30))
	})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(70), balanceOf(t, rt, alice))
	assert.Equal(t, big.NewInt(30), balanceOf(t, rt, bob))

	_, err = send(rt, bob, func(tok *token.Token, env *xenv.Environment) error {
		return tok.Transfer(env, alice, big.NewInt(31))
	})
	assert.ErrorIs(t, err, token.ErrInsufficientBalance)

	_, err = send(rt, bob, func(tok *token.Token, env *xenv.Environment) error {
		return tok.Transfer(env, alice, big.NewInt(-1))
	})
	assert.ErrorIs(t, err, token.ErrNegativeAmount)
}

func TestTransferFrom(t *testing.T) {
	rt := setup(t)

	_, err := send(rt, owner, func(tok *token.Token, env *xenv.Environment) error {
		return tok.Mint(env, alice, big.NewInt(100))
	})
	require.NoError(t, err)

	_, err = send(rt, bob, func(tok *token.Token, env *xenv.Environment) error {
		return tok.TransferFrom(env, alice, bob, big.NewInt(10))
	})
	assert.ErrorIs(t, err, token.ErrInsufficientAllowance)

	receipt, err := send(rt, alice, func(tok *token.Token, env *xenv.Environment) error {
		return tok.Approve(env, bob, big.NewInt(50))
	})
	require.NoError(t, err)
	assert.Equal(t, "Approval", receipt.Events[0].Name)

	_, err = send(rt, bob, func(tok *token.Token, env *xenv.Environment) error {
		return tok.TransferFrom(env, alice, bob, big.NewInt(20))
	})
	require.NoError(t, err)

	require.NoError(t, rt.View(func(st *state.State) error {
		allowance, err := token.New(tokAddr, st).Allowance(alice, bob)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(30), allowance)
		return nil
	}))

	// unlimited allowance is never spent
	_, err = send(rt, alice, func(tok *token.Token, env *xenv.Environment) error {
		return tok.Approve(env, bob, token.MaxAllowance)
	})
	require.NoError(t, err)
	_, err = send(rt, bob, func(tok *token.Token, env *xenv.Environment) error {
		return tok.TransferFrom(env, alice, bob, big.NewInt(80))
	})
	require.NoError(t, err)
	require.NoError(t, rt.View(func(st *state.State) error {
		allowance, _ := token.New(tokAddr, st).Allowance(alice, bob)
		assert.Equal(t, token.MaxAllowance, allowance)
		return nil
	}))
	assert.Equal(t, 0, balanceOf(t, rt, alice).Sign())
	assert.Equal(t, big.NewInt(100), balanceOf(t, rt, bob))
}

func TestBurn(t *testing.T) {
	rt := setup(t)

	_, err := send(rt, owner, func(tok *token.Token, env *xenv.Environment) error {
		if err := tok.Mint(env, alice, big.NewInt(10)); err != nil {
			return err
		}
		return tok.Burn(env, alice, big.NewInt(4))
	})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(6), balanceOf(t, rt, alice))

	require.NoError(t, rt.View(func(st *state.State) error {
		supply, _ := token.New(tokAddr, st).TotalSupply()
		assert.Equal(t, big.NewInt(6), supply)
		return nil
	}))

	_, err = send(rt, owner, func(tok *token.Token, env *xenv.Environment) error {
		return tok.TransferMinter(env, bob)
	})
	require.NoError(t, err)
	_, err = send(rt, owner, func(tok *token.Token, env *xenv.Environment) error {
		return tok.Burn(env, alice, big.NewInt(1))
	})
	assert.ErrorIs(t, err, token.ErrNotMinter)
}
