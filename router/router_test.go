// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package router_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorprotocol/ethanchor/access"
	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/factory"
	"github.com/anchorprotocol/ethanchor/genesis"
	"github.com/anchorprotocol/ethanchor/operation"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/router"
	"github.com/anchorprotocol/ethanchor/runtime"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/store"
	"github.com/anchorprotocol/ethanchor/swapper"
	"github.com/anchorprotocol/ethanchor/test/testnet"
	"github.com/anchorprotocol/ethanchor/xenv"
)

var (
	user     = testnet.User
	stranger = anchor.BytesToAddress([]byte("stranger"))
	amount   = testnet.Ether(10)
)

type entry func(r *router.Router, env *xenv.Environment, amount *big.Int) (anchor.Address, error)

func send(n *testnet.Net, from anchor.Address, fn func(r *router.Router, env *xenv.Environment) error) (*runtime.Receipt, error) {
	return n.RT.Exec(from, func(env *xenv.Environment) error {
		r, err := router.At(env, n.Router)
		if err != nil {
			return err
		}
		return fn(r, env.At(n.Router))
	})
}

func dispatch(t *testing.T, n *testnet.Net, fn entry) (anchor.Address, *runtime.Receipt) {
	var id anchor.Address
	receipt, err := send(n, user, func(r *router.Router, env *xenv.Environment) (err error) {
		id, err = fn(r, env, amount)
		return
	})
	require.NoError(t, err)
	return id, receipt
}

func finish(n *testnet.Net, from, id anchor.Address) error {
	_, err := send(n, from, func(r *router.Router, env *xenv.Environment) error {
		return r.Finish(env, id)
	})
	return err
}

func infoOf(t *testing.T, n *testnet.Net, id anchor.Address) operation.Info {
	var info operation.Info
	n.View(t, func(st *state.State) {
		var err error
		info, err = operation.New(id, st).GetCurrentStatus()
		require.NoError(t, err)
	})
	return info
}

func recordOf(t *testing.T, n *testnet.Net, id anchor.Address) (store.Status, store.Queue) {
	var (
		status store.Status
		q      store.Queue
	)
	n.View(t, func(st *state.State) {
		s := store.New(n.Store, st)
		status, _ = s.GetStatusOf(id)
		q, _ = s.GetQueueOf(id)
	})
	return status, q
}

func TestDepositStable(t *testing.T) {
	n := testnet.New(t)
	n.Fund(t, "wUST", user, n.Router, amount)

	id, receipt := dispatch(t, n, (*router.Router).DepositStable)
	assert.Equal(t, anchor.CreateContractAddress(n.Factory, 0), id)

	var terra anchor.Bytes32
	n.View(t, func(st *state.State) {
		terra, _ = operation.New(id, st).TerraAddress()
	})
	assert.Equal(t, n.Config.TerraAddresses[0], terra)
	assert.Contains(t, receipt.Events, xenv.Event{Address: id, Name: "InitDeposit", Args: []any{user, amount, terra}})
	assert.Contains(t, receipt.Events, xenv.Event{Address: id, Name: "AutoFinishEnabled", Args: []any{id}})
	assert.Contains(t, receipt.Events, xenv.Event{Address: n.Store, Name: "OperationInitialized", Args: []any{n.Router, id, true}})

	assert.Zero(t, n.BalanceOf(t, "wUST", user).Sign())
	assert.Zero(t, n.BalanceOf(t, "wUST", n.Router).Sign())
	assert.Zero(t, n.BalanceOf(t, "wUST", id).Sign())
	assert.Equal(t, amount, n.BalanceOf(t, "wUST", n.Bridge))

	info := infoOf(t, n, id)
	assert.Equal(t, operation.StatusRunning, info.Status)
	assert.Equal(t, operation.TypeDeposit, info.Typ)
	assert.Equal(t, user, info.Operator)
	status, q := recordOf(t, n, id)
	assert.Equal(t, store.StatusRunningAuto, status)
	assert.Equal(t, store.QueueRunning, q)

	// nothing to pay out yet
	assert.ErrorIs(t, finish(n, stranger, id), operation.ErrInsufficientOutputBalance)

	// aUST arrives from the other side of the bridge
	n.Mint(t, "aUST", id, amount)
	require.NoError(t, finish(n, stranger, id))
	assert.Equal(t, amount, n.BalanceOf(t, "aUST", user))
	assert.True(t, infoOf(t, n, id).IsNeutral())
	status, q = recordOf(t, n, id)
	assert.Equal(t, store.StatusFinished, status)
	assert.Equal(t, store.QueueRunning, q)

	assert.ErrorIs(t, finish(n, stranger, id), operation.ErrNotRunning)

	// flushed back to the pool
	receipt, err := send(n, testnet.Bot, func(r *router.Router, env *xenv.Environment) error {
		moved, err := r.Flush(env, 10)
		assert.Equal(t, uint64(1), moved)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []xenv.Event{
		{Address: n.Store, Name: "OperationFlushed", Args: []any{n.Router, id, store.QueueRunning, store.QueueIdle}},
	}, receipt.Events)
	n.View(t, func(st *state.State) {
		next, _ := store.New(n.Store, st).GetAvailableOperation()
		assert.Equal(t, id, next)
	})

	// the idle instance is reused
	n.Fund(t, "wUST", user, n.Router, amount)
	again, _ := dispatch(t, n, (*router.Router).DepositStable)
	assert.Equal(t, id, again)
}

func TestInitRedeemStable(t *testing.T) {
	n := testnet.New(t)
	n.Fund(t, "aUST", user, n.Router, amount)

	id, receipt := dispatch(t, n, (*router.Router).InitRedeemStable)
	for _, ev := range receipt.Events {
		assert.NotEqual(t, "AutoFinishEnabled", ev.Name)
	}
	status, q := recordOf(t, n, id)
	assert.Equal(t, store.StatusRunningManual, status)
	assert.Equal(t, store.QueueNone, q)
	assert.Equal(t, amount, n.BalanceOf(t, "aUST", n.Bridge))

	n.Mint(t, "wUST", id, amount)
	require.NoError(t, finish(n, user, id))
	assert.Equal(t, amount, n.BalanceOf(t, "wUST", user))

	// manual instances skip the flush
	status, q = recordOf(t, n, id)
	assert.Equal(t, store.StatusIdle, status)
	assert.Equal(t, store.QueueIdle, q)
}

func TestReusedInstanceNeedsSettlement(t *testing.T) {
	n := testnet.New(t)
	n.Fund(t, "wUST", user, n.Router, amount)

	id, _ := dispatch(t, n, (*router.Router).DepositStable)
	n.Mint(t, "aUST", id, amount)
	require.NoError(t, finish(n, user, id))
	_, err := send(n, testnet.Bot, func(r *router.Router, env *xenv.Environment) error {
		_, err := r.Flush(env, 1)
		return err
	})
	require.NoError(t, err)

	// a second user redeems on the recycled instance
	other := anchor.BytesToAddress([]byte("other"))
	n.Fund(t, "aUST", other, n.Router, amount)
	var again anchor.Address
	_, err = send(n, other, func(r *router.Router, env *xenv.Environment) (err error) {
		again, err = r.RedeemStable(env, amount)
		return
	})
	require.NoError(t, err)
	require.Equal(t, id, again)

	assert.ErrorIs(t, finish(n, other, id), operation.ErrInsufficientOutputBalance)
	assert.Zero(t, n.BalanceOf(t, "wUST", other).Sign())
	assert.Zero(t, n.BalanceOf(t, "wUST", id).Sign())

	n.Mint(t, "wUST", id, amount)
	require.NoError(t, finish(n, other, id))
	assert.Equal(t, amount, n.BalanceOf(t, "wUST", other))
}

func TestRedeemStableForWithConversion(t *testing.T) {
	n := testnet.New(t)
	n.Fund(t, "aUST", user, n.Router, amount)
	dai := n.Token(t, "DAI")

	var quote *big.Int
	n.View(t, func(st *state.State) {
		var err error
		quote, err = swapper.NewUniswap(n.Swapper, st).Quote(n.Token(t, "wUST"), dai, amount)
		require.NoError(t, err)
	})

	id, _ := dispatch(t, n, func(r *router.Router, env *xenv.Environment, amount *big.Int) (anchor.Address, error) {
		return r.RedeemStableFor(env, user, amount, n.Swapper, dai, false)
	})
	info := infoOf(t, n, id)
	assert.Equal(t, n.Swapper, info.Swapper)
	assert.Equal(t, dai, info.SwapDest)

	n.Mint(t, "wUST", id, amount)

	// only the operator picks the bound on the proceeds
	assert.ErrorIs(t, finish(n, stranger, id), router.ErrNotActionOperator)
	_, err := send(n, stranger, func(r *router.Router, env *xenv.Environment) error {
		return r.FinishWithMin(env, id, quote)
	})
	assert.ErrorIs(t, err, router.ErrNotActionOperator)
	assert.True(t, reverts.IsUnauthorized(err))

	_, err = send(n, user, func(r *router.Router, env *xenv.Environment) error {
		return r.FinishWithMin(env, id, new(big.Int).Add(quote, big.NewInt(1)))
	})
	assert.ErrorIs(t, err, swapper.ErrInsufficientOutputAmount)

	require.NoError(t, finish(n, user, id))
	assert.Equal(t, quote, n.BalanceOf(t, "DAI", user))
	assert.Zero(t, n.BalanceOf(t, "wUST", id).Sign())
}

func TestDispatchReverts(t *testing.T) {
	n := testnet.New(t, func(cfg *genesis.Config) { cfg.TerraAddresses = nil })
	n.Fund(t, "wUST", user, n.Router, amount)

	_, err := send(n, user, func(r *router.Router, env *xenv.Environment) error {
		_, err := r.DepositStable(env, amount)
		return err
	})
	assert.ErrorIs(t, err, factory.ErrNoTerraAddress)
	assert.Equal(t, amount, n.BalanceOf(t, "wUST", user))
}

func TestZeroAmount(t *testing.T) {
	n := testnet.New(t)
	_, err := send(n, user, func(r *router.Router, env *xenv.Environment) error {
		_, err := r.InitDepositStable(env, new(big.Int))
		return err
	})
	assert.ErrorIs(t, err, operation.ErrInvalidAmount)

	// the build rolled back with it
	n.View(t, func(st *state.State) {
		count, _ := store.New(n.Store, st).AvailableCount()
		assert.Zero(t, count)
	})
}

func TestAllocateAndFlushPermissions(t *testing.T) {
	n := testnet.New(t)

	_, err := send(n, stranger, func(r *router.Router, env *xenv.Environment) error {
		_, err := r.Allocate(env, 1)
		return err
	})
	assert.ErrorIs(t, err, access.ErrNotGranted)
	_, err = send(n, stranger, func(r *router.Router, env *xenv.Environment) error {
		_, err := r.Flush(env, 1)
		return err
	})
	assert.ErrorIs(t, err, access.ErrNotGranted)

	var ids []anchor.Address
	_, err = send(n, testnet.Bot, func(r *router.Router, env *xenv.Environment) (err error) {
		ids, err = r.Allocate(env, 3)
		return
	})
	require.NoError(t, err)
	require.Len(t, ids, 3)

	_, err = send(n, testnet.Bot, func(r *router.Router, env *xenv.Environment) error {
		_, err := r.Allocate(env, 1<<62)
		return err
	})
	assert.ErrorIs(t, err, factory.ErrNoTerraAddress)
	n.View(t, func(st *state.State) {
		listed, err := store.New(n.Store, st).ListAvailable(10)
		require.NoError(t, err)
		assert.ElementsMatch(t, ids, listed)
	})
}

func TestInitialize(t *testing.T) {
	n := testnet.New(t)
	_, err := send(n, testnet.Owner, func(r *router.Router, env *xenv.Environment) error {
		return r.Initialize(env, n.Store, 0, n.Factory, n.Tokens["wUST"], n.Tokens["aUST"])
	})
	assert.ErrorIs(t, err, router.ErrAlreadyInitialized)

	_, err = send(n, testnet.Bot, func(r *router.Router, env *xenv.Environment) error {
		return r.Initialize(env, n.Store, 0, n.Factory, n.Tokens["wUST"], n.Tokens["aUST"])
	})
	assert.ErrorIs(t, err, access.ErrNotOwner)
}
