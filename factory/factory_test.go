// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorprotocol/ethanchor/access"
	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/factory"
	"github.com/anchorprotocol/ethanchor/genesis"
	"github.com/anchorprotocol/ethanchor/operation"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/store"
	"github.com/anchorprotocol/ethanchor/test/datagen"
	"github.com/anchorprotocol/ethanchor/test/testnet"
	"github.com/anchorprotocol/ethanchor/xenv"
)

var (
	hash1 = anchor.MustParseBytes32("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	hash2 = anchor.MustParseBytes32("0xbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdead")

	stranger = anchor.BytesToAddress([]byte("stranger"))
)

func newNet(t *testing.T) *testnet.Net {
	return testnet.New(t, func(cfg *genesis.Config) {
		cfg.TerraAddresses = []anchor.Bytes32{hash1, hash2}
	})
}

func build(n *testnet.Net, from anchor.Address) (anchor.Address, []xenv.Event, error) {
	var id anchor.Address
	receipt, err := n.RT.Exec(from, func(env *xenv.Environment) error {
		f, err := factory.At(env, n.Factory)
		if err != nil {
			return err
		}
		id, err = f.Build(env.At(n.Factory), genesis.StdOptID)
		return err
	})
	if err != nil {
		return anchor.Address{}, nil, err
	}
	return id, receipt.Events, nil
}

func TestBuild(t *testing.T) {
	n := newNet(t)

	n.View(t, func(st *state.State) {
		next, err := factory.New(n.Factory, st).FetchNextTerraAddress()
		require.NoError(t, err)
		assert.Equal(t, hash1, next)
	})

	id, events, err := build(n, testnet.Owner)
	require.NoError(t, err)
	assert.Equal(t, anchor.CreateContractAddress(n.Factory, 0), id)
	assert.NotEqual(t, n.Operation, id)
	assert.Contains(t, events, xenv.Event{Address: n.Factory, Name: "ContractDeployed", Args: []any{id, n.Controller, hash1}})
	assert.Contains(t, events, xenv.Event{Address: n.Store, Name: "OperationAllocated", Args: []any{n.Factory, id}})

	n.View(t, func(st *state.State) {
		cfg, err := operation.New(id, st).Config()
		require.NoError(t, err)
		assert.Equal(t, hash1, cfg.TerraAddress)
		assert.Equal(t, n.Router, cfg.Router)
		assert.Equal(t, n.Controller, cfg.Controller)
		assert.Equal(t, n.Tokens["wUST"], cfg.WrappedStable)

		master, err := operation.New(n.Operation, st).TerraAddress()
		require.NoError(t, err)
		assert.True(t, master.IsZero())

		s := store.New(n.Store, st)
		status, _ := s.GetStatusOf(id)
		assert.Equal(t, store.StatusIdle, status)
		next, _ := s.GetAvailableOperation()
		assert.Equal(t, id, next)
	})

	// router and controller may build too
	id2, _, err := build(n, n.Router)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
	n.View(t, func(st *state.State) {
		terra, _ := operation.New(id2, st).TerraAddress()
		assert.Equal(t, hash2, terra)
	})
}

func TestBuildWithoutTerraAddress(t *testing.T) {
	n := newNet(t)
	for range 2 {
		_, _, err := build(n, testnet.Owner)
		require.NoError(t, err)
	}

	_, _, err := build(n, testnet.Owner)
	assert.ErrorIs(t, err, factory.ErrNoTerraAddress)
	assert.EqualError(t, err, "OperationFactory: no terra address available")
	kind, _ := reverts.KindOf(err)
	assert.Equal(t, reverts.KindExhausted, kind)

	n.View(t, func(st *state.State) {
		count, _ := store.New(n.Store, st).AvailableCount()
		assert.Equal(t, uint64(2), count)
		left, _ := factory.New(n.Factory, st).TerraAddressCount()
		assert.Zero(t, left)
	})

	// refilled pool builds again
	n.Exec(t, testnet.Owner, func(env *xenv.Environment) error {
		return factory.New(n.Factory, env.State()).PushTerraAddresses(env.At(n.Factory), []anchor.Bytes32{hash1})
	})
	_, _, err = build(n, testnet.Owner)
	assert.NoError(t, err)
}

func TestPermissions(t *testing.T) {
	n := newNet(t)

	_, _, err := build(n, stranger)
	assert.ErrorIs(t, err, access.ErrNotAllowed)

	err = n.TryExec(stranger, func(env *xenv.Environment) error {
		return factory.New(n.Factory, env.State()).PushTerraAddresses(env.At(n.Factory), []anchor.Bytes32{hash1})
	})
	assert.ErrorIs(t, err, access.ErrNotOwner)

	err = n.TryExec(stranger, func(env *xenv.Environment) error {
		_, err := factory.New(n.Factory, env.State()).PushStandardOperation(env.At(n.Factory), n.Router, n.Controller, n.Operation)
		return err
	})
	assert.ErrorIs(t, err, access.ErrNotOwner)
}

func TestStandards(t *testing.T) {
	n := newNet(t)
	other := anchor.BytesToAddress([]byte("other"))

	err := n.TryExec(testnet.Owner, func(env *xenv.Environment) error {
		return factory.New(n.Factory, env.State()).SetStandardOperation(env.At(n.Factory), 2, other, other, other)
	})
	assert.ErrorIs(t, err, factory.ErrInvalidStandard)

	receipt := n.Exec(t, testnet.Owner, func(env *xenv.Environment) error {
		idx, err := factory.New(n.Factory, env.State()).PushStandardOperation(env.At(n.Factory), other, other, n.Operation)
		assert.Equal(t, uint64(1), idx)
		return err
	})
	assert.Equal(t, []xenv.Event{
		{Address: n.Factory, Name: "StandardOperationSet", Args: []any{uint64(1), other, other, n.Operation}},
	}, receipt.Events)

	n.Exec(t, testnet.Owner, func(env *xenv.Environment) error {
		return factory.New(n.Factory, env.State()).SetStandardOperation(env.At(n.Factory), 0, n.Router, other, n.Operation)
	})
	n.View(t, func(st *state.State) {
		f := factory.New(n.Factory, st)
		count, _ := f.StandardCount()
		assert.Equal(t, uint64(2), count)
		std, err := f.Standards(0)
		require.NoError(t, err)
		assert.Equal(t, other, std.Controller)
		_, err = f.Standards(2)
		assert.ErrorIs(t, err, factory.ErrInvalidStandard)
	})
}

func TestTerraAddressesBindInOrder(t *testing.T) {
	addrs := datagen.RandBytes32s(2 + datagen.RandIntN(6))
	n := testnet.New(t, func(cfg *genesis.Config) { cfg.TerraAddresses = addrs })

	for i, want := range addrs {
		id, _, err := build(n, testnet.Owner)
		require.NoError(t, err)
		assert.Equal(t, anchor.CreateContractAddress(n.Factory, uint64(i)), id)
		n.View(t, func(st *state.State) {
			got, err := operation.New(id, st).TerraAddress()
			require.NoError(t, err)
			assert.Equal(t, want, got, "instance %d", i)
		})
	}
	_, _, err := build(n, testnet.Owner)
	assert.ErrorIs(t, err, factory.ErrNoTerraAddress)
}
