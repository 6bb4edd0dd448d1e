// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/lvldb"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/slots"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/xenv"
)

var (
	contract = anchor.BytesToAddress([]byte("contract"))
	owner    = anchor.BytesToAddress([]byte("owner"))
	operator = anchor.BytesToAddress([]byte("operator"))
	stranger = anchor.BytesToAddress([]byte("stranger"))
)

func newState(t *testing.T) *state.State {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := state.New(db)
	st.NewCheckpoint()
	return st
}

// as returns an env calling the contract from sender.
func as(st *state.State, sender anchor.Address) *xenv.Environment {
	return xenv.New(st, nil, &xenv.BlockContext{}, &xenv.TransactionContext{Origin: sender}).At(contract)
}

func TestGuard(t *testing.T) {
	st := newState(t)
	g := NewGuard(slots.NewContext(contract, st))

	env := as(st, owner)
	g.Setup(env, owner)
	assert.Equal(t, []xenv.Event{
		{Address: contract, Name: "OwnershipTransferred", Args: []any{anchor.Address{}, owner}},
		{Address: contract, Name: "OperatorTransferred", Args: []any{anchor.Address{}, owner}},
	}, env.Events())

	o, _ := g.Owner()
	assert.Equal(t, owner, o)
	op, _ := g.Operator()
	assert.Equal(t, owner, op)

	assert.ErrorIs(t, g.TransferOperator(as(st, stranger), stranger), ErrNotOwner)
	require.NoError(t, g.TransferOperator(as(st, owner), operator))

	assert.NoError(t, g.RequireOwner(as(st, owner)))
	assert.ErrorIs(t, g.RequireOperator(as(st, owner)), ErrNotOperator)
	assert.ErrorIs(t, g.RequireOwner(as(st, operator)), ErrNotOwner)
	assert.NoError(t, g.RequireOperator(as(st, operator)))
	assert.NoError(t, g.RequireGranted(as(st, owner)))
	assert.NoError(t, g.RequireGranted(as(st, operator)))

	err := g.RequireGranted(as(st, stranger))
	assert.ErrorIs(t, err, ErrNotGranted)
	assert.True(t, reverts.IsUnauthorized(err))

	env = as(st, owner)
	require.NoError(t, g.TransferOwnership(env, operator))
	assert.Equal(t, []xenv.Event{
		{Address: contract, Name: "OwnershipTransferred", Args: []any{owner, operator}},
	}, env.Events())
	ok, _ := g.IsOwner(operator)
	assert.True(t, ok)
}

func TestACL(t *testing.T) {
	st := newState(t)
	acl := NewACL(slots.NewContext(contract, st))
	acl.Setup(as(st, owner), owner)

	router := anchor.BytesToAddress([]byte("router"))
	controller := anchor.BytesToAddress([]byte("controller"))

	assert.ErrorIs(t, acl.TransferRouter(as(st, stranger), router), ErrNotOwner)
	require.NoError(t, acl.TransferRouter(as(st, owner), router))
	require.NoError(t, acl.TransferController(as(st, owner), controller))

	assert.NoError(t, acl.RequireRouter(as(st, router)))
	assert.ErrorIs(t, acl.RequireRouter(as(st, controller)), ErrNotRouter)
	assert.NoError(t, acl.RequireController(as(st, controller)))
	assert.ErrorIs(t, acl.RequireController(as(st, router)), ErrNotController)

	for _, addr := range []anchor.Address{owner, router, controller} {
		assert.NoError(t, acl.RequireGranted(as(st, addr)))
	}
	assert.ErrorIs(t, acl.RequireGranted(as(st, stranger)), ErrNotAllowed)

	r, _ := acl.Router()
	assert.Equal(t, router, r)
	c, _ := acl.Controller()
	assert.Equal(t, controller, c)
}
