// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/router"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/store"
	"github.com/anchorprotocol/ethanchor/test"
	"github.com/anchorprotocol/ethanchor/test/testnet"
	"github.com/anchorprotocol/ethanchor/xenv"
)

var amount = testnet.Ether(10)

func deposit(t *testing.T, n *testnet.Net) anchor.Address {
	n.Fund(t, "wUST", testnet.User, n.Router, amount)
	var id anchor.Address
	n.Exec(t, testnet.User, func(env *xenv.Environment) (err error) {
		id, err = router.New(n.Router, env.State()).DepositStable(env.At(n.Router), amount)
		return
	})
	return id
}

func newBot(n *testnet.Net, account anchor.Address) *Bot {
	return New(n.RT, n.Deployment, account, Options{
		Interval:     10 * time.Millisecond,
		MinAvailable: 2,
		RetryDelay:   time.Millisecond,
	})
}

func TestRound(t *testing.T) {
	n := testnet.New(t)
	id := deposit(t, n)
	b := newBot(n, testnet.Bot)

	// nothing has arrived yet
	report, err := b.Round(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Finished)
	assert.Zero(t, report.RatesUpdated)
	assert.Equal(t, uint64(2), report.Allocated)

	n.Mint(t, "aUST", id, amount)
	n.Advance(2 * 3600)

	report, err = b.Round(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Report{RatesUpdated: 2, Finished: 1, Flushed: 1}, report)
	assert.Equal(t, amount, n.BalanceOf(t, "aUST", testnet.User))

	n.View(t, func(st *state.State) {
		s := store.New(n.Store, st)
		status, _ := s.GetStatusOf(id)
		assert.Equal(t, store.StatusIdle, status)
		available, _ := s.AvailableCount()
		assert.Equal(t, uint64(3), available)
	})
}

func TestRoundWithoutRole(t *testing.T) {
	n := testnet.New(t)
	id := deposit(t, n)
	n.Mint(t, "aUST", id, amount)
	n.Advance(3600)

	report, err := newBot(n, anchor.BytesToAddress([]byte("stranger"))).Round(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Finished)
	assert.Zero(t, report.Flushed)
	// two rates, one finish, two flushes and one allocation
	assert.Equal(t, uint64(6), report.Reverted)
}

func TestSendRetries(t *testing.T) {
	n := testnet.New(t)
	b := newBot(n, testnet.Bot)

	var calls int
	ok, err := b.send(context.Background(), "boom", func(*xenv.Environment) error {
		calls++
		return errors.New("boom")
	})
	assert.False(t, ok)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, int(DefaultOptions.Attempts), calls)

	calls = 0
	ok, err = b.send(context.Background(), "revert", func(*xenv.Environment) error {
		calls++
		return reverts.New("nope")
	})
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRun(t *testing.T) {
	n := testnet.New(t)
	id := deposit(t, n)
	n.Mint(t, "aUST", id, amount)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		newBot(n, testnet.Bot).Run(ctx)
	}()

	err := test.Eventually(func() error {
		if n.BalanceOf(t, "aUST", testnet.User).Cmp(amount) != 0 {
			return errors.New("not finished")
		}
		return nil
	}, 10*time.Millisecond, 5*time.Second)
	cancel()
	<-done
	require.NoError(t, err)
}
