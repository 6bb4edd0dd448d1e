// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package runtime executes transactions against the native contracts.
// A transaction either commits all of its state changes and events or none.
package runtime

import (
	"encoding/binary"
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/kv"
	"github.com/anchorprotocol/ethanchor/log"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/slots"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/xenv"
)

var (
	logger = log.WithContext("pkg", "runtime")

	// head of the ledger is kept in the storage of a reserved account
	headAddress = anchor.BytesToAddress([]byte("runtime"))
	numberPos   = slots.Pos("number")
	timePos     = slots.Pos("time")
)

// Clock returns the current time in unix seconds.
type Clock func() uint64

// EventWriter persists the events of committed transactions.
type EventWriter interface {
	Write(blockCtx *xenv.BlockContext, txCtx *xenv.TransactionContext, events []xenv.Event) error
}

// Receipt describes a committed transaction.
type Receipt struct {
	Block  xenv.BlockContext
	Tx     xenv.TransactionContext
	Events []xenv.Event
}

// Option configures the runtime.
type Option func(*Runtime)

// WithClock overrides the wall clock.
func WithClock(clock Clock) Option {
	return func(rt *Runtime) { rt.clock = clock }
}

// WithEventWriter persists events of every committed transaction.
func WithEventWriter(w EventWriter) Option {
	return func(rt *Runtime) { rt.events = w }
}

// Runtime is to support transaction execution.
type Runtime struct {
	lock     sync.RWMutex
	state    *state.State
	registry *Registry
	events   EventWriter
	clock    Clock
}

// New create a Runtime object over db.
func New(db kv.Store, registry *Registry, opts ...Option) *Runtime {
	rt := &Runtime{
		state:    state.New(db),
		registry: registry,
		clock:    func() uint64 { return uint64(time.Now().Unix()) },
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Runtime) Registry() *Registry { return rt.registry }

// Head returns the context of the last committed transaction.
func (rt *Runtime) Head() (xenv.BlockContext, error) {
	rt.lock.RLock()
	defer rt.lock.RUnlock()
	return rt.head()
}

func (rt *Runtime) head() (xenv.BlockContext, error) {
	ctx := slots.NewContext(headAddress, rt.state)
	number, err := slots.NewUint256(ctx, numberPos).Get()
	if err != nil {
		return xenv.BlockContext{}, err
	}
	t, err := slots.NewUint256(ctx, timePos).Get()
	if err != nil {
		return xenv.BlockContext{}, err
	}
	return xenv.BlockContext{Number: uint32(number.Uint64()), Time: t.Uint64()}, nil
}

// Now returns the block time the next transaction would run at.
func (rt *Runtime) Now() (uint64, error) {
	head, err := rt.Head()
	if err != nil {
		return 0, err
	}
	return max(head.Time, rt.clock()), nil
}

// Exec runs fn as a transaction sent by origin. Any error returned by fn
// reverts every state change and drops every event.
func (rt *Runtime) Exec(origin anchor.Address, fn func(env *xenv.Environment) error) (*Receipt, error) {
	rt.lock.Lock()
	defer rt.lock.Unlock()

	head, err := rt.head()
	if err != nil {
		return nil, err
	}
	blockCtx := &xenv.BlockContext{
		Number: head.Number + 1,
		Time:   max(head.Time, rt.clock()),
	}
	var nbuf [4]byte
	binary.BigEndian.PutUint32(nbuf[:], blockCtx.Number)
	txCtx := &xenv.TransactionContext{
		ID:     anchor.Blake2b(nbuf[:], origin.Bytes()),
		Origin: origin,
	}

	checkpoint := rt.state.NewCheckpoint()
	env := xenv.New(rt.state, rt.registry, blockCtx, txCtx)

	if err := fn(env); err != nil {
		rt.state.RevertTo(checkpoint)
		if reverts.IsRevertErr(err) {
			metricTxCount().AddWithLabel(1, map[string]string{"result": "reverted"})
		} else {
			metricTxCount().AddWithLabel(1, map[string]string{"result": "failed"})
		}
		return nil, err
	}

	hctx := slots.NewContext(headAddress, rt.state)
	slots.NewUint256(hctx, numberPos).Set(new(big.Int).SetUint64(uint64(blockCtx.Number)))
	slots.NewUint256(hctx, timePos).Set(new(big.Int).SetUint64(blockCtx.Time))

	if err := rt.state.Commit(); err != nil {
		rt.state.RevertTo(checkpoint)
		metricTxCount().AddWithLabel(1, map[string]string{"result": "failed"})
		return nil, errors.WithMessage(err, "commit")
	}
	metricTxCount().AddWithLabel(1, map[string]string{"result": "committed"})
	if changed, hit, miss := rt.state.CacheStats(); changed {
		metricStateCache().SetWithLabel(hit, map[string]string{"event": "hit"})
		metricStateCache().SetWithLabel(miss, map[string]string{"event": "miss"})
	}

	receipt := &Receipt{Block: *blockCtx, Tx: *txCtx, Events: env.Events()}
	if rt.events != nil {
		if err := rt.events.Write(blockCtx, txCtx, receipt.Events); err != nil {
			logger.Error("failed to write events", "number", blockCtx.Number, "err", err)
		}
	}
	logger.Debug("transaction committed", "number", blockCtx.Number, "origin", origin, "events", len(receipt.Events))
	return receipt, nil
}

// View runs fn against the committed state. fn must not modify state.
func (rt *Runtime) View(fn func(st *state.State) error) error {
	rt.lock.RLock()
	defer rt.lock.RUnlock()
	return fn(rt.state)
}
