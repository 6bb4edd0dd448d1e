// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package bot keeps the protocol moving: it compounds exchange rates,
// finishes automatic operations whose output has arrived, flushes the store
// queues and tops up the available pool.
package bot

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/controller"
	"github.com/anchorprotocol/ethanchor/factory"
	"github.com/anchorprotocol/ethanchor/feeder"
	"github.com/anchorprotocol/ethanchor/genesis"
	"github.com/anchorprotocol/ethanchor/log"
	"github.com/anchorprotocol/ethanchor/operation"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/runtime"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/store"
	"github.com/anchorprotocol/ethanchor/token"
	"github.com/anchorprotocol/ethanchor/xenv"
)

var logger = log.WithContext("pkg", "bot")

// Options tunes the bot.
type Options struct {
	Interval     time.Duration
	Batch        uint64
	MinAvailable uint64
	Attempts     uint
	RetryDelay   time.Duration
}

// DefaultOptions are used for zero fields.
var DefaultOptions = Options{
	Interval:     10 * time.Second,
	Batch:        16,
	MinAvailable: 2,
	Attempts:     3,
	RetryDelay:   100 * time.Millisecond,
}

// Report sums up one round.
type Report struct {
	RatesUpdated uint64
	Finished     uint64
	Flushed      uint64
	Allocated    uint64
	Reverted     uint64
}

type Bot struct {
	rt      *runtime.Runtime
	d       *genesis.Deployment
	account anchor.Address
	opts    Options
}

// New creates a bot sending transactions from account, which must be the
// operator of the controller and the feeder.
func New(rt *runtime.Runtime, d *genesis.Deployment, account anchor.Address, opts Options) *Bot {
	if opts.Interval == 0 {
		opts.Interval = DefaultOptions.Interval
	}
	if opts.Batch == 0 {
		opts.Batch = DefaultOptions.Batch
	}
	if opts.Attempts == 0 {
		opts.Attempts = DefaultOptions.Attempts
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = DefaultOptions.RetryDelay
	}
	return &Bot{rt: rt, d: d, account: account, opts: opts}
}

// Run runs a round every interval until ctx is done.
func (b *Bot) Run(ctx context.Context) {
	logger.Info("bot started", "account", b.account, "interval", b.opts.Interval)
	defer logger.Info("bot stopped")

	ticker := time.NewTicker(b.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			report, err := b.Round(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				metricRoundCount().AddWithLabel(1, map[string]string{"result": "failed"})
				logger.Warn("round failed", "err", err)
				continue
			}
			metricRoundCount().AddWithLabel(1, map[string]string{"result": "ok"})
			metricRoundDuration().ObserveWithLabels(time.Since(start).Milliseconds(), nil)
			logger.Debug("round done",
				"rates", report.RatesUpdated,
				"finished", report.Finished,
				"flushed", report.Flushed,
				"allocated", report.Allocated,
				"reverted", report.Reverted)
		}
	}
}

// Round performs one pass over all duties. Reverted transactions are
// counted and skipped, other errors abort the round.
func (b *Bot) Round(ctx context.Context) (*Report, error) {
	var report Report
	steps := []struct {
		name string
		fn   func(context.Context, *Report) error
	}{
		{"rates", b.updateRates},
		{"finish", b.finishArrived},
		{"flush", b.flush},
		{"allocate", b.topUp},
	}
	for _, step := range steps {
		if err := step.fn(ctx, &report); err != nil {
			return &report, errors.WithMessage(err, step.name)
		}
	}
	if err := b.observeQueues(); err != nil {
		return &report, errors.WithMessage(err, "observe")
	}
	return &report, nil
}

// send executes fn, retrying failures that are not reverts.
// It reports whether the transaction committed.
func (b *Bot) send(ctx context.Context, what string, fn func(env *xenv.Environment) error) (bool, error) {
	err := retry.Do(
		func() error {
			_, err := b.rt.Exec(b.account, fn)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(b.opts.Attempts),
		retry.Delay(b.opts.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return !reverts.IsRevertErr(err) }),
		retry.OnRetry(func(attempt uint, err error) {
			logger.Debug("retrying", "what", what, "attempt", attempt, "err", err)
		}),
	)
	if err == nil {
		metricTxCount().AddWithLabel(1, map[string]string{"what": what, "result": "committed"})
		return true, nil
	}
	if reverts.IsRevertErr(err) {
		metricTxCount().AddWithLabel(1, map[string]string{"what": what, "result": "reverted"})
		logger.Debug("transaction reverted", "what", what, "err", err)
		return false, nil
	}
	metricTxCount().AddWithLabel(1, map[string]string{"what": what, "result": "failed"})
	return false, err
}

func (b *Bot) updateRates(ctx context.Context, report *Report) error {
	now, err := b.rt.Now()
	if err != nil {
		return err
	}
	var due []anchor.Address
	if err := b.rt.View(func(st *state.State) error {
		f := feeder.New(b.d.Feeder, st)
		for _, addr := range b.d.Tokens {
			tok, err := f.Tokens(addr)
			if err != nil {
				if errors.Is(err, feeder.ErrTokenNotFound) {
					continue
				}
				return err
			}
			if tok.Status == feeder.StatusRunning && now >= tok.LastUpdatedAt+tok.Period {
				due = append(due, addr)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	for _, addr := range due {
		ok, err := b.send(ctx, "update", func(env *xenv.Environment) error {
			f, err := feeder.At(env, b.d.Feeder)
			if err != nil {
				return err
			}
			return f.Update(env.At(b.d.Feeder), addr)
		})
		if err != nil {
			return err
		}
		b.tally(report, ok, &report.RatesUpdated)
	}
	return nil
}

// arrived lists automatic operations in the running queue whose output is
// already held by the instance.
func (b *Bot) arrived() ([]anchor.Address, error) {
	var ids []anchor.Address
	err := b.rt.View(func(st *state.State) error {
		s := store.New(b.d.Store, st)
		n, err := s.RunningCount()
		if err != nil {
			return err
		}
		for i := uint64(0); i < n && uint64(len(ids)) < b.opts.Batch; i++ {
			id, err := s.GetRunningOperationAt(i)
			if err != nil {
				return err
			}
			status, err := s.GetStatusOf(id)
			if err != nil {
				return err
			}
			if status != store.StatusRunningAuto {
				continue
			}
			info, err := operation.New(id, st).GetCurrentStatus()
			if err != nil {
				return err
			}
			if info.Status != operation.StatusRunning {
				continue
			}
			bal, err := token.New(info.Output, st).BalanceOf(id)
			if err != nil {
				return err
			}
			if bal.Cmp(info.Amount) >= 0 {
				ids = append(ids, id)
			}
		}
		return nil
	})
	return ids, err
}

func (b *Bot) finishArrived(ctx context.Context, report *Report) error {
	ids, err := b.arrived()
	if err != nil {
		return err
	}
	for _, id := range ids {
		ok, err := b.send(ctx, "finish", func(env *xenv.Environment) error {
			c, err := controller.At(env, b.d.Controller)
			if err != nil {
				return err
			}
			return c.Finish(env.At(b.d.Controller), id)
		})
		if err != nil {
			return err
		}
		b.tally(report, ok, &report.Finished)
	}
	return nil
}

func (b *Bot) flush(ctx context.Context, report *Report) error {
	for _, stopped := range []bool{false, true} {
		var moved uint64
		ok, err := b.send(ctx, "flush", func(env *xenv.Environment) error {
			c, err := controller.At(env, b.d.Controller)
			if err != nil {
				return err
			}
			if stopped {
				moved, err = c.FlushStopped(env.At(b.d.Controller), b.opts.Batch)
			} else {
				moved, err = c.Flush(env.At(b.d.Controller), b.opts.Batch)
			}
			return err
		})
		if err != nil {
			return err
		}
		if ok {
			report.Flushed += moved
		} else {
			report.Reverted++
		}
	}
	return nil
}

// topUp builds instances until MinAvailable are idle, bounded by the terra
// addresses left.
func (b *Bot) topUp(ctx context.Context, report *Report) error {
	if b.opts.MinAvailable == 0 {
		return nil
	}
	var want uint64
	if err := b.rt.View(func(st *state.State) error {
		available, err := store.New(b.d.Store, st).AvailableCount()
		if err != nil {
			return err
		}
		left, err := factory.New(b.d.Factory, st).TerraAddressCount()
		if err != nil {
			return err
		}
		if available < b.opts.MinAvailable {
			want = min(b.opts.MinAvailable-available, left)
		}
		if left == 0 && available < b.opts.MinAvailable {
			logger.Warn("terra address pool is empty", "available", available)
		}
		return nil
	}); err != nil {
		return err
	}
	if want == 0 {
		return nil
	}

	var built []anchor.Address
	ok, err := b.send(ctx, "allocate", func(env *xenv.Environment) (err error) {
		c, err := controller.At(env, b.d.Controller)
		if err != nil {
			return err
		}
		built, err = c.Allocate(env.At(b.d.Controller), want)
		return err
	})
	if err != nil {
		return err
	}
	if ok {
		report.Allocated += uint64(len(built))
	} else {
		report.Reverted++
	}
	return nil
}

func (b *Bot) tally(report *Report, ok bool, counter *uint64) {
	if ok {
		*counter++
	} else {
		report.Reverted++
	}
}

func (b *Bot) observeQueues() error {
	return b.rt.View(func(st *state.State) error {
		s := store.New(b.d.Store, st)
		for _, q := range []struct {
			name  string
			count func() (uint64, error)
		}{
			{"available", s.AvailableCount},
			{"running", s.RunningCount},
			{"failed", s.FailedCount},
		} {
			n, err := q.count()
			if err != nil {
				return err
			}
			metricQueueLength().SetWithLabel(int64(n), map[string]string{"queue": q.name})
		}
		left, err := factory.New(b.d.Factory, st).TerraAddressCount()
		if err != nil {
			return err
		}
		metricQueueLength().SetWithLabel(int64(left), map[string]string{"queue": "terra"})
		return nil
	})
}
