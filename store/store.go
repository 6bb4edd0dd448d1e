// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package store tracks the status of every operation instance and which
// pool or queue currently holds it.
//
// Status is authoritative and changes immediately. Queue placement lags
// behind and is reconciled by Flush, strictly in FIFO order.
package store

import (
	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/access"
	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/queue"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/slots"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/xenv"
)

// Code tags store accounts.
const Code = "store"

var (
	ErrInvalidOperation     = reverts.New("OperationStore: zero operation")
	ErrAlreadyAllocated     = reverts.New("OperationStore: already allocated")
	ErrNotAllocated         = reverts.New("OperationStore: not allocated")
	ErrNoAvailableOperation = reverts.Exhausted("OperationStore: no available operation")
	ErrNotRunning           = reverts.New("OperationStore: not running")
	ErrNotFailed            = reverts.New("OperationStore: not failed")
	ErrInvalidStatus        = reverts.New("OperationStore: invalid status")
	ErrInvalidQueue         = reverts.New("OperationStore: invalid queue")
)

type Store struct {
	addr      anchor.Address
	acl       *access.ACL
	factory   *slots.Address
	records   *slots.Mapping[anchor.Address, record]
	available *availablePool
	running   *queue.Queue
	failed    *queue.Queue
}

func New(addr anchor.Address, st *state.State) *Store {
	ctx := slots.NewContext(addr, st)
	return &Store{
		addr:      addr,
		acl:       access.NewACL(ctx),
		factory:   slots.NewAddress(ctx, slots.Pos("factory")),
		records:   slots.NewMapping[anchor.Address, record](ctx, slots.Pos("records")),
		available: newAvailablePool(ctx),
		running:   queue.New(ctx, "running"),
		failed:    queue.New(ctx, "failed"),
	}
}

// Deploy installs a store at addr, owned by the caller of env.
func Deploy(env *xenv.Environment, addr anchor.Address) (*Store, error) {
	if err := env.Deploy(addr, []byte(Code)); err != nil {
		return nil, err
	}
	s := New(addr, env.State())
	s.acl.Setup(env.Call(addr), env.Caller())
	return s, nil
}

// At resolves the store deployed at addr.
func At(env *xenv.Environment, addr anchor.Address) (*Store, error) {
	impl, err := env.Resolve(addr)
	if err != nil {
		return nil, err
	}
	s, ok := impl.(*Store)
	if !ok {
		return nil, errors.Errorf("contract at %v is not a store", addr)
	}
	return s, nil
}

func (s *Store) Address() anchor.Address { return s.addr }

func (s *Store) ACL() *access.ACL { return s.acl }

func (s *Store) Factory() (anchor.Address, error) { return s.factory.Get() }

// SetFactory trusts factory to allocate the instances it builds.
func (s *Store) SetFactory(env *xenv.Environment, factory anchor.Address) error {
	if err := s.acl.RequireOwner(env); err != nil {
		return err
	}
	prev, err := s.factory.Get()
	if err != nil {
		return err
	}
	s.factory.Set(factory)
	env.Log("FactoryTransferred", prev, factory)
	return nil
}

func (s *Store) GetStatusOf(id anchor.Address) (Status, error) {
	r, err := s.records.Get(id)
	return r.Status, err
}

func (s *Store) GetQueueOf(id anchor.Address) (Queue, error) {
	r, err := s.records.Get(id)
	return r.Queue, err
}

func (s *Store) IsAllocated(id anchor.Address) (bool, error) {
	r, err := s.records.Get(id)
	return r.Allocated, err
}

// GetAvailableOperation returns the next idle instance, zero if none.
func (s *Store) GetAvailableOperation() (anchor.Address, error) {
	return s.available.Peek()
}

// ListAvailable returns up to limit idle instances in hand out order.
func (s *Store) ListAvailable(limit int) ([]anchor.Address, error) {
	var ids []anchor.Address
	err := s.available.Iter(func(id anchor.Address) bool {
		if len(ids) >= limit {
			return false
		}
		ids = append(ids, id)
		return true
	})
	return ids, err
}

func (s *Store) GetRunningOperationAt(index uint64) (anchor.Address, error) {
	item, err := s.running.ItemAt(index)
	return item.Address(), err
}

func (s *Store) GetFailedOperationAt(index uint64) (anchor.Address, error) {
	item, err := s.failed.ItemAt(index)
	return item.Address(), err
}

func (s *Store) AvailableCount() (uint64, error) { return s.available.Len() }
func (s *Store) RunningCount() (uint64, error)   { return s.running.Len() }
func (s *Store) FailedCount() (uint64, error)    { return s.failed.Len() }

// Allocate registers a new instance as idle and available.
func (s *Store) Allocate(env *xenv.Environment, id anchor.Address) error {
	if err := s.requireAllocator(env); err != nil {
		return err
	}
	// zero marks the ends of the available pool
	if id.IsZero() {
		return ErrInvalidOperation
	}
	r, err := s.records.Get(id)
	if err != nil {
		return err
	}
	if r.Allocated {
		return ErrAlreadyAllocated
	}
	return s.toIdle(env, id)
}

// Init hands out the next available instance, queueing it for flush when
// it finishes automatically.
func (s *Store) Init(env *xenv.Environment, autoFinish bool) (anchor.Address, error) {
	if err := s.acl.RequireGranted(env); err != nil {
		return anchor.Address{}, err
	}
	id, err := s.available.Pop()
	if err != nil {
		return anchor.Address{}, err
	}
	if id.IsZero() {
		return anchor.Address{}, ErrNoAvailableOperation
	}

	r := record{Allocated: true, Status: StatusRunningManual, Queue: QueueNone}
	if autoFinish {
		r.Status, r.Queue = StatusRunningAuto, QueueRunning
		if err := s.running.Produce(id.Bytes32()); err != nil {
			return anchor.Address{}, err
		}
	}
	if err := s.records.Set(id, r); err != nil {
		return anchor.Address{}, err
	}
	env.Log("OperationInitialized", env.Caller(), id, autoFinish)
	return id, nil
}

// Finish marks a running instance finished. A manual instance goes back to
// the available pool at once, an automatic one waits for the flush.
func (s *Store) Finish(env *xenv.Environment, id anchor.Address) error {
	if err := s.acl.RequireGranted(env); err != nil {
		return err
	}
	r, err := s.records.Get(id)
	if err != nil {
		return err
	}
	if !r.Status.IsRunning() {
		return ErrNotRunning
	}

	if r.Status == StatusRunningManual {
		env.Log("OperationFinished", env.Caller(), id)
		return s.toIdle(env, id)
	}
	r.Status = StatusFinished
	if err := s.records.Set(id, r); err != nil {
		return err
	}
	env.Log("OperationFinished", env.Caller(), id)
	return nil
}

// Fail marks an idle or running instance failed. Instances outside the
// running queue move to the failed queue at once.
func (s *Store) Fail(env *xenv.Environment, id anchor.Address) error {
	if err := s.acl.RequireGranted(env); err != nil {
		return err
	}
	r, err := s.records.Get(id)
	if err != nil {
		return err
	}
	if !r.Allocated {
		return ErrNotAllocated
	}

	switch r.Status {
	case StatusIdle:
		if err := s.available.Remove(id); err != nil {
			return err
		}
		fallthrough
	case StatusRunningManual:
		if err := s.failed.Produce(id.Bytes32()); err != nil {
			return err
		}
		r.Queue = QueueFailed
	case StatusRunningAuto:
		// left in the running queue until flushed
	default:
		return ErrInvalidStatus
	}
	r.Status = StatusFailed
	if err := s.records.Set(id, r); err != nil {
		return err
	}
	env.Log("OperationFailed", env.Caller(), id)
	return nil
}

// Halt is Fail, for instances stopped by the controller.
func (s *Store) Halt(env *xenv.Environment, id anchor.Address) error {
	return s.Fail(env, id)
}

// Recover marks a failed instance ready to go back to the available pool.
func (s *Store) Recover(env *xenv.Environment, id anchor.Address) error {
	if err := s.acl.RequireGranted(env); err != nil {
		return err
	}
	if err := s.setFailedTo(id, StatusRecovered); err != nil {
		return err
	}
	env.Log("OperationRecovered", env.Caller(), id)
	return nil
}

// Deallocate retires a failed instance for good.
func (s *Store) Deallocate(env *xenv.Environment, id anchor.Address) error {
	if err := s.requireOwnerOrController(env); err != nil {
		return err
	}
	if err := s.setFailedTo(id, StatusDeallocated); err != nil {
		return err
	}
	env.Log("OperationDeallocated", env.Caller(), id)
	return nil
}

// Flush moves up to limit instances off the front of q to where their status
// says they belong. It stops at the first instance that has to stay and
// returns how many moved.
func (s *Store) Flush(env *xenv.Environment, q Queue, limit uint64) (uint64, error) {
	if err := s.acl.RequireGranted(env); err != nil {
		return 0, err
	}
	var from *queue.Queue
	switch q {
	case QueueRunning:
		from = s.running
	case QueueFailed:
		from = s.failed
	default:
		return 0, ErrInvalidQueue
	}

	var n uint64
	for ; n < limit; n++ {
		empty, err := from.IsEmpty()
		if err != nil {
			return n, err
		}
		if empty {
			break
		}
		item, err := from.ItemAt(0)
		if err != nil {
			return n, err
		}
		id := item.Address()
		r, err := s.records.Get(id)
		if err != nil {
			return n, err
		}

		var to Queue
		switch {
		case r.Status == StatusFinished || r.Status == StatusRecovered:
			to = QueueIdle
		case r.Status == StatusDeallocated:
			to = QueueBlackhole
		case r.Status == StatusFailed && q == QueueRunning:
			to = QueueFailed
		default:
			return n, nil
		}

		if _, err := from.Consume(); err != nil {
			return n, err
		}
		switch to {
		case QueueIdle:
			if err := s.place(id, StatusIdle, QueueIdle); err != nil {
				return n, err
			}
			if err := s.available.Add(id); err != nil {
				return n, err
			}
		case QueueFailed:
			if err := s.place(id, r.Status, QueueFailed); err != nil {
				return n, err
			}
			if err := s.failed.Produce(item); err != nil {
				return n, err
			}
		case QueueBlackhole:
			if err := s.place(id, r.Status, QueueBlackhole); err != nil {
				return n, err
			}
		}
		env.Log("OperationFlushed", env.Caller(), id, q, to)
	}
	return n, nil
}

func (s *Store) setFailedTo(id anchor.Address, status Status) error {
	r, err := s.records.Get(id)
	if err != nil {
		return err
	}
	if r.Status != StatusFailed {
		return ErrNotFailed
	}
	r.Status = status
	return s.records.Set(id, r)
}

// toIdle puts id back into the available pool.
func (s *Store) toIdle(env *xenv.Environment, id anchor.Address) error {
	if err := s.place(id, StatusIdle, QueueIdle); err != nil {
		return err
	}
	if err := s.available.Add(id); err != nil {
		return err
	}
	env.Log("OperationAllocated", env.Caller(), id)
	return nil
}

func (s *Store) place(id anchor.Address, status Status, q Queue) error {
	return s.records.Set(id, record{Allocated: true, Status: status, Queue: q})
}

func (s *Store) requireAllocator(env *xenv.Environment) error {
	factory, err := s.factory.Get()
	if err != nil {
		return err
	}
	if !factory.IsZero() && env.Caller() == factory {
		return nil
	}
	return s.acl.RequireGranted(env)
}

func (s *Store) requireOwnerOrController(env *xenv.Environment) error {
	if ok, err := s.acl.IsOwner(env.Caller()); err != nil || ok {
		return err
	}
	return s.acl.RequireController(env)
}
