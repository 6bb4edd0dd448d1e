// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package queue implements a storage backed FIFO of 32-byte items.
package queue

import (
	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/slots"
)

var ErrEmptyQueue = reverts.Exhausted("StdQueue: empty queue")

// Queue keeps items at increasing indexes in [first, last).
// Membership is not tracked, the same item may be produced twice.
type Queue struct {
	first *slots.Uint64
	last  *slots.Uint64
	items *slots.Mapping[slots.Index, anchor.Bytes32]
}

// New binds the queue named name in the storage of ctx.
func New(ctx *slots.Context, name string) *Queue {
	return &Queue{
		first: slots.NewUint64(ctx, slots.Pos(name+".first")),
		last:  slots.NewUint64(ctx, slots.Pos(name+".last")),
		items: slots.NewMapping[slots.Index, anchor.Bytes32](ctx, slots.Pos(name+".items")),
	}
}

func (q *Queue) bounds() (first, last uint64, err error) {
	if first, err = q.first.Get(); err != nil {
		return
	}
	last, err = q.last.Get()
	return
}

// Len returns the number of items queued.
func (q *Queue) Len() (uint64, error) {
	first, last, err := q.bounds()
	if err != nil {
		return 0, err
	}
	return last - first, nil
}

func (q *Queue) IsEmpty() (bool, error) {
	n, err := q.Len()
	return n == 0, err
}

// Produce appends item to the back.
func (q *Queue) Produce(item anchor.Bytes32) error {
	last, err := q.last.Get()
	if err != nil {
		return err
	}
	if err := q.items.Set(slots.Index(last), item); err != nil {
		return err
	}
	q.last.Set(last + 1)
	return nil
}

// Consume removes and returns the front item.
func (q *Queue) Consume() (anchor.Bytes32, error) {
	first, last, err := q.bounds()
	if err != nil {
		return anchor.Bytes32{}, err
	}
	if first == last {
		return anchor.Bytes32{}, ErrEmptyQueue
	}
	item, err := q.items.Get(slots.Index(first))
	if err != nil {
		return anchor.Bytes32{}, err
	}
	q.items.Delete(slots.Index(first))
	q.first.Set(first + 1)
	return item, nil
}

// ItemAt returns the item at offset index from the front, or zero when out of range.
func (q *Queue) ItemAt(index uint64) (anchor.Bytes32, error) {
	first, last, err := q.bounds()
	if err != nil {
		return anchor.Bytes32{}, err
	}
	if index >= last-first {
		return anchor.Bytes32{}, nil
	}
	return q.items.Get(slots.Index(first + index))
}
