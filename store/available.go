// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/slots"
)

type link struct {
	Prev anchor.Address
	Next anchor.Address
}

// availablePool is a doubly linked list of idle instances. Instances are
// handed out from the head and returned at the tail, and one failing while
// idle is unlinked in place.
type availablePool struct {
	head  *slots.Address
	tail  *slots.Address
	count *slots.Uint64
	links *slots.Mapping[anchor.Address, link]
}

func newAvailablePool(ctx *slots.Context) *availablePool {
	return &availablePool{
		head:  slots.NewAddress(ctx, slots.Pos("available.head")),
		tail:  slots.NewAddress(ctx, slots.Pos("available.tail")),
		count: slots.NewUint64(ctx, slots.Pos("available.count")),
		links: slots.NewMapping[anchor.Address, link](ctx, slots.Pos("available.links")),
	}
}

// Peek returns the head, zero when empty.
func (p *availablePool) Peek() (anchor.Address, error) {
	return p.head.Get()
}

func (p *availablePool) Len() (uint64, error) {
	return p.count.Get()
}

// Add appends id at the tail.
func (p *availablePool) Add(id anchor.Address) error {
	oldTail, err := p.tail.Get()
	if err != nil {
		return err
	}
	if oldTail.IsZero() {
		// list is currently empty, id becomes head and tail
		p.head.Set(id)
	} else {
		tailLink, err := p.links.Get(oldTail)
		if err != nil {
			return err
		}
		tailLink.Next = id
		if err := p.links.Set(oldTail, tailLink); err != nil {
			return err
		}
	}
	if err := p.links.Set(id, link{Prev: oldTail}); err != nil {
		return err
	}
	p.tail.Set(id)
	return p.incr(1)
}

// Remove unlinks id, which must be in the pool.
func (p *availablePool) Remove(id anchor.Address) error {
	l, err := p.links.Get(id)
	if err != nil {
		return err
	}

	if l.Prev.IsZero() {
		p.head.Set(l.Next)
	} else {
		prev, err := p.links.Get(l.Prev)
		if err != nil {
			return err
		}
		prev.Next = l.Next
		if err := p.links.Set(l.Prev, prev); err != nil {
			return err
		}
	}

	if l.Next.IsZero() {
		p.tail.Set(l.Prev)
	} else {
		next, err := p.links.Get(l.Next)
		if err != nil {
			return err
		}
		next.Prev = l.Prev
		if err := p.links.Set(l.Next, next); err != nil {
			return err
		}
	}

	p.links.Delete(id)
	return p.incr(-1)
}

// Pop removes and returns the head, zero when empty.
func (p *availablePool) Pop() (anchor.Address, error) {
	head, err := p.head.Get()
	if err != nil || head.IsZero() {
		return anchor.Address{}, err
	}
	return head, p.Remove(head)
}

// Iter walks the pool from the head until fn returns false.
func (p *availablePool) Iter(fn func(id anchor.Address) bool) error {
	ptr, err := p.head.Get()
	if err != nil {
		return err
	}
	for !ptr.IsZero() {
		if !fn(ptr) {
			return nil
		}
		l, err := p.links.Get(ptr)
		if err != nil {
			return err
		}
		ptr = l.Next
	}
	return nil
}

func (p *availablePool) incr(delta int64) error {
	n, err := p.count.Get()
	if err != nil {
		return err
	}
	p.count.Set(uint64(int64(n) + delta))
	return nil
}
