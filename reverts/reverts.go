// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reverts defines contract level failures. A revert aborts the
// enclosing transaction, undoing its state changes and events.
package reverts

import (
	"errors"
)

// Kind classifies a revert.
type Kind int

const (
	// KindGuard is a violated precondition, e.g. a wrong status.
	KindGuard Kind = iota
	// KindExhausted is an empty pool or queue.
	KindExhausted
	// KindUnauthorized is a caller lacking the required role.
	KindUnauthorized
	// KindExternal is a failure propagated from a collaborator, e.g. a token.
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindGuard:
		return "guard"
	case KindExhausted:
		return "exhausted"
	case KindUnauthorized:
		return "unauthorized"
	case KindExternal:
		return "external"
	}
	return "unknown"
}

type ErrRevert struct {
	kind    Kind
	message string
}

// New creates a guard revert.
func New(message string) *ErrRevert {
	return &ErrRevert{kind: KindGuard, message: message}
}

func Exhausted(message string) *ErrRevert {
	return &ErrRevert{kind: KindExhausted, message: message}
}

func Unauthorized(message string) *ErrRevert {
	return &ErrRevert{kind: KindUnauthorized, message: message}
}

func External(message string) *ErrRevert {
	return &ErrRevert{kind: KindExternal, message: message}
}

func (e *ErrRevert) Error() string {
	return e.message
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

func IsRevertErr(err any) bool {
	_, ok := KindOf(err)
	return ok
}

// KindOf returns the kind of the revert wrapped in err.
func KindOf(err any) (Kind, bool) {
	if err == nil {
		return 0, false
	}
	e, ok := err.(error)
	if !ok {
		return 0, false
	}
	var ve *ErrRevert
	if !errors.As(e, &ve) {
		return 0, false
	}
	return ve.kind, true
}

func IsUnauthorized(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindUnauthorized
}
