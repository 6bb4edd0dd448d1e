// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operation

import (
	"math/big"

	"github.com/anchorprotocol/ethanchor/anchor"
)

type Status uint8

const (
	StatusNeutral Status = iota
	StatusRunning
	StatusHalted
)

func (s Status) String() string {
	switch s {
	case StatusNeutral:
		return "NEUTRAL"
	case StatusRunning:
		return "RUNNING"
	case StatusHalted:
		return "HALTED"
	}
	return "UNKNOWN"
}

type Type uint8

const (
	TypeNone Type = iota
	TypeDeposit
	TypeRedeem
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "NONE"
	case TypeDeposit:
		return "DEPOSIT"
	case TypeRedeem:
		return "REDEEM"
	}
	return "UNKNOWN"
}

// Info is the in-flight action of an instance.
type Info struct {
	Status   Status         `json:"status"`
	Typ      Type           `json:"typ"`
	Operator anchor.Address `json:"operator"`
	Amount   *big.Int       `json:"amount"`
	Input    anchor.Address `json:"input"`
	Output   anchor.Address `json:"output"`
	Swapper  anchor.Address `json:"swapper"`
	SwapDest anchor.Address `json:"swapDest"`
}

// IsNeutral reports whether info holds no action at all.
func (i Info) IsNeutral() bool {
	return i.Status == StatusNeutral &&
		i.Typ == TypeNone &&
		i.Operator.IsZero() &&
		(i.Amount == nil || i.Amount.Sign() == 0) &&
		i.Input.IsZero() &&
		i.Output.IsZero() &&
		i.Swapper.IsZero() &&
		i.SwapDest.IsZero()
}

// Config is fixed when an instance is initialized. Bridge carries every
// input pulled into custody over to the terra address.
type Config struct {
	Router         anchor.Address `json:"router" yaml:"router"`
	Controller     anchor.Address `json:"controller" yaml:"controller"`
	TerraAddress   anchor.Bytes32 `json:"terraAddress" yaml:"terraAddress"`
	WrappedStable  anchor.Address `json:"wrappedStable" yaml:"wrappedStable"`
	AnchoredStable anchor.Address `json:"anchoredStable" yaml:"anchoredStable"`
	Bridge         anchor.Address `json:"bridge" yaml:"bridge"`
}
