// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"encoding/json"

	"github.com/anchorprotocol/ethanchor/anchor"
)

// Event represents a contract event stored in db.
type Event struct {
	BlockNumber uint32          `json:"blockNumber"`
	Index       uint32          `json:"index"`
	BlockTime   uint64          `json:"blockTime"`
	TxID        anchor.Bytes32  `json:"txID"`
	TxOrigin    anchor.Address  `json:"txOrigin"`
	Address     anchor.Address  `json:"address"`
	Name        string          `json:"name"`
	Args        json.RawMessage `json:"args"`
}

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

type Range struct {
	From uint32
	To   uint32
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// EventFilter selects events. Zero fields match everything.
type EventFilter struct {
	Address *anchor.Address
	Name    string
	Range   *Range
	Options *Options
	Order   Order
}
