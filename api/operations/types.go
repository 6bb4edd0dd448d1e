// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operations

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/anchorprotocol/ethanchor/anchor"
)

// Record is where the store keeps an instance.
type Record struct {
	Allocated bool   `json:"allocated"`
	Status    string `json:"status"`
	Queue     string `json:"queue"`
}

// Operation is an instance together with its store record.
type Operation struct {
	ID           anchor.Address        `json:"id"`
	TerraAddress anchor.Bytes32        `json:"terraAddress"`
	Status       string                `json:"status"`
	Type         string                `json:"type"`
	Operator     anchor.Address        `json:"operator"`
	Amount       *math.HexOrDecimal256 `json:"amount"`
	Input        anchor.Address        `json:"input"`
	Output       anchor.Address        `json:"output"`
	Swapper      anchor.Address        `json:"swapper"`
	SwapDest     anchor.Address        `json:"swapDest"`
	AutoFinish   bool                  `json:"autoFinish"`
	Record       Record                `json:"record"`
}
