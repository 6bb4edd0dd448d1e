// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package datagen

import (
	"crypto/rand"
	mathrand "math/rand/v2"

	"github.com/anchorprotocol/ethanchor/anchor"
)

func RandBytes32() (b anchor.Bytes32) {
	rand.Read(b[:])
	return
}

func RandAddress() (addr anchor.Address) {
	rand.Read(addr[:])
	return
}

func RandBytes32s(n int) []anchor.Bytes32 {
	out := make([]anchor.Bytes32, n)
	for i := range out {
		out[i] = RandBytes32()
	}
	return out
}

func RandIntN(n int) int {
	return mathrand.N(n) //#nosec G404
}
