// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package test holds helpers shared by the tests of every package.
package test

import (
	"time"

	"github.com/avast/retry-go/v4"
)

// Eventually polls cond every period until it holds, and gives up after
// timeout with the last error cond returned.
func Eventually(cond func() error, period, timeout time.Duration) error {
	return retry.Do(cond,
		retry.Attempts(uint(timeout/period)+1),
		retry.Delay(period),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}
