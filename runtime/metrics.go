// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import "github.com/anchorprotocol/ethanchor/metrics"

var (
	metricTxCount    = metrics.LazyLoadCounterVec("tx_count", []string{"result"})
	metricStateCache = metrics.LazyLoadGaugeVec("state_cache", []string{"event"})
)
