// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bot

import "github.com/anchorprotocol/ethanchor/metrics"

var (
	metricRoundCount    = metrics.LazyLoadCounterVec("bot_round_count", []string{"result"})
	metricRoundDuration = metrics.LazyLoadHistogramVec("bot_round_duration_ms", nil, []int64{10, 50, 100, 500, 1000, 5000, 10000})
	metricTxCount       = metrics.LazyLoadCounterVec("bot_tx_count", []string{"what", "result"})
	metricQueueLength   = metrics.LazyLoadGaugeVec("bot_queue_length", []string{"queue"})
)
