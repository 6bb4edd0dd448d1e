// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import "github.com/anchorprotocol/ethanchor/metrics"

var metricStateChanges = metrics.LazyLoadCounter("state_committed_entries_count")
