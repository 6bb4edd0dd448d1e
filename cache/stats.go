// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package cache provides in-memory caches with hit statistics.
package cache

import "sync/atomic"

// Stats counts the lookups of a cache. The hit rate is tracked in per mille
// so a reader republishes only when the rate visibly moves.
type Stats struct {
	hit, miss atomic.Int64
	reported  atomic.Int32
}

// Hit records a hit and returns the hits so far.
func (s *Stats) Hit() int64 { return s.hit.Add(1) }

// Miss records a miss and returns the misses so far.
func (s *Stats) Miss() int64 { return s.miss.Add(1) }

// Rate returns the hit rate in per mille, zero before any lookup.
func (s *Stats) Rate() int32 {
	return permille(s.hit.Load(), s.miss.Load())
}

// Stats returns the hit and miss counts, and whether the hit rate moved
// since the previous call.
func (s *Stats) Stats() (changed bool, hit, miss int64) {
	hit, miss = s.hit.Load(), s.miss.Load()
	rate := permille(hit, miss)
	return s.reported.Swap(rate) != rate, hit, miss
}

func permille(hit, miss int64) int32 {
	if hit+miss == 0 {
		return 0
	}
	return int32(hit * 1000 / (hit + miss))
}
