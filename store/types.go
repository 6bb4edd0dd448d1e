// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

type Status uint8

const (
	StatusIdle Status = iota
	StatusRunningAuto
	StatusRunningManual
	StatusFinished
	StatusFailed
	StatusRecovered
	StatusDeallocated
)

var statusNames = [...]string{
	"IDLE",
	"RUNNING_AUTO",
	"RUNNING_MANUAL",
	"FINISHED",
	"FAILED",
	"RECOVERED",
	"DEALLOCATED",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "UNKNOWN"
}

func (s Status) IsRunning() bool {
	return s == StatusRunningAuto || s == StatusRunningManual
}

// Queue names where an instance is held.
type Queue uint8

const (
	QueueIdle Queue = iota
	QueueRunning
	QueueFailed
	QueueBlackhole
	// QueueNone holds manually driven instances, which sit in no queue
	// until they finish or fail.
	QueueNone
)

var queueNames = [...]string{
	"IDLE",
	"RUNNING",
	"FAILED",
	"BLACKHOLE",
	"NONE",
}

func (q Queue) String() string {
	if int(q) < len(queueNames) {
		return queueNames[q]
	}
	return "UNKNOWN"
}

// ParseQueue parses a queue name as returned by String.
func ParseQueue(s string) (Queue, bool) {
	for i, name := range queueNames {
		if name == s {
			return Queue(i), true
		}
	}
	return 0, false
}

type record struct {
	Allocated bool
	Status    Status
	Queue     Queue
}
