// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"log/slog"
	"testing"

	ethlog "github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
)

func TestWithContext(t *testing.T) {
	t.Cleanup(func() { SetHandler(ethlog.DiscardHandler()) })

	logger := WithContext("pkg", "test")
	// discarded, no handler yet
	logger.Info("before")

	var buf bytes.Buffer
	SetHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	logger.Info("after", "n", 1)
	logger.Debug("filtered")
	logger.With("sub", "x").Warn("nested")

	out := buf.String()
	assert.NotContains(t, out, "before")
	assert.NotContains(t, out, "filtered")
	assert.Contains(t, out, "msg=after pkg=test n=1")
	assert.Contains(t, out, "msg=nested pkg=test sub=x")
}
