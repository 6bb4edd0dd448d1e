// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/anchorprotocol/ethanchor/bot"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for the ledger, event log and deployment",
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "genesis config file, the dev config is used when empty",
	}
	devFlag = cli.BoolFlag{
		Name:  "dev",
		Usage: "run a throwaway dev deployment in memory",
	}
	ownerFlag = cli.StringFlag{
		Name:  "owner",
		Value: devOwner.String(),
		Usage: "owner of the dev deployment",
	}
	botAccountFlag = cli.StringFlag{
		Name:  "bot",
		Value: devBot.String(),
		Usage: "operator of the dev deployment",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8669",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiLogsLimitFlag = cli.Uint64Flag{
		Name:  "api-logs-limit",
		Value: 1000,
		Usage: "limit the number of logs returned by /logs API",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection, served at /metrics",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-5)",
	}
	disableBotFlag = cli.BoolFlag{
		Name:  "disable-bot",
		Usage: "do not run the operator bot",
	}
	botIntervalFlag = cli.DurationFlag{
		Name:  "bot-interval",
		Value: bot.DefaultOptions.Interval,
		Usage: "interval between bot rounds",
	}
	botBatchFlag = cli.Uint64Flag{
		Name:  "bot-batch",
		Value: bot.DefaultOptions.Batch,
		Usage: "max instances flushed per queue in a round",
	}
	botMinAvailableFlag = cli.Uint64Flag{
		Name:  "bot-min-available",
		Value: bot.DefaultOptions.MinAvailable,
		Usage: "idle instances the bot keeps allocated",
	}
)
