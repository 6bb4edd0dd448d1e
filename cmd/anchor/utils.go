// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	ethlog "github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/genesis"
	"github.com/anchorprotocol/ethanchor/log"
	"github.com/anchorprotocol/ethanchor/logdb"
	"github.com/anchorprotocol/ethanchor/lvldb"
)

var (
	devOwner = anchor.BytesToAddress([]byte("owner"))
	devBot   = anchor.BytesToAddress([]byte("bot"))
)

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".anchor")
}

// levels maps the verbosity flag to slog levels, crit first.
var levels = []slog.Level{ethlog.LevelCrit, ethlog.LevelError, ethlog.LevelWarn, ethlog.LevelInfo, ethlog.LevelDebug, ethlog.LevelTrace}

func initLogger(ctx *cli.Context) {
	v := ctx.Int(verbosityFlag.Name)
	v = max(0, min(v, len(levels)-1))
	useColor := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	log.SetHandler(ethlog.NewTerminalHandlerWithLevel(os.Stderr, levels[v], useColor))
}

func makeDataDir(ctx *cli.Context) (string, error) {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return "", errors.Errorf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", errors.Wrapf(err, "create data dir [%v]", dataDir)
	}
	return dataDir, nil
}

func deploymentPath(dataDir string) string {
	return filepath.Join(dataDir, "deployment.yaml")
}

func parseAddressFlag(ctx *cli.Context, flag cli.StringFlag) (anchor.Address, error) {
	addr, err := anchor.ParseAddress(ctx.String(flag.Name))
	if err != nil {
		return anchor.Address{}, errors.WithMessage(err, flag.Name)
	}
	return addr, nil
}

// loadConfig reads the config file, falling back to the dev config operated
// by the owner and bot flags.
func loadConfig(ctx *cli.Context) (*genesis.Config, error) {
	if path := ctx.String(configFlag.Name); path != "" {
		return genesis.LoadConfig(path)
	}
	owner, err := parseAddressFlag(ctx, ownerFlag)
	if err != nil {
		return nil, err
	}
	botAccount, err := parseAddressFlag(ctx, botAccountFlag)
	if err != nil {
		return nil, err
	}
	return genesis.DevConfig(owner, botAccount), nil
}

type databases struct {
	main *lvldb.LevelDB
	logs *logdb.LogDB
}

func (dbs *databases) Close() {
	logger.Info("closing log database...")
	if err := dbs.logs.Close(); err != nil {
		logger.Warn("failed to close log database", "err", err)
	}
	logger.Info("closing main database...")
	if err := dbs.main.Close(); err != nil {
		logger.Warn("failed to close main database", "err", err)
	}
}

func openDBs(dataDir string) (*databases, error) {
	dir := filepath.Join(dataDir, "main.db")
	mainDB, err := lvldb.New(dir, lvldb.Options{CacheSize: 128, OpenFilesCacheCapacity: 64})
	if err != nil {
		return nil, errors.WithMessagef(err, "open main database [%v]", dir)
	}
	path := filepath.Join(dataDir, "logs.db")
	logDB, err := logdb.New(path)
	if err != nil {
		mainDB.Close()
		return nil, errors.WithMessagef(err, "open log database [%v]", path)
	}
	return &databases{mainDB, logDB}, nil
}

func openMemDBs() (*databases, error) {
	mainDB, err := lvldb.NewMem()
	if err != nil {
		return nil, errors.WithMessage(err, "open main database")
	}
	logDB, err := logdb.NewMem()
	if err != nil {
		mainDB.Close()
		return nil, errors.WithMessage(err, "open log database")
	}
	return &databases{mainDB, logDB}, nil
}

func listenAPI(ctx *cli.Context, handler http.Handler) (*http.Server, net.Listener, error) {
	addr := ctx.String(apiAddrFlag.Name)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "listen API addr [%v]", addr)
	}
	return &http.Server{Handler: handler, ReadHeaderTimeout: time.Second}, listener, nil
}

func printStartupMessage(d *genesis.Deployment, dataDir, apiURL string) {
	fmt.Printf(`Starting %v
    Owner        [ %v ]
    Bot          [ %v ]
    Store        [ %v ]
    Router       [ %v ]
    Controller   [ %v ]
    Data dir     [ %v ]
    API portal   [ %v ]
`,
		"Anchor/"+fullVersion(),
		d.Owner,
		d.Bot,
		d.Store,
		d.Router,
		d.Controller,
		dataDir,
		apiURL)
}
