// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/anchorprotocol/ethanchor/api"
	"github.com/anchorprotocol/ethanchor/bot"
	"github.com/anchorprotocol/ethanchor/builtin"
	"github.com/anchorprotocol/ethanchor/genesis"
	"github.com/anchorprotocol/ethanchor/log"
	"github.com/anchorprotocol/ethanchor/metrics"
	"github.com/anchorprotocol/ethanchor/runtime"
)

var (
	version   string
	gitCommit string
	gitTag    string
	logger    = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "Anchor",
		Usage:   "Ledger, API and operator bot of the Anchor protocol on Ethereum",
		Flags: []cli.Flag{
			dataDirFlag,
			devFlag,
			configFlag,
			ownerFlag,
			botAccountFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiLogsLimitFlag,
			enableAPILogsFlag,
			enableMetricsFlag,
			verbosityFlag,
			disableBotFlag,
			botIntervalFlag,
			botBatchFlag,
			botMinAvailableFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:  "init",
				Usage: "deploy the protocol into the data dir",
				Flags: []cli.Flag{
					dataDirFlag,
					configFlag,
					ownerFlag,
					botAccountFlag,
					verbosityFlag,
				},
				Action: initAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initAction(ctx *cli.Context) error {
	initLogger(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	dataDir, err := makeDataDir(ctx)
	if err != nil {
		return err
	}
	if _, err := os.Stat(deploymentPath(dataDir)); err == nil {
		return errors.Errorf("already deployed in %v", dataDir)
	}

	dbs, err := openDBs(dataDir)
	if err != nil {
		return err
	}
	defer dbs.Close()

	rt := runtime.New(dbs.main, builtin.NewRegistry(), runtime.WithEventWriter(dbs.logs))
	d, err := genesis.Build(rt, cfg)
	if err != nil {
		return err
	}
	if err := d.Save(deploymentPath(dataDir)); err != nil {
		return err
	}
	logger.Info("protocol deployed", "store", d.Store, "router", d.Router, "controller", d.Controller, "dir", dataDir)
	return nil
}

func defaultAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()
	initLogger(ctx)

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	var (
		dbs     *databases
		rt      *runtime.Runtime
		d       *genesis.Deployment
		dataDir string
		err     error
	)
	if ctx.Bool(devFlag.Name) {
		dataDir = "Memory"
		if dbs, err = openMemDBs(); err != nil {
			return err
		}
		defer dbs.Close()

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		rt = runtime.New(dbs.main, builtin.NewRegistry(), runtime.WithEventWriter(dbs.logs))
		if d, err = genesis.Build(rt, cfg); err != nil {
			return err
		}
	} else {
		if dataDir, err = makeDataDir(ctx); err != nil {
			return err
		}
		if d, err = genesis.LoadDeployment(deploymentPath(dataDir)); err != nil {
			return errors.WithMessage(err, "load deployment, run init first")
		}
		if dbs, err = openDBs(dataDir); err != nil {
			return err
		}
		defer dbs.Close()
		rt = runtime.New(dbs.main, builtin.NewRegistry(), runtime.WithEventWriter(dbs.logs))
	}

	handler := api.New(rt, d, dbs.logs, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
		LogsLimit:       ctx.Uint64(apiLogsLimitFlag.Name),
	})
	srv, listener, err := listenAPI(ctx, handler)
	if err != nil {
		return err
	}
	printStartupMessage(d, dataDir, "http://"+listener.Addr().String()+"/")

	exitCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	group, groupCtx := errgroup.WithContext(exitCtx)

	group.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("stopping API server...")
		return srv.Shutdown(context.Background())
	})

	if !ctx.Bool(disableBotFlag.Name) && !d.Bot.IsZero() {
		b := bot.New(rt, d, d.Bot, bot.Options{
			Interval:     ctx.Duration(botIntervalFlag.Name),
			Batch:        ctx.Uint64(botBatchFlag.Name),
			MinAvailable: ctx.Uint64(botMinAvailableFlag.Name),
		})
		group.Go(func() error {
			b.Run(groupCtx)
			return nil
		})
	}
	return group.Wait()
}
