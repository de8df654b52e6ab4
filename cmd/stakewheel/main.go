// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/stakewheel/stakewheel/api"
	"github.com/stakewheel/stakewheel/config"
	"github.com/stakewheel/stakewheel/custody"
	"github.com/stakewheel/stakewheel/log"
	"github.com/stakewheel/stakewheel/metrics"
	"github.com/stakewheel/stakewheel/staking"
	"github.com/stakewheel/stakewheel/staking/globalstats"
)

var (
	version   string
	gitCommit string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	if gitCommit == "" {
		return version + "-dev"
	}
	return fmt.Sprintf("%s-%.8s", version, gitCommit)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Stakewheel",
		Usage:     "epoch-based stake-weighted reward accounting service",
		Copyright: "2025 The Stakewheel developers",
		Flags: []cli.Flag{
			configFlag,
			initTimestampFlag,
			epochSizeFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiTimeoutFlag,
			verbosityFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	log.SetVerbosity(ctx.Int(verbosityFlag.Name))

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		url, closeMetrics, err := api.Serve(ctx.String(metricsAddrFlag.Name), metrics.HTTPHandler())
		if err != nil {
			return err
		}
		defer closeMetrics()
		logger.Info("metrics service started", "url", url)
	}

	engine, err := staking.New(staking.Options{
		InitTimestamp: cfg.InitTimestamp,
		EpochSize:     cfg.EpochSize,
		Bounds: globalstats.Bounds{
			MinStake:  cfg.Bounds.MinStake.Int,
			MaxStake:  cfg.Bounds.MaxStake.Int,
			MinFeeBps: cfg.Bounds.MinFeeBps,
			MaxFeeBps: cfg.Bounds.MaxFeeBps,
		},
	}, custody.NewMemoryVault(), custody.NewMemoryRegistry())
	if err != nil {
		return err
	}
	for _, tier := range cfg.Tiers {
		if _, err := engine.AddLockTier(tier.MinStake.Int, tier.LengthEpochs, tier.WeightBps); err != nil {
			return err
		}
	}

	handler := api.New(engine, api.Options{
		AllowedOrigins: ctx.String(apiCorsFlag.Name),
		Timeout:        time.Duration(ctx.Uint64(apiTimeoutFlag.Name)) * time.Millisecond,
	})
	url, closeAPI, err := api.Serve(ctx.String(apiAddrFlag.Name), handler)
	if err != nil {
		return err
	}
	defer func() { logger.Info("stopping API server..."); closeAPI() }()

	printStartupMessage(cfg, url)

	<-handleExitSignal()
	return nil
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	if path := ctx.String(configFlag.Name); path != "" {
		return config.Load(path)
	}

	initTimestamp := ctx.Uint64(initTimestampFlag.Name)
	if initTimestamp == 0 {
		initTimestamp = uint64(time.Now().Unix())
	}
	cfg := &config.Config{
		InitTimestamp: initTimestamp,
		EpochSize:     ctx.Uint64(epochSizeFlag.Name),
		Bounds: config.Bounds{
			MinStake: config.Amount{Int: big.NewInt(1)},
			// 600M tokens at 18 decimals
			MaxStake:  config.Amount{Int: new(big.Int).Mul(big.NewInt(600_000_000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))},
			MinFeeBps: 0,
			MaxFeeBps: 10_000,
		},
	}
	return cfg, cfg.Validate()
}

func printStartupMessage(cfg *config.Config, apiURL string) {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		logger.Info("started", "api", apiURL, "epochSize", cfg.EpochSize)
		return
	}
	fmt.Printf(`Starting %v
    Version        %v
    Init time      %v
    Epoch size     %vs
    API portal     %v
`,
		"Stakewheel",
		fullVersion(),
		time.Unix(int64(cfg.InitTimestamp), 0).UTC().Format(time.RFC3339),
		cfg.EpochSize,
		apiURL)
}

func handleExitSignal() chan os.Signal {
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	return exit
}
