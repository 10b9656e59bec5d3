package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"phaseexecutor/cmd/bot"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "phaseexecutor"
	app.Usage = "Phase-driven strategy executor"
	app.Version = Version
	app.Before = setup

	app.Commands = []cli.Command{
		runCMD,
		cycleCMD,
		serveCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	runCMD = cli.Command{
		Name:        "run",
		Usage:       "run the trading bot",
		Action:      runAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run one cycle, or loop every CYCLE_INTERVAL when RUN_CONTINUOUS=true`,
	}
	cycleCMD = cli.Command{
		Name:        "cycle",
		Usage:       "run a single trading cycle",
		Action:      cycleAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run one cycle over SYMBOLS and print the performance summary`,
	}
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "serve portfolio and metrics endpoints",
		Action:      serveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Serve /healthcheck, /portfolio, /summary, /trades and /metrics`,
	}
)

// setup loads .env when present and configures logging.
func setup(_ *cli.Context) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}
	bot.SetupLogger(bot.GetConfig())
	return nil
}

func runAction(_ *cli.Context) error {
	logrus.Info("Starting trading bot CMD")

	b := &bot.Bot{Log: logrus.WithField("cmd", "run")}
	if err := b.Start(false); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func cycleAction(_ *cli.Context) error {
	logrus.Info("Starting single cycle CMD")

	b := &bot.Bot{Log: logrus.WithField("cmd", "cycle")}
	if err := b.Start(true); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func serveAction(_ *cli.Context) error {
	logrus.Info("Starting serve CMD")

	b := &bot.Bot{Log: logrus.WithField("cmd", "serve")}
	if err := b.Serve(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}
