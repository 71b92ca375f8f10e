// Usbmuxd detects the orientation of the plug in a Type-C receptacle at start
// up and routes the USB 2.0 data lines through the mux accordingly, then holds
// the configuration until it's terminated.
package main

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"

	"github.com/oxplot/go-usbmux/internal/config"
)

const (
	MODULE  = "usbmuxd"
	VERSION = "1.0.0"

	defaultConfigFile = "/etc/usbmux/" + MODULE + ".yaml"
)

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	// cfg holds the application configuration
	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    MODULE,
		Usage:   "Route USB 2.0 data lines according to Type-C plug orientation",
		Version: VERSION,
		Description: "Reads the CC lines of a Type-C receptacle through a FUSB302 port controller" +
			"\n and connects the system USB 2.0 lines to the top or bottom pair of the receptacle.",
		UsageText: MODULE + " [--config <file>] [--log standard|debug|trace] [--dry-run]" +
			"\n\nEXAMPLE:" +
			"\n\tsimulate a plug in orientation A without touching hardware" +
			"\n\t\t" + MODULE + " --dry-run --log debug",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: defaultConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.Debug, Usage: "`LEVEL` defines the log level (standard|debug|trace)"},
			&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Destination: &cfg.Flag.DryRun, Usage: "simulate the port controller and the mux"},
		},
		Action: func(ctx *cli.Context) error {
			cfg.Flag.ConfigRequired = ctx.IsSet("config")
			if err := cfg.LoadConfig(); err != nil {
				return err
			}

			debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
			defer func() {
				if cfg.Debug.File != os.Stderr && cfg.Debug.File != os.Stdout {
					_ = cfg.Debug.File.Close()
				}
			}()

			runCtx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// capture exit signals to ensure resources are released on exit.
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)
			go func() {
				select {
				case sig := <-quit:
					debug.InfoLog.Printf("Got %s signal. Aborting...", sig)
					cancel()
				case <-runCtx.Done():
				}
			}()

			debug.InfoLog.Printf("starting %s %s", MODULE, VERSION)
			return run(runCtx, cfg)
		},
	}

	// we expect to have more command line flags in the future - sort them
	sort.Sort(cli.FlagsByName(cliApp.Flags))

	if err := cliApp.Run(os.Args); err != nil {
		debug.FatalLog.Print(err)
		return
	}

	exitCode = 0
}
