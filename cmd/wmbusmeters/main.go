// Command wmbusmeters reads wM-Bus telegrams from a USB radio dongle,
// decrypts and parses them, and prints one line per meter reading.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lindqvist/wmbusmeters/internal/app"
	"github.com/lindqvist/wmbusmeters/internal/config"
	"github.com/lindqvist/wmbusmeters/internal/meters"
	"github.com/lindqvist/wmbusmeters/internal/wlog"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run implements the three exit codes §6 specifies: 0 normal exit
// (including -h/--help), 1 usage/configuration error, 2 runtime failure
// (device open failed). A read error on an open device is logged and
// does not change the exit code.
func run(argv []string) int {
	cli, err := config.ParseArgs(argv)
	if err != nil {
		if config.IsHelpRequested(err) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	wlog.Default.SetLevel(cli.LogLevel)

	var dirMeters []meters.Info
	if cli.Meterfiles {
		dirMeters, err = config.LoadMeterDir(cli.MeterfilesDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	a := app.New(cli, dirMeters, os.Stdout)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		a.Stop()
	}()

	return a.Run()
}
