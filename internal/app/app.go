// Package app wires the configuration, serial manager, frame assembler,
// telegram decoder, meter registry and printer together and runs the
// dispatch loop until stopped.
package app

import (
	"os"
	"time"

	"github.com/lindqvist/wmbusmeters/internal/config"
	"github.com/lindqvist/wmbusmeters/internal/meters"
	"github.com/lindqvist/wmbusmeters/internal/printer"
	"github.com/lindqvist/wmbusmeters/internal/serial"
	"github.com/lindqvist/wmbusmeters/internal/wlog"
	"github.com/lindqvist/wmbusmeters/internal/wmbus"
)

// checkStatusInterval matches §5's 60s health-check timer; tests that
// want the 2s variant construct an App and call SetCheckStatusInterval
// before Run instead of relying on a global test-mode flag.
const checkStatusInterval = 60 * time.Second

// App owns every long-lived piece this process needs: the manager, the
// configured meters, and the printer sinks.
type App struct {
	CLI    *config.CLI
	Meters []*meters.Meter

	manager             *serial.Manager
	printer             *printer.Printer
	checkStatusInterval time.Duration
}

// New builds an App from cli. Meter configuration can come from the
// legacy positional args or from /etc/wmbusmeters.d — the caller decides
// which by populating cli.LegacyMeters or passing dirMeters.
func New(cli *config.CLI, dirMeters []meters.Info, out *os.File) *App {
	allInfos := append(append([]meters.Info{}, cli.LegacyMeters...), dirMeters...)

	instances := make([]*meters.Meter, 0, len(allInfos))
	for _, info := range allInfos {
		var explicit *meters.DriverInfo
		if info.DriverName != "" && info.DriverName != "auto" {
			if found, ok := meters.Lookup(info.DriverName); ok {
				explicit = found
			}
		}
		instances = append(instances, meters.New(info, explicit))
	}

	p := printer.New(out, cli.Format)
	p.Separator = cli.Separator

	return &App{
		CLI:                 cli,
		Meters:              instances,
		manager:             serial.NewManager(),
		printer:             p,
		checkStatusInterval: checkStatusInterval,
	}
}

// SetCheckStatusInterval overrides the health-check timer period, for
// tests that want the 2s internal-test-build cadence instead of 60s.
func (a *App) SetCheckStatusInterval(d time.Duration) {
	a.checkStatusInterval = d
}

// Run opens the configured device, wires frame assembly and dispatch,
// and blocks until Stop is called or the process receives a terminating
// signal. Returns the exit code per §6 (0 normal, 2 runtime failure).
func (a *App) Run() int {
	flavour := detectFlavour(a.CLI.Device)
	dev, err := serial.OpenTTY(a.CLI.Device, 868950, flavour)
	if err != nil {
		wlog.Default.Critical("app: %v", err)
		return 2
	}
	defer dev.Close()

	a.manager.Listen(dev, func(chunk []byte) {
		for _, frame := range dev.Assembler.Feed(chunk) {
			a.handleFrame(frame)
		}
	})

	a.manager.AddTimer(a.checkStatusInterval, func() {
		wlog.Default.Info("app: dongle %s ok", a.CLI.Device)
	})

	a.manager.RunUntilStopped()
	return 0
}

// Stop requests the dispatch loop to return.
func (a *App) Stop() {
	a.manager.Stop()
}

func (a *App) handleFrame(frame []byte) {
	if a.CLI.LogTelegrams {
		wlog.Default.Info("app: telegram %x", frame)
	}

	tg, err := wmbus.Decode(frame)
	if err != nil {
		wlog.Default.Warn("app: %v", err)
		return
	}

	matched := false
	for _, m := range a.Meters {
		if m.Receive(tg, autoDetect) {
			matched = true
			a.printer.Print(m)
			shells := append(append([]string{}, a.CLI.Shells...), m.Info.Shells...)
			if len(shells) > 0 {
				printer.RunShells(shells, m)
			}
		}
	}
	if a.CLI.Oneshot && matched {
		allUpdated := true
		for _, m := range a.Meters {
			if m.UpdateCount == 0 {
				allUpdated = false
			}
		}
		if allUpdated {
			a.Stop()
		}
	}
	if !matched {
		wlog.Default.Debug("app: no configured meter matched telegram id=%s", tg.ID())
	}
}

func autoDetect(tg *wmbus.Telegram) (*meters.DriverInfo, bool) {
	return meters.Detect(tg.MField, tg.Version(), tg.Type())
}

// detectFlavour guesses a dongle flavour from the device path; a future
// --device=im871a[...] style override would replace this heuristic, but
// no such flag exists yet in this build.
func detectFlavour(device string) serial.Flavour {
	switch {
	case len(device) >= 3 && device[len(device)-3:] == "cul":
		return serial.FlavourCUL
	default:
		return serial.FlavourIM871A
	}
}
