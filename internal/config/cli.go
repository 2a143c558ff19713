// Package config parses the CLI surface and /etc/wmbusmeters.conf and
// /etc/wmbusmeters.d/* into the structures internal/app wires up.
package config

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/lindqvist/wmbusmeters/internal/meters"
	"github.com/lindqvist/wmbusmeters/internal/printer"
	"github.com/lindqvist/wmbusmeters/internal/wlog"
)

// CLI is the parsed command line: the global flags plus either the
// legacy positional meter triples or a reference to config files.
type CLI struct {
	Device string

	LogLevel      wlog.Level
	Robot         bool
	Meterfiles    bool
	MeterfilesDir string
	Oneshot       bool
	Format        printer.Format
	Separator     string
	Shells        []string
	LogTelegrams  bool

	LegacyMeters []meters.Info
}

// ParseArgs parses argv (excluding the program name) into a CLI. It
// supports both the flag form (flags before the device) and the legacy
// positional form: <device> <name> <id> <key> [<name> <id> <key> ...].
// A usage error is returned as a plain error; the caller maps that to
// exit code 1 per §6.
func ParseArgs(argv []string) (*CLI, error) {
	fs := pflag.NewFlagSet("wmbusmeters", pflag.ContinueOnError)

	silence := fs.Bool("silence", false, "suppress all logging")
	verbose := fs.Bool("verbose", false, "verbose logging")
	debug := fs.Bool("debug", false, "debug logging")
	robot := fs.Bool("robot", false, "accepted; does not change the output (see --format)")
	meterfilesDir := fs.String("meterfiles", "", "write one file per meter, optionally under <dir>")
	fs.Lookup("meterfiles").NoOptDefVal = "." // --meterfiles with no "=<dir>" means the current directory
	oneshot := fs.Bool("oneshot", false, "exit after the first reading per meter")
	format := fs.String("format", "human", "human|fields|json")
	separator := fs.String("separator", ";", "field separator for --format=fields")
	shell := fs.StringArray("shell", nil, "shell command to run per reading (repeatable)")
	logtelegrams := fs.Bool("logtelegrams", false, "log raw telegram bytes")
	help := fs.BoolP("help", "h", false, "show usage")

	fs.Usage = func() {
		fmt.Println("usage: wmbusmeters [flags] <device> [<name> <id> <key> ...]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(argv); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if *help {
		fs.Usage()
		return nil, errHelpRequested
	}

	args := fs.Args()
	if len(args) == 0 {
		return nil, fmt.Errorf("config: missing required <usb-device> argument")
	}

	cli := &CLI{
		Device:        args[0],
		Robot:         *robot,
		Meterfiles:    fs.Changed("meterfiles"),
		MeterfilesDir: *meterfilesDir,
		Oneshot:       *oneshot,
		Separator:     *separator,
		Shells:        *shell,
		LogTelegrams:  *logtelegrams,
	}

	switch {
	case *debug:
		cli.LogLevel = wlog.Debug
	case *verbose:
		cli.LogLevel = wlog.Verbose
	case *silence:
		cli.LogLevel = wlog.Silent
	default:
		cli.LogLevel = wlog.Normal
	}

	f, ok := printer.ParseFormat(*format)
	if !ok {
		return nil, fmt.Errorf("config: unrecognized --format %q", *format)
	}
	cli.Format = f

	rest := args[1:]
	if len(rest)%3 != 0 {
		return nil, fmt.Errorf("config: legacy meter arguments must come in <name> <id> <key> triples")
	}
	for i := 0; i < len(rest); i += 3 {
		name, id, key := rest[i], rest[i+1], rest[i+2]
		keyBytes, err := decodeKey(key)
		if err != nil {
			return nil, fmt.Errorf("config: meter %s: %w", name, err)
		}
		cli.LegacyMeters = append(cli.LegacyMeters, meters.Info{
			Name:      name,
			IDPattern: id,
			Key:       keyBytes,
		})
	}

	return cli, nil
}

var errHelpRequested = fmt.Errorf("config: help requested")

// IsHelpRequested reports whether err is the sentinel ParseArgs returns
// for -h/--help, so main can exit 0 instead of 1.
func IsHelpRequested(err error) bool {
	return err == errHelpRequested
}
