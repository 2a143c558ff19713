package printer

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/lindqvist/wmbusmeters/internal/meters"
	"github.com/lindqvist/wmbusmeters/internal/wlog"
)

// RunShells forks cmdline (one per entry, repeatable per the --shell flag)
// with METER_* environment variables populated from m's fields, on top of
// the calling process's own environment. Each shell is spawned and reaped
// without blocking the caller's hot path; a failing shell is logged, not
// fatal.
func RunShells(cmdlines []string, m *meters.Meter) {
	for _, cmdline := range cmdlines {
		runShell(cmdline, m)
	}
}

func runShell(cmdline string, m *meters.Meter) {
	cmd := exec.Command("/bin/sh", "-c", cmdline)
	cmd.Env = append(os.Environ(), shellEnv(m)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		wlog.Default.Error("shell hook %q failed to start: %v", cmdline, err)
		return
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			wlog.Default.Warn("shell hook %q exited with error: %v", cmdline, err)
		}
	}()
}

func shellEnv(m *meters.Meter) []string {
	driverName := "auto"
	if m.Driver != nil {
		driverName = m.Driver.Name
	}

	env := []string{
		fmt.Sprintf("METER_id=%s", reportedID(m)),
		fmt.Sprintf("METER_name=%s", m.Info.Name),
		fmt.Sprintf("METER_media=%s", m.Category.String()),
		fmt.Sprintf("METER_meter=%s", driverName),
	}
	for k, v := range m.Fields {
		env = append(env, fmt.Sprintf("METER_%s=%g", k, v))
	}
	for k, v := range m.Strings {
		env = append(env, fmt.Sprintf("METER_%s=%s", k, v))
	}
	if full, err := json.Marshal(BuildJSON(m)); err == nil {
		env = append(env, fmt.Sprintf("METER_jsonfull=%s", full))
	}
	return env
}
