package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindqvist/wmbusmeters/internal/printer"
	"github.com/lindqvist/wmbusmeters/internal/wlog"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMainParsesRecognizedKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "wmbusmeters.conf", "loglevel=verbose\ndevice=/dev/ttyUSB0\nformat=json\nseparator=,\n# a comment\nunknownkey=ignored\n")

	m, err := LoadMain(path)
	require.NoError(t, err)
	assert.Equal(t, wlog.Verbose, m.LogLevel)
	assert.Equal(t, "/dev/ttyUSB0", m.Device)
	assert.Equal(t, printer.FormatJSON, m.Format)
	assert.Equal(t, ",", m.Separator)
}

func TestLoadMeterDirReadsOneMeterPerFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "water", "name=MoreWater\ntype=iperl\nid=12345699\nkey=00000000000000000000000000000000\n")

	metersList, err := LoadMeterDir(dir)
	require.NoError(t, err)
	require.Len(t, metersList, 1)
	assert.Equal(t, "MoreWater", metersList[0].Name)
	assert.Equal(t, "iperl", metersList[0].DriverName)
	assert.Equal(t, "12345699", metersList[0].IDPattern)
}

func TestLoadMeterDirRejectsBadKeyLength(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad", "name=Bad\ntype=iperl\nid=*\nkey=aabb\n")

	_, err := LoadMeterDir(dir)
	assert.Error(t, err)
}

func TestParseArgsLegacyPositionalForm(t *testing.T) {
	cli, err := ParseArgs([]string{"/dev/ttyUSB0", "MoreWater", "12345699", "00000000000000000000000000000000"})
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", cli.Device)
	require.Len(t, cli.LegacyMeters, 1)
	assert.Equal(t, "MoreWater", cli.LegacyMeters[0].Name)
}

func TestParseArgsRejectsMissingDevice(t *testing.T) {
	_, err := ParseArgs([]string{"--verbose"})
	assert.Error(t, err)
}

func TestParseArgsFormatFlag(t *testing.T) {
	cli, err := ParseArgs([]string{"--format=json", "/dev/ttyUSB0"})
	require.NoError(t, err)
	assert.Equal(t, printer.FormatJSON, cli.Format)
}
