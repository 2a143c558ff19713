package config

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lindqvist/wmbusmeters/internal/meters"
	"github.com/lindqvist/wmbusmeters/internal/printer"
	"github.com/lindqvist/wmbusmeters/internal/wlog"
)

// Main is the parsed /etc/wmbusmeters.conf.
type Main struct {
	LogLevel      wlog.Level
	Device        string
	Format        printer.Format
	Separator     string
	Meterfiles    bool
	MeterfilesDir string
	LogTelegrams  bool
	Shells        []string
}

// LoadMain reads path as key=value lines. Unknown keys are logged and
// ignored rather than treated as fatal, since future config versions may
// add keys this build does not recognize yet.
func LoadMain(path string) (*Main, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	m := &Main{LogLevel: wlog.Normal, Format: printer.FormatHuman, Separator: ";"}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := parseKeyValueLine(scanner.Text())
		if !ok {
			continue
		}
		switch key {
		case "loglevel":
			if lvl, ok := wlog.ParseLevel(value); ok {
				m.LogLevel = lvl
			}
		case "device":
			m.Device = value
		case "format":
			if f, ok := printer.ParseFormat(value); ok {
				m.Format = f
			}
		case "separator":
			m.Separator = value
		case "meterfiles":
			m.Meterfiles = true
			m.MeterfilesDir = value
		case "meterfiles_dir":
			m.MeterfilesDir = value
		case "logtelegrams":
			m.LogTelegrams = value == "true" || value == "1"
		case "shell":
			m.Shells = append(m.Shells, value)
		default:
			wlog.Default.Debug("config: %s: unrecognized key %q", path, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return m, nil
}

// LoadMeterDir reads every file under dir as one meters.Info, per §6's
// "/etc/wmbusmeters.d/*: one meter per file" contract.
func LoadMeterDir(dir string) ([]meters.Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	var out []meters.Info
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := loadMeterFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func loadMeterFile(path string) (meters.Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return meters.Info{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	info := meters.Info{Constants: map[string]string{}}
	var driverName, idPattern, keyHex string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := parseKeyValueLine(scanner.Text())
		if !ok {
			continue
		}
		switch key {
		case "name":
			info.Name = value
		case "type":
			driverName = value
		case "id":
			idPattern = value
		case "key":
			keyHex = value
		default:
			info.Constants[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return meters.Info{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if info.Name == "" {
		return meters.Info{}, fmt.Errorf("config: %s: missing required 'name' key", path)
	}
	info.IDPattern = idPattern
	info.DriverName = driverName

	key, err := decodeKey(keyHex)
	if err != nil {
		return meters.Info{}, fmt.Errorf("config: %s: %w", path, err)
	}
	info.Key = key
	return info, nil
}

func decodeKey(s string) ([]byte, error) {
	if s == "" || s == "NOKEY" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("key must be 32 hex characters: %w", err)
	}
	if len(b) != 16 {
		return nil, fmt.Errorf("key must decode to 16 bytes, got %d", len(b))
	}
	return b, nil
}

func parseKeyValueLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}
