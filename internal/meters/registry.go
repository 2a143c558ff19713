// Package meters implements the driver registry and the per-configured-
// meter dispatch pipeline: matching a Telegram's (manufacturer, version,
// type) triple to a driver, decrypting and parsing its content, and
// writing the driver's extracted fields into a Meter snapshot.
package meters

import (
	"fmt"

	"github.com/lindqvist/wmbusmeters/internal/wmbus"
)

// Category tags a driver's meter family for the printer and for auto-mode
// reporting.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryWaterMeter
	CategoryHeatMeter
	CategoryElectricityMeter
	CategoryGasMeter
	CategoryTempHygroMeter
	CategorySmokeDetector
	CategoryPulseCounter
	CategoryAutoMeter
)

func (c Category) String() string {
	switch c {
	case CategoryWaterMeter:
		return "water"
	case CategoryHeatMeter:
		return "heat"
	case CategoryElectricityMeter:
		return "electricity"
	case CategoryGasMeter:
		return "gas"
	case CategoryTempHygroMeter:
		return "temperature"
	case CategorySmokeDetector:
		return "smoke"
	case CategoryPulseCounter:
		return "pulse"
	case CategoryAutoMeter:
		return "auto"
	}
	return "unknown"
}

// DetectionTriple is a (manufacturer, version, device-type) match rule a
// driver registers itself under.
type DetectionTriple struct {
	Mfct    uint16
	Version byte
	Type    byte
}

// Driver is the per-meter-family contract: field descriptors plus an
// optional imperative content processor for proprietary payloads.
type Driver interface {
	// Process extracts fields from tg into a fresh Snapshot. Drivers that
	// rely purely on declarative FieldDescs still implement Process, but
	// may delegate to ProcessDeclarative as their entire body.
	Process(tg *wmbus.Telegram) (*Snapshot, error)
}

// DriverInfo is the static, process-wide registration record for one
// meter family, populated once at init and never mutated afterward.
type DriverInfo struct {
	Name             string
	Category         Category
	ExpectedSecurity wmbus.SecurityMode
	ExpectMarker     bool
	Detection        []DetectionTriple
	Fields           []FieldDesc
	New              func() Driver
}

var registry = map[string]*DriverInfo{}
var byTriple = map[DetectionTriple]*DriverInfo{}

// Register adds info to the process-wide registry. Called from each
// driver file's init(). Each driver only ever touches its own name and
// its own detection triples, so registration order across files never
// matters; registering the same name twice is a programming error and
// panics rather than silently overwriting the earlier entry.
func Register(info *DriverInfo) {
	if _, exists := registry[info.Name]; exists {
		panic(fmt.Sprintf("meters: driver %q already registered", info.Name))
	}
	registry[info.Name] = info
	for _, triple := range info.Detection {
		byTriple[triple] = info
	}
}

// Lookup returns the registered driver by its short name.
func Lookup(name string) (*DriverInfo, bool) {
	info, ok := registry[name]
	return info, ok
}

// Detect finds the driver matching (mfct, version, type), retrying with
// the manufacturer's top bit cleared if no exact match is found — the
// documented detection workaround for meters that report a near-but-not-
// quite manufacturer code.
func Detect(mfct uint16, version, deviceType byte) (*DriverInfo, bool) {
	triple := DetectionTriple{Mfct: mfct, Version: version, Type: deviceType}
	if info, ok := byTriple[triple]; ok {
		return info, true
	}
	stripped := DetectionTriple{Mfct: mfct &^ 0x8000, Version: version, Type: deviceType}
	if info, ok := byTriple[stripped]; ok {
		return info, true
	}
	return nil, false
}

// All returns every registered driver, for the auto/unknown listing and
// tests.
func All() []*DriverInfo {
	out := make([]*DriverInfo, 0, len(registry))
	for _, info := range registry {
		out = append(out, info)
	}
	return out
}
