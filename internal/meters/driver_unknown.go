package meters

import "github.com/lindqvist/wmbusmeters/internal/wmbus"

func init() {
	Register(&DriverInfo{
		Name:             "unknown",
		Category:         CategoryAutoMeter,
		ExpectedSecurity: wmbus.SecurityNone,
		ExpectMarker:     false,
		// No detection triples: "unknown" is never picked by Detect. It
		// is the explicit fallback a meter configured with type=unknown
		// or type=auto falls back to when Detect finds no registered
		// driver for the telegram's (mfct, version, type).
		New: func() Driver { return &unknownDriver{} },
	})
}

// unknownDriver reports that a telegram arrived without surfacing any
// decoded fields, so an auto-configured meter still produces a line
// (id, mfct, device type) for telegrams this repository has no driver
// for.
type unknownDriver struct{}

func (d *unknownDriver) Process(tg *wmbus.Telegram) (*Snapshot, error) {
	snap := newSnapshot(CategoryAutoMeter)
	snap.Strings["mfct"] = wmbus.ManufacturerName(tg.MField)
	snap.Strings["media"] = wmbus.DeviceTypeName(wmbus.DeviceType(tg.Type()))
	return snap, nil
}
