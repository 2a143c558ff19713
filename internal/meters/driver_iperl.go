package meters

import (
	"github.com/lindqvist/wmbusmeters/internal/dvparser"
	"github.com/lindqvist/wmbusmeters/internal/wmbus"
)

func init() {
	Register(&DriverInfo{
		Name:             "iperl",
		Category:         CategoryWaterMeter,
		ExpectedSecurity: wmbus.SecurityNone,
		ExpectMarker:     true,
		Detection: []DetectionTriple{
			{Mfct: mustEncodeMfct("SEN"), Version: 0x68, Type: 0x07},
		},
		Fields: []FieldDesc{
			{Name: "total_m3", VIFRange: dvparser.VIFRangeVolume, MeasurementType: dvparser.Instantaneous, StorageNr: dvparser.ANY, TariffNr: dvparser.ANY},
			{Name: "max_flow_m3h", VIFRange: dvparser.VIFRangeVolumeFlow, MeasurementType: dvparser.Instantaneous, StorageNr: dvparser.ANY, TariffNr: dvparser.ANY},
		},
		New: func() Driver { return &iperlDriver{} },
	})
}

// iperlDriver is a purely declarative driver: Process just runs the
// registered FieldDescs against the telegram's parsed record map.
type iperlDriver struct{}

func (d *iperlDriver) Process(tg *wmbus.Telegram) (*Snapshot, error) {
	info, _ := Lookup("iperl")
	return ProcessDeclarative(info.Category, info.Fields, tg.DVEntries), nil
}
