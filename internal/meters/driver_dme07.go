package meters

import (
	"github.com/lindqvist/wmbusmeters/internal/dvparser"
	"github.com/lindqvist/wmbusmeters/internal/wmbus"
)

func init() {
	Register(&DriverInfo{
		Name:             "dme_07",
		Category:         CategoryWaterMeter,
		ExpectedSecurity: wmbus.SecurityNone,
		ExpectMarker:     true,
		Detection: []DetectionTriple{
			{Mfct: mustEncodeMfct("DME"), Version: 0x7B, Type: 0x07},
		},
		Fields: []FieldDesc{
			{Name: "total_m3", VIFRange: dvparser.VIFRangeVolume, MeasurementType: dvparser.Instantaneous, StorageNr: dvparser.ANY, TariffNr: dvparser.ANY},
		},
		New: func() Driver { return &dme07Driver{} },
	})
}

type dme07Driver struct{}

func (d *dme07Driver) Process(tg *wmbus.Telegram) (*Snapshot, error) {
	info, _ := Lookup("dme_07")
	snap := ProcessDeclarative(info.Category, info.Fields, tg.DVEntries)

	if entry, ok := tg.DVEntries.Find(dvparser.Instantaneous, dvparser.VIFRangeErrorFlags, dvparser.ANY, dvparser.ANY); ok {
		flags, err := dvparser.ExtractUint16(entry)
		if err == nil && flags == 0 {
			snap.Status = "OK"
		} else if err == nil {
			snap.Status = "ERROR"
		}
	}
	return snap, nil
}
