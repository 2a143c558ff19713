package meters

import (
	"github.com/lindqvist/wmbusmeters/internal/dvparser"
	"github.com/lindqvist/wmbusmeters/internal/wmbus"
)

func init() {
	Register(&DriverInfo{
		Name:             "supercom587",
		Category:         CategoryWaterMeter,
		ExpectedSecurity: wmbus.SecurityNone,
		ExpectMarker:     false,
		Detection: []DetectionTriple{
			{Mfct: mustEncodeMfct("SON"), Version: 0x3C, Type: 0x06},
		},
		Fields: []FieldDesc{
			// IndexNr 0 picks the first Volume record; the meter also
			// reports a storage-numbered history record under the same
			// difvif key on some firmware revisions, which FindNth's
			// collision-index addresses without changing StorageNr.
			{Name: "total_m3", VIFRange: dvparser.VIFRangeVolume, MeasurementType: dvparser.Instantaneous, StorageNr: dvparser.ANY, TariffNr: dvparser.ANY, IndexNr: 0},
		},
		New: func() Driver { return &supercom587Driver{} },
	})
}

type supercom587Driver struct{}

func (d *supercom587Driver) Process(tg *wmbus.Telegram) (*Snapshot, error) {
	info, _ := Lookup("supercom587")
	return ProcessDeclarative(info.Category, info.Fields, tg.DVEntries), nil
}
