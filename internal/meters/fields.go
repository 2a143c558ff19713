package meters

import (
	"github.com/lindqvist/wmbusmeters/internal/dvparser"
)

// FieldDesc is a declarative field a driver exposes: the lookup filter
// used against a telegram's dv_entries map, a name/unit for printing, and
// an index to disambiguate colliding keys (driver authors set IndexNr
// when a telegram legitimately carries more than one record with the
// same difvif key, e.g. two storage-numbered volume records).
type FieldDesc struct {
	Name            string
	Unit            string
	MeasurementType dvparser.MeasurementType
	VIFRange        dvparser.VIFRange
	StorageNr       int
	TariffNr        int
	IndexNr         int
}

// Snapshot is one driver invocation's extracted fields: name -> scaled
// value, plus a few fields every category reports.
type Snapshot struct {
	MediaCategory Category
	Fields        map[string]float64
	Strings       map[string]string
	Status        string
}

func newSnapshot(cat Category) *Snapshot {
	return &Snapshot{
		MediaCategory: cat,
		Fields:        map[string]float64{},
		Strings:       map[string]string{},
		Status:        "OK",
	}
}

// extractField resolves desc against m and writes the scaled double into
// snap.Fields, or leaves it absent if not found — a missing optional
// field is not an error, per the "partial parse is allowed" policy.
func extractField(snap *Snapshot, m *dvparser.Map, desc FieldDesc) {
	entry, ok := m.FindNth(desc.MeasurementType, desc.VIFRange, desc.StorageNr, desc.TariffNr, desc.IndexNr)
	if !ok {
		return
	}
	v, err := dvparser.ExtractDouble(entry, true)
	if err != nil {
		return
	}
	snap.Fields[desc.Name] = v
}

// ProcessDeclarative runs every FieldDesc in fields against m and returns
// the resulting Snapshot; it is the shared body every declarative driver's
// Process method delegates to.
func ProcessDeclarative(cat Category, fields []FieldDesc, m *dvparser.Map) *Snapshot {
	snap := newSnapshot(cat)
	for _, f := range fields {
		extractField(snap, m, f)
	}
	return snap
}
