package meters

import (
	"encoding/binary"
	"fmt"

	"github.com/lindqvist/wmbusmeters/internal/wmbus"
)

func init() {
	Register(&DriverInfo{
		Name:             "apator08",
		Category:         CategoryWaterMeter,
		ExpectedSecurity: wmbus.SecurityNone,
		ExpectMarker:     false,
		Detection: []DetectionTriple{
			{Mfct: mustEncodeMfct("APT"), Version: 0x03, Type: 0x03},
		},
		// apator08 does not use the DIF/VIF record stream at all: its
		// payload is a fixed proprietary layout. Fields is left empty and
		// Process reads tg.Content directly instead of going through
		// ProcessDeclarative.
		New: func() Driver { return &apator08Driver{} },
	})
}

// apator08Driver is an imperative driver: the volume total is the first
// four content bytes read as a little-endian integer. The divide-by-3
// scaling is speculative in the upstream reference implementation — it
// was reverse-engineered from field captures, not from a public protocol
// document — and is pinned here by the end-to-end test fixture rather
// than derived from any documented unit.
type apator08Driver struct{}

func (d *apator08Driver) Process(tg *wmbus.Telegram) (*Snapshot, error) {
	content := tg.Content
	if len(content) == 0 {
		content = tg.Payload
	}
	if len(content) < 4 {
		return nil, fmt.Errorf("apator08: content too short (%d bytes)", len(content))
	}
	raw := binary.LittleEndian.Uint32(content[0:4])

	snap := newSnapshot(CategoryWaterMeter)
	snap.Fields["total_m3"] = float64(raw) / 3.0 / 1000.0
	return snap, nil
}
