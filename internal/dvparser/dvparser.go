// Package dvparser implements the Data Information Block / Value
// Information Block record-stream walker: it turns the plaintext bytes of
// a telegram's application layer into a lookup map of typed DVEntry
// records keyed by the hex-encoded DIF+VIF sequence, walking the record
// stream entry-by-entry and exposing typed getters over the result.
package dvparser

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// MeasurementType is the DIF function field (bits 4-5 of the first DIF
// byte): what kind of reading this record represents.
type MeasurementType int

const (
	Instantaneous MeasurementType = iota
	Maximum
	Minimum
	AtError
	UnknownMeasurement
)

func (m MeasurementType) String() string {
	switch m {
	case Instantaneous:
		return "Instantaneous"
	case Maximum:
		return "Maximum"
	case Minimum:
		return "Minimum"
	case AtError:
		return "AtError"
	}
	return "Unknown"
}

// ANY is the wildcard for storage/tariff/subunit filters in Find/FindNth.
const ANY = -1

// dataFormat tells the extractors how to interpret DVEntry.Value's bytes.
type dataFormat int

const (
	formatNone dataFormat = iota
	formatInt
	formatBCD
	formatReal
	formatLVARAscii
	formatSelectionForReadout
)

// DVEntry is one parsed record: the normalized VIF tag and scale, the
// storage/tariff/subunit addressing, and the raw data bytes as hex (the
// caller, or the typed Extract* functions, interpret them per DIF type).
type DVEntry struct {
	DifVifKey       string
	Offset          int
	MeasurementType MeasurementType
	StorageNr       int
	TariffNr        int
	SubunitNr       int
	VIFRange        VIFRange
	ScaleExponent   int
	Value           string // hex, most-significant-byte-last (wire order)

	format dataFormat
}

// Map is the per-telegram lookup map: difvif_key -> DVEntry, plus the
// insertion-ordered list Find/FindNth search against.
type Map struct {
	ByKey           map[string]*DVEntry
	entries         []*DVEntry
	ManufacturerData []byte // set when a 0x0F/0x1F DIF was seen
	MoreRecordsFollow bool   // set for DIF 0x1F specifically
}

func newMap() *Map {
	return &Map{ByKey: map[string]*DVEntry{}}
}

func (m *Map) insert(e *DVEntry) {
	key := e.DifVifKey
	if _, exists := m.ByKey[key]; exists {
		// Disambiguate colliding keys with an index suffix, per spec;
		// the bare key stays bound to the first occurrence so existing
		// lookups keep working, find/FindNth reach the rest by index.
		n := 1
		for {
			candidate := fmt.Sprintf("%s_%d", key, n)
			if _, taken := m.ByKey[candidate]; !taken {
				key = candidate
				break
			}
			n++
		}
	}
	m.ByKey[key] = e
	m.entries = append(m.entries, e)
}

// Parse walks data record by record and returns the populated Map. On a
// truncated or malformed record it stops and returns the Map of the
// records parsed so far together with an error, consistent with the
// "partial parse is allowed" policy — callers may keep using the partial
// Map and discover missing fields as NotFound from Find.
func Parse(data []byte) (*Map, error) {
	m := newMap()
	pos := 0

	for pos < len(data) {
		dif := data[pos]

		switch {
		case dif == 0x0F:
			m.ManufacturerData = append([]byte{}, data[pos+1:]...)
			return m, nil
		case dif == 0x1F:
			m.ManufacturerData = append([]byte{}, data[pos+1:]...)
			m.MoreRecordsFollow = true
			return m, nil
		case dif == 0x2F:
			pos++
			continue
		case dif >= 0x3F && dif <= 0x6F && dif&0x0F == 0x0F:
			pos++
			continue
		}

		start := pos
		pos++

		measurementType := MeasurementType((dif >> 4) & 0x03)
		storage := int((dif >> 6) & 0x01)
		storageShift := 1
		tariff := 0
		tariffShift := 0
		subunit := 0
		subunitShift := 0

		for dif&0x80 != 0 {
			if pos >= len(data) {
				return m, fmt.Errorf("dvparser: truncated DIFE at offset %d", pos)
			}
			dife := data[pos]
			pos++
			storage |= int(dife&0x0F) << storageShift
			storageShift += 4
			tariff |= int((dife>>4)&0x03) << tariffShift
			tariffShift += 2
			subunit |= int((dife>>6)&0x01) << subunitShift
			subunitShift++
			dif = dife
		}

		if pos >= len(data) {
			return m, fmt.Errorf("dvparser: truncated record, missing VIF at offset %d", pos)
		}

		vifRange, scaleExponent, consumedAsciiLen, err := parseVIFChain(data, &pos)
		if err != nil {
			return m, err
		}

		difVifBytes := data[start:pos]
		difVifKey := strings.ToUpper(hex.EncodeToString(difVifBytes))
		_ = consumedAsciiLen

		length, format, err := dataLength(data[start]&0x0F, data, &pos)
		if err != nil {
			return m, err
		}

		valueOffset := pos
		if pos+length > len(data) {
			return m, fmt.Errorf("dvparser: truncated value for key %s at offset %d", difVifKey, pos)
		}
		valueBytes := data[pos : pos+length]
		pos += length

		entry := &DVEntry{
			DifVifKey:       difVifKey,
			Offset:          valueOffset,
			MeasurementType: measurementType,
			StorageNr:       storage,
			TariffNr:        tariff,
			SubunitNr:       subunit,
			VIFRange:        vifRange,
			ScaleExponent:   scaleExponent,
			Value:           strings.ToUpper(hex.EncodeToString(valueBytes)),
			format:          format,
		}
		m.insert(entry)
	}
	return m, nil
}

// dataLength returns the byte count for DIF low-nibble n and the format
// the value should be decoded as, advancing pos past any length prefix
// (LVAR) it consumes itself.
func dataLength(n byte, data []byte, pos *int) (int, dataFormat, error) {
	switch n {
	case 0x0:
		return 0, formatNone, nil
	case 0x1:
		return 1, formatInt, nil
	case 0x2:
		return 2, formatInt, nil
	case 0x3:
		return 3, formatInt, nil
	case 0x4:
		return 4, formatInt, nil
	case 0x5:
		return 4, formatReal, nil
	case 0x6:
		return 6, formatInt, nil
	case 0x7:
		return 8, formatInt, nil
	case 0x8:
		return 0, formatSelectionForReadout, nil
	case 0x9:
		return 1, formatBCD, nil
	case 0xA:
		return 2, formatBCD, nil
	case 0xB:
		return 3, formatBCD, nil
	case 0xC:
		return 4, formatBCD, nil
	case 0xD:
		if *pos >= len(data) {
			return 0, formatNone, fmt.Errorf("dvparser: truncated LVAR length byte")
		}
		l := int(data[*pos])
		*pos++
		if l >= 0xC0 {
			// Negative BCD/compact encodings are not produced by the
			// meters this repository drives; treat as opaque.
			return 0, formatNone, nil
		}
		return l, formatLVARAscii, nil
	case 0xE:
		return 6, formatBCD, nil
	default:
		return 0, formatNone, fmt.Errorf("dvparser: unsupported DIF length nibble 0x%X", n)
	}
}

// Find returns the first entry matching the filters in insertion order.
// storageNr/tariffNr of ANY match any value.
func (m *Map) Find(mt MeasurementType, vr VIFRange, storageNr, tariffNr int) (*DVEntry, bool) {
	return m.FindNth(mt, vr, storageNr, tariffNr, 0)
}

// FindNth returns the nth (0-based) entry matching the filters, letting a
// driver field descriptor's IndexNr disambiguate colliding difvif keys.
func (m *Map) FindNth(mt MeasurementType, vr VIFRange, storageNr, tariffNr, n int) (*DVEntry, bool) {
	count := 0
	for _, e := range m.entries {
		if e.MeasurementType != mt || e.VIFRange != vr {
			continue
		}
		if storageNr != ANY && e.StorageNr != storageNr {
			continue
		}
		if tariffNr != ANY && e.TariffNr != tariffNr {
			continue
		}
		if count == n {
			return e, true
		}
		count++
	}
	return nil, false
}

// Lookup returns the entry stored under the literal difvif key (e.g.
// "0413" for a 4-byte integer Volume record).
func (m *Map) Lookup(key string) (*DVEntry, bool) {
	e, ok := m.ByKey[strings.ToUpper(key)]
	return e, ok
}

// Insert adds a synthetic entry under key, for a driver that decodes a
// proprietary payload itself and wants to reuse the typed Extract*
// functions instead of hand-rolling value decoding.
func (m *Map) Insert(key string, e *DVEntry) {
	e.DifVifKey = strings.ToUpper(key)
	m.ByKey[e.DifVifKey] = e
	m.entries = append(m.entries, e)
}
