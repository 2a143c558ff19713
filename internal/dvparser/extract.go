package dvparser

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// ExtractUint16 decodes entry's value as a little-endian unsigned integer,
// zero-extending if the underlying DIF was shorter than 2 bytes.
func ExtractUint16(e *DVEntry) (uint16, error) {
	v, err := extractUint(e, 2)
	return uint16(v), err
}

// ExtractUint32 is ExtractUint16's 4-byte sibling.
func ExtractUint32(e *DVEntry) (uint32, error) {
	v, err := extractUint(e, 4)
	return uint32(v), err
}

// ExtractUint64 is ExtractUint16's 8-byte sibling.
func ExtractUint64(e *DVEntry) (uint64, error) {
	return extractUint(e, 8)
}

func extractUint(e *DVEntry, maxWidth int) (uint64, error) {
	raw, err := hex.DecodeString(e.Value)
	if err != nil {
		return 0, fmt.Errorf("dvparser: key %s has non-hex value %q", e.DifVifKey, e.Value)
	}
	if len(raw) > maxWidth {
		return 0, fmt.Errorf("dvparser: key %s value too wide for %d-byte extractor", e.DifVifKey, maxWidth)
	}
	var buf [8]byte
	copy(buf[:], raw)
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// ExtractDouble decodes entry's value per its wire format (BCD, plain
// little-endian integer, or IEEE-754 real) and, when autoScale is true,
// multiplies the result by 10^ScaleExponent the way the VIF table
// specifies (e.g. a Volume VIF of 0x13 scales an integer by 10^-3).
func ExtractDouble(e *DVEntry, autoScale bool) (float64, error) {
	raw, err := hex.DecodeString(e.Value)
	if err != nil {
		return 0, fmt.Errorf("dvparser: key %s has non-hex value %q", e.DifVifKey, e.Value)
	}

	var v float64
	switch e.format {
	case formatBCD:
		v, err = decodeBCD(raw)
		if err != nil {
			return 0, fmt.Errorf("dvparser: key %s: %w", e.DifVifKey, err)
		}
	case formatReal:
		if len(raw) != 4 {
			return 0, fmt.Errorf("dvparser: key %s: real value must be 4 bytes, got %d", e.DifVifKey, len(raw))
		}
		bits := binary.LittleEndian.Uint32(raw)
		v = float64(math.Float32frombits(bits))
	case formatInt, formatNone:
		v = float64(decodeSignedLE(raw))
	default:
		return 0, fmt.Errorf("dvparser: key %s: value format does not decode as a number", e.DifVifKey)
	}

	if autoScale && e.ScaleExponent != 0 {
		v *= math.Pow(10, float64(e.ScaleExponent))
	}
	return v, nil
}

// decodeSignedLE interprets raw (1,2,3,4,6 or 8 bytes, little-endian wire
// order) as two's-complement signed, sign-extending from the top bit of
// the most significant byte present, matching the DIF spec's "int" format.
func decodeSignedLE(raw []byte) int64 {
	if len(raw) == 0 {
		return 0
	}
	var v uint64
	for i := len(raw) - 1; i >= 0; i-- {
		v = v<<8 | uint64(raw[i])
	}
	bits := uint(len(raw) * 8)
	if bits < 64 && raw[len(raw)-1]&0x80 != 0 {
		v |= ^uint64(0) << bits
	}
	return int64(v)
}

// decodeBCD interprets raw as packed BCD, wire order least-significant
// byte first: within each byte the low nibble is the even decimal digit
// position and the high nibble the odd position, matching the meters'
// 8-digit/6-digit/4-digit BCD counters (e.g. supercom587's volume field).
func decodeBCD(raw []byte) (float64, error) {
	var v float64
	mul := 1.0
	for _, b := range raw {
		lo := b & 0x0F
		hi := (b >> 4) & 0x0F
		if lo > 9 || hi > 9 {
			return 0, fmt.Errorf("invalid BCD digit in byte 0x%02X", b)
		}
		v += float64(lo) * mul
		mul *= 10
		v += float64(hi) * mul
		mul *= 10
	}
	return v, nil
}

// Date is a decoded Type G (date-only) or Type F (date+time) field.
type Date struct {
	Year, Month, Day int
	Hour, Minute     int
	HasTime          bool
}

// ExtractDate decodes entry's value as a Type G (2-byte CP16 date) or Type
// F (4-byte CP32 date+time) field per EN 13757-3 Annex A.
func ExtractDate(e *DVEntry) (Date, error) {
	raw, err := hex.DecodeString(e.Value)
	if err != nil {
		return Date{}, fmt.Errorf("dvparser: key %s has non-hex value %q", e.DifVifKey, e.Value)
	}
	switch len(raw) {
	case 2:
		day := int(raw[0] & 0x1F)
		month := int((raw[0]>>5)&0x07) | int((raw[1]>>4)&0x01)<<3
		year := int(raw[1]&0x0F) | int((raw[1]>>5)&0x07)<<4
		return Date{Year: 2000 + year, Month: month, Day: day}, nil
	case 4:
		minute := int(raw[0] & 0x3F)
		hour := int(raw[1] & 0x1F)
		day := int(raw[2] & 0x1F)
		month := int((raw[2]>>5)&0x07) | int((raw[3]>>4)&0x01)<<3
		year := int(raw[3]&0x0F) | int((raw[3]>>5)&0x07)<<4
		return Date{Year: 2000 + year, Month: month, Day: day, Hour: hour, Minute: minute, HasTime: true}, nil
	}
	return Date{}, fmt.Errorf("dvparser: key %s: date value must be 2 or 4 bytes, got %d", e.DifVifKey, len(raw))
}

// EncodeDateG is the inverse of ExtractDate's 2-byte branch, used by tests
// to build round-trip fixtures.
func EncodeDateG(d Date) [2]byte {
	year := d.Year - 2000
	var b [2]byte
	b[0] = byte(d.Day&0x1F) | byte(d.Month&0x07)<<5
	b[1] = byte(d.Month>>3&0x01)<<4 | byte(year&0x0F) | byte(year>>4&0x07)<<5
	return b
}

// EncodeDateF is the inverse of ExtractDate's 4-byte branch.
func EncodeDateF(d Date) [4]byte {
	year := d.Year - 2000
	var b [4]byte
	b[0] = byte(d.Minute & 0x3F)
	b[1] = byte(d.Hour & 0x1F)
	b[2] = byte(d.Day&0x1F) | byte(d.Month&0x07)<<5
	b[3] = byte(d.Month>>3&0x01)<<4 | byte(year&0x0F) | byte(year>>4&0x07)<<5
	return b
}

// ExtractString decodes entry's value as an LVAR ASCII field. The wire
// carries the string least-significant-character-first; callers want it
// the natural way round.
func ExtractString(e *DVEntry) (string, error) {
	raw, err := hex.DecodeString(e.Value)
	if err != nil {
		return "", fmt.Errorf("dvparser: key %s has non-hex value %q", e.DifVifKey, e.Value)
	}
	reversed := make([]byte, len(raw))
	for i, b := range raw {
		reversed[len(raw)-1-i] = b
	}
	return string(reversed), nil
}

// ExtractHexString returns entry's value as-is: an uppercase hex string in
// wire (little-endian) byte order, for fields drivers surface verbatim.
func ExtractHexString(e *DVEntry) string {
	return strings.ToUpper(e.Value)
}
