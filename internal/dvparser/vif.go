package dvparser

import "fmt"

// VIFRange is the normalized physical quantity a VIF (plus any VIFE
// extension) describes.
type VIFRange int

const (
	VIFRangeNone VIFRange = iota
	VIFRangeAnyEnergyVIF
	VIFRangeVolume
	VIFRangeVolumeFlow
	VIFRangeFlowTemperature
	VIFRangeExternalTemperature
	VIFRangeDate
	VIFRangeDateTime
	VIFRangeErrorFlags
	VIFRangeDigitalInput
	VIFRangeUnknown
)

func (v VIFRange) String() string {
	switch v {
	case VIFRangeAnyEnergyVIF:
		return "AnyEnergyVIF"
	case VIFRangeVolume:
		return "Volume"
	case VIFRangeVolumeFlow:
		return "VolumeFlow"
	case VIFRangeFlowTemperature:
		return "FlowTemperature"
	case VIFRangeExternalTemperature:
		return "ExternalTemperature"
	case VIFRangeDate:
		return "Date"
	case VIFRangeDateTime:
		return "DateTime"
	case VIFRangeErrorFlags:
		return "ErrorFlags"
	case VIFRangeDigitalInput:
		return "DigitalInput"
	}
	return "Unknown"
}

const (
	vifExtensionFD byte = 0xFD
	vifExtensionFB byte = 0xFB
	vifASCIIUnit   byte = 0x7C
)

// fdExtensionTable maps the VIFE byte (masked to 7 bits) that follows a
// primary VIF of 0xFD to its normalized range. Only the sub-ranges this
// repository's drivers actually consume are listed; anything else decodes
// to VIFRangeUnknown rather than failing the whole record.
var fdExtensionTable = map[byte]VIFRange{
	0x17: VIFRangeErrorFlags,
	0x1B: VIFRangeDigitalInput,
}

// fbExtensionTable is the 0xFB sibling table (finer temperature/pressure
// precision extensions). Empty beyond the default Unknown fallback: none
// of this repository's representative drivers need an 0xFB sub-range, but
// the hook exists so a new driver can register one without touching the
// parser's control flow.
var fbExtensionTable = map[byte]VIFRange{}

// parseVIFChain reads the VIF byte at *pos plus any VIFE continuation
// bytes, advances *pos past all of them (including a trailing 0x7C
// ASCII-unit length-prefixed string, if present), and returns the
// normalized range and scale exponent.
func parseVIFChain(data []byte, pos *int) (VIFRange, int, int, error) {
	if *pos >= len(data) {
		return VIFRangeNone, 0, 0, fmt.Errorf("dvparser: truncated, missing VIF")
	}
	vif := data[*pos]
	*pos++

	maskedVIF := vif &^ 0x80
	vifRange, scale := classifyPrimaryVIF(maskedVIF)

	if vif&0x80 != 0 {
		if *pos >= len(data) {
			return VIFRangeNone, 0, 0, fmt.Errorf("dvparser: truncated VIFE extension")
		}
		if vif == vifExtensionFD || vif == vifExtensionFB {
			ext := data[*pos] &^ 0x80
			table := fdExtensionTable
			if vif == vifExtensionFB {
				table = fbExtensionTable
			}
			if r, ok := table[ext]; ok {
				vifRange = r
			} else {
				vifRange = VIFRangeUnknown
			}
			scale = 0
		}

		cur := vif
		for cur&0x80 != 0 {
			if *pos >= len(data) {
				return VIFRangeNone, 0, 0, fmt.Errorf("dvparser: truncated VIFE chain")
			}
			cur = data[*pos]
			*pos++
		}
	}

	asciiLen := 0
	if maskedVIF == vifASCIIUnit {
		if *pos >= len(data) {
			return VIFRangeNone, 0, 0, fmt.Errorf("dvparser: truncated ASCII VIF unit length")
		}
		l := int(data[*pos])
		*pos++
		if *pos+l > len(data) {
			return VIFRangeNone, 0, 0, fmt.Errorf("dvparser: truncated ASCII VIF unit string")
		}
		*pos += l
		asciiLen = l
	}

	return vifRange, scale, asciiLen, nil
}

// classifyPrimaryVIF maps a bare (bit7-masked) VIF byte to a range and
// scale exponent. Extension-table VIFs (0xFD/0xFB) are resolved by the
// caller once the following VIFE byte is known.
func classifyPrimaryVIF(vif byte) (VIFRange, int) {
	switch {
	case vif <= 0x07:
		return VIFRangeAnyEnergyVIF, int(vif) - 3 // Wh * 10^(n-3)
	case vif >= 0x08 && vif <= 0x0F:
		return VIFRangeAnyEnergyVIF, int(vif&0x07) // kWh * 10^n, n=0..7
	case vif >= 0x10 && vif <= 0x17:
		return VIFRangeVolume, int(vif&0x07) - 6 // m3 * 10^(n-6)
	case vif >= 0x38 && vif <= 0x3F:
		return VIFRangeVolumeFlow, int(vif&0x07) - 6 // m3/h * 10^(n-6)
	case vif >= 0x58 && vif <= 0x5B:
		return VIFRangeFlowTemperature, int(vif&0x03) - 3 // C * 10^(n-3)
	case vif >= 0x64 && vif <= 0x67:
		return VIFRangeExternalTemperature, int(vif&0x03) - 3 // C * 10^(n-3)
	case vif == 0x6C:
		return VIFRangeDate, 0
	case vif == 0x6D:
		return VIFRangeDateTime, 0
	}
	return VIFRangeUnknown, 0
}
