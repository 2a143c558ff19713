package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindqvist/wmbusmeters/internal/crc"
)

func TestIM871AFeedExtractsEmbeddedTelegram(t *testing.T) {
	telegram := []byte{0x04, 0xAA, 0xBB, 0xCC, 0xDD}
	hci := append([]byte{im871aSOF, 0x03, 0x01, byte(len(telegram))}, telegram...)

	fa := NewFrameAssembler(FlavourIM871A)
	frames := fa.Feed(hci)
	require.Len(t, frames, 1)
	assert.Equal(t, telegram, frames[0])
}

func TestIM871AFeedAcrossTwoChunksReassembles(t *testing.T) {
	telegram := []byte{0x02, 0x11, 0x22}
	hci := append([]byte{im871aSOF, 0x03, 0x01, byte(len(telegram))}, telegram...)

	fa := NewFrameAssembler(FlavourIM871A)
	var out [][]byte
	out = append(out, fa.Feed(hci[:3])...)
	out = append(out, fa.Feed(hci[3:])...)
	require.Len(t, out, 1)
	assert.Equal(t, telegram, out[0])
}

func TestIM871ADiscardsGarbageBeforeSOF(t *testing.T) {
	telegram := []byte{0x01, 0x55}
	hci := append([]byte{0xFF, 0xFF, im871aSOF, 0x03, 0x01, byte(len(telegram))}, telegram...)

	fa := NewFrameAssembler(FlavourIM871A)
	frames := fa.Feed(hci)
	require.Len(t, frames, 1)
	assert.Equal(t, telegram, frames[0])
}

func TestAMB8465SlipRoundTrip(t *testing.T) {
	telegram := []byte{0x03, 0xC0, 0xDB, 0x01}
	escaped := unescapeSLIPInverse(telegram)
	framed := append(append([]byte{}, escaped...), slipEnd)

	fa := NewFrameAssembler(FlavourAMB8465)
	frames := fa.Feed(framed)
	require.Len(t, frames, 1)
	assert.Equal(t, telegram, frames[0])
}

func TestCULTextLineDecodes(t *testing.T) {
	telegram := []byte{0x02, 0xAB, 0xCD}
	line := "b" + hexEncode(telegram) + "\n"

	fa := NewFrameAssembler(FlavourCUL)
	frames := fa.Feed([]byte(line))
	require.Len(t, frames, 1)
	assert.Equal(t, telegram, frames[0])
}

func TestRTLWMBusLineStripsRSSISuffix(t *testing.T) {
	telegram := []byte{0x02, 0x99, 0x88}
	line := hexEncode(telegram) + " -67\n"

	fa := NewFrameAssembler(FlavourRTLWMBus)
	frames := fa.Feed([]byte(line))
	require.Len(t, frames, 1)
	assert.Equal(t, telegram, frames[0])
}

func TestStripAndValidateBlockCRC(t *testing.T) {
	payload := []byte{0x01, 0xFD, 0x1F, 0x01}
	frame := append([]byte{0x05}, payload...)
	val := crc.Block(payload)
	frame = append(frame, byte(val>>8), byte(val))

	stripped, ok := StripAndValidateBlockCRC(frame)
	require.True(t, ok)
	assert.Equal(t, append([]byte{0x05}, payload...), stripped)
}

// unescapeSLIPInverse is the escaping counterpart to unescapeSLIP, used
// only by the round-trip test to build escaped fixtures.
func unescapeSLIPInverse(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		switch b {
		case slipEnd:
			out = append(out, slipEsc, slipEscEnd)
		case slipEsc:
			out = append(out, slipEsc, slipEscEsc)
		default:
			out = append(out, b)
		}
	}
	return out
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0F]
	}
	return string(out)
}
