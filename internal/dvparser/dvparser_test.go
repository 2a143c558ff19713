package dvparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIperlVolumeRecord(t *testing.T) {
	// DIF=0x04 (4-byte int), VIF=0x13 (Volume, 10^-3 m3), value LE 0x6D010000
	data := []byte{0x04, 0x13, 0x6D, 0x01, 0x00, 0x00}
	m, err := Parse(data)
	require.NoError(t, err)

	e, ok := m.Find(Instantaneous, VIFRangeVolume, ANY, ANY)
	require.True(t, ok)
	assert.Equal(t, -3, e.ScaleExponent)

	v, err := ExtractDouble(e, true)
	require.NoError(t, err)
	assert.InDelta(t, 0.365, v, 0.0001)
}

func TestParseConsumesEntireInput(t *testing.T) {
	data := []byte{
		0x04, 0x13, 0x6D, 0x01, 0x00, 0x00, // volume
		0x02, 0x59, 0x14, 0x01, // flow temperature, 2-byte int
	}
	m, err := Parse(data)
	require.NoError(t, err)
	assert.Len(t, m.entries, 2)

	_, ok := m.Find(Instantaneous, VIFRangeFlowTemperature, ANY, ANY)
	assert.True(t, ok)
}

func TestParseManufacturerSpecificStopsTheWalk(t *testing.T) {
	data := []byte{0x04, 0x13, 0x6D, 0x01, 0x00, 0x00, 0x0F, 0xAA, 0xBB}
	m, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, m.ManufacturerData)
	assert.False(t, m.MoreRecordsFollow)
}

func TestParseFillBytesAreSkipped(t *testing.T) {
	data := []byte{0x2F, 0x2F, 0x04, 0x13, 0x6D, 0x01, 0x00, 0x00}
	m, err := Parse(data)
	require.NoError(t, err)
	_, ok := m.Find(Instantaneous, VIFRangeVolume, ANY, ANY)
	assert.True(t, ok)
}

func TestInsertDisambiguatesCollidingKeys(t *testing.T) {
	data := []byte{
		0x04, 0x13, 0x01, 0x00, 0x00, 0x00,
		0x04, 0x13, 0x02, 0x00, 0x00, 0x00,
	}
	m, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, m.entries, 2)

	first, ok := m.Lookup("0413")
	require.True(t, ok)
	second, ok := m.Lookup("0413_1")
	require.True(t, ok)
	assert.NotEqual(t, first.Value, second.Value)

	nth, ok := m.FindNth(Instantaneous, VIFRangeVolume, ANY, ANY, 1)
	require.True(t, ok)
	assert.Equal(t, second.Value, nth.Value)
}

func TestStorageAndTariffFilters(t *testing.T) {
	// DIF=0xC4 (storage bit set, 4-byte int) + DIFE 0x01 (adds storage bit1)
	data := []byte{0xC4, 0x01, 0x13, 0x05, 0x00, 0x00, 0x00}
	m, err := Parse(data)
	require.NoError(t, err)

	e, ok := m.Find(Instantaneous, VIFRangeVolume, 3, ANY)
	require.True(t, ok)
	assert.Equal(t, 3, e.StorageNr)

	_, ok = m.Find(Instantaneous, VIFRangeVolume, 0, ANY)
	assert.False(t, ok)
}

func TestExtendedVIFErrorFlags(t *testing.T) {
	data := []byte{0x02, 0xFD, 0x17, 0x00, 0x00}
	m, err := Parse(data)
	require.NoError(t, err)
	_, ok := m.Find(Instantaneous, VIFRangeErrorFlags, ANY, ANY)
	assert.True(t, ok)
}

func TestDateRoundTrip(t *testing.T) {
	d := Date{Year: 2023, Month: 11, Day: 17}
	enc := EncodeDateG(d)
	entry := &DVEntry{Value: "", format: formatNone}
	entry.Value = hexString(enc[:])
	got, err := ExtractDate(entry)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestDateTimeRoundTrip(t *testing.T) {
	d := Date{Year: 2023, Month: 11, Day: 17, Hour: 13, Minute: 45, HasTime: true}
	enc := EncodeDateF(d)
	entry := &DVEntry{Value: hexString(enc[:])}
	got, err := ExtractDate(entry)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func hexString(b []byte) string {
	const hexDigits = "0123456789ABCDEF"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0F]
	}
	return string(out)
}
