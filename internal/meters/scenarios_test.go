package meters

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindqvist/wmbusmeters/internal/wmbus"
)

func decodeFrame(t *testing.T, hexStr string) *wmbus.Telegram {
	t.Helper()
	frame, err := hex.DecodeString(hexStr)
	require.NoError(t, err)
	tg, err := wmbus.Decode(frame)
	require.NoError(t, err)
	return tg
}

func newMeterFor(name, idPattern string, key []byte) *Meter {
	info, _ := Lookup(name)
	return New(Info{Name: name, DriverName: name, IDPattern: idPattern, Key: key}, info)
}

func TestScenarioIperlEncrypted(t *testing.T) {
	tg := decodeFrame(t, "1E44AE4C9956341268077A360010002F2F0413181E0000023B00002F2F2F2F")
	m := newMeterFor("iperl", "12345699", nil)
	ok := m.Receive(tg, nil)
	require.True(t, ok)

	assert.Equal(t, "12345699", tg.ID())
	assert.InDelta(t, 7.704, m.Fields["total_m3"], 0.0001)
	assert.InDelta(t, 0, m.Fields["max_flow_m3h"], 0.0001)
}

func TestScenarioIperlUnencrypted(t *testing.T) {
	tg := decodeFrame(t, "1844AE4C4455223368077A55000000041389E20100023B0000")
	m := newMeterFor("iperl", "33225544", nil)
	ok := m.Receive(tg, nil)
	require.True(t, ok)

	assert.InDelta(t, 123.529, m.Fields["total_m3"], 0.0001)
	assert.InDelta(t, 0, m.Fields["max_flow_m3h"], 0.0001)
}

func TestScenarioApator08Proprietary(t *testing.T) {
	tg := decodeFrame(t, "73441486DD4444000303A0B9E52700")
	m := newMeterFor("apator08", "004444dd", nil)
	ok := m.Receive(tg, nil)
	require.True(t, ok)

	assert.Equal(t, "004444dd", tg.ID())
	assert.InDelta(t, 871.571, m.Fields["total_m3"], 0.001)
}

func TestScenarioDME07(t *testing.T) {
	tg := decodeFrame(t, "1E44A511909192937B077A9F0000002F2F04130347030002FD17000000")
	m := newMeterFor("dme_07", "93929190", nil)
	ok := m.Receive(tg, nil)
	require.True(t, ok)

	assert.Equal(t, "OK", m.Status)
	assert.InDelta(t, 214.787, m.Fields["total_m3"], 0.001)
}

func TestScenarioSupercom587(t *testing.T) {
	tg := decodeFrame(t, "A244EE4D785634123C067A8F0000000C1348550000")
	m := newMeterFor("supercom587", "12345678", nil)
	ok := m.Receive(tg, nil)
	require.True(t, ok)

	assert.InDelta(t, 5.548, m.Fields["total_m3"], 0.001)
}

func TestScenarioUnknownMeterAutoDetection(t *testing.T) {
	tg := decodeFrame(t, "73441486DD4444000303A0B9E52700")

	driver, ok := Detect(tg.MField, tg.Version(), tg.Type())
	require.True(t, ok)
	assert.Equal(t, "apator08", driver.Name)

	m := New(Info{Name: "auto", DriverName: "auto", IDPattern: "*"}, nil)
	received := m.Receive(tg, func(tg *wmbus.Telegram) (*DriverInfo, bool) {
		return Detect(tg.MField, tg.Version(), tg.Type())
	})
	require.True(t, received)
	assert.InDelta(t, 871.571, m.Fields["total_m3"], 0.001)
	assert.Equal(t, "004444dd", m.LastID)
}
