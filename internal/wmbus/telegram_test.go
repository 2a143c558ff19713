package wmbus

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFrame(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestDecodeIperlHeader(t *testing.T) {
	frame := mustFrame(t, "1E44AE4C9956341268077A360010002F2F0413181E0000023B00002F2F2F2F")
	tg, err := Decode(frame)
	require.NoError(t, err)

	assert.Equal(t, "12345699", tg.ID())
	assert.Equal(t, byte(0x68), tg.Version())
	assert.Equal(t, byte(0x07), tg.Type())
	assert.Equal(t, "SEN", DecodeManufacturer(tg.MField))
	assert.Equal(t, byte(0x36), tg.Acc)
	assert.Equal(t, uint16(0x0010), tg.Config)
	assert.Equal(t, "2F2F0413181E0000023B00002F2F2F2F", hexUpper(tg.Payload))
}

func TestDecodeRejectsShortFrame(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func hexUpper(b []byte) string {
	const hexDigits = "0123456789ABCDEF"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0F]
	}
	return string(out)
}
