package meters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectExactTriple(t *testing.T) {
	info, ok := Detect(mustEncodeMfct("SEN"), 0x68, 0x07)
	require.True(t, ok)
	assert.Equal(t, "iperl", info.Name)
}

func TestDetectFallsBackOnMfctHighBit(t *testing.T) {
	mfct := mustEncodeMfct("APT")
	_, ok := Detect(mfct|0x8000, 0x03, 0x03)
	require.True(t, ok)
}

func TestDetectNoMatch(t *testing.T) {
	_, ok := Detect(0xFFFF, 0xFF, 0xFF)
	assert.False(t, ok)
}

func TestMatchesIDPattern(t *testing.T) {
	assert.True(t, Matches("*", "12345678"))
	assert.True(t, Matches("123*", "12345678"))
	assert.False(t, Matches("999*", "12345678"))
	assert.True(t, Matches("12345678", "12345678"))
	assert.False(t, Matches("12345678", "12345679"))
}
