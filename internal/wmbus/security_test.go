package wmbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySecurityNoneCopiesPayload(t *testing.T) {
	tg := &Telegram{Payload: []byte{0x2F, 0x2F, 0x01, 0x02}}
	err := Apply(tg, nil, SecurityNone, true)
	require.NoError(t, err)
	assert.Equal(t, tg.Payload, tg.Content)
}

func TestApplyRejectsMissingKey(t *testing.T) {
	tg := &Telegram{Payload: make([]byte, 16)}
	err := Apply(tg, nil, SecurityCBCNoIV, false)
	assert.Error(t, err)
}

func TestApplyCBCNoIVRejectsMissingMarker(t *testing.T) {
	key := make([]byte, 16)
	tg := &Telegram{Payload: make([]byte, 16)}
	err := Apply(tg, key, SecurityCBCNoIV, true)
	assert.Error(t, err)
}

func TestSelectModeFallsBackToExpectedWhenConfigEmpty(t *testing.T) {
	tg := &Telegram{Config: 0}
	assert.Equal(t, SecurityCBCIV, SelectMode(tg, SecurityCBCIV))
}

func TestSelectModeReadsConfigWord(t *testing.T) {
	tg := &Telegram{Config: 0x0800}
	assert.Equal(t, SecurityCBCNoIV, SelectMode(tg, SecurityNone))
}
