package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockKnownVectors(t *testing.T) {
	cases := []struct {
		data []byte
		want uint16
	}{
		{[]byte{0x01, 0xfd, 0x1f, 0x01}, 0xcc22},
		{[]byte{0x01, 0xfd, 0x1f, 0x00}, 0xf147},
		{[]byte{0xEE, 0x44, 0x9A, 0xCE, 0x01, 0x00, 0x00, 0x80, 0x23, 0x07}, 0xaabc},
		{[]byte("123456789"), 0xc2b7},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Block(c.data))
	}
}

func TestValidDetectsCorruption(t *testing.T) {
	data := []byte{0x01, 0xfd, 0x1f, 0x01}
	crcVal := Block(data)
	frame := append(append([]byte{}, data...), byte(crcVal>>8), byte(crcVal))
	assert.True(t, Valid(frame))

	frame[0] ^= 0xFF
	assert.False(t, Valid(frame))
}
