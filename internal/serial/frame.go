package serial

import (
	"encoding/hex"
	"strings"

	"github.com/lindqvist/wmbusmeters/internal/crc"
	"github.com/lindqvist/wmbusmeters/internal/wlog"
)

// FrameAssembler turns one dongle's raw byte stream into canonical wM-Bus
// frames: a length byte L followed by exactly L more bytes. The four
// dongle flavours differ only in how their own framing is stripped away
// to reach that embedded telegram; once stripped, every flavour hands
// the same canonical shape to wmbus.Decode.
type FrameAssembler struct {
	flavour Flavour
	buf     []byte // binary flavours: raw accumulated bytes
	lineBuf []byte // text flavours: accumulated partial line
}

// NewFrameAssembler returns an assembler for the given dongle flavour.
func NewFrameAssembler(flavour Flavour) *FrameAssembler {
	return &FrameAssembler{flavour: flavour}
}

// Feed appends chunk to the assembler's internal buffer and returns every
// complete canonical frame that can now be extracted. The bytes of a
// partial frame stay buffered for the next Feed call; garbage preceding a
// plausible start marker is discarded.
func (fa *FrameAssembler) Feed(chunk []byte) [][]byte {
	switch fa.flavour {
	case FlavourIM871A:
		return fa.feedIM871A(chunk)
	case FlavourAMB8465:
		return fa.feedAMB8465(chunk)
	default:
		return fa.feedTextLines(chunk)
	}
}

const im871aSOF = 0xA5

// feedIM871A strips the IM871A HCI header (SOF, endpoint, msg-id, length)
// around an embedded canonical telegram.
func (fa *FrameAssembler) feedIM871A(chunk []byte) [][]byte {
	fa.buf = append(fa.buf, chunk...)
	var out [][]byte

	for {
		sof := indexByte(fa.buf, im871aSOF)
		if sof < 0 {
			fa.buf = nil
			return out
		}
		if sof > 0 {
			fa.buf = fa.buf[sof:]
		}
		if len(fa.buf) < 4 {
			return out
		}
		payloadLen := int(fa.buf[3])
		total := 4 + payloadLen
		if len(fa.buf) < total {
			return out
		}
		frame := append([]byte{}, fa.buf[4:total]...)
		fa.buf = fa.buf[total:]
		if len(frame) >= 1 && int(frame[0])+1 == len(frame) {
			out = append(out, frame)
		} else {
			wlog.Default.Debug("serial: im871a payload length mismatch, dropping frame")
		}
	}
}

const (
	slipEnd    = 0xC0
	slipEsc    = 0xDB
	slipEscEnd = 0xDC
	slipEscEsc = 0xDD
)

// feedAMB8465 unescapes SLIP-framed bytes delimited by slipEnd, one
// embedded canonical telegram per frame.
func (fa *FrameAssembler) feedAMB8465(chunk []byte) [][]byte {
	fa.buf = append(fa.buf, chunk...)
	var out [][]byte

	for {
		end := indexByte(fa.buf, slipEnd)
		if end < 0 {
			if len(fa.buf) > 4096 {
				// Runaway buffer with no delimiter: dongle framing
				// garbage, discard per the ShortFrame failure mode.
				fa.buf = nil
			}
			return out
		}
		raw := fa.buf[:end]
		fa.buf = fa.buf[end+1:]
		if len(raw) == 0 {
			continue
		}
		frame := unescapeSLIP(raw)
		if len(frame) >= 1 && int(frame[0])+1 == len(frame) {
			out = append(out, frame)
		} else {
			wlog.Default.Debug("serial: amb8465 slip frame length mismatch, dropping")
		}
	}
}

func unescapeSLIP(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		if b == slipEsc && i+1 < len(raw) {
			i++
			switch raw[i] {
			case slipEscEnd:
				out = append(out, slipEnd)
			case slipEscEsc:
				out = append(out, slipEsc)
			default:
				out = append(out, raw[i])
			}
			continue
		}
		out = append(out, b)
	}
	return out
}

// feedTextLines handles CUL ("b...") and rtl-wmbus (hex plus an RSSI
// suffix) text lines: accumulate until a newline, then hex-decode the
// telegram portion of the line.
func (fa *FrameAssembler) feedTextLines(chunk []byte) [][]byte {
	fa.lineBuf = append(fa.lineBuf, chunk...)
	var out [][]byte

	for {
		nl := indexByte(fa.lineBuf, '\n')
		if nl < 0 {
			return out
		}
		line := strings.TrimRight(string(fa.lineBuf[:nl]), "\r")
		fa.lineBuf = fa.lineBuf[nl+1:]

		hexPart := line
		if fa.flavour == FlavourCUL {
			hexPart = strings.TrimPrefix(hexPart, "b")
		}
		// rtl-wmbus lines append an RSSI reading after whitespace; the
		// telegram itself is the first whitespace-delimited token.
		if fields := strings.Fields(hexPart); len(fields) > 0 {
			hexPart = fields[0]
		}

		frame, err := hex.DecodeString(hexPart)
		if err != nil || len(frame) < 1 {
			if hexPart != "" {
				wlog.Default.Debug("serial: unparsable text frame line %q: %v", line, err)
			}
			continue
		}
		if int(frame[0])+1 != len(frame) {
			wlog.Default.Debug("serial: text frame length mismatch on line %q", line)
			continue
		}
		out = append(out, frame)
	}
}

// StripAndValidateBlockCRC checks frame's trailing two bytes as an
// EN-13757 block CRC and returns the frame with them removed. Only
// dongle configurations that emit a trailing block CRC should call this;
// it is not applied unconditionally since not every flavour's firmware
// option appends one.
func StripAndValidateBlockCRC(frame []byte) ([]byte, bool) {
	if len(frame) < 3 {
		return frame, false
	}
	if !crc.Valid(frame[1:]) {
		return nil, false
	}
	return frame[:len(frame)-2], true
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
