package printer

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindqvist/wmbusmeters/internal/meters"
)

func sampleMeter() *meters.Meter {
	m := meters.New(meters.Info{Name: "MoreWater", IDPattern: "12345699"}, nil)
	m.Fields["total_m3"] = 7.704
	m.Fields["max_flow_m3h"] = 0
	return m
}

func TestPrintJSONIncludesExpectedKeys(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, FormatJSON)
	require.NoError(t, p.Print(sampleMeter()))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "MoreWater", out["name"])
	assert.Equal(t, "12345699", out["id"])
	assert.Equal(t, 7.704, out["total_m3"])
}

func TestPrintFieldsUsesSeparator(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, FormatFields)
	p.Separator = ";"
	p.FieldList = []string{"total_m3"}
	require.NoError(t, p.Print(sampleMeter()))
	assert.Equal(t, "MoreWater;12345699;7.704\n", buf.String())
}

func TestPrintHumanIncludesName(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, FormatHuman)
	require.NoError(t, p.Print(sampleMeter()))
	assert.Contains(t, buf.String(), "MoreWater")
}

func TestPrintJSONUsesTelegramIDForWildcardPattern(t *testing.T) {
	m := meters.New(meters.Info{Name: "AnyMeter", IDPattern: "*"}, nil)
	m.LastID = "004444dd"
	m.Fields["total_m3"] = 871.571

	var buf bytes.Buffer
	p := New(&buf, FormatJSON)
	require.NoError(t, p.Print(m))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "004444dd", out["id"])
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat("json")
	assert.True(t, ok)
	assert.Equal(t, FormatJSON, f)

	_, ok = ParseFormat("bogus")
	assert.False(t, ok)
}
