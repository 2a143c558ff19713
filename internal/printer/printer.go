// Package printer renders a meter snapshot in the three output formats
// the CLI supports (human, fields, JSON) and, optionally, invokes a shell
// hook with the same data exposed as METER_* environment variables.
package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/lindqvist/wmbusmeters/internal/meters"
)

// Format selects the rendering the CLI's --format flag asked for.
type Format int

const (
	FormatHuman Format = iota
	FormatFields
	FormatJSON
)

// ParseFormat maps a --format flag value to a Format.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "human":
		return FormatHuman, true
	case "fields":
		return FormatFields, true
	case "json":
		return FormatJSON, true
	}
	return FormatHuman, false
}

// Printer renders Meter snapshots to w in the configured format.
type Printer struct {
	W         io.Writer
	Format    Format
	Separator string
	FieldList []string // for FormatFields; empty means every field, sorted
}

// New returns a Printer with the separator defaulted to a tab. The CLI's
// own --separator default is ";", and internal/app overwrites Separator
// with the CLI value.
func New(w io.Writer, format Format) *Printer {
	return &Printer{W: w, Format: format, Separator: "\t"}
}

// Print renders one reading of m.
func (p *Printer) Print(m *meters.Meter) error {
	switch p.Format {
	case FormatJSON:
		return p.printJSON(m)
	case FormatFields:
		return p.printFields(m)
	default:
		return p.printHuman(m)
	}
}

func (p *Printer) printHuman(m *meters.Meter) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\t%s\t", m.Info.Name, reportedID(m))
	for _, name := range sortedKeys(m.Fields) {
		fmt.Fprintf(&b, "%s %g\t", name, m.Fields[name])
	}
	fmt.Fprintf(&b, "%s\n", m.LastUpdate.Format(time.RFC3339))
	_, err := io.WriteString(p.W, b.String())
	return err
}

func (p *Printer) printFields(m *meters.Meter) error {
	names := p.FieldList
	if len(names) == 0 {
		names = sortedKeys(m.Fields)
	}
	parts := make([]string, 0, len(names)+2)
	parts = append(parts, m.Info.Name, reportedID(m))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%g", m.Fields[name]))
	}
	_, err := fmt.Fprintln(p.W, strings.Join(parts, p.Separator))
	return err
}

func (p *Printer) printJSON(m *meters.Meter) error {
	enc := json.NewEncoder(p.W)
	return enc.Encode(BuildJSON(m))
}

// reportedID is the id a reading should be reported under: the telegram's
// own decoded id when one has been received, falling back to the
// configured pattern (e.g. before any telegram has matched yet).
func reportedID(m *meters.Meter) string {
	if m.LastID != "" {
		return m.LastID
	}
	return m.Info.IDPattern
}

// BuildJSON returns the plain-object form of m's reading, shared between
// the JSON output format and the METER_jsonfull shell environment
// variable.
func BuildJSON(m *meters.Meter) map[string]interface{} {
	driverName := "auto"
	if m.Driver != nil {
		driverName = m.Driver.Name
	}
	obj := map[string]interface{}{
		"media": m.Category.String(),
		"meter": driverName,
		"name":  m.Info.Name,
		"id":    reportedID(m),
	}
	for k, v := range m.Strings {
		obj[k] = v
	}
	for k, v := range m.Fields {
		obj[k] = v
	}
	obj["timestamp"] = m.LastUpdate.Format(time.RFC3339)
	return obj
}

func sortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
