package meters

import (
	"strings"
	"time"

	"github.com/lindqvist/wmbusmeters/internal/dvparser"
	"github.com/lindqvist/wmbusmeters/internal/wlog"
	"github.com/lindqvist/wmbusmeters/internal/wmbus"
)

// Info is the static configuration for one meter entry from
// /etc/wmbusmeters.d/: name, driver override, id pattern, key, extra
// constant fields.
type Info struct {
	Name       string
	DriverName string // "auto" selects a driver per-telegram from Detect
	IDPattern  string
	Key        []byte // 16 bytes, or empty for no decryption
	Shells     []string
	Constants  map[string]string
}

// Meter is one configured meter's live state: current fields, update
// count, last update time, and the driver instance that will process
// telegrams for it. It is owned exclusively by the dispatch loop; no
// other goroutine may touch it.
type Meter struct {
	Info        Info
	Driver      *DriverInfo
	Category    Category
	Fields      map[string]float64
	Strings     map[string]string
	Status      string
	UpdateCount int
	LastUpdate  time.Time
	OnUpdate    []func(*Meter)

	// LastID is the decoded id of the telegram that produced the most
	// recent reading. It differs from Info.IDPattern whenever the
	// pattern is a wildcard (e.g. "*" or "123*") matching more than one
	// physical meter; printed/reported output uses this, not the
	// pattern, to identify which device actually reported.
	LastID string
}

// New creates a Meter bound to info. If info.DriverName is "auto", the
// concrete driver is resolved per telegram in Receive instead of here.
func New(info Info, explicit *DriverInfo) *Meter {
	m := &Meter{Info: info, Fields: map[string]float64{}, Strings: map[string]string{}, Status: "OK"}
	if explicit != nil {
		m.Driver = explicit
		m.Category = explicit.Category
	}
	return m
}

// Matches reports whether id satisfies the meter's id pattern: "*" matches
// anything, and a pattern may combine a literal digit prefix with a
// trailing "*" (e.g. "12*" matches any id starting "12").
func Matches(pattern, id string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(id, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == id
}

// Receive runs the full per-telegram pipeline against m: id match, decrypt,
// parse, driver dispatch, and the update bookkeeping in §4.7. It never
// panics on a malformed or undecryptable telegram; failures are recorded
// on the meter and logged, not propagated, matching the "partial parse
// is allowed, the process does not crash" policy.
func (m *Meter) Receive(tg *wmbus.Telegram, driverForAuto func(tg *wmbus.Telegram) (*DriverInfo, bool)) bool {
	if !Matches(m.Info.IDPattern, tg.ID()) {
		return false
	}

	driver := m.Driver
	if driver == nil || m.Info.DriverName == "" || m.Info.DriverName == "auto" {
		found, ok := driverForAuto(tg)
		if !ok {
			found, ok = Lookup("unknown")
		}
		if !ok {
			wlog.Default.Debug("meter %s: no driver matches telegram id=%s", m.Info.Name, tg.ID())
			return false
		}
		driver = found
	}

	mode := wmbus.SelectMode(tg, driver.ExpectedSecurity)
	if err := wmbus.Apply(tg, m.Info.Key, mode, driver.ExpectMarker); err != nil {
		m.Status = "DecryptError"
		wlog.Default.Error("meter %s: %v", m.Info.Name, err)
		return true
	}

	entries, err := dvparser.Parse(tg.Content[tplHeaderSkip(tg):])
	if err != nil {
		wlog.Default.Debug("meter %s: partial parse: %v", m.Info.Name, err)
	}
	tg.DVEntries = entries

	instance := driver.New()
	snap, err := instance.Process(tg)
	if err != nil {
		wlog.Default.Error("meter %s: driver %s: %v", m.Info.Name, driver.Name, err)
		return true
	}

	for k, v := range snap.Fields {
		m.Fields[k] = v
	}
	for k, v := range snap.Strings {
		m.Strings[k] = v
	}
	for k, v := range m.Info.Constants {
		m.Strings[k] = v
	}
	m.Status = snap.Status
	m.Category = snap.MediaCategory
	m.Driver = driver
	m.LastID = tg.ID()
	m.UpdateCount++
	m.LastUpdate = time.Now()

	for _, cb := range m.OnUpdate {
		cb(m)
	}
	return true
}

// tplHeaderSkip accounts for telegrams whose Content still carries a
// leading 0x2F 0x2F "ok" marker ahead of the DIF/VIF record stream; the
// marker itself is not a record and must not be fed to the parser.
func tplHeaderSkip(tg *wmbus.Telegram) int {
	if len(tg.Content) >= 2 && tg.Content[0] == 0x2F && tg.Content[1] == 0x2F {
		return 2
	}
	return 0
}
