package meters

import "github.com/lindqvist/wmbusmeters/internal/wmbus"

// mustEncodeMfct packs a 3-letter manufacturer code at init time; a driver
// registering an invalid code is a programming error and panics rather
// than silently never matching.
func mustEncodeMfct(letters string) uint16 {
	v, err := wmbus.EncodeManufacturer(letters)
	if err != nil {
		panic(err)
	}
	return v
}
