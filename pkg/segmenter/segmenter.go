// Package segmenter estimates how many SMS parts a message body occupies
// on the wire. Broadcasts are billed per recipient, not per part, but the
// part count is surfaced in logs and the send-test tool so operators can
// spot bodies that silently doubled their gateway cost.
package segmenter

import "unicode/utf16"

const (
	gsm7SingleLimit    = 160
	gsm7MultipartLimit = 153 // 160 minus the 7-byte concatenation UDH
	ucs2SingleLimit    = 70
	ucs2MultipartLimit = 67 // 70 minus 3 UTF-16 units of UDH
)

// Info describes how a message body maps onto SMS parts.
type Info struct {
	Parts    int
	Units    int  // septets for GSM-7, UTF-16 code units for UCS-2
	UCS2     bool // true when the body needs the 70-char UCS-2 alphabet
}

// Analyze computes the part count for a message body. Bodies outside the
// basic GSM-7 range fall back to UCS-2 with its shorter part limits.
func Analyze(body string) Info {
	if body == "" {
		return Info{Parts: 1}
	}

	ucs2 := !fitsGSM7(body)
	var units, single, multi int
	if ucs2 {
		units = len(utf16.Encode([]rune(body)))
		single, multi = ucs2SingleLimit, ucs2MultipartLimit
	} else {
		units = len(body)
		single, multi = gsm7SingleLimit, gsm7MultipartLimit
	}

	parts := 1
	if units > single {
		parts = (units + multi - 1) / multi
	}
	return Info{Parts: parts, Units: units, UCS2: ucs2}
}

// Count returns just the part count for a message body.
func Count(body string) int {
	return Analyze(body).Parts
}

// fitsGSM7 approximates GSM 03.38 membership with the ASCII range.
// Extended GSM-7 characters outside ASCII are treated as UCS-2, which
// overestimates parts for a handful of symbols rather than underbilling.
func fitsGSM7(s string) bool {
	for _, r := range s {
		if r > 0x7F {
			return false
		}
	}
	return true
}
