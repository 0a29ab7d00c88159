package vitals

import (
	"math"
	"strings"
)

// ParseBloodPressure splits "systolic/diastolic". A value without a "/" is
// malformed and yields (0, 0); otherwise each side is parsed on its own and
// an unparsable side is 0.
func ParseBloodPressure(bp *string) (systolic, diastolic int) {
	if bp == nil {
		return 0, 0
	}
	parts := strings.Split(*bp, "/")
	if len(parts) < 2 {
		return 0, 0
	}
	return leadingInt(parts[0]), leadingInt(parts[1])
}

// leadingInt reads an optionally signed decimal prefix after leading
// whitespace, so "120 mmHg" is 120 and "abc" is 0. A prefix that does not
// fit in 32 bits is unreadable and is 0 as well.
func leadingInt(s string) int {
	s = strings.TrimLeft(s, " \t\r\n")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		if n > math.MaxInt32 {
			return 0
		}
		digits++
	}
	if digits == 0 {
		return 0
	}
	if neg {
		return -n
	}
	return n
}
