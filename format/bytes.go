// bytes.go - Parsen von Groessenangaben wie "4GB" oder "4096MB"
//
// Enthaelt:
// - ParseBytes: Wandelt eine Groessenangabe in eine exakte Byte-Anzahl um
// - ErrFormat: Sentinel fuer ungueltige Groessenangaben
package format

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	Byte = 1

	KibiByte = Byte * 1024
	MebiByte = KibiByte * 1024
	GibiByte = MebiByte * 1024
	TebiByte = GibiByte * 1024
)

// ErrFormat is returned for size strings that cannot be parsed.
var ErrFormat = errors.New("invalid size")

var sizePattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*([a-zA-Z]*)\s*$`)

// multipliers sind Zweierpotenzen, auch fuer KB/MB/GB/TB
var multipliers = map[string]float64{
	"":    Byte,
	"B":   Byte,
	"K":   KibiByte,
	"KB":  KibiByte,
	"KIB": KibiByte,
	"M":   MebiByte,
	"MB":  MebiByte,
	"MIB": MebiByte,
	"G":   GibiByte,
	"GB":  GibiByte,
	"GIB": GibiByte,
	"T":   TebiByte,
	"TB":  TebiByte,
	"TIB": TebiByte,
}

// ParseBytes parses a human readable size such as "4GB", "4096MB", "1.5 GiB" or
// "1048576" into a byte count. Units are case-insensitive powers of 1024 and the
// result is truncated toward zero.
func ParseBytes(s string) (int64, error) {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q (examples: 4GB, 4096MB, 1048576)", ErrFormat, s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrFormat, s, err)
	}

	unit := strings.ToUpper(m[2])
	multiplier, ok := multipliers[unit]
	if !ok {
		return 0, fmt.Errorf("%w: unsupported unit %q", ErrFormat, m[2])
	}

	n := value * multiplier
	if n >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q is too large", ErrFormat, s)
	}
	return int64(n), nil
}
