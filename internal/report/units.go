package report

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Prefixes holds the magnitude prefixes in order. Except for case, they are
// shared by SI, IEC and UNIX units.
const Prefixes = "kMGTPEZY"

// MaxSizeChars is the width of the numeric size field.
const MaxSizeChars = 4

// ErrUnknownUnits is returned for a units token that is neither a unit class
// nor an explicit unit.
var ErrUnknownUnits = errors.New("unknown units")

// Kind is the class of a Units value.
type Kind int

const (
	// Raw leaves sizes unscaled.
	Raw Kind = iota
	// UNIX uses binary magnitudes with single-letter names (K, M, ...).
	UNIX
	// IEC uses binary magnitudes with IEC names (KiB, MiB, ...).
	IEC
	// SI uses decimal magnitudes with SI names (kB, MB, ...).
	SI
	// Explicit uses a fixed magnitude given by the caller.
	Explicit
)

// Units describes how sizes are scaled and named.
type Units struct {
	Kind Kind
	// Order is the fixed magnitude of Explicit units.
	Order int
	// Binary selects 1024 instead of 1000 as base for Explicit units.
	Binary bool
	// Token is the literal unit string of Explicit units.
	Token string
}

var explicitUnits = regexp.MustCompile(`^([` + strings.ToLower(Prefixes) + strings.ToUpper(Prefixes) + `])(i?)([bB]?)$`)

// ParseUnits parses a units token: "unix", "iec", "si" or an explicit unit
// such as "K", "KiB", "MB". Unknown tokens return Raw units and ErrUnknownUnits.
func ParseUnits(token string) (Units, error) {
	switch strings.ToLower(token) {
	case "unix":
		return Units{Kind: UNIX}, nil
	case "iec":
		return Units{Kind: IEC}, nil
	case "si":
		return Units{Kind: SI}, nil
	}

	match := explicitUnits.FindStringSubmatch(token)
	if match == nil {
		return Units{Kind: Raw}, fmt.Errorf("%w: %q", ErrUnknownUnits, token)
	}

	return Units{
		Kind:   Explicit,
		Order:  strings.Index(strings.ToUpper(Prefixes), strings.ToUpper(match[1])) + 1,
		Binary: match[2] == "i" || len(token) == 1,
		Token:  token,
	}, nil
}

// base returns the scaling factor of one magnitude step.
func base(binary bool) int64 {
	if binary {
		return 1024
	}

	return 1000
}

// order returns floor(log_step(size)) clamped to the known prefixes.
// Non-positive sizes have order 0.
//
// The order is floored, not rounded, as in log(size, base)//exp: 1023 bytes
// stay in bytes and 1536 bytes are 1.50K, not 2K.
// Integer division keeps exact powers such as 1000^3 from landing one order
// low through floating-point error.
func order(size, step int64) int {
	o := 0
	for size >= step && o < len(Prefixes) {
		size /= step
		o++
	}

	return o
}

// scale divides size by step^o.
func scale(size, step int64, o int) float64 {
	return float64(size) / math.Pow(float64(step), float64(o))
}

// prefix returns the prefix letter of order o, or "B" for order 0.
func prefix(o int) string {
	if o <= 0 {
		return "B"
	}

	return Prefixes[o-1 : o]
}

// AdjustFormat renders value in at most MaxSizeChars characters.
// Decimals are dropped when the integral part leaves no room for them or
// when no scaling was applied.
func AdjustFormat(value float64, order int) string {
	integral := len(strconv.FormatInt(int64(value), 10))

	precision := MaxSizeChars - integral - 1
	if integral+1 > MaxSizeChars || order == 0 {
		precision = 0
	}

	return fmt.Sprintf("%3.*f", precision, value)
}

// Humanize converts size in bytes to a size string and a unit string.
func Humanize(size int64, units Units) (string, string) {
	switch units.Kind {
	case Explicit:
		return AdjustFormat(scale(size, base(units.Binary), units.Order), units.Order), units.Token
	case UNIX:
		o := order(size, 1024)

		return AdjustFormat(scale(size, 1024, o), o), strings.ToUpper(prefix(o))
	case IEC:
		o := order(size, 1024)
		if o == 0 {
			return AdjustFormat(float64(size), o), "B"
		}

		return AdjustFormat(scale(size, 1024, o), o), strings.ToUpper(prefix(o)) + "iB"
	case SI:
		o := order(size, 1000)
		if o == 0 {
			return AdjustFormat(float64(size), o), "B"
		}

		return AdjustFormat(scale(size, 1000, o), o), prefix(o) + "B"
	default:
		return strconv.FormatInt(size, 10), "B"
	}
}

// HumanizeString is Humanize with a units token. Unknown tokens leave the
// size unscaled.
func HumanizeString(size int64, token string) (string, string) {
	units, _ := ParseUnits(token)

	return Humanize(size, units)
}
