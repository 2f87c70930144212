package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/idelchi/hdu/internal/logger"
	"github.com/idelchi/hdu/internal/usage"
)

// Verbosity levels.
const (
	VerbosityNone   = 0
	VerbosityLow    = 1
	VerbosityMedium = 2
	VerbosityHigh   = 3
	VerbosityDebug  = 5
)

// ErrUnknownSortKey is returned for a sort key other than name or size.
var ErrUnknownSortKey = errors.New("unknown sorting")

// Options configures report rendering.
type Options struct {
	// SortBy is one of name, size, optionally suffixed with _r or _reverse.
	SortBy string
	// Units is a units token, see ParseUnits.
	Units string
	// PercentPrecision is the number of decimal digits of percentages.
	PercentPrecision int
	// BarSize is the width of the progress bar (0 disables it).
	BarSize int
	// LineSeparator joins the report lines.
	LineSeparator string
	// Verbosity below VerbosityLow only renders the summary.
	Verbosity int
	// Logger receives warnings about invalid options. Nil discards them.
	Logger logrus.FieldLogger
}

// ParseSort splits a sort key into its field and direction.
// Unknown fields fall back to "name" and return ErrUnknownSortKey.
func ParseSort(key string) (string, bool, error) {
	field, reverse := key, false

	for _, suffix := range []string{"_reverse", "_r"} {
		if trimmed, ok := strings.CutSuffix(key, suffix); ok {
			field, reverse = trimmed, true

			break
		}
	}

	switch field {
	case "name", "size":
		return field, reverse, nil
	default:
		return "name", reverse, fmt.Errorf("%w: %q", ErrUnknownSortKey, key)
	}
}

// Sort returns entries sorted by field, keeping the traversal order of ties.
func Sort(entries []usage.Entry, field string, reverse bool) []usage.Entry {
	sorted := make([]usage.Entry, len(entries))
	copy(sorted, entries)

	less := func(i, j int) bool {
		if field == "size" {
			if reverse {
				return sorted[i].Size > sorted[j].Size
			}

			return sorted[i].Size < sorted[j].Size
		}

		if reverse {
			return sorted[i].Name > sorted[j].Name
		}

		return sorted[i].Name < sorted[j].Name
	}

	sort.SliceStable(sorted, less)

	return sorted
}

// Percent formats factor as a percentage right-aligned to fit 100% at precision.
func Percent(factor float64, precision int) string {
	return fmt.Sprintf("%*.*f%%", MaxSizeChars+precision, precision, factor*100)
}

// Render converts stats into the human-readable report.
func Render(stats *usage.Stats, opt Options) string {
	log := logger.OrDiscard(opt.Logger)

	units, err := ParseUnits(opt.Units)
	if err != nil {
		log.Warnf("%v. Fall back to: B", err)
	}

	totalSize, totalUnits := Humanize(stats.TotalBytes, units)
	// Assumes unit names do not grow shorter with size.
	unitWidth := len(totalUnits) + 1

	lines := make([]string, 0, len(stats.Entries)+2)

	if opt.Verbosity >= VerbosityLow {
		field, reverse, err := ParseSort(opt.SortBy)
		if err != nil {
			log.Warnf("%v. Fall back to: name", err)
		}

		for _, entry := range Sort(stats.Entries, field, reverse) {
			factor := 0.0
			if stats.TotalBytes != 0 {
				factor = float64(entry.Size) / float64(stats.TotalBytes)
			}

			size, unit := Humanize(entry.Size, units)

			fields := make([]string, 0, 4)
			if opt.BarSize > 0 {
				fields = append(fields, ProgressBar(factor, opt.BarSize, BarFill, BarEmpty, BarPre, BarPost))
			}

			fields = append(fields,
				Percent(factor, opt.PercentPrecision),
				fmt.Sprintf("%*s%-*s", MaxSizeChars, size, unitWidth, unit),
				entry.Name,
			)

			lines = append(lines, strings.Join(fields, " "))
		}
	}

	lines = append(lines,
		stats.Root,
		fmt.Sprintf("%s%s (%dB), %d file(s), %d dir(s)",
			totalSize, totalUnits, stats.TotalBytes, stats.FileCount, stats.DirCount),
	)

	separator := opt.LineSeparator
	if separator == "" {
		separator = "\n"
	}

	return strings.Join(lines, separator)
}
