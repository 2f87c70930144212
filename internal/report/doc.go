// Package report renders disk usage statistics as human-readable text.
//
// Sizes are converted to UNIX, IEC, SI or explicit units and printed in a
// fixed four-character field, next to a proportional bar and a percentage.
package report
