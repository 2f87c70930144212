package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/idelchi/hdu/internal/report"
	"github.com/idelchi/hdu/internal/usage"
)

// PrintJSON outputs statistics in JSON format.
func PrintJSON(stats *usage.Stats, writer io.Writer) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// PrintText outputs statistics as the human-readable report.
func PrintText(stats *usage.Stats, options report.Options, writer io.Writer) error {
	if _, err := fmt.Fprintln(writer, report.Render(stats, options)); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	return nil
}
