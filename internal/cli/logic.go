package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/idelchi/hdu/internal/report"
	"github.com/idelchi/hdu/internal/usage"
)

// newLogger creates the logger for warnings and debug traces.
func newLogger(w io.Writer, verbosity int) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	switch {
	case verbosity >= report.VerbosityDebug:
		log.SetLevel(logrus.DebugLevel)
	case verbosity >= report.VerbosityMedium:
		log.SetLevel(logrus.InfoLevel)
	case verbosity >= report.VerbosityLow:
		log.SetLevel(logrus.WarnLevel)
	default:
		log.SetLevel(logrus.ErrorLevel)
	}

	return log
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && isatty.IsTerminal(f.Fd())
}

func logic(ctx context.Context, options Options, stdout, stderr io.Writer) error {
	log := newLogger(stderr, options.Report.Verbosity)
	log.Debugf("parsed options: %+v", options)

	options.Report.Logger = log

	enableProgress := options.Format == "text" &&
		options.Report.Verbosity < report.VerbosityDebug &&
		isTerminal(stderr)

	// Simple progress callback that prints directly to stderr
	var progressHook func(paths, bytes int64)

	if enableProgress {
		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(stderr, "\033[?25l")
		defer fmt.Fprint(stderr, "\033[?25h")

		progressHook = func(paths, bytes int64) {
			msg := fmt.Sprintf("Scanning… %d paths, %s",
				paths, humanize.IBytes(uint64(bytes))) //nolint:gosec // Bytes is always positive
			fmt.Fprintf(stderr, "\r\033[2K%s\r", msg)
		}
	}

	printed := 0

	for _, target := range options.Targets {
		opt := options.Usage
		opt.Path = target
		opt.Logger = log
		opt.OnError = func(path string, err error) {
			log.Infof("cannot read %s: %v", path, err)
		}

		stats, err := usage.Run(ctx, opt, progressHook)

		// Clear the status line
		if enableProgress {
			fmt.Fprint(stderr, "\r\033[2K\r")
		}

		switch {
		case errors.Is(err, usage.ErrNotFound):
			if options.Report.Verbosity >= report.VerbosityLow {
				fmt.Fprintf(stdout, "W: file not found: %s\n", target)
			}

			continue
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, usage.ErrUnreadable):
			log.Warn(err)
		case err != nil:
			log.Warnf("skipping %s: %v", target, err)

			continue
		case stats.ErrorCount > 0:
			log.Warnf("%d path(s) under %s could not be read", stats.ErrorCount, target)
		}

		if printed > 0 {
			fmt.Fprintln(stdout)
		}

		switch options.Format {
		case "json":
			err = PrintJSON(stats, stdout)
		default:
			err = PrintText(stats, options.Report, stdout)
		}

		if err != nil {
			return err
		}

		printed++
	}

	return nil
}
