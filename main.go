// Command hdu displays a human-friendly summary of disk usage.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/idelchi/hdu/internal/cli"
)

// Global variable for CI stamping.
var version = "unknown - unofficial & generated by unknown"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.New(version).Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
