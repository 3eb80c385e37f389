// Package main is the commitkeeper command line client.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/atinyakov/CommitKeeper/internal/client/cli"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	cli.Version, cli.BuildDate = version, buildDate

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
