// Package main is the entry point for the stackctl CLI.
//
// stackctl provisions isolated application stacks on AWS for branch
// deployments and pull requests. Environment state is derived from
// resource tags on every call, so there is no local state file.
//
// For detailed usage information, run:
//
//	stackctl --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/stackctl/cmd/stackctl/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
