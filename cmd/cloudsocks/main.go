// Package main is the entry point for the cloudsocks binary.
//
// cloudsocks opens a SOCKS proxy over SSH to a cloud VM (a GCP instance via
// the gcloud CLI, or an EC2 instance resolved through the AWS API) and can
// point the operating system's HTTP/HTTPS proxy at it.
//
// When invoked without arguments, it launches the interactive TUI dashboard.
// With subcommands (connect, proxy, doctor, events, update, ...) it runs the
// corresponding CLI operation and exits.
package main

import (
	"fmt"
	"os"

	"github.com/xenitz/cloudsocks/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
