package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	app := newCLIApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newCLIApp() *cli.App {
	return &cli.App{
		Name:    "foundrscan",
		Usage:   "Validate your startup idea in a conversation with the Founder Scan AI",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.json", Usage: "Path to the config file"},
		},
		Commands: []*cli.Command{
			signupCmd(),
			loginCmd(),
			logoutCmd(),
			whoamiCmd(),
			chatCmd(),
		},
	}
}
