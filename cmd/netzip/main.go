package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/jessevdk/go-flags"
)

var opts struct {
	Concurrency int            `short:"c" long:"concurrency" description:"number of member fetches to have in flight at once during extract" default:"1"`
	Profile     string         `short:"p" long:"profile" description:"override AWS_PROFILE if given"`
	List        ListCommand    `command:"list" alias:"l" description:"list the entries in a remote zip archive"`
	Extract     ExtractCommand `command:"extract" alias:"x" description:"extract selected files from a remote zip archive"`
}

func main() {
	p := flags.NewParser(&opts, flags.Default)
	p.CommandHandler = func(command flags.Commander, args []string) error {
		if opts.Profile != "" {
			if err := os.Setenv("AWS_PROFILE", opts.Profile); err != nil {
				return fmt.Errorf("set AWS_PROFILE error: %w", err)
			}
		}

		return command.Execute(args)
	}

	_, err := p.Parse()

	if runtime.GOOS == "windows" {
		_, _ = fmt.Fprintf(os.Stderr, "Press any key to close console\n")
		_, _ = fmt.Scanf("h")
	}

	if err != nil && !flags.WroteHelp(err) {
		os.Exit(1)
	}
}
