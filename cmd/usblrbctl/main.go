package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/larsks/usblrb/internal/ctl"
	_ "github.com/larsks/usblrb/internal/logsetup"
)

func main() {
	fs := pflag.CommandLine
	versionFlag := fs.Bool("version", false, "Show version and exit")
	helpFlag := fs.BoolP("help", "h", false, "Show help")

	cfg := ctl.NewConfig()
	cfg.AddFlags(fs)

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err) //nolint:errcheck
		os.Exit(1)
	}

	handler := ctl.NewHandler(cfg)

	command := "help"
	var args []string
	switch {
	case *versionFlag:
		command = "version"
	case *helpFlag:
	case fs.NArg() > 0:
		command = fs.Arg(0)
		args = fs.Args()[1:]
	}

	// help and version never need the config loaded.
	if command != "help" && command != "version" {
		if err := cfg.LoadConfigWithFlagSet(fs); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err) //nolint:errcheck
			os.Exit(1)
		}
	}

	if err := handler.Execute(command, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err) //nolint:errcheck
		os.Exit(1)
	}
}
