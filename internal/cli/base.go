// Package cli provides the shared flag parsing and startup scaffolding
// used by the usblrb commands.
package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/larsks/usblrb/internal/version"
	"github.com/spf13/pflag"
)

// Configurable represents a type that can be configured via flags and
// config files.
type Configurable interface {
	AddFlags(fs *pflag.FlagSet)
	LoadConfigWithFlagSet(fs *pflag.FlagSet) error
}

// CommandHandler represents a command that can be executed.
type CommandHandler interface {
	Start(config Configurable) error
}

// CommandArgs represents parsed command line arguments.
type CommandArgs struct {
	Command string
	Config  Configurable
}

// ParseArgs provides standard argument parsing for version/start
// commands using the given flag set.
func ParseArgs(args []string, configFactory func() Configurable, fs *pflag.FlagSet) (*CommandArgs, error) {
	versionFlag := fs.Bool("version", false, "Show version and exit")

	cfg := configFactory()
	cfg.AddFlags(fs)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if *versionFlag {
		return &CommandArgs{Command: "version", Config: cfg}, nil
	}

	if err := cfg.LoadConfigWithFlagSet(fs); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &CommandArgs{Command: "start", Config: cfg}, nil
}

// Execute runs the parsed command.
func Execute(cmdArgs *CommandArgs, handler CommandHandler) error {
	switch cmdArgs.Command {
	case "version":
		version.ShowVersion()
		return nil
	case "start":
		return handler.Start(cmdArgs.Config)
	default:
		return fmt.Errorf("unknown command: %s", cmdArgs.Command)
	}
}

// StandardMain provides a complete main function implementation for
// simple services.
func StandardMain(configFactory func() Configurable, handler CommandHandler) {
	cmdArgs, err := ParseArgs(os.Args[1:], configFactory, pflag.CommandLine)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	if err := Execute(cmdArgs, handler); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
