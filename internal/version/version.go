package version

import (
	"fmt"
	"runtime/debug"
)

// Version is set at build time via -ldflags.
var Version = "devel"

// String returns the version, falling back to module build info when no
// version was baked in at build time.
func String() string {
	if Version != "devel" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	return Version
}

// ShowVersion prints the version to stdout.
func ShowVersion() {
	fmt.Printf("usblrb version %s\n", String())
}
