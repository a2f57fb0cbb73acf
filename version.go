package main

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/stealthrocket/brillcodec/internal/codec"
)

const versionUsage = `
Usage:	brillcodec version

   Show the version of brillcodec and the generations of the codec device
   protocol it speaks.

Options:
   -h, --help  Show this usage information
`

func version(ctx context.Context, args []string) error {
	flagSet := newFlagSet("brillcodec version", versionUsage)
	if _, err := parseFlags(flagSet, args); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "brillcodec %s\n", currentVersion())
	fmt.Fprintf(stdout, "protocols: %s (device versions 0 to 2), %s (device version 3)\n", codec.V2, codec.V3)
	return nil
}

// currentVersion returns the module version of the binary, which is only
// known when it was built with go install.
func currentVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "devel"
	}
	return info.Main.Version
}
