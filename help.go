package main

import (
	"context"
	"fmt"
	"strings"
)

const helpUsage = `
Usage:	brillcodec <command> [options]

Device Commands:
   elements  List the codecs offered by the device
   probe     Show the properties of the device

Codec Commands:
   decode    Decode a stream of frames on the device

Other Commands:
   config    View or edit the brillcodec configuration
   help      Show usage information about brillcodec commands
   version   Show the brillcodec version information

Global Options:
   -c, --config path  Path to the brillcodec configuration file (overrides BRILLCODECCONFIG)
   -h, --help         Show usage information
   -v, --verbose      Log the exchanges with the device
`

func help(ctx context.Context, args []string) error {
	flagSet := newFlagSet("brillcodec help", helpUsage)
	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}

	var cmd string
	var msg string

	if len(args) == 0 {
		msg = helpUsage
	} else {
		switch cmd = args[0]; cmd {
		case "config":
			msg = configUsage
		case "decode":
			msg = decodeUsage
		case "elements":
			msg = elementsUsage
		case "help", "brillcodec":
			msg = helpUsage
		case "probe":
			msg = probeUsage
		case "version":
			msg = versionUsage
		default:
			return usageError("brillcodec help %s: unknown command", cmd)
		}
	}

	fmt.Fprintln(stdout, strings.TrimSpace(msg))
	return nil
}
