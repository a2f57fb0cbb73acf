package main

// Notes on program structure
// --------------------------
//
// brillcodec uses subcommands to invoke specific functionalities of the
// program. Each subcommand is implemented by a function named after the
// command, in a file of the same name (e.g. the "probe" command is
// implemented by the probe function in probe.go).
//
// The usage message for each command is declared by a constant starting with
// the command name and followed by the suffix "Usage". For example, the usage
// message for the "probe" command is declared by the constant probeUsage.
//
// The usage message contains a "Usage:	brillcodec <command>" section
// presenting the structure of the command. Note the tabulation separating
// "Usage:" and "brillcodec".

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/stealthrocket/brillcodec/internal/codec"
	"github.com/stealthrocket/brillcodec/internal/print/human"
	"github.com/stealthrocket/brillcodec/internal/print/jsonprint"
	"github.com/stealthrocket/brillcodec/internal/print/textprint"
	"github.com/stealthrocket/brillcodec/internal/print/yamlprint"
	"github.com/stealthrocket/brillcodec/internal/stream"
)

const rootUsage = `brillcodec - Codec device client

   brillcodec drives the codec device exposed to the guest by the emulator.
   It opens the device, lists the codecs it offers, and runs decoding
   sessions against it, sharing memory with the device to exchange frames
   and pictures.

Example:

   $ brillcodec probe
   ...

   $ brillcodec decode --width 352 --height 288 video.h264
   ...

For a list of commands available, run 'brillcodec help'.`

// Output streams of the program, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var (
	configPath = &codec.ConfigPath
	verbose    bool
)

// root is the brillcodec entrypoint.
func root(ctx context.Context, args ...string) int {
	if path, ok := os.LookupEnv("BRILLCODECCONFIG"); ok {
		*configPath = human.Path(path)
	}

	verbose = false

	// Options of the root command stop at the command name, the rest of the
	// arguments belong to the command.
	flagSet := newFlagSet("brillcodec", helpUsage)
	err := flagSet.Parse(args)
	switch {
	case errors.Is(err, flag.ErrHelp):
		flagSet.Usage()
		return 0
	case err != nil:
		err = usageError("brillcodec: %s", err)
	case flagSet.NArg() == 0:
		fmt.Fprintln(stdout, rootUsage)
		return 0
	default:
		args = flagSet.Args()
	}

	cmd := ""
	if err == nil {
		cmd, args = args[0], args[1:]
		switch cmd {
		case "config":
			err = config(ctx, args)
		case "decode":
			err = decode(ctx, args)
		case "elements":
			err = elements(ctx, args)
		case "help":
			err = help(ctx, args)
		case "probe":
			err = probe(ctx, args)
		case "version":
			err = version(ctx, args)
		default:
			err = unknown(ctx, cmd)
		}
	}

	var code exitCode
	var use usage
	switch {
	case err == nil:
		return 0
	case errors.As(err, &code):
		return int(code)
	case errors.As(err, &use):
		fmt.Fprintf(stderr, "%s\n", use)
		return 2
	default:
		fmt.Fprintf(stderr, "ERR: brillcodec %s: %s\n", cmd, err)
		return 1
	}
}

// exitCode is an error type returned from command functions to indicate the
// exit code that should be returned by the program.
type exitCode int

func (e exitCode) Error() string {
	return fmt.Sprintf("exit: %d", e)
}

// usage is an error type returned from command functions to indicate a usage
// error.
//
// Usage errors cause the program to exit with status code 2.
type usage string

func usageError(msg string, args ...any) error {
	return usage(fmt.Sprintf(msg, args...))
}

func (e usage) Error() string {
	return string(e)
}

func setEnum[T ~string](enum *T, typ string, value string, options ...string) error {
	for _, option := range options {
		if option == value {
			*enum = T(option)
			return nil
		}
	}
	return fmt.Errorf("unsupported %s: %q (not one of %s)", typ, value, strings.Join(options, ", "))
}

type outputFormat string

func (o outputFormat) String() string {
	return string(o)
}

func (o *outputFormat) Set(value string) error {
	return setEnum(o, "output format", value, "text", "json", "yaml")
}

type mediaType string

func (m mediaType) String() string {
	return string(m)
}

func (m *mediaType) Set(value string) error {
	return setEnum(m, "media type", value, "video", "audio")
}

type codecType string

func (c codecType) String() string {
	return string(c)
}

func (c *codecType) Set(value string) error {
	return setEnum(c, "codec type", value, "decoder", "encoder")
}

func newFlagSet(cmd, usage string) *flag.FlagSet {
	usage = strings.TrimSpace(usage)
	flagSet := flag.NewFlagSet(cmd, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.Usage = func() { fmt.Fprintln(stdout, usage) }
	customVar(flagSet, configPath, "c", "config")
	boolVar(flagSet, &verbose, "v", "verbose")
	return flagSet
}

// parseFlags is a greedy parser which consumes all options known to f and
// returns the remaining arguments.
//
// Asking for help prints the usage message and returns exitCode(0); unknown
// options are reported as usage errors.
func parseFlags(f *flag.FlagSet, args []string) ([]string, error) {
	var unknownArgs []string
	for {
		if err := f.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				f.Usage()
				return nil, exitCode(0)
			}
			return nil, usageError("%s: %s", f.Name(), err)
		}
		if args = f.Args(); len(args) == 0 {
			return unknownArgs, nil
		}
		i := slices.IndexFunc(args, func(s string) bool {
			return strings.HasPrefix(s, "-")
		})
		if i < 0 {
			i = len(args)
		} else if args[i] == "-" {
			i++
		}
		unknownArgs = append(unknownArgs, args[:i]...)
		args = args[i:]
	}
}

func boolVar(f *flag.FlagSet, dst *bool, name string, alias ...string) {
	f.BoolVar(dst, name, *dst, "")
	for _, name := range alias {
		f.BoolVar(dst, name, *dst, "")
	}
}

func intVar(f *flag.FlagSet, dst *int, name string, alias ...string) {
	f.IntVar(dst, name, *dst, "")
	for _, name := range alias {
		f.IntVar(dst, name, *dst, "")
	}
}

func stringVar(f *flag.FlagSet, dst *string, name string, alias ...string) {
	f.StringVar(dst, name, *dst, "")
	for _, name := range alias {
		f.StringVar(dst, name, *dst, "")
	}
}

func customVar(f *flag.FlagSet, dst flag.Value, name string, alias ...string) {
	f.Var(dst, name, "")
	for _, name := range alias {
		f.Var(dst, name, "")
	}
}

// openSession opens a session on the configured device; tests replace it to
// run the commands against an in-memory device.
var openSession = func(config *codec.Config, opts ...codec.Option) (*codec.Session, error) {
	return config.OpenSession(opts...)
}

// loadSession loads the configuration and opens a session with a logger
// writing to stderr at the configured level. The options are applied after
// the logger.
func loadSession(opts ...codec.Option) (*codec.Session, error) {
	config, err := codec.LoadConfig()
	if err != nil {
		return nil, err
	}
	level, err := config.LogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return openSession(config, append([]codec.Option{codec.WithLogger(logger)}, opts...)...)
}

// newWriter returns the stream writer of the output format, using newTable
// for the text format.
func newWriter[T any](w io.Writer, output outputFormat, newTable func(io.Writer) stream.WriteCloser[T]) stream.WriteCloser[T] {
	switch output {
	case "json":
		return jsonprint.NewWriter[T](w)
	case "yaml":
		return yamlprint.NewWriter[T](w)
	default:
		return newTable(w)
	}
}

func textWriter[T any](w io.Writer) stream.WriteCloser[T] {
	return textprint.NewWriter[T](w)
}
