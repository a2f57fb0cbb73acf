package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/stealthrocket/brillcodec/internal/codec"
	"github.com/stealthrocket/brillcodec/internal/stream"
)

const configUsage = `
Usage:	brillcodec config [options]

   The configuration selects the device to open, the size of the memory
   shared with it, and the level of the logs. Without a configuration file,
   the default configuration is shown.

Options:
   -c, --config path    Path to the brillcodec configuration file (overrides BRILLCODECCONFIG)
       --edit           Open $EDITOR to edit the configuration
   -h, --help           Show usage information
   -o, --output format  Output format, one of: text, json, yaml
`

func config(ctx context.Context, args []string) error {
	var (
		edit   bool
		output = outputFormat("text")
	)

	flagSet := newFlagSet("brillcodec config", configUsage)
	boolVar(flagSet, &edit, "edit")
	customVar(flagSet, &output, "o", "output")

	if _, err := parseFlags(flagSet, args); err != nil {
		return err
	}

	if edit {
		if err := editConfig(); err != nil {
			return err
		}
	}

	if output == "text" {
		r, _, err := codec.OpenConfig()
		if err != nil {
			return err
		}
		defer r.Close()
		_, err = io.Copy(stdout, r)
		return err
	}

	c, err := codec.LoadConfig()
	if err != nil {
		return err
	}
	w := newWriter(stdout, output, textWriter[*codec.Config])
	defer w.Close()
	_, err = stream.Copy[*codec.Config](w, stream.NewReader(c))
	return err
}

// editConfig opens the configuration in $EDITOR and replaces the file with
// the edited copy if it is still valid.
func editConfig() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return errors.New(`$EDITOR is not set`)
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}

	r, path, err := codec.OpenConfig()
	if err != nil {
		return err
	}
	defer r.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return err
	}
	tmp, err := createTempFile(path, r)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	p, err := os.StartProcess(shell, []string{shell, "-c", editor + " " + tmp}, &os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	})
	if err != nil {
		return err
	}
	if _, err := p.Wait(); err != nil {
		return err
	}

	f, err := os.Open(tmp)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := codec.ReadConfig(f); err != nil {
		return fmt.Errorf("not applying configuration updates because the file has a syntax error: %w", err)
	}
	return os.Rename(tmp, path)
}

func createTempFile(path string, r io.Reader) (string, error) {
	dir, file := filepath.Split(path)
	w, err := os.CreateTemp(dir, "."+file+".*")
	if err != nil {
		return "", err
	}
	defer w.Close()
	_, err = io.Copy(w, r)
	return w.Name(), err
}
