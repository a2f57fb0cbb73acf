package main

import (
	"context"
)

const unknownCommand = `brillcodec %s: unknown command
For a list of commands available, run 'brillcodec help'.`

func unknown(ctx context.Context, cmd string) error {
	return usageError(unknownCommand, cmd)
}
