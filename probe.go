package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/stealthrocket/brillcodec/internal/arena"
	"github.com/stealthrocket/brillcodec/internal/print/human"
	"github.com/stealthrocket/brillcodec/internal/stream"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

const probeUsage = `
Usage:	brillcodec probe [options]

   Open the codec device and show the generation of the protocol it speaks,
   the size of the memory shared with it, and the number of codecs it offers.

Options:
   -c, --config path    Path to the brillcodec configuration file (overrides BRILLCODECCONFIG)
   -h, --help           Show usage information
   -o, --output format  Output format, one of: text, json, yaml
`

type deviceInfo struct {
	Session       string      `json:"session"                 yaml:"session"`
	Version       int32       `json:"version"                 yaml:"version"`
	Protocol      string      `json:"protocol"                yaml:"protocol"`
	Memory        human.Bytes `json:"memory"                  yaml:"memory"`
	ProfileStatus *int32      `json:"profileStatus,omitempty" yaml:"profile_status,omitempty"`
	Decoders      int         `json:"decoders"                yaml:"decoders"`
	Encoders      int         `json:"encoders"                yaml:"encoders"`
	Arena         arena.Stats `json:"arena"                   yaml:"arena"`
}

func (info *deviceInfo) Format(w fmt.State, _ rune) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Session:\t%s\n", info.Session)
	fmt.Fprintf(tw, "Version:\t%d\n", info.Version)
	fmt.Fprintf(tw, "Protocol:\t%s\n", info.Protocol)
	fmt.Fprintf(tw, "Memory:\t%v\n", info.Memory)
	if info.ProfileStatus != nil {
		fmt.Fprintf(tw, "Profile Status:\t%d\n", *info.ProfileStatus)
	} else {
		fmt.Fprintf(tw, "Profile Status:\t(none)\n")
	}
	fmt.Fprintf(tw, "Codecs:\t%d decoders, %d encoders\n", info.Decoders, info.Encoders)
	fmt.Fprintf(tw, "Buffers:\t%d secured, %d adopted, %d outstanding\n", info.Arena.Secured, info.Arena.Adopted, info.Arena.Outstanding)
	_ = tw.Flush()
}

func probe(ctx context.Context, args []string) error {
	output := outputFormat("text")

	flagSet := newFlagSet("brillcodec probe", probeUsage)
	customVar(flagSet, &output, "o", "output")

	if _, err := parseFlags(flagSet, args); err != nil {
		return err
	}

	s, err := loadSession()
	if err != nil {
		return err
	}
	defer s.Close()

	info := &deviceInfo{
		Session:  s.ID().String(),
		Version:  s.Version(),
		Protocol: s.Protocol().String(),
		Memory:   human.Bytes(s.MemorySize()),
	}

	switch status, err := s.ProfileStatus(); {
	case err == nil:
		info.ProfileStatus = &status
	case !errors.Is(err, errors.ErrUnsupported):
		return err
	}

	catalog, err := s.Catalog()
	if err != nil {
		return err
	}
	for _, e := range catalog.Elements() {
		if e.CodecType == wire.Decoder {
			info.Decoders++
		} else {
			info.Encoders++
		}
	}
	info.Arena = s.ArenaStats()

	w := newWriter(stdout, output, textWriter[*deviceInfo])
	if _, err := stream.Copy[*deviceInfo](w, stream.NewReader(info)); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

var _ fmt.Formatter = (*deviceInfo)(nil)
