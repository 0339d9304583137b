package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/drblury/wormhole/internal/runtime/bplist17"
	"github.com/drblury/wormhole/internal/runtime/correlator"
)

func runDecode(args []string, s streams) error {
	var (
		typed    bool
		embedded bool
		offset   int
		maxDepth int
	)
	flags := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	flags.SetOutput(s.err)
	flags.BoolVar(&typed, "typed", false, "wrap every node with its type information")
	flags.BoolVar(&embedded, "embedded", false, "search the input for an embedded document, e.g. behind a mach message header")
	flags.IntVar(&offset, "offset", 0, "byte offset of the document inside the input")
	flags.IntVar(&maxDepth, "max-depth", bplist17.DefaultMaxDepth, "maximum nesting depth")
	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return &usageError{err: err}
	}
	if flags.NArg() != 1 {
		return usagef("decode takes exactly one FILE or -")
	}
	if offset < 0 {
		return usagef("offset must not be negative, got %d", offset)
	}

	in, err := openInput(flags.Arg(0), s.in)
	if err != nil {
		return err
	}
	defer in.Close()
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if offset > len(raw) {
		return fmt.Errorf("offset %d is past the end of the %d byte input", offset, len(raw))
	}
	raw = raw[offset:]

	opts := bplist17.Options{TypeInfo: typed, MaxDepth: maxDepth}
	var v bplist17.Value
	if embedded {
		var found bool
		var at int
		v, at, found, err = correlator.ExtractEmbedded(raw, opts)
		if !found {
			return fmt.Errorf("no embedded document found")
		}
		if err != nil {
			return fmt.Errorf("decode document at offset %d: %w", offset+at, err)
		}
	} else {
		v, err = bplist17.DecodeWithOptions(raw, opts)
		if err != nil {
			return fmt.Errorf("decode document: %w", err)
		}
	}

	out, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(s.out, "%s\n", out)
	return err
}
