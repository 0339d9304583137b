// wormhole decodes captured XPC payloads and correlates hook events into
// request/reply records.
//
// Subcommands:
//
//	decode     print a bplist17 document as JSON
//	correlate  turn an NDJSON stream of hook events into NDJSON records
//	serve      run the correlator service against the configured broker
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// usageError marks bad invocations, which exit with status 2.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }
func (e *usageError) ExitCode() int { return 2 }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// streams bundles the standard file handles so commands can be driven from
// tests.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], streams{in: os.Stdin, out: os.Stdout, err: os.Stderr})
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, s streams) error {
	if len(args) == 0 {
		printUsage(s.err)
		return usagef("missing command")
	}
	switch args[0] {
	case "decode":
		return runDecode(args[1:], s)
	case "correlate":
		return runCorrelate(args[1:], s)
	case "serve":
		return runServe(ctx, args[1:], s)
	case "help", "-h", "--help":
		printUsage(s.out)
		return nil
	default:
		printUsage(s.err)
		return usagef("unknown command %q", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage:
  wormhole decode [--typed] [--embedded] [--offset N] FILE|-
  wormhole correlate [--input FILE|-] [--pending-capacity N] [--pending-ttl D] [--noise SERVICE]...
  wormhole serve --config FILE [--log-level LEVEL]

Run "wormhole COMMAND --help" for the flags of one command.
`)
}

// openInput returns stdin for "-" and the named file otherwise.
func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(stdin), nil
	}
	return os.Open(path)
}
