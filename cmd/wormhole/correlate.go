package main

import (
	"bufio"
	"bytes"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/drblury/wormhole/internal/runtime"
	"github.com/drblury/wormhole/internal/runtime/correlator"
	"github.com/drblury/wormhole/internal/runtime/jsoncodec"
	"github.com/drblury/wormhole/internal/runtime/logging"
)

// maxEventLine bounds a single NDJSON event. Hook events with large
// payload_bytes can exceed bufio's 64KiB default.
const maxEventLine = 16 << 20

func runCorrelate(args []string, s streams) error {
	var (
		input       string
		capacity    int
		ttl         time.Duration
		noise       []string
		noDefault   bool
		strict      bool
		logLevelArg string
	)
	flags := pflag.NewFlagSet("correlate", pflag.ContinueOnError)
	flags.SetOutput(s.err)
	flags.StringVarP(&input, "input", "i", "-", "NDJSON event file, - for stdin")
	flags.IntVar(&capacity, "pending-capacity", 0, "maximum unresolved calls, 0 for unbounded")
	flags.DurationVar(&ttl, "pending-ttl", 0, "expire unresolved calls after this long, 0 to disable")
	flags.StringArrayVar(&noise, "noise", nil, "additional noisy service substring (repeatable)")
	flags.BoolVar(&noDefault, "no-default-noise", false, "do not filter the built-in noisy services")
	flags.BoolVar(&strict, "strict", false, "fail on the first malformed event instead of skipping it")
	flags.StringVar(&logLevelArg, "log-level", "warn", "log level for diagnostics on stderr")
	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return &usageError{err: err}
	}
	if flags.NArg() > 0 {
		return usagef("unexpected argument: %s", flags.Arg(0))
	}
	if capacity < 0 {
		return usagef("pending-capacity must not be negative, got %d", capacity)
	}
	log, err := logging.New(logging.Options{Format: logging.FormatText, Level: logLevelArg, Output: s.err})
	if err != nil {
		return &usageError{err: err}
	}

	in, err := openInput(input, s.in)
	if err != nil {
		return err
	}
	defer in.Close()

	c := correlator.New(correlator.Options{
		Logger:              log,
		NoiseServices:       noise,
		DisableDefaultNoise: noDefault,
		PendingCapacity:     capacity,
		PendingTTL:          ttl,
	})

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64<<10), maxEventLine)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		ev, err := runtime.DecodeEvent(b)
		if err != nil {
			if strict {
				return fmt.Errorf("line %d: %w", line, err)
			}
			log.Error("Skipping malformed event", err, logging.LogFields{"line": line})
			continue
		}
		rec, ok := c.Observe(ev)
		if !ok {
			continue
		}
		if err := jsoncodec.Encode(s.out, rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read events: %w", err)
	}

	if n := c.Pending(); n > 0 {
		log.Info("Calls still waiting for a reply at end of input", logging.LogFields{"pending": n})
	}
	return nil
}
