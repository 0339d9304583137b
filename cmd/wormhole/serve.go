package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/drblury/wormhole/internal/runtime"
	"github.com/drblury/wormhole/internal/runtime/config"
	"github.com/drblury/wormhole/internal/runtime/logging"
)

func runServe(ctx context.Context, args []string, s streams) error {
	var (
		configPath  string
		logLevelArg string
	)
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.SetOutput(s.err)
	flags.StringVarP(&configPath, "config", "c", "", "YAML configuration file (required)")
	flags.StringVar(&logLevelArg, "log-level", "", "minimum log level, overrides log_level from the config")
	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return &usageError{err: err}
	}
	if flags.NArg() > 0 {
		return usagef("unexpected argument: %s", flags.Arg(0))
	}
	if configPath == "" {
		return usagef("--config is required")
	}
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevelArg != "" {
		conf.LogLevel = logLevelArg
	}
	log, err := logging.New(logging.Options{Format: conf.LogFormat, Level: conf.LogLevel, Output: s.err})
	if err != nil {
		return &usageError{err: err}
	}

	svc, err := runtime.NewService(conf, log, ctx, runtime.ServiceDependencies{})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			log.Error("Failed to close service", cerr, nil)
		}
	}()

	if err := svc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run service: %w", err)
	}
	log.Info("Service stopped", logging.LogFields{"pending": svc.Correlator().Pending()})
	return nil
}
