package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/pflag"

	"stackcollapse-callgrind/convert"
	"stackcollapse-callgrind/input"
	"stackcollapse-callgrind/tracing"
	"stackcollapse-callgrind/version"
)

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

type options struct {
	output      string
	format      string
	verbose     bool
	showVersion bool

	tracing tracing.Config
}

func parseArgs(args []string, usage io.Writer) (*options, []string, error) {
	opts := &options{}

	flags := pflag.NewFlagSet("stackcollapse-callgrind", pflag.ContinueOnError)
	flags.SetOutput(usage)
	flags.StringVarP(&opts.output, "output", "o", "", "write the result to this file instead of stdout")
	flags.StringVarP(&opts.format, "format", "f", string(convert.FormatCollapsed), "output format: collapsed or pprof")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log conversion statistics to stderr")
	flags.BoolVar(&opts.showVersion, "version", false, "print the version and exit")
	flags.StringVar(&opts.tracing.Endpoint, "otel-endpoint", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "OTLP endpoint to send conversion traces to")
	flags.StringSliceVar(&opts.tracing.HeadersRaw, "otel-header", nil, "extra exporter header, as key=value")
	flags.BoolVar(&opts.tracing.Debug, "debug", false, "log OpenTelemetry internals")

	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}

	if err := opts.tracing.ParseHeaders(); err != nil {
		return nil, nil, err
	}

	return opts, flags.Args(), nil
}

func newLogger(w io.Writer, opts *options) logr.Logger {
	verbosity := 0
	if opts.verbose {
		verbosity = 1
	}
	if opts.tracing.Debug {
		verbosity = 100
	}

	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintln(w, prefix, args)
		} else {
			fmt.Fprintln(w, args)
		}
	}, funcr.Options{Verbosity: verbosity})
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, paths, err := parseArgs(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if opts.showVersion {
		fmt.Fprintln(stdout, version.VersionNumber())
		return nil
	}

	format, err := convert.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	log := newLogger(stderr, opts)
	ctx := logr.NewContext(context.Background(), log)

	opts.tracing.Logger = log
	shutdown, err := tracing.InitTracer(ctx, &opts.tracing)
	if err != nil {
		return err
	}
	defer shutdown()

	in, err := input.Open(paths)
	if err != nil {
		return err
	}
	defer in.Close()

	var buf bytes.Buffer
	if err := convert.Convert(ctx, in, &buf, format); err != nil {
		return err
	}

	if opts.output == "" {
		_, err = buf.WriteTo(stdout)
		return err
	}

	return os.WriteFile(opts.output, buf.Bytes(), 0o644)
}
