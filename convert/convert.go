// Package convert runs a callgrind stream through parsing, stack collapsing
// and encoding.
package convert

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"stackcollapse-callgrind/collapse"
	"stackcollapse-callgrind/collapsed"
	"stackcollapse-callgrind/parser"
)

type Format string

const (
	FormatCollapsed Format = "collapsed"
	FormatPprof     Format = "pprof"
)

var formats = []Format{FormatCollapsed, FormatPprof}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	if !slices.Contains(formats, f) {
		return "", fmt.Errorf("unknown output format %q, expected one of %v", s, formats)
	}
	return f, nil
}

var tr = otel.Tracer("stackcollapse-callgrind/convert")

// Convert reads callgrind data from r and writes the collapsed stacks to w
// in the given format. Nothing is written to w when parsing fails.
func Convert(ctx context.Context, r io.Reader, w io.Writer, format Format) error {
	ctx, span := tr.Start(ctx, "convert", trace.WithAttributes(
		attribute.String("format", string(format)),
	))
	defer span.End()

	err := convert(ctx, r, w, format)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func convert(ctx context.Context, r io.Reader, w io.Writer, format Format) error {
	profile, err := parse(ctx, r)
	if err != nil {
		return err
	}

	stacks := collapseStacks(ctx, profile)

	_, span := tr.Start(ctx, "encode")
	defer span.End()

	switch format {
	case FormatPprof:
		return collapsed.WritePprof(stacks, sampleType(profile), w)
	default:
		return collapsed.Encode(stacks, w)
	}
}

func parse(ctx context.Context, r io.Reader) (*parser.Profile, error) {
	log := logr.FromContextOrDiscard(ctx)

	_, span := tr.Start(ctx, "parse")
	defer span.End()

	profile, err := parser.NewCallgrindParser(r).Parse()
	if err != nil {
		return nil, fmt.Errorf("parsing callgrind input: %w", err)
	}

	functions := len(profile.Functions())
	calls := profile.CallCount()
	span.SetAttributes(
		attribute.Int("functions", functions),
		attribute.Int("calls", calls),
	)

	headers := maps.Keys(profile.Headers)
	slices.Sort(headers)
	log.V(1).Info("parsed callgrind input", "functions", functions, "calls", calls, "headers", headers)

	return profile, nil
}

func collapseStacks(ctx context.Context, profile *parser.Profile) *collapsed.Profile {
	log := logr.FromContextOrDiscard(ctx)

	_, span := tr.Start(ctx, "collapse")
	defer span.End()

	roots := len(profile.Roots())
	stacks := collapse.Collapse(profile)

	span.SetAttributes(
		attribute.Int("roots", roots),
		attribute.Int("samples", len(stacks.Samples)),
	)
	log.V(1).Info("collapsed call graph", "roots", roots, "samples", len(stacks.Samples))

	return stacks
}

// sampleType names the pprof value after the first event of the
// "events:" header, e.g. "Ir" for instructions.
func sampleType(profile *parser.Profile) string {
	events := strings.Fields(profile.Headers["events"])
	if len(events) == 0 {
		return collapsed.DefaultSampleType
	}
	return events[0]
}
