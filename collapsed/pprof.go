package collapsed

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/pprof/profile"
)

const (
	// DefaultSampleType names the value column when the input did not.
	DefaultSampleType = "cost"
	SampleUnitCount   = "count"
)

// ToPprof turns folded stacks into a pprof profile. Frames are expected in
// "file#function" form; a frame without '#' becomes a function with no file.
func ToPprof(p *Profile, sampleType string) (*profile.Profile, error) {
	if sampleType == "" {
		sampleType = DefaultSampleType
	}

	prof := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: sampleType, Unit: SampleUnitCount},
		},
		DefaultSampleType: sampleType,
		Function:          make([]*profile.Function, 0),
		Location:          make([]*profile.Location, 0),
		Sample:            make([]*profile.Sample, 0, len(p.Samples)),
	}

	locations := make(map[string]*profile.Location)

	location := func(frame string) *profile.Location {
		if loc, ok := locations[frame]; ok {
			return loc
		}

		file, name, found := strings.Cut(frame, "#")
		if !found {
			file, name = "", frame
		}

		fn := &profile.Function{
			ID:         uint64(len(prof.Function) + 1),
			Name:       name,
			SystemName: name,
			Filename:   file,
		}
		prof.Function = append(prof.Function, fn)

		loc := &profile.Location{
			ID:   uint64(len(prof.Location) + 1),
			Line: []profile.Line{{Function: fn}},
		}
		prof.Location = append(prof.Location, loc)
		locations[frame] = loc
		return loc
	}

	for _, sample := range p.Samples {
		// pprof lists the leaf first.
		locs := make([]*profile.Location, len(sample.Stack))
		for i, frame := range sample.Stack {
			locs[len(sample.Stack)-1-i] = location(frame)
		}

		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: locs,
			Value:    []int64{sample.Value},
		})
	}

	if err := prof.CheckValid(); err != nil {
		return nil, fmt.Errorf("profile validation failed: %w", err)
	}
	return prof, nil
}

// WritePprof writes the stacks as a gzip-compressed pprof protobuf.
func WritePprof(p *Profile, sampleType string, w io.Writer) error {
	prof, err := ToPprof(p, sampleType)
	if err != nil {
		return err
	}
	return prof.Write(w)
}
