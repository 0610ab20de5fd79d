// Package collapsed holds folded stacks: one semicolon-joined call path
// and a value per line, the input format of flamegraph tools.
package collapsed

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type Sample struct {
	Stack []string
	Value int64
}

type Profile struct {
	Samples []Sample
}

func (p *Profile) Add(stack []string, value int64) {
	p.Samples = append(p.Samples, Sample{
		Stack: stack,
		Value: value,
	})
}

// Decode reads folded stacks back. The value follows the last space on a
// line; blank lines are skipped.
func Decode(r io.Reader) (*Profile, error) {
	profile := &Profile{
		Samples: make([]Sample, 0),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++

		line := scanner.Text()
		if line == "" {
			continue
		}

		idx := strings.LastIndexByte(line, ' ')
		if idx == -1 {
			return nil, fmt.Errorf("collapsed: line %d: missing value", lineNumber)
		}

		value, err := strconv.ParseInt(line[idx+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("collapsed: line %d: %w", lineNumber, err)
		}

		profile.Add(strings.Split(line[:idx], ";"), value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("collapsed: %w", err)
	}

	return profile, nil
}

func Unmarshal(buf []byte) (*Profile, error) {
	return Decode(bytes.NewReader(buf))
}

// Encode writes one "frame;frame;frame value" line per sample, in order.
func Encode(profile *Profile, w io.Writer) error {
	for _, sample := range profile.Samples {
		_, err := fmt.Fprintf(w, "%s %d\n", strings.Join(sample.Stack, ";"), sample.Value)
		if err != nil {
			return err
		}
	}
	return nil
}

func Marshal(profile *Profile) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := Encode(profile, buf)
	return buf.Bytes(), err
}
