package collapsed_test

import (
	"bytes"
	"os"
	"strconv"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/require"

	"stackcollapse-callgrind/collapsed"
)

func example() *collapsed.Profile {
	p := &collapsed.Profile{}
	p.Add([]string{"file1.c#main"}, 20)
	p.Add([]string{"file1.c#main", "file1.c#func1"}, 100)
	p.Add([]string{"file1.c#main", "file1.c#func1", "file2.c#func2"}, 300)
	p.Add([]string{"file1.c#main", "file2.c#func2"}, 400)
	return p
}

func TestEncode(t *testing.T) {
	raw, err := collapsed.Marshal(example())
	require.NoError(t, err)

	require.Equal(t, `file1.c#main 20
file1.c#main;file1.c#func1 100
file1.c#main;file1.c#func1;file2.c#func2 300
file1.c#main;file2.c#func2 400
`, string(raw))
}

func TestEncodeEmpty(t *testing.T) {
	raw, err := collapsed.Marshal(&collapsed.Profile{})
	require.NoError(t, err)
	require.Empty(t, raw)
}

func TestDecode(t *testing.T) {
	p, err := collapsed.Unmarshal([]byte("a;b 3\n\nsome frame;c -2\n"))
	require.NoError(t, err)

	require.Equal(t, []collapsed.Sample{
		{Stack: []string{"a", "b"}, Value: 3},
		{Stack: []string{"some frame", "c"}, Value: -2},
	}, p.Samples)
}

func TestDecodeRoundTrip(t *testing.T) {
	raw, err := os.ReadFile("../example/callgrind.out.example.collapsed")
	require.NoError(t, err)

	p, err := collapsed.Unmarshal(raw)
	require.NoError(t, err)
	require.Equal(t, example(), p)

	encoded, err := collapsed.Marshal(p)
	require.NoError(t, err)
	require.Equal(t, string(raw), string(encoded))
}

func TestDecodeMissingValue(t *testing.T) {
	_, err := collapsed.Unmarshal([]byte("a;b 1\nmain\n"))
	require.EqualError(t, err, "collapsed: line 2: missing value")
}

func TestDecodeMalformedValue(t *testing.T) {
	_, err := collapsed.Unmarshal([]byte("main;work lots\n"))
	require.ErrorIs(t, err, strconv.ErrSyntax)
	require.ErrorContains(t, err, "line 1")
}

func TestToPprof(t *testing.T) {
	prof, err := collapsed.ToPprof(example(), "Ir")
	require.NoError(t, err)

	require.Len(t, prof.SampleType, 1)
	require.Equal(t, "Ir", prof.SampleType[0].Type)
	require.Equal(t, "Ir", prof.DefaultSampleType)

	// main, func1 and func2 each appear once however many stacks use them.
	require.Len(t, prof.Function, 3)
	require.Len(t, prof.Location, 3)
	require.Len(t, prof.Sample, 4)

	deepest := prof.Sample[2]
	require.Equal(t, []int64{300}, deepest.Value)
	require.Len(t, deepest.Location, 3)

	leaf := deepest.Location[0].Line[0].Function
	require.Equal(t, "func2", leaf.Name)
	require.Equal(t, "file2.c", leaf.Filename)

	root := deepest.Location[2].Line[0].Function
	require.Equal(t, "main", root.Name)
	require.Equal(t, "file1.c", root.Filename)
}

func TestToPprofDefaultSampleType(t *testing.T) {
	p := &collapsed.Profile{}
	p.Add([]string{"nofile"}, 1)

	prof, err := collapsed.ToPprof(p, "")
	require.NoError(t, err)
	require.Equal(t, collapsed.DefaultSampleType, prof.SampleType[0].Type)
	require.Equal(t, "nofile", prof.Function[0].Name)
	require.Equal(t, "", prof.Function[0].Filename)
}

func TestWritePprof(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, collapsed.WritePprof(example(), "Ir", &buf))

	prof, err := profile.Parse(&buf)
	require.NoError(t, err)
	require.Len(t, prof.Sample, 4)

	total := int64(0)
	for _, s := range prof.Sample {
		total += s.Value[0]
	}
	require.Equal(t, int64(820), total)
}
