package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	expected, err := os.ReadFile("example/callgrind.out.example.collapsed")
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	err = run([]string{"example/callgrind.out.example"}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t, string(expected), stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRunVerboseOutputFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.collapsed")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-v", "-o", output, "example/callgrind.out.example"}, &stdout, &stderr)
	require.NoError(t, err)

	written, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(written), "file1.c#main;file2.c#func2 400\n")

	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "collapsed call graph")
}

func TestRunFailureWritesNothing(t *testing.T) {
	input := filepath.Join(t.TempDir(), "broken.out")
	require.NoError(t, os.WriteFile(input, []byte("fn=(1) main\n1 5\ncfn=(2)\ncalls=1 1\n1 1\n"), 0o644))
	output := filepath.Join(t.TempDir(), "out.collapsed")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-o", output, input}, &stdout, &stderr)
	assert.EqualError(t, err, "parsing callgrind input: line 4: (2) not found in fn table")

	_, statErr := os.Stat(output)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"--format", "svg", "example/callgrind.out.example"}, &stdout, &stderr)
	assert.Error(t, err)
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"--version"}, &stdout, &stderr))
	assert.Equal(t, "dev\n", stdout.String())
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"--help"}, &stdout, &stderr))
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "--format")
}
