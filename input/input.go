// Package input opens callgrind files, plain or compressed, as one stream.
package input

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Stdin is the path that reads standard input.
const Stdin = "-"

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Decompress sniffs the stream and undoes gzip or zstd compression. Any
// other input is returned as is.
func Decompress(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, err
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		z, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return z, nil
	case bytes.HasPrefix(head, zstdMagic):
		d, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	default:
		return io.NopCloser(br), nil
	}
}

// Open concatenates the given files into one reader. A newline separates
// consecutive files so the last line of one never runs into the next. No
// paths means standard input.
func Open(paths []string) (io.ReadCloser, error) {
	if len(paths) == 0 {
		paths = []string{Stdin}
	}

	s := &stream{}
	for i, path := range paths {
		r, err := open(path)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, r)

		if i > 0 {
			s.readers = append(s.readers, strings.NewReader("\n"))
		}
		s.readers = append(s.readers, r)
	}

	s.Reader = io.MultiReader(s.readers...)
	return s, nil
}

func open(path string) (io.ReadCloser, error) {
	if path == Stdin {
		return Decompress(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r, err := Decompress(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &file{ReadCloser: r, f: f}, nil
}

type file struct {
	io.ReadCloser
	f *os.File
}

func (f *file) Close() error {
	err := f.ReadCloser.Close()
	if ferr := f.f.Close(); err == nil {
		err = ferr
	}
	return err
}

type stream struct {
	io.Reader

	readers []io.Reader
	closers []io.Closer
}

func (s *stream) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
