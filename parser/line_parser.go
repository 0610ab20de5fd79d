package parser

import (
	"bufio"
	"io"
	"strings"
)

// Long C++ symbols make callgrind lines far longer than bufio's default.
const maxLineLength = 16 * 1024 * 1024

type lineParser struct {
	stream     *bufio.Scanner
	line       string
	eof        bool
	lineNumber int
}

func NewLineParser(r io.Reader) *lineParser {
	stream := bufio.NewScanner(r)
	stream.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	return &lineParser{
		stream:     stream,
		line:       "",
		eof:        false,
		lineNumber: 0,
	}
}

func (p *lineParser) read() {
	if !p.stream.Scan() {
		p.line = ""
		p.eof = true
		return
	}

	p.lineNumber++
	p.line = strings.TrimSpace(p.stream.Text())
}

// ReadLine advances to the next line that is not a comment.
func (p *lineParser) ReadLine() {
	for {
		p.read()
		if p.eof || !strings.HasPrefix(p.Line(), "#") {
			break
		}
	}
}

func (p *lineParser) Line() string {
	return p.line
}

func (p *lineParser) LineNumber() int {
	return p.lineNumber
}

func (p *lineParser) Consume() string {
	l := p.line
	p.ReadLine()
	return l
}

func (p *lineParser) Eof() bool {
	return p.eof
}

func (p *lineParser) Err() error {
	return p.stream.Err()
}
