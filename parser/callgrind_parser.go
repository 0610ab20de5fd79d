package parser

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Name used for ob, fl and fn before the body sets them.
const unknown = "???"

type callgrindParser struct {
	*lineParser

	profile *Profile

	objects   *referenceTable
	files     *referenceTable
	functions *referenceTable

	positions map[string]string
	inCall    bool

	err error
}

func NewCallgrindParser(r io.Reader) *callgrindParser {
	return &callgrindParser{
		lineParser: NewLineParser(r),
		profile:    newProfile(),

		objects:   newReferenceTable(objectTable),
		files:     newReferenceTable(fileTable),
		functions: newReferenceTable(functionTable),
	}
}

// Parse reads header and body parts until the input runs out or a line
// fits neither. Anything after such a line is ignored.
func (p *callgrindParser) Parse() (*Profile, error) {
	p.ReadLine()

	for p.parsePart() {
	}

	if p.err != nil {
		return nil, fmt.Errorf("line %d: %w", p.LineNumber(), p.err)
	}

	if err := p.Err(); err != nil {
		return nil, fmt.Errorf("reading callgrind input: %w", err)
	}

	return p.profile, nil
}

func (p *callgrindParser) parsePart() bool {
	consumed := false

	for p.parseHeaderLine() {
		consumed = true
	}

	p.resetPositions()
	for p.parseBodyLine() {
		consumed = true
	}

	return consumed && p.err == nil && !p.Eof()
}

func (p *callgrindParser) resetPositions() {
	p.positions = map[string]string{
		"ob": unknown,
		"fl": unknown,
		"fn": unknown,
	}
	p.inCall = false
}

func (p *callgrindParser) parseHeaderLine() bool {
	return p.parseEmpty() ||
		p.parseHeader()
}

func (p *callgrindParser) parseEmpty() bool {
	if p.Eof() {
		return false
	}

	if line := p.Line(); line != "" {
		return false
	}

	p.Consume()
	return true
}

var headerRx = regexp.MustCompile(`^([a-z]+): (.*)`)

func (p *callgrindParser) parseHeader() bool {
	groups := headerRx.FindStringSubmatch(p.Line())
	if groups == nil {
		return false
	}

	p.profile.Headers[groups[1]] = strings.TrimSpace(groups[2])

	p.Consume()
	return true
}

func (p *callgrindParser) parseBodyLine() bool {
	return p.parseEmpty() ||
		p.parsePositionSpec() ||
		p.parseCostLine()
}

var positionRx = regexp.MustCompile(`^([a-z]+)=(.*)`)

var positionAliases = map[string]string{
	"cfl": "cfi",
}

// fi= and fe= define file names as soon as they are read. Every other
// compressed name is kept raw and resolved when a calls= or cost line uses it.
var inlinedFilePositions = map[string]bool{
	"fi": true,
	"fe": true,
}

func (p *callgrindParser) parsePositionSpec() bool {
	groups := positionRx.FindStringSubmatch(p.Line())
	if groups == nil {
		return false
	}

	key, value := groups[1], groups[2]
	if alias, found := positionAliases[key]; found {
		key = alias
	}

	if inlinedFilePositions[key] {
		name, err := p.files.resolve(value)
		if err != nil {
			p.err = err
			return false
		}
		value = name
	}

	if key == "calls" && !p.parseCalls(value) {
		return false
	}

	p.positions[key] = value

	p.Consume()
	return true
}

// parseCalls registers the edge announced by a calls= line. Its inclusive
// cost arrives on the next cost line.
func (p *callgrindParser) parseCalls(value string) bool {
	values := strings.Fields(value)
	if len(values) == 0 {
		return false
	}

	count, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil {
		return false
	}

	// Without cob= or cfi= the callee lives in the caller's object and file.
	if _, found := p.positions["cob"]; !found {
		p.positions["cob"] = p.positions["ob"]
	}
	if _, found := p.positions["cfi"]; !found {
		p.positions["cfi"] = p.positions["fl"]
	}

	caller, err := p.getFunction()
	if err != nil {
		p.err = err
		return false
	}
	callee, err := p.getCallee()
	if err != nil {
		p.err = err
		return false
	}
	caller.addCall(callee, count)

	p.inCall = true
	return true
}

var costRx = regexp.MustCompile(`^[0-9+\-*]`)

var callPositions = []string{"cob", "cfi"}

// parseCostLine handles "<position> <cost> ...". Only the first event
// column is modelled; a line with no event column costs nothing.
func (p *callgrindParser) parseCostLine() bool {
	line := p.Line()
	if !costRx.MatchString(line) {
		return false
	}

	values := strings.Fields(line)
	cost := int64(0)
	if len(values) > 1 {
		c, err := strconv.ParseInt(values[1], 10, 64)
		if err != nil {
			return false
		}
		cost = c
	}

	fn, err := p.getFunction()
	if err != nil {
		p.err = err
		return false
	}

	if p.inCall {
		callee, err := p.getCallee()
		if err != nil {
			p.err = err
			return false
		}
		fn.addCallCost(callee, cost)

		p.inCall = false
		for _, key := range callPositions {
			delete(p.positions, key)
		}
	} else {
		fn.addCost(cost)
	}

	p.Consume()
	return true
}

func (p *callgrindParser) getCallee() (*Function, error) {
	return p.lookup("cob", "cfi", "cfn")
}

func (p *callgrindParser) getFunction() (*Function, error) {
	return p.lookup("ob", "fl", "fn")
}

// lookup resolves the current raw object, file and function names and
// returns the matching function, creating it on first use.
func (p *callgrindParser) lookup(obKey, flKey, fnKey string) (*Function, error) {
	object, err := p.objects.resolve(get(p.positions, obKey, unknown))
	if err != nil {
		return nil, err
	}
	file, err := p.files.resolve(get(p.positions, flKey, unknown))
	if err != nil {
		return nil, err
	}
	name, err := p.functions.resolve(get(p.positions, fnKey, unknown))
	if err != nil {
		return nil, err
	}

	return p.profile.function(FunctionID{Object: object, File: file, Name: name}), nil
}

func get(m map[string]string, key, defaultValue string) string {
	if v, found := m[key]; found {
		return v
	}
	return defaultValue
}
