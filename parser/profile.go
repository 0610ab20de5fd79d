package parser

// Profile is the call graph built from one callgrind stream.
type Profile struct {
	Headers map[string]string

	functions map[FunctionID]*Function
	order     []*Function
}

func newProfile() *Profile {
	return &Profile{
		Headers:   map[string]string{},
		functions: map[FunctionID]*Function{},
	}
}

func (p *Profile) function(id FunctionID) *Function {
	if fn, found := p.functions[id]; found {
		return fn
	}

	fn := NewFunction(id)
	p.functions[id] = fn
	p.order = append(p.order, fn)
	return fn
}

func (p *Profile) GetFunction(id FunctionID) (*Function, bool) {
	f, found := p.functions[id]
	return f, found
}

// Functions returns every function in the order it first appeared.
func (p *Profile) Functions() []*Function {
	functions := make([]*Function, len(p.order))
	copy(functions, p.order)
	return functions
}

// Roots returns the functions nobody calls that call something themselves.
// An isolated function is not a root, whatever its self cost.
func (p *Profile) Roots() []*Function {
	roots := []*Function{}

	for _, fn := range p.order {
		if fn.InboundCount == 0 && len(fn.calls) > 0 {
			roots = append(roots, fn)
		}
	}

	return roots
}

// CallCount is the number of distinct caller to callee edges.
func (p *Profile) CallCount() int {
	count := 0
	for _, fn := range p.order {
		count += len(fn.calls)
	}
	return count
}
