package parser

import "golang.org/x/exp/slices"

// FunctionID identifies a function by object, file and name.
type FunctionID struct {
	Object string
	File   string
	Name   string
}

// Signature is the frame text used in collapsed output. The object is not
// part of it, so functions that differ only by object print the same.
func (id FunctionID) Signature() string {
	return id.File + "#" + id.Name
}

func (id FunctionID) String() string {
	return id.Object + "#" + id.File + "#" + id.Name
}

func NewFunction(id FunctionID) *Function {
	return &Function{
		ID:        id,
		callIndex: map[FunctionID]*Call{},
	}
}

type Function struct {
	ID       FunctionID
	SelfCost int64

	// Totals over every caller in the profile.
	InboundCount int64
	InboundCost  int64

	calls     []*Call
	callIndex map[FunctionID]*Call
}

// addCall registers the edge on first sight. Recursive edges are kept in
// the callee list but never accumulate counts.
func (f *Function) addCall(callee *Function, count int64) {
	call, found := f.callIndex[callee.ID]
	if !found {
		call = &Call{Callee: callee}
		f.calls = append(f.calls, call)
		f.callIndex[callee.ID] = call
	}

	if f.ID == callee.ID {
		return
	}

	call.Count += count
	callee.InboundCount += count
}

// addCallCost charges the most recently registered edge, which is always
// the one declared by the calls= line preceding this cost line.
func (f *Function) addCallCost(callee *Function, cost int64) {
	if f.ID == callee.ID || len(f.calls) == 0 {
		return
	}

	f.calls[len(f.calls)-1].Cost += cost
	callee.InboundCost += cost
}

func (f *Function) addCost(cost int64) {
	f.SelfCost += cost
}

// Calls returns the outgoing edges in the order they were first declared.
func (f *Function) Calls() []*Call {
	return slices.Clone(f.calls)
}

// Callees returns the distinct functions this one calls, in declaration order.
func (f *Function) Callees() []*Function {
	callees := make([]*Function, 0, len(f.calls))
	for _, call := range f.calls {
		callees = append(callees, call.Callee)
	}
	return callees
}

func (f *Function) Call(callee FunctionID) (*Call, bool) {
	call, found := f.callIndex[callee]
	return call, found
}

// Call is a caller to callee edge with the accumulated call count and
// inclusive cost.
type Call struct {
	Callee *Function

	Count int64
	Cost  int64
}
