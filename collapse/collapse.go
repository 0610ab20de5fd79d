// Package collapse walks a callgrind call graph from its roots and folds
// every acyclic call path into a collapsed stack sample.
//
// A function's self cost is reported at the share of its calls that came in
// along the current path: entering a function over an edge with count c,
// when the function received N calls in total, scales its self cost and the
// inclusive cost of each of its outgoing edges by c/N. Roots report their
// full self cost. A function without callees reports only the inclusive
// cost of the edge that reached it. All scaled values are rounded half away
// from zero, at every level of the walk.
package collapse

import (
	"math"

	"golang.org/x/exp/slices"

	"stackcollapse-callgrind/collapsed"
	"stackcollapse-callgrind/parser"
)

// Collapse emits the paths below every root of the profile, roots in the
// order they first appeared in the input and callees in declaration order.
func Collapse(profile *parser.Profile) *collapsed.Profile {
	c := &collapser{
		out:    &collapsed.Profile{},
		onPath: map[string]struct{}{},
	}

	for _, root := range profile.Roots() {
		c.walk(root)
	}

	return c.out
}

// frame is a function on the walk stack whose callees are still being
// visited.
type frame struct {
	calls []*parser.Call
	scale float64
	next  int
}

type collapser struct {
	out *collapsed.Profile

	path   []string
	onPath map[string]struct{}
	frames []frame
}

// walk is a depth first traversal on an explicit stack, so graph depth is
// bounded by memory rather than goroutine stack.
func (c *collapser) walk(root *parser.Function) {
	c.enter(root, 0, 0)

	for len(c.frames) > 0 {
		top := &c.frames[len(c.frames)-1]
		if top.next == len(top.calls) {
			c.frames = c.frames[:len(c.frames)-1]
			c.pop()
			continue
		}

		call := top.calls[top.next]
		top.next++
		c.enter(call.Callee, call.Count, round(top.scale*float64(call.Cost)))
	}
}

// enter visits fn, reached by count calls carrying cost inclusive cost.
// Functions already on the path are skipped, which cuts recursion.
func (c *collapser) enter(fn *parser.Function, count, cost int64) {
	signature := fn.ID.Signature()
	if _, found := c.onPath[signature]; found {
		return
	}
	c.push(signature)

	calls := fn.Calls()
	if len(calls) == 0 {
		c.emit(cost)
		c.pop()
		return
	}

	scale := 1.0
	if fn.InboundCount > 0 {
		scale = float64(count) / float64(fn.InboundCount)
	}

	c.emit(round(scale * float64(fn.SelfCost)))
	c.frames = append(c.frames, frame{
		calls: calls,
		scale: scale,
	})
}

func (c *collapser) push(signature string) {
	c.path = append(c.path, signature)
	c.onPath[signature] = struct{}{}
}

func (c *collapser) pop() {
	last := len(c.path) - 1
	delete(c.onPath, c.path[last])
	c.path = c.path[:last]
}

func (c *collapser) emit(value int64) {
	c.out.Add(slices.Clone(c.path), value)
}

// round rounds half away from zero. Scaled costs beyond the int64 range
// saturate at math.MaxInt64 or math.MinInt64.
func round(v float64) int64 {
	r := math.Round(v)
	switch {
	case r >= math.MaxInt64:
		return math.MaxInt64
	case r <= math.MinInt64:
		return math.MinInt64
	}
	return int64(r)
}
