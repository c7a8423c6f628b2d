package text

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultSubdividePasses bounds pathological refinement cases.
const DefaultSubdividePasses = 10

// Subdivide refines the outline until no triangle's longest edge exceeds
// maxEdge, or until maxPasses passes have run (non-positive selects
// DefaultSubdividePasses). Each pass splits the longest edge of every
// oversized triangle at its midpoint; neighbors sharing a split edge are
// split along with it so the refined mesh stays free of T-junctions.
// Subdividing an already fine mesh is a no-op, and boundary loops are
// re-extracted after refinement. Returns the number of edge splits.
func (o *OutlineMesh) Subdivide(maxEdge float64, maxPasses int) int {
	if maxEdge <= 0 || len(o.T) == 0 {
		return 0
	}
	if maxPasses <= 0 {
		maxPasses = DefaultSubdividePasses
	}
	maxEdge2 := maxEdge * maxEdge
	totalSplits := 0
	for pass := 0; pass < maxPasses; pass++ {
		// Mark the longest edge of every oversized triangle.
		marked := make(map[[2]int]bool)
		for _, t := range o.T {
			ei, len2 := o.longestEdge(t)
			if len2 > maxEdge2 {
				marked[o.edgeKey(t, ei)] = true
			}
		}
		if len(marked) == 0 {
			break
		}
		// One midpoint per marked edge, shared by both incident triangles.
		mid := make(map[[2]int]int, len(marked))
		for e := range marked {
			mid[e] = len(o.V)
			o.V = append(o.V, r2.Scale(0.5, r2.Add(o.V[e[0]], o.V[e[1]])))
		}
		totalSplits += len(marked)
		next := make([][3]int, 0, len(o.T)+len(marked))
		for _, t := range o.T {
			next = o.splitTriangle(next, t, mid)
		}
		o.T = next
	}
	if err := o.extractLoops(); err != nil {
		// Never leave a partial loop set behind; the solid builder
		// detects the uncovered boundary and refuses to build an open
		// tool.
		o.Loops = nil
	}
	return totalSplits
}

// splitTriangle appends the refinement of t against the midpoint set.
// Triangles with zero, one, two or three split edges yield one, two, three
// or four triangles respectively, preserving winding.
func (o *OutlineMesh) splitTriangle(dst [][3]int, t [3]int, mid map[[2]int]int) [][3]int {
	var m [3]int // midpoint index per edge j=(t[j],t[j+1]), -1 if unsplit
	n := 0
	for j := 0; j < 3; j++ {
		if vi, ok := mid[o.edgeKey(t, j)]; ok {
			m[j] = vi
			n++
		} else {
			m[j] = -1
		}
	}
	a, b, c := t[0], t[1], t[2]
	switch n {
	case 0:
		return append(dst, t)
	case 1:
		// Rotate so the split edge is (a,b).
		for m[0] < 0 {
			a, b, c = b, c, a
			m[0], m[1], m[2] = m[1], m[2], m[0]
		}
		return append(dst,
			[3]int{a, m[0], c},
			[3]int{m[0], b, c})
	case 2:
		// Rotate so the unsplit edge is (c,a).
		for m[2] >= 0 {
			a, b, c = b, c, a
			m[0], m[1], m[2] = m[1], m[2], m[0]
		}
		return append(dst,
			[3]int{a, m[0], m[1]},
			[3]int{a, m[1], c},
			[3]int{m[0], b, m[1]})
	default:
		return append(dst,
			[3]int{a, m[0], m[2]},
			[3]int{m[0], b, m[1]},
			[3]int{m[2], m[1], c},
			[3]int{m[0], m[1], m[2]})
	}
}

// longestEdge returns the index j of triangle t's longest edge
// (t[j], t[j+1]) and its squared length.
func (o *OutlineMesh) longestEdge(t [3]int) (j int, len2 float64) {
	for e := 0; e < 3; e++ {
		d := r2.Sub(o.V[t[(e+1)%3]], o.V[t[e]])
		if l2 := r2.Norm2(d); l2 > len2 {
			len2 = l2
			j = e
		}
	}
	return j, len2
}

func (o *OutlineMesh) edgeKey(t [3]int, j int) [2]int {
	a, b := t[j], t[(j+1)%3]
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
