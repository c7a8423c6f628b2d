package text

import (
	"fmt"

	libtess2 "github.com/hajimehoshi/go-libtess2"
	"gonum.org/v1/gonum/spatial/r2"
)

// OutlineMesh is a flat triangulated text outline. Loops holds the ordered
// boundary vertex loops (outer contours and holes, one slice per loop, the
// first index repeated at the end) directed consistently with the triangle
// winding; side wall construction walks them without ever pairing vertices
// across two loops.
type OutlineMesh struct {
	V     []r2.Vec
	T     [][3]int
	Loops [][]int
}

// Outline triangulates the text contours of s at the given scale. Holes in
// letterforms are resolved by nonzero winding. The returned mesh is empty
// (no error) for whitespace-only input.
func Outline(f *Font, s string, scale float64) (*OutlineMesh, error) {
	contours, err := f.TextContours(s, scale)
	if err != nil {
		return nil, err
	}
	return Triangulate(contours)
}

// Triangulate builds an OutlineMesh from closed contours. Degenerate
// triangles produced by the tesselator are dropped.
func Triangulate(contours []Contour) (*OutlineMesh, error) {
	if len(contours) == 0 {
		return &OutlineMesh{}, nil
	}
	tc := make([]libtess2.Contour, len(contours))
	for i, ct := range contours {
		c := make(libtess2.Contour, len(ct.V))
		for j, v := range ct.V {
			c[j] = libtess2.Vertex{X: float32(v.X), Y: float32(v.Y)}
		}
		tc[i] = c
	}
	elements, vertices, err := libtess2.Tesselate(tc, libtess2.WindingRuleNonzero)
	if err != nil {
		return nil, fmt.Errorf("text: tesselate: %w", err)
	}
	o := &OutlineMesh{V: make([]r2.Vec, len(vertices))}
	for i, v := range vertices {
		o.V[i] = r2.Vec{X: float64(v.X), Y: float64(v.Y)}
	}
	for i := 0; i+2 < len(elements); i += 3 {
		a, b, c := elements[i], elements[i+1], elements[i+2]
		if a < 0 || b < 0 || c < 0 {
			continue
		}
		if degenerate2(o.V[a], o.V[b], o.V[c]) {
			continue
		}
		o.T = append(o.T, [3]int{a, b, c})
	}
	if err := o.extractLoops(); err != nil {
		return nil, err
	}
	return o, nil
}

func degenerate2(a, b, c r2.Vec) bool {
	ab := r2.Sub(b, a)
	ac := r2.Sub(c, a)
	area2 := ab.X*ac.Y - ab.Y*ac.X
	return area2 == 0
}

// Bounds returns the outline's bounding box. ok is false for an empty mesh.
func (o *OutlineMesh) Bounds() (min, max r2.Vec, ok bool) {
	if len(o.V) == 0 {
		return min, max, false
	}
	min, max = o.V[0], o.V[0]
	for _, v := range o.V[1:] {
		if v.X < min.X {
			min.X = v.X
		}
		if v.Y < min.Y {
			min.Y = v.Y
		}
		if v.X > max.X {
			max.X = v.X
		}
		if v.Y > max.Y {
			max.Y = v.Y
		}
	}
	return min, max, true
}

// extractLoops rebuilds Loops from the triangulation's boundary edges:
// the directed edges belonging to exactly one triangle, chained into closed
// loops. Loop direction follows face winding, so outer loops and holes come
// out with opposite orientations and wall quads built from them all face
// outward. A vertex may carry several outgoing boundary edges (letterforms
// pinched to a point); every edge is consumed by exactly one loop. A
// boundary that cannot be partitioned into closed loops is an error, since
// walls built from it would leave the tool solid open.
func (o *OutlineMesh) extractLoops() error {
	o.Loops = nil
	undirected := make(map[[2]int]int)
	for _, t := range o.T {
		for j := 0; j < 3; j++ {
			a, b := t[j], t[(j+1)%3]
			if a > b {
				a, b = b, a
			}
			undirected[[2]int{a, b}]++
		}
	}
	next := make(map[int][]int)
	var starts []int
	for _, t := range o.T {
		for j := 0; j < 3; j++ {
			a, b := t[j], t[(j+1)%3]
			ua, ub := a, b
			if ua > ub {
				ua, ub = ub, ua
			}
			if undirected[[2]int{ua, ub}] == 1 {
				next[a] = append(next[a], b)
				starts = append(starts, a)
			}
		}
	}
	pop := func(a int) (int, bool) {
		out := next[a]
		if len(out) == 0 {
			return 0, false
		}
		b := out[0]
		next[a] = out[1:]
		return b, true
	}
	for _, start := range starts {
		b, ok := pop(start)
		if !ok {
			continue // Already consumed by an earlier loop.
		}
		loop := []int{start, b}
		for v := b; v != start; {
			w, ok := pop(v)
			if !ok {
				return fmt.Errorf("text: open boundary chain at vertex %d", v)
			}
			loop = append(loop, w)
			v = w
		}
		if len(loop) < 4 { // Triangle loop plus explicit closure.
			return fmt.Errorf("text: degenerate boundary loop at vertex %d", start)
		}
		o.Loops = append(o.Loops, loop)
	}
	return nil
}
