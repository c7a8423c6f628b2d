package text

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestSubdivideSplitsLongestEdge(t *testing.T) {
	o := &OutlineMesh{
		V: []r2.Vec{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 1, Y: 1}},
		T: [][3]int{{0, 1, 2}},
	}
	splits := o.Subdivide(1.5, 0)
	if splits != 1 {
		t.Errorf("got %d splits, want 1", splits)
	}
	if len(o.T) != 2 {
		t.Fatalf("got %d triangles, want 2", len(o.T))
	}
	// All edges are now below the threshold; a second call must not move.
	if splits := o.Subdivide(1.5, 0); splits != 0 {
		t.Errorf("stable mesh split %d more edges", splits)
	}
	if len(o.T) != 2 {
		t.Errorf("stable mesh grew to %d triangles", len(o.T))
	}
}

func TestSubdivideConforming(t *testing.T) {
	// Two triangles share the long edge. Splitting must insert one shared
	// midpoint and split both neighbors, leaving no T-junction.
	o := &OutlineMesh{
		V: []r2.Vec{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 1, Y: 1}, {X: 1, Y: -1}},
		T: [][3]int{{0, 1, 2}, {1, 0, 3}},
	}
	o.Subdivide(1.5, 0)
	if got, want := len(o.V), 5; got != want {
		t.Errorf("vertex count %d, want %d (single shared midpoint)", got, want)
	}
	if got, want := len(o.T), 4; got != want {
		t.Errorf("triangle count %d, want %d", got, want)
	}
	// Conforming refinement keeps every interior edge shared by exactly
	// two triangles.
	count := make(map[[2]int]int)
	for _, tr := range o.T {
		for j := 0; j < 3; j++ {
			a, b := tr[j], tr[(j+1)%3]
			if a > b {
				a, b = b, a
			}
			count[[2]int{a, b}]++
		}
	}
	for e, n := range count {
		if n > 2 {
			t.Errorf("edge %v shared by %d triangles", e, n)
		}
	}
}

func TestSubdivideReachesTarget(t *testing.T) {
	o := &OutlineMesh{
		V: []r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}},
		T: [][3]int{{0, 1, 2}},
	}
	const maxEdge = 0.3
	o.Subdivide(maxEdge, 0)
	for _, tr := range o.T {
		_, len2 := o.longestEdge(tr)
		if len2 > maxEdge*maxEdge+1e-12 {
			t.Fatalf("edge of squared length %v above threshold", len2)
		}
	}
	if area := triangulationArea(o); math.Abs(area-0.5) > 1e-12 {
		t.Errorf("area %v changed during refinement, want 0.5", area)
	}
}

func TestSubdivideNoop(t *testing.T) {
	o := &OutlineMesh{}
	if o.Subdivide(0.5, 0) != 0 {
		t.Error("empty mesh split edges")
	}
	o = &OutlineMesh{
		V: []r2.Vec{{X: 0, Y: 0}, {X: 0.1, Y: 0}, {X: 0, Y: 0.1}},
		T: [][3]int{{0, 1, 2}},
	}
	if o.Subdivide(0, 0) != 0 {
		t.Error("non-positive threshold split edges")
	}
	if o.Subdivide(1, 0) != 0 {
		t.Error("fine mesh split edges")
	}
}
