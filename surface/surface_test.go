package surface

import (
	"math"
	"testing"

	"github.com/soypat/carve/internal/d3"
	"github.com/soypat/carve/mesh"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewIndexRequiresAttributes(t *testing.T) {
	if _, err := NewIndex(nil, d3.Transform{}, 0); err != ErrNoGeometry {
		t.Errorf("nil mesh: got %v, want ErrNoGeometry", err)
	}
	m := mesh.Plane(1, 1, 1, 1)
	m.UV = nil
	if _, err := NewIndex(m, d3.Transform{}, 0); err != ErrNoGeometry {
		t.Errorf("missing UVs: got %v, want ErrNoGeometry", err)
	}
}

func TestMapUVQuadCenter(t *testing.T) {
	// A single quad spanning [-1,1]^2 with the unit texture square: the
	// texture center must land on the world origin.
	idx, err := NewIndex(mesh.Plane(2, 2, 1, 1), d3.Transform{}, 4)
	if err != nil {
		t.Fatal(err)
	}
	pt, nrm, ok := idx.MapUV(r2.Vec{X: 0.5, Y: 0.5}, Strict)
	if !ok {
		t.Fatal("center did not map")
	}
	if r3.Norm(pt) > 1e-12 {
		t.Errorf("center mapped to %v, want origin", pt)
	}
	if r3.Norm(r3.Sub(nrm, r3.Vec{Z: 1})) > 1e-12 {
		t.Errorf("normal %v, want +Z", nrm)
	}
}

func TestMapUVGridBoundaries(t *testing.T) {
	// Lookups on exact cell boundaries, including the UV footprint's own
	// edges, must still resolve to a triangle.
	idx, err := NewIndex(mesh.Plane(1, 1, 8, 8), d3.Transform{}, 8)
	if err != nil {
		t.Fatal(err)
	}
	const n = 16
	for i := 0; i <= n; i++ {
		for j := 0; j <= n; j++ {
			uv := r2.Vec{X: float64(i) / n, Y: float64(j) / n}
			pt, _, ok := idx.MapUV(uv, Strict)
			if !ok {
				t.Fatalf("uv %v did not map", uv)
			}
			want := r3.Vec{X: uv.X - 0.5, Y: uv.Y - 0.5}
			if r3.Norm(r3.Sub(pt, want)) > 1e-9 {
				t.Fatalf("uv %v mapped to %v, want %v", uv, pt, want)
			}
		}
	}
}

func TestMapUVOutside(t *testing.T) {
	idx, err := NewIndex(mesh.Plane(1, 1, 4, 4), d3.Transform{}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, ok := idx.MapUV(r2.Vec{X: 1.2, Y: 0.5}, Strict); ok {
		t.Error("strict lookup outside the footprint succeeded")
	}
	// Nearest must still resolve, snapping to the closest triangle.
	pt, _, ok := idx.MapUV(r2.Vec{X: 1.2, Y: 0.5}, Nearest)
	if !ok {
		t.Fatal("nearest lookup outside the footprint failed")
	}
	if math.Abs(pt.X-0.5) > 0.2 {
		t.Errorf("nearest lookup snapped to %v, want near the +X edge", pt)
	}
}

func TestMapUVTransformBaked(t *testing.T) {
	tr := d3.Transform{}.Translate(r3.Vec{X: 10, Y: -2, Z: 3})
	idx, err := NewIndex(mesh.Plane(2, 2, 1, 1), tr, 4)
	if err != nil {
		t.Fatal(err)
	}
	pt, nrm, ok := idx.MapUV(r2.Vec{X: 0.5, Y: 0.5}, Strict)
	if !ok {
		t.Fatal("center did not map")
	}
	want := r3.Vec{X: 10, Y: -2, Z: 3}
	if r3.Norm(r3.Sub(pt, want)) > 1e-9 {
		t.Errorf("mapped to %v, want %v", pt, want)
	}
	// Translation must leave normals untouched.
	if r3.Norm(r3.Sub(nrm, r3.Vec{Z: 1})) > 1e-9 {
		t.Errorf("normal %v, want +Z", nrm)
	}
}

func TestBarycentricWeights(t *testing.T) {
	a := r2.Vec{X: 0, Y: 0}
	b := r2.Vec{X: 2, Y: 0}
	c := r2.Vec{X: 0, Y: 2}
	for _, p := range []r2.Vec{
		{X: 0.5, Y: 0.5},
		{X: 0.1, Y: 0.1},
		{X: 1, Y: 0.5},
	} {
		w, ok := barycentric(p, a, b, c)
		if !ok {
			t.Fatalf("barycentric failed for %v", p)
		}
		if s := w[0] + w[1] + w[2]; math.Abs(s-1) > 1e-12 {
			t.Errorf("weights for %v sum to %v", p, s)
		}
		for _, wi := range w {
			if wi < 0 {
				t.Errorf("interior point %v produced negative weight %v", p, w)
			}
		}
		got := r2.Add(r2.Add(r2.Scale(w[0], a), r2.Scale(w[1], b)), r2.Scale(w[2], c))
		if r2.Norm(r2.Sub(got, p)) > 1e-12 {
			t.Errorf("weights do not reproduce %v: got %v", p, got)
		}
	}
}

func TestBarycentricDegenerate(t *testing.T) {
	a := r2.Vec{X: 0, Y: 0}
	b := r2.Vec{X: 1, Y: 1}
	c := r2.Vec{X: 2, Y: 2} // collinear
	if _, ok := barycentric(r2.Vec{X: 1, Y: 0}, a, b, c); ok {
		t.Error("degenerate triangle accepted")
	}
	if _, ok := barycentric(r2.Vec{}, a, a, a); ok {
		t.Error("zero triangle accepted")
	}
}
