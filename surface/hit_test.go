package surface

import (
	"math"
	"testing"

	"github.com/soypat/carve/internal/d3"
	"github.com/soypat/carve/mesh"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func quadIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(mesh.Plane(2, 2, 1, 1), d3.Transform{}, 4)
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestRaycastQuad(t *testing.T) {
	idx := quadIndex(t)
	ray := Ray{Origin: r3.Vec{X: 0.2, Y: 0.1, Z: 5}, Dir: r3.Vec{Z: -1}}
	view := View{Right: r3.Vec{X: 1}, Up: r3.Vec{Y: 1}}
	h, ok := idx.Raycast(ray, view)
	if !ok {
		t.Fatal("ray missed the quad")
	}
	if r3.Norm(r3.Sub(h.Point, r3.Vec{X: 0.2, Y: 0.1})) > 1e-9 {
		t.Errorf("hit point %v, want (0.2, 0.1, 0)", h.Point)
	}
	if r3.Norm(r3.Sub(h.Normal, r3.Vec{Z: 1})) > 1e-9 {
		t.Errorf("normal %v, want +Z", h.Normal)
	}
	// Frame must be orthonormal with Bitangent = Normal x Tangent.
	for name, v := range map[string]r3.Vec{"tangent": h.Tangent, "bitangent": h.Bitangent} {
		if math.Abs(r3.Norm(v)-1) > 1e-9 {
			t.Errorf("%s not unit length: %v", name, v)
		}
	}
	if math.Abs(r3.Dot(h.Tangent, h.Normal)) > 1e-9 ||
		math.Abs(r3.Dot(h.Bitangent, h.Normal)) > 1e-9 ||
		math.Abs(r3.Dot(h.Tangent, h.Bitangent)) > 1e-9 {
		t.Error("tangent frame not orthogonal")
	}
	if r3.Norm(r3.Sub(h.Bitangent, r3.Cross(h.Normal, h.Tangent))) > 1e-9 {
		t.Error("bitangent is not normal x tangent")
	}
	if !h.UVOK {
		t.Fatal("no UV at hit")
	}
	// The quad spans [-1,1]^2 over the unit texture square.
	if r2.Norm(r2.Sub(h.UV, r2.Vec{X: 0.6, Y: 0.55})) > 1e-9 {
		t.Errorf("UV %v, want (0.6, 0.55)", h.UV)
	}
	if !h.UVTangentOK {
		t.Fatal("no UV tangent at hit")
	}
	// One world unit along +X advances u by 0.5 on this quad.
	if r2.Norm(r2.Sub(h.UVTangent, r2.Vec{X: 0.5})) > 1e-6 {
		t.Errorf("UV tangent %v, want (0.5, 0)", h.UVTangent)
	}
}

func TestHitUVAt(t *testing.T) {
	idx := quadIndex(t)
	h, ok := idx.Raycast(
		Ray{Origin: r3.Vec{Z: 5}, Dir: r3.Vec{Z: -1}},
		View{Right: r3.Vec{X: 1}, Up: r3.Vec{Y: 1}},
	)
	if !ok {
		t.Fatal("ray missed the quad")
	}
	for _, tc := range []struct {
		local r2.Vec
		want  r2.Vec
	}{
		{local: r2.Vec{}, want: r2.Vec{X: 0.5, Y: 0.5}},
		{local: r2.Vec{X: 0.4}, want: r2.Vec{X: 0.7, Y: 0.5}},
		{local: r2.Vec{Y: 0.4}, want: r2.Vec{X: 0.5, Y: 0.7}},
		{local: r2.Vec{X: -0.2, Y: 0.2}, want: r2.Vec{X: 0.4, Y: 0.6}},
	} {
		uv, ok := h.UVAt(tc.local)
		if !ok {
			t.Fatalf("UVAt(%v) unavailable", tc.local)
		}
		if r2.Norm(r2.Sub(uv, tc.want)) > 1e-6 {
			t.Errorf("UVAt(%v) = %v, want %v", tc.local, uv, tc.want)
		}
	}
}

func TestRaycastMiss(t *testing.T) {
	idx := quadIndex(t)
	if _, ok := idx.Raycast(
		Ray{Origin: r3.Vec{X: 5, Z: 5}, Dir: r3.Vec{Z: -1}},
		View{Right: r3.Vec{X: 1}, Up: r3.Vec{Y: 1}},
	); ok {
		t.Error("ray beside the quad reported a hit")
	}
	if _, ok := idx.Raycast(
		Ray{Origin: r3.Vec{Z: 5}, Dir: r3.Vec{Z: 1}},
		View{Right: r3.Vec{X: 1}, Up: r3.Vec{Y: 1}},
	); ok {
		t.Error("ray pointing away reported a hit")
	}
}

func TestRaycastSphereNearestStrike(t *testing.T) {
	idx, err := NewIndex(mesh.UVSphere(1, 32, 16), d3.Transform{}, 16)
	if err != nil {
		t.Fatal(err)
	}
	h, ok := idx.Raycast(
		Ray{Origin: r3.Vec{Y: -3}, Dir: r3.Vec{Y: 1}},
		View{Right: r3.Vec{X: 1}, Up: r3.Vec{Z: 1}},
	)
	if !ok {
		t.Fatal("ray missed the sphere")
	}
	if h.Point.Y > -0.9 {
		t.Errorf("hit the far side: %v", h.Point)
	}
	if r3.Dot(h.Normal, r3.Vec{Y: -1}) < 0.9 {
		t.Errorf("normal %v does not face the viewer", h.Normal)
	}
}

func TestRaycastDegenerateRightFallsBackToUp(t *testing.T) {
	idx := quadIndex(t)
	// Right parallel to the quad normal projects to zero; the tangent must
	// come from the up direction instead.
	h, ok := idx.Raycast(
		Ray{Origin: r3.Vec{Z: 5}, Dir: r3.Vec{Z: -1}},
		View{Right: r3.Vec{Z: 1}, Up: r3.Vec{Y: 1}},
	)
	if !ok {
		t.Fatal("ray missed the quad")
	}
	if r3.Norm(r3.Sub(h.Tangent, r3.Vec{Y: 1})) > 1e-9 {
		t.Errorf("tangent %v, want +Y from the up fallback", h.Tangent)
	}
}
