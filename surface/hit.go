package surface

import (
	"math"

	"github.com/soypat/carve/internal/d2"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// degenerateTangent2 is the squared length below which a projected view
// direction is considered degenerate and the fallback axis is used.
const degenerateTangent2 = 0.01

// uvProbeDist is the world-space offset used by the secondary raycast that
// estimates the UV tangent.
const uvProbeDist = 1e-3

// Ray is a world space ray with unit direction.
type Ray struct {
	Origin, Dir r3.Vec
}

// View carries the viewer's world space right and up directions, used to
// seed a stable tangent at the hit point.
type View struct {
	Right, Up r3.Vec
}

// Hit is a surface placement anchor: the struck point, its normal and an
// orthonormal tangent frame, plus the surface's native UV coordinate and the
// UV-space direction corresponding to the 3D tangent. A Hit is immutable
// once produced.
type Hit struct {
	Point     r3.Vec
	Normal    r3.Vec
	Tangent   r3.Vec
	Bitangent r3.Vec
	// UV is the texture coordinate at the hit. Valid only when UVOK.
	UV   r2.Vec
	UVOK bool
	// UVTangent is the change in UV per world unit moved along Tangent.
	// Valid only when UVTangentOK; dependent UV mapping is unavailable
	// otherwise.
	UVTangent   r2.Vec
	UVTangentOK bool
}

// Raycast intersects ray with the indexed surface and returns the nearest
// hit with its tangent frame. ok is false when no triangle is struck.
// Raycast does not mutate the index.
func (idx *Index) Raycast(ray Ray, view View) (Hit, bool) {
	ti, t, bw := idx.nearestIntersection(ray)
	if ti < 0 {
		return Hit{}, false
	}
	var h Hit
	h.Point = r3.Add(ray.Origin, r3.Scale(t, ray.Dir))
	tri := &idx.tris[ti]
	n := r3.Cross(r3.Sub(tri.w[1], tri.w[0]), r3.Sub(tri.w[2], tri.w[0]))
	if nn := r3.Norm(n); nn > 0 {
		n = r3.Scale(1/nn, n)
	}
	h.Normal = n

	// Tangent from the viewer's right direction projected onto the surface
	// plane, falling back to the up direction when near-degenerate.
	tangent := projectOnPlane(view.Right, n)
	if r3.Norm2(tangent) < degenerateTangent2 {
		tangent = projectOnPlane(view.Up, n)
	}
	if nn := r3.Norm(tangent); nn > 0 {
		tangent = r3.Scale(1/nn, tangent)
	}
	h.Tangent = tangent
	h.Bitangent = r3.Cross(n, tangent)

	h.UV = interpUV(tri, bw)
	h.UVOK = true

	// Secondary cast offset along the tangent estimates the UV direction of
	// the tangent. A miss leaves the UV tangent unavailable.
	probe := Ray{Origin: r3.Add(ray.Origin, r3.Scale(uvProbeDist, tangent)), Dir: ray.Dir}
	if ti2, _, bw2 := idx.nearestIntersection(probe); ti2 >= 0 {
		uv2 := interpUV(&idx.tris[ti2], bw2)
		h.UVTangent = r2.Scale(1/uvProbeDist, r2.Sub(uv2, h.UV))
		h.UVTangentOK = h.UVTangent != (r2.Vec{})
	}
	return h, true
}

// UVAt maps a point expressed in the hit's tangent plane (x along Tangent,
// y along Bitangent, world units) to a surface texture coordinate using the
// UV tangent estimated at placement. ok is false when the UV tangent is
// unavailable.
func (h Hit) UVAt(p r2.Vec) (r2.Vec, bool) {
	if !h.UVOK || !h.UVTangentOK {
		return r2.Vec{}, false
	}
	speed := r2.Norm(h.UVTangent)
	if speed == 0 {
		return r2.Vec{}, false
	}
	du := h.UVTangent
	// The bitangent UV direction is taken perpendicular with the same
	// magnitude, assuming a locally isotropic parametrization.
	dv := r2.Scale(speed, d2.Perp(r2.Scale(1/speed, du)))
	return r2.Add(h.UV, r2.Add(r2.Scale(p.X, du), r2.Scale(p.Y, dv))), true
}

func projectOnPlane(v, n r3.Vec) r3.Vec {
	return r3.Sub(v, r3.Scale(r3.Dot(v, n), n))
}

func interpUV(t *indexedTriangle, w [3]float64) r2.Vec {
	return r2.Add(r2.Add(
		r2.Scale(w[0], t.uv[0]),
		r2.Scale(w[1], t.uv[1])),
		r2.Scale(w[2], t.uv[2]))
}

// nearestIntersection runs Möller-Trumbore over the indexed triangles and
// returns the nearest strike, its ray parameter and barycentric weights.
// Returns triangle index -1 on a miss.
func (idx *Index) nearestIntersection(ray Ray) (ti int, t float64, w [3]float64) {
	const eps = 1e-12
	ti = -1
	t = math.MaxFloat64
	for i := range idx.tris {
		tri := &idx.tris[i]
		e1 := r3.Sub(tri.w[1], tri.w[0])
		e2 := r3.Sub(tri.w[2], tri.w[0])
		p := r3.Cross(ray.Dir, e2)
		det := r3.Dot(e1, p)
		if math.Abs(det) < eps {
			continue // Ray parallel to triangle plane.
		}
		inv := 1 / det
		s := r3.Sub(ray.Origin, tri.w[0])
		u := r3.Dot(s, p) * inv
		if u < 0 || u > 1 {
			continue
		}
		q := r3.Cross(s, e1)
		v := r3.Dot(ray.Dir, q) * inv
		if v < 0 || u+v > 1 {
			continue
		}
		tt := r3.Dot(e2, q) * inv
		if tt <= eps || tt >= t {
			continue
		}
		t = tt
		ti = i
		w = [3]float64{1 - u - v, u, v}
	}
	return ti, t, w
}
