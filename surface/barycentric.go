package surface

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Policy selects the barycentric containment tolerance for UV lookups.
type Policy int

const (
	// Strict accepts only points inside (or marginally on the edge of) a
	// triangle. Mandatory for any mapping feeding the carve path.
	Strict Policy = iota
	// Nearest falls back to permissive membership and finally the triangle
	// with the nearest UV centroid. For non-committing visualization only.
	Nearest
)

const (
	strictTol = -1e-3
	looseTol  = -1e-2
)

// barycentric solves P = a*A + b*B + c*C for the weights (a,b,c) using the
// dot product formulation. ok is false for degenerate triangles, which are
// skipped as containment candidates rather than escalated.
func barycentric(p, a, b, c r2.Vec) (w [3]float64, ok bool) {
	v0 := r2.Sub(c, a)
	v1 := r2.Sub(b, a)
	v2 := r2.Sub(p, a)
	dot00 := r2.Dot(v0, v0)
	dot01 := r2.Dot(v0, v1)
	dot02 := r2.Dot(v0, v2)
	dot11 := r2.Dot(v1, v1)
	dot12 := r2.Dot(v1, v2)
	den := dot00*dot11 - dot01*dot01
	scale := math.Max(dot00, dot11)
	if scale < 1e-20 || math.Abs(den) < scale*1e-10 {
		return w, false
	}
	wc := (dot11*dot02 - dot01*dot12) / den
	wb := (dot00*dot12 - dot01*dot02) / den
	return [3]float64{1 - wb - wc, wb, wc}, true
}

func contained(w [3]float64, tol float64) bool {
	return w[0] >= tol && w[1] >= tol && w[2] >= tol
}

// interpolate evaluates the triangle's world position and normal at the
// barycentric weights w. Without per-vertex normals the face normal is used.
func (idx *Index) interpolate(ti int, w [3]float64) (pt, nrm r3.Vec) {
	t := &idx.tris[ti]
	pt = r3.Add(r3.Add(
		r3.Scale(w[0], t.w[0]),
		r3.Scale(w[1], t.w[1])),
		r3.Scale(w[2], t.w[2]))
	if idx.hasNormals {
		nrm = r3.Add(r3.Add(
			r3.Scale(w[0], t.n[0]),
			r3.Scale(w[1], t.n[1])),
			r3.Scale(w[2], t.n[2]))
	} else {
		nrm = r3.Cross(r3.Sub(t.w[1], t.w[0]), r3.Sub(t.w[2], t.w[0]))
	}
	if nn := r3.Norm(nrm); nn > 0 {
		nrm = r3.Scale(1/nn, nrm)
	}
	return pt, nrm
}

// MapUV maps a texture coordinate to its 3D surface position and normal.
// ok is false when no triangle contains uv under the policy's tolerance;
// callers must treat that distinctly from a zero position.
func (idx *Index) MapUV(uv r2.Vec, pol Policy) (pt, nrm r3.Vec, ok bool) {
	for _, ti := range idx.candidates(uv) {
		w, valid := barycentric(uv, idx.tris[ti].uv[0], idx.tris[ti].uv[1], idx.tris[ti].uv[2])
		if valid && contained(w, strictTol) {
			pt, nrm = idx.interpolate(ti, w)
			return pt, nrm, true
		}
	}
	if pol == Strict {
		return r3.Vec{}, r3.Vec{}, false
	}
	// Permissive sweep over the whole triangle set, then nearest centroid.
	bestDist := math.MaxFloat64
	best := -1
	for ti := range idx.tris {
		t := &idx.tris[ti]
		w, valid := barycentric(uv, t.uv[0], t.uv[1], t.uv[2])
		if valid && contained(w, looseTol) {
			pt, nrm = idx.interpolate(ti, w)
			return pt, nrm, true
		}
		cen := r2.Scale(1.0/3.0, r2.Add(r2.Add(t.uv[0], t.uv[1]), t.uv[2]))
		if d := r2.Norm2(r2.Sub(uv, cen)); d < bestDist {
			bestDist = d
			best = ti
		}
	}
	if best < 0 {
		return r3.Vec{}, r3.Vec{}, false
	}
	t := &idx.tris[best]
	w, valid := barycentric(uv, t.uv[0], t.uv[1], t.uv[2])
	if !valid {
		return r3.Vec{}, r3.Vec{}, false
	}
	w = clampWeights(w)
	pt, nrm = idx.interpolate(best, w)
	return pt, nrm, true
}

// clampWeights projects barycentric weights onto the valid simplex by
// clamping negatives and renormalizing.
func clampWeights(w [3]float64) [3]float64 {
	sum := 0.0
	for i := range w {
		if w[i] < 0 {
			w[i] = 0
		}
		sum += w[i]
	}
	if sum == 0 {
		return [3]float64{1.0 / 3.0, 1.0 / 3.0, 1.0 / 3.0}
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}
