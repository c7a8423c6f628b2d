// Package mesh implements an indexed triangle mesh with position, normal
// and texture coordinate vertex attributes. It is the exchange type between
// the surface index, the solid builder and the boolean subtraction engine.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/carve/internal/d3"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is a 3D triangle defined by its three vertices.
type Triangle [3]r3.Vec

// Normal returns the triangle's normal for counterclockwise winding.
// The result is not unit length and is zero for degenerate triangles.
func (t Triangle) Normal() r3.Vec {
	return r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
}

// Centroid returns the mean of the triangle's vertices.
func (t Triangle) Centroid() r3.Vec {
	return r3.Scale(1.0/3.0, r3.Add(r3.Add(t[0], t[1]), t[2]))
}

// Mesh is an indexed triangle mesh. N and UV are optional per-vertex
// attributes and when present have the same length as V.
type Mesh struct {
	V  []r3.Vec
	N  []r3.Vec
	UV []r2.Vec
	T  [][3]int
}

// NumVertices returns the number of vertices in the mesh.
func (m *Mesh) NumVertices() int { return len(m.V) }

// NumTriangles returns the number of triangles in the mesh.
func (m *Mesh) NumTriangles() int { return len(m.T) }

// HasNormals returns true if the mesh carries per-vertex normals.
func (m *Mesh) HasNormals() bool { return len(m.N) == len(m.V) && len(m.V) > 0 }

// HasUV returns true if the mesh carries per-vertex texture coordinates.
func (m *Mesh) HasUV() bool { return len(m.UV) == len(m.V) && len(m.V) > 0 }

// EnsureUV synthesizes zeroed texture coordinates when the mesh has none.
// Boolean evaluation requires the attribute structurally even when texture
// content is irrelevant.
func (m *Mesh) EnsureUV() {
	if !m.HasUV() {
		m.UV = make([]r2.Vec, len(m.V))
	}
}

// Validate checks index bounds and attribute lengths.
func (m *Mesh) Validate() error {
	if len(m.V) == 0 || len(m.T) == 0 {
		return errors.New("mesh: empty geometry")
	}
	if len(m.N) != 0 && len(m.N) != len(m.V) {
		return fmt.Errorf("mesh: normal count %d does not match vertex count %d", len(m.N), len(m.V))
	}
	if len(m.UV) != 0 && len(m.UV) != len(m.V) {
		return fmt.Errorf("mesh: UV count %d does not match vertex count %d", len(m.UV), len(m.V))
	}
	for i, t := range m.T {
		for _, vi := range t {
			if vi < 0 || vi >= len(m.V) {
				return fmt.Errorf("mesh: triangle %d references vertex %d out of %d", i, vi, len(m.V))
			}
		}
	}
	return nil
}

// Copy returns a deep copy of the mesh.
func (m *Mesh) Copy() *Mesh {
	c := &Mesh{
		V: append([]r3.Vec(nil), m.V...),
		T: append([][3]int(nil), m.T...),
	}
	if len(m.N) > 0 {
		c.N = append([]r3.Vec(nil), m.N...)
	}
	if len(m.UV) > 0 {
		c.UV = append([]r2.Vec(nil), m.UV...)
	}
	return c
}

// Transformed returns a copy of the mesh with tr applied to every vertex.
// Normals are mapped through the normal transform and renormalized, so the
// result is valid for non-rigid tr as well.
func (m *Mesh) Transformed(tr d3.Transform) *Mesh {
	out := m.Copy()
	if tr == (d3.Transform{}) {
		return out
	}
	for i, v := range out.V {
		out.V[i] = tr.Transform(v)
	}
	if out.HasNormals() {
		nt := tr.NormalTransform()
		for i, n := range out.N {
			n = nt.TransformDir(n)
			if nn := r3.Norm(n); nn > 0 {
				n = r3.Scale(1/nn, n)
			}
			out.N[i] = n
		}
	}
	return out
}

// Bounds returns the axis aligned bounding box of the mesh vertices.
func (m *Mesh) Bounds() d3.Box {
	bb := d3.Box{Min: d3.Elem(math.MaxFloat64), Max: d3.Elem(-math.MaxFloat64)}
	for _, v := range m.V {
		bb = bb.Include(v)
	}
	return bb
}

// Triangles expands the index buffer into a triangle soup.
func (m *Mesh) Triangles() []Triangle {
	tris := make([]Triangle, len(m.T))
	for i, t := range m.T {
		tris[i] = Triangle{m.V[t[0]], m.V[t[1]], m.V[t[2]]}
	}
	return tris
}

// FromTriangles builds an indexed mesh from a triangle soup, sharing vertices
// closer than tol. If tol is zero a tolerance is inferred from the smallest
// triangle side, following the same heuristic used for model import.
func FromTriangles(tris []Triangle, tol float64) (*Mesh, error) {
	if len(tris) == 0 {
		return nil, errors.New("mesh: empty triangle slice")
	}
	minSide2 := math.MaxFloat64
	maxSide2 := -math.MaxFloat64
	for i := range tris {
		for j := range tris[i] {
			side2 := r3.Norm2(r3.Sub(tris[i][(j+1)%3], tris[i][j]))
			minSide2 = math.Min(minSide2, side2)
			maxSide2 = math.Max(maxSide2, side2)
		}
	}
	if tol == 0 {
		tol = math.Sqrt(minSide2) / 256
		if tol == 0 {
			tol = 1e-12
		}
	}
	if tol > math.Sqrt(maxSide2)/2 {
		return nil, fmt.Errorf("mesh: weld tolerance %g too large for smallest feature", tol)
	}
	m := &Mesh{T: make([][3]int, 0, len(tris))}
	// Vertex index cache on an integer lattice of spacing tol.
	cache := make(map[[3]int64]int)
	ri := 1 / tol
	for _, tri := range tris {
		var idx [3]int
		for j, vert := range tri {
			key := latticeKey(vert, ri)
			vi, ok := cache[key]
			if !ok {
				vi = len(m.V)
				m.V = append(m.V, vert)
				cache[key] = vi
			}
			idx[j] = vi
		}
		if idx[0] == idx[1] || idx[1] == idx[2] || idx[2] == idx[0] {
			continue // Degenerate after welding.
		}
		m.T = append(m.T, idx)
	}
	if len(m.T) == 0 {
		return nil, errors.New("mesh: all triangles degenerate after welding")
	}
	return m, nil
}

// FromTrianglesExact builds an indexed mesh sharing only bitwise identical
// vertices. It preserves the topology of evaluators that already emit
// shared coordinates, where a metric weld could pinch nearby features into
// non-manifold edges.
func FromTrianglesExact(tris []Triangle) (*Mesh, error) {
	if len(tris) == 0 {
		return nil, errors.New("mesh: empty triangle slice")
	}
	m := &Mesh{T: make([][3]int, 0, len(tris))}
	cache := make(map[r3.Vec]int)
	for _, tri := range tris {
		var idx [3]int
		for j, vert := range tri {
			vi, ok := cache[vert]
			if !ok {
				vi = len(m.V)
				m.V = append(m.V, vert)
				cache[vert] = vi
			}
			idx[j] = vi
		}
		if idx[0] == idx[1] || idx[1] == idx[2] || idx[2] == idx[0] {
			continue
		}
		m.T = append(m.T, idx)
	}
	if len(m.T) == 0 {
		return nil, errors.New("mesh: all triangles degenerate")
	}
	return m, nil
}

func latticeKey(v r3.Vec, ri float64) [3]int64 {
	return [3]int64{
		int64(math.Round(v.X * ri)),
		int64(math.Round(v.Y * ri)),
		int64(math.Round(v.Z * ri)),
	}
}

// Weld returns a copy of the mesh with vertices closer than tol merged and
// triangles rendered degenerate by the merge dropped. Normals and UVs are
// carried over from the first vertex mapped to each welded position.
func (m *Mesh) Weld(tol float64) *Mesh {
	if tol <= 0 || len(m.V) == 0 {
		return m.Copy()
	}
	out := &Mesh{}
	cache := make(map[[3]int64]int)
	remap := make([]int, len(m.V))
	ri := 1 / tol
	for i, v := range m.V {
		key := latticeKey(v, ri)
		vi, ok := cache[key]
		if !ok {
			vi = len(out.V)
			out.V = append(out.V, v)
			if m.HasNormals() {
				out.N = append(out.N, m.N[i])
			}
			if m.HasUV() {
				out.UV = append(out.UV, m.UV[i])
			}
			cache[key] = vi
		}
		remap[i] = vi
	}
	for _, t := range m.T {
		nt := [3]int{remap[t[0]], remap[t[1]], remap[t[2]]}
		if nt[0] == nt[1] || nt[1] == nt[2] || nt[2] == nt[0] {
			continue
		}
		out.T = append(out.T, nt)
	}
	return out
}

// RecomputeNormals discards stored normals and recomputes per-vertex normals
// from the mesh topology. Each incident triangle contributes its normal
// weighted by the opening angle at the vertex, which behaves better than
// area weighting around thin boolean seams.
func (m *Mesh) RecomputeNormals() {
	m.N = make([]r3.Vec, len(m.V))
	for _, t := range m.T {
		a, b, c := m.V[t[0]], m.V[t[1]], m.V[t[2]]
		n := Triangle{a, b, c}.Normal()
		nn := r3.Norm(n)
		if nn == 0 {
			continue
		}
		n = r3.Scale(1/nn, n)
		m.N[t[0]] = r3.Add(m.N[t[0]], r3.Scale(openingAngle(a, b, c), n))
		m.N[t[1]] = r3.Add(m.N[t[1]], r3.Scale(openingAngle(b, c, a), n))
		m.N[t[2]] = r3.Add(m.N[t[2]], r3.Scale(openingAngle(c, a, b), n))
	}
	for i, n := range m.N {
		nn := r3.Norm(n)
		if nn > 0 {
			m.N[i] = r3.Scale(1/nn, n)
		}
	}
}

// openingAngle returns the angle at vertex v formed by edges to p and q.
func openingAngle(v, p, q r3.Vec) float64 {
	a := r3.Sub(p, v)
	b := r3.Sub(q, v)
	den := r3.Norm(a) * r3.Norm(b)
	if den == 0 {
		return 0
	}
	cos := r3.Dot(a, b) / den
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}

// BoundaryEdges returns the undirected edges incident to exactly one
// triangle. A closed 2-manifold mesh returns no edges.
func (m *Mesh) BoundaryEdges() [][2]int {
	count := make(map[[2]int]int)
	for _, t := range m.T {
		for j := 0; j < 3; j++ {
			e := undirected(t[j], t[(j+1)%3])
			count[e]++
		}
	}
	var edges [][2]int
	for e, n := range count {
		if n == 1 {
			edges = append(edges, e)
		}
	}
	return edges
}

// IsClosed reports whether every undirected edge of the mesh is shared by
// exactly two triangles, the precondition for boolean evaluation.
func (m *Mesh) IsClosed() bool {
	count := make(map[[2]int]int)
	for _, t := range m.T {
		for j := 0; j < 3; j++ {
			e := undirected(t[j], t[(j+1)%3])
			count[e]++
		}
	}
	for _, n := range count {
		if n != 2 {
			return false
		}
	}
	return len(count) > 0
}

func undirected(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
