// Package surface locates points on a UV-mapped triangle mesh. It provides
// ray/mesh hit testing with a stable tangent frame and a uniform grid over
// the mesh's texture coordinate space for fast UV to 3D lookups.
package surface

import (
	"errors"
	"math"

	"github.com/soypat/carve/internal/d2"
	"github.com/soypat/carve/internal/d3"
	"github.com/soypat/carve/mesh"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultCells is the default UV grid resolution per axis.
const DefaultCells = 32

// ErrNoGeometry indicates the base mesh lacks the position or texture
// coordinate attributes the index requires. It is fatal and non-retryable.
var ErrNoGeometry = errors.New("surface: mesh lacks position or UV attributes")

// indexedTriangle caches one base mesh triangle with its texture corners,
// transformed world corners and world normals. UV corners and world corners
// correspond index for index.
type indexedTriangle struct {
	uv [3]r2.Vec
	w  [3]r3.Vec
	n  [3]r3.Vec
}

// Index is a uniform grid over the UV space of a mesh. It is built once per
// base mesh and is read-only afterwards, so it may be shared by concurrent
// readers. Rebuild it when the base mesh is replaced.
type Index struct {
	tris       []indexedTriangle
	grid       [][]int // cells*cells buckets of candidate triangle indices.
	cells      int
	uvBounds   d2.Box
	cellSize   r2.Vec
	hasNormals bool
}

// NewIndex builds a UV spatial index over m with its world transform tr.
// cells is the grid resolution per axis; zero or negative selects
// DefaultCells. Returns ErrNoGeometry when m has no positions or UVs.
func NewIndex(m *mesh.Mesh, tr d3.Transform, cells int) (*Index, error) {
	if m == nil || m.NumVertices() == 0 || !m.HasUV() {
		return nil, ErrNoGeometry
	}
	if cells <= 0 {
		cells = DefaultCells
	}
	idx := &Index{
		cells:      cells,
		hasNormals: m.HasNormals(),
		uvBounds:   d2.Box{Min: d2.Elem(math.MaxFloat64), Max: d2.Elem(-math.MaxFloat64)},
	}
	ntr := tr.NormalTransform()
	for _, t := range m.T {
		var it indexedTriangle
		for j, vi := range t {
			it.uv[j] = m.UV[vi]
			it.w[j] = tr.Transform(m.V[vi])
			if idx.hasNormals {
				n := ntr.TransformDir(m.N[vi])
				if nn := r3.Norm(n); nn > 0 {
					n = r3.Scale(1/nn, n)
				}
				it.n[j] = n
			}
			idx.uvBounds = idx.uvBounds.Include(it.uv[j])
		}
		idx.tris = append(idx.tris, it)
	}
	sz := idx.uvBounds.Size()
	if sz.X <= 0 || sz.Y <= 0 {
		return nil, ErrNoGeometry
	}
	idx.cellSize = r2.Vec{X: sz.X / float64(cells), Y: sz.Y / float64(cells)}
	idx.grid = make([][]int, cells*cells)
	for i, it := range idx.tris {
		bb := d2.Box{Min: it.uv[0], Max: it.uv[0]}
		bb = bb.Include(it.uv[1])
		bb = bb.Include(it.uv[2])
		i0, j0 := idx.cellOf(bb.Min)
		i1, j1 := idx.cellOf(bb.Max)
		for ci := i0; ci <= i1; ci++ {
			for cj := j0; cj <= j1; cj++ {
				b := ci*cells + cj
				idx.grid[b] = append(idx.grid[b], i)
			}
		}
	}
	return idx, nil
}

// cellOf returns the clamped grid cell containing uv.
func (idx *Index) cellOf(uv r2.Vec) (i, j int) {
	rel := r2.Sub(uv, idx.uvBounds.Min)
	i = int(rel.X / idx.cellSize.X)
	j = int(rel.Y / idx.cellSize.Y)
	i = iclamp(i, 0, idx.cells-1)
	j = iclamp(j, 0, idx.cells-1)
	return i, j
}

func iclamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Cells returns the grid resolution per axis.
func (idx *Index) Cells() int { return idx.cells }

// NumTriangles returns the number of indexed triangles.
func (idx *Index) NumTriangles() int { return len(idx.tris) }

// UVBounds returns the bounding box of the mesh's UV footprint.
func (idx *Index) UVBounds() (min, max r2.Vec) {
	return idx.uvBounds.Min, idx.uvBounds.Max
}

// UVTriangles returns a copy of the indexed triangle texture corners,
// intended for read-only diagnostics.
func (idx *Index) UVTriangles() [][3]r2.Vec {
	out := make([][3]r2.Vec, len(idx.tris))
	for i, t := range idx.tris {
		out[i] = t.uv
	}
	return out
}

// candidates returns the triangle index bucket for the cell containing uv.
// Points outside the UV footprint return no candidates.
func (idx *Index) candidates(uv r2.Vec) []int {
	if !idx.uvBounds.Contains(uv) {
		return nil
	}
	i, j := idx.cellOf(uv)
	return idx.grid[i*idx.cells+j]
}
