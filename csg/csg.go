// Package csg subtracts closed tool solids from a base mesh. Both meshes
// are lifted to collider-backed solids and the difference is re-meshed,
// then seam duplicates are welded and vertex normals recomputed. A failed
// evaluation never commits a partial result.
package csg

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/soypat/carve/mesh"
	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrEvaluation indicates the boolean evaluator could not produce a valid
// result, e.g. for a non-manifold tool solid. The base geometry is left
// unmodified.
var ErrEvaluation = errors.New("csg: boolean evaluation failed")

// Config parametrizes boolean subtraction.
type Config struct {
	// Resolution is the evaluation cell size. Zero derives 1/100th of the
	// base mesh's largest bounding box dimension.
	Resolution float64
	// WeldTol merges boolean-seam vertex duplicates. Zero selects 1e-4.
	WeldTol float64
	// SearchIters refines surface crossings by bisection. Zero selects 8.
	SearchIters int
}

func (c *Config) defaults(base *mesh.Mesh) {
	if c.Resolution == 0 {
		sz := base.Bounds().Size()
		dim := sz.X
		if sz.Y > dim {
			dim = sz.Y
		}
		if sz.Z > dim {
			dim = sz.Z
		}
		c.Resolution = dim / 100
	}
	if c.WeldTol == 0 {
		c.WeldTol = 1e-4
	}
	if c.SearchIters == 0 {
		c.SearchIters = 8
	}
}

// Subtract removes the volume of tool from base and returns the new base
// geometry. The tool must be a closed 2-manifold mesh. On failure the
// returned mesh is the untouched base and the error wraps ErrEvaluation.
func Subtract(base, tool *mesh.Mesh, cfg Config) (*mesh.Mesh, error) {
	if err := base.Validate(); err != nil {
		return base, fmt.Errorf("%w: base: %s", ErrEvaluation, err.Error())
	}
	if err := tool.Validate(); err != nil {
		return base, fmt.Errorf("%w: tool: %s", ErrEvaluation, err.Error())
	}
	if !tool.IsClosed() {
		return base, fmt.Errorf("%w: tool solid is not closed", ErrEvaluation)
	}
	cfg.defaults(base)
	// The evaluator requires the full attribute set; synthesize texture
	// coordinates when a mesh has none.
	base.EnsureUV()
	tool.EnsureUV()

	out, err := evaluate(base, tool, cfg)
	if err != nil {
		return base, err
	}
	result, err := mesh.FromTriangles(out, cfg.WeldTol)
	if err != nil || !result.IsClosed() {
		// The metric weld can pinch close-by marching cubes vertices into
		// a non-manifold edge. The evaluator's output already shares seam
		// coordinates bitwise, so exact sharing recovers its watertight
		// topology.
		result, err = mesh.FromTrianglesExact(out)
	}
	if err != nil {
		return base, fmt.Errorf("%w: %s", ErrEvaluation, err.Error())
	}
	result.RecomputeNormals()
	result.EnsureUV()
	return result, nil
}

// evaluate runs the subtraction on collider solids and re-meshes the
// difference. The evaluator panics on malformed geometry; recover converts
// that into an evaluation error so callers can keep the session alive.
func evaluate(base, tool *mesh.Mesh, cfg Config) (out []mesh.Triangle, err error) {
	defer func() {
		if a := recover(); a != nil {
			out = nil
			err = fmt.Errorf("%w: %v\n%s", ErrEvaluation, a, debug.Stack())
		}
	}()
	diff := &model3d.SubtractedSolid{
		Positive: model3d.NewColliderSolid(model3d.MeshToCollider(toModel3d(base))),
		Negative: model3d.NewColliderSolid(model3d.MeshToCollider(toModel3d(tool))),
	}
	evaluated := model3d.MarchingCubesSearch(diff, cfg.Resolution, cfg.SearchIters)
	if evaluated == nil || evaluated.NumTriangles() == 0 {
		return nil, fmt.Errorf("%w: empty result", ErrEvaluation)
	}
	for _, t := range evaluated.TriangleSlice() {
		out = append(out, mesh.Triangle{
			fromCoord(t[0]),
			fromCoord(t[1]),
			fromCoord(t[2]),
		})
	}
	return out, nil
}

func toModel3d(m *mesh.Mesh) *model3d.Mesh {
	out := model3d.NewMesh()
	for _, tri := range m.Triangles() {
		out.Add(&model3d.Triangle{
			toCoord(tri[0]),
			toCoord(tri[1]),
			toCoord(tri[2]),
		})
	}
	return out
}

func toCoord(v r3.Vec) model3d.Coord3D {
	return model3d.Coord3D{X: v.X, Y: v.Y, Z: v.Z}
}

func fromCoord(c model3d.Coord3D) r3.Vec {
	return r3.Vec{X: c.X, Y: c.Y, Z: c.Z}
}
