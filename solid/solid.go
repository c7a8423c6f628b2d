// Package solid builds closed carving-tool solids by projecting a flat text
// outline onto a curved surface: a front face floated just above the
// surface, a back face sunk to the carve depth, and side walls joining the
// two along the outline's boundary loops.
package solid

import (
	"math"

	"github.com/soypat/carve/internal/d2"
	"github.com/soypat/carve/mesh"
	"github.com/soypat/carve/surface"
	"github.com/soypat/carve/text"
	"gonum.org/v1/gonum/spatial/r3"
)

// Config parametrizes solid construction.
type Config struct {
	// Depth is the carve depth along the inward surface normal.
	// Zero selects 0.05.
	Depth float64
	// FrontOffset floats the front face off the surface to avoid coplanar
	// contact with the base mesh. Zero selects 1e-3.
	FrontOffset float64
	// RotationDeg rotates the outline about the surface normal.
	RotationDeg float64
}

func (c *Config) defaults() {
	if c.Depth == 0 {
		c.Depth = 0.05
	}
	if c.FrontOffset == 0 {
		c.FrontOffset = 1e-3
	}
}

// Report describes how outline vertices mapped onto the surface.
type Report struct {
	// OutOfBounds is set when any required vertex failed to map. No solid
	// is produced in that case.
	OutOfBounds bool
	// Unmapped counts the outline vertices that failed to map.
	Unmapped int
	// Total is the outline vertex count.
	Total int
	// OpenBoundary is set when the outline's loops do not cover its
	// boundary edges. Walls built from such loops would leave the tool
	// open, so no solid is produced.
	OpenBoundary bool
}

// Build maps every outline vertex through the surface index anchored at hit
// and assembles the closed tool solid. When any vertex fails to map the
// whole outline is rejected: Build returns a nil mesh and a report with
// OutOfBounds set, never partially patched geometry. An empty outline
// produces a nil mesh with a zero report.
func Build(o *text.OutlineMesh, hit surface.Hit, idx *surface.Index, cfg Config) (*mesh.Mesh, Report) {
	cfg.defaults()
	if o == nil || len(o.T) == 0 {
		return nil, Report{}
	}
	rep := Report{Total: len(o.V)}
	rot := cfg.RotationDeg * math.Pi / 180
	pts := make([]r3.Vec, len(o.V))
	nrms := make([]r3.Vec, len(o.V))
	for i, p := range o.V {
		uv, ok := hit.UVAt(d2.Rotate(p, rot))
		if !ok {
			rep.Unmapped++
			continue
		}
		pt, nrm, ok := idx.MapUV(uv, surface.Strict)
		if !ok {
			rep.Unmapped++
			continue
		}
		pts[i] = pt
		nrms[i] = nrm
	}
	if rep.Unmapped > 0 {
		rep.OutOfBounds = true
		return nil, rep
	}
	// Every front boundary edge must be walled by exactly one loop edge.
	count := make(map[[2]int]int)
	for _, t := range o.T {
		for j := 0; j < 3; j++ {
			a, b := t[j], t[(j+1)%3]
			if a > b {
				a, b = b, a
			}
			count[[2]int{a, b}]++
		}
	}
	boundary := 0
	for _, n := range count {
		if n == 1 {
			boundary++
		}
	}
	walled := 0
	for _, loop := range o.Loops {
		walled += len(loop) - 1
	}
	if walled != boundary {
		rep.OpenBoundary = true
		return nil, rep
	}

	nv := len(o.V)
	m := &mesh.Mesh{V: make([]r3.Vec, 2*nv)}
	for i := range pts {
		m.V[i] = r3.Add(pts[i], r3.Scale(cfg.FrontOffset, nrms[i]))
		m.V[nv+i] = r3.Sub(pts[i], r3.Scale(cfg.Depth, nrms[i]))
	}
	// Front faces keep the outline winding, back faces reverse it so both
	// face away from the solid's interior.
	for _, t := range o.T {
		m.T = append(m.T, [3]int{t[0], t[1], t[2]})
		m.T = append(m.T, [3]int{nv + t[0], nv + t[2], nv + t[1]})
	}
	// Side walls along each boundary loop. Loops are closed (first vertex
	// repeated) and never chain across two loops.
	for _, loop := range o.Loops {
		for i := 0; i+1 < len(loop); i++ {
			a, b := loop[i], loop[i+1]
			m.T = append(m.T, [3]int{a, nv + a, nv + b})
			m.T = append(m.T, [3]int{a, nv + b, b})
		}
	}
	return m, rep
}
