// Package uvplot renders texture-space diagnostics of a surface index to
// image files: the UV triangulation wireframe, placement hits with their
// tangent frame and the mapped text outline. Useful to debug why an
// inscription refuses to map.
package uvplot

import (
	"image/color"
	"math"

	"github.com/soypat/carve/internal/d2"
	"github.com/soypat/carve/surface"
	"github.com/soypat/carve/text"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Wireframe plots the index's UV triangulation as line segments.
func Wireframe(idx *surface.Index) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "UV triangulation"
	p.X.Label.Text = "u"
	p.Y.Label.Text = "v"
	for _, t := range idx.UVTriangles() {
		l, err := plotter.NewLine(plotter.XYs{
			{X: t[0].X, Y: t[0].Y},
			{X: t[1].X, Y: t[1].Y},
			{X: t[2].X, Y: t[2].Y},
			{X: t[0].X, Y: t[0].Y},
		})
		if err != nil {
			return nil, err
		}
		l.Color = color.Gray{Y: 160}
		p.Add(l)
	}
	return p, nil
}

// AddHit marks a placement hit on the plot: a scatter point at the hit's
// texture coordinate and a segment along the texture-space tangent
// direction of the given length.
func AddHit(p *plot.Plot, hit surface.Hit, tangentLen float64) error {
	if !hit.UVOK {
		return nil
	}
	s, err := plotter.NewScatter(plotter.XYs{{X: hit.UV.X, Y: hit.UV.Y}})
	if err != nil {
		return err
	}
	s.Color = color.RGBA{R: 200, A: 255}
	s.Radius = vg.Points(4)
	p.Add(s)
	if !hit.UVTangentOK {
		return nil
	}
	tip := r2.Add(hit.UV, r2.Scale(tangentLen, hit.UVTangent))
	l, err := plotter.NewLine(plotter.XYs{
		{X: hit.UV.X, Y: hit.UV.Y},
		{X: tip.X, Y: tip.Y},
	})
	if err != nil {
		return err
	}
	l.Color = color.RGBA{R: 200, A: 255}
	l.Width = vg.Points(1.5)
	p.Add(l)
	return nil
}

// AddOutline scatters the outline's vertices mapped into texture space at
// the hit, after rotating the outline about the surface normal. Vertices
// whose texture coordinate lands on no surface triangle are plotted in a
// second, distinct color so out-of-bounds regions are visible at a glance.
func AddOutline(p *plot.Plot, idx *surface.Index, hit surface.Hit, o *text.OutlineMesh, rotationDeg float64) error {
	if o == nil {
		return nil
	}
	rot := rotationDeg * math.Pi / 180
	var mapped, lost plotter.XYs
	for _, v := range o.V {
		uv, ok := hit.UVAt(d2.Rotate(v, rot))
		if !ok {
			continue
		}
		xy := plotter.XY{X: uv.X, Y: uv.Y}
		if _, _, ok := idx.MapUV(uv, surface.Strict); !ok {
			lost = append(lost, xy)
			continue
		}
		mapped = append(mapped, xy)
	}
	if len(mapped) > 0 {
		s, err := plotter.NewScatter(mapped)
		if err != nil {
			return err
		}
		s.Color = color.RGBA{B: 200, A: 255}
		s.Radius = vg.Points(1)
		p.Add(s)
	}
	if len(lost) > 0 {
		s, err := plotter.NewScatter(lost)
		if err != nil {
			return err
		}
		s.Color = color.RGBA{R: 230, G: 120, A: 255}
		s.Radius = vg.Points(1)
		p.Add(s)
	}
	return nil
}

// Save writes the plot as a square raster or vector image, format chosen
// by the path extension.
func Save(p *plot.Plot, side vg.Length, path string) error {
	return p.Save(side, side, path)
}
