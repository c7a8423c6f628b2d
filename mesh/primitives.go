package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Plane returns a flat grid of nx by ny quads in the XY plane centered at
// the origin, sized sx by sy, facing +Z. Texture coordinates span the unit
// square.
func Plane(sx, sy float64, nx, ny int) *Mesh {
	if nx < 1 {
		nx = 1
	}
	if ny < 1 {
		ny = 1
	}
	m := &Mesh{}
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			u := float64(i) / float64(nx)
			v := float64(j) / float64(ny)
			m.V = append(m.V, r3.Vec{X: (u - 0.5) * sx, Y: (v - 0.5) * sy})
			m.N = append(m.N, r3.Vec{Z: 1})
			m.UV = append(m.UV, r2.Vec{X: u, Y: v})
		}
	}
	at := func(i, j int) int { return j*(nx+1) + i }
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			a, b := at(i, j), at(i+1, j)
			c, d := at(i+1, j+1), at(i, j+1)
			m.T = append(m.T, [3]int{a, b, c}, [3]int{a, c, d})
		}
	}
	return m
}

// UVSphere returns a closed latitude/longitude sphere of the given radius
// with equirectangular texture coordinates. Longitude wraps at u=0/u=1, so
// texture-space lookups straddling the seam are unreliable; place work away
// from it.
func UVSphere(radius float64, segments, rings int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	if rings < 2 {
		rings = 2
	}
	m := &Mesh{}
	// The longitude seam duplicates a vertex column so texture coordinates
	// stay monotonic within every quad.
	for j := 0; j <= rings; j++ {
		theta := math.Pi * float64(j) / float64(rings)
		st, ct := math.Sin(theta), math.Cos(theta)
		for i := 0; i <= segments; i++ {
			phi := 2 * math.Pi * float64(i) / float64(segments)
			n := r3.Vec{X: st * math.Cos(phi), Y: st * math.Sin(phi), Z: ct}
			m.V = append(m.V, r3.Scale(radius, n))
			m.N = append(m.N, n)
			m.UV = append(m.UV, r2.Vec{
				X: float64(i) / float64(segments),
				Y: 1 - float64(j)/float64(rings),
			})
		}
	}
	at := func(i, j int) int { return j*(segments+1) + i }
	for j := 0; j < rings; j++ {
		for i := 0; i < segments; i++ {
			a, b := at(i, j), at(i, j+1)
			c, d := at(i+1, j+1), at(i+1, j)
			if j != rings-1 {
				m.T = append(m.T, [3]int{a, b, c})
			}
			if j != 0 {
				m.T = append(m.T, [3]int{a, c, d})
			}
		}
	}
	return m
}

// Cuboid returns a closed axis-aligned box with the given side lengths
// centered at the origin. Each face maps to the unit texture square, so
// texture lookups are only meaningful per face. Faces do not share vertex
// indices; Weld the result when edge topology matters.
func Cuboid(sx, sy, sz float64) *Mesh {
	hx, hy, hz := sx/2, sy/2, sz/2
	m := &Mesh{}
	quad := func(o, du, dv r3.Vec) {
		n := r3.Unit(r3.Cross(du, dv))
		base := len(m.V)
		for _, w := range [4]r2.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}} {
			m.V = append(m.V, r3.Add(o, r3.Add(r3.Scale(w.X, du), r3.Scale(w.Y, dv))))
			m.N = append(m.N, n)
			m.UV = append(m.UV, w)
		}
		m.T = append(m.T, [3]int{base, base + 1, base + 2}, [3]int{base, base + 2, base + 3})
	}
	quad(r3.Vec{X: -hx, Y: -hy, Z: hz}, r3.Vec{X: sx}, r3.Vec{Y: sy})    // top
	quad(r3.Vec{X: -hx, Y: hy, Z: -hz}, r3.Vec{X: sx}, r3.Vec{Y: -sy})  // bottom
	quad(r3.Vec{X: -hx, Y: -hy, Z: -hz}, r3.Vec{X: sx}, r3.Vec{Z: sz})  // front
	quad(r3.Vec{X: hx, Y: hy, Z: -hz}, r3.Vec{X: -sx}, r3.Vec{Z: sz})   // back
	quad(r3.Vec{X: hx, Y: -hy, Z: -hz}, r3.Vec{Y: sy}, r3.Vec{Z: sz})   // right
	quad(r3.Vec{X: -hx, Y: hy, Z: -hz}, r3.Vec{Y: -sy}, r3.Vec{Z: sz})  // left
	return m
}
