package carve

import (
	"errors"
	"math"
	"testing"

	"github.com/soypat/carve/csg"
	"github.com/soypat/carve/internal/d3"
	"github.com/soypat/carve/mesh"
	"github.com/soypat/carve/surface"
	"github.com/soypat/carve/text"
	"golang.org/x/image/font/gofont/goregular"
	"gonum.org/v1/gonum/spatial/r3"
)

func testFont(t *testing.T) *text.Font {
	t.Helper()
	f := new(text.Font)
	if err := f.LoadTTFBytes(goregular.TTF); err != nil {
		t.Fatal(err)
	}
	return f
}

// planeCarver is a carver over a quad spanning [-1,1]^2, the workhorse for
// placement state tests.
func planeCarver(t *testing.T, cfg Config) *Carver {
	t.Helper()
	c, err := New(mesh.Plane(2, 2, 4, 4), d3.Transform{}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func placeAt(t *testing.T, c *Carver, x, y float64) {
	t.Helper()
	err := c.Place(
		surface.Ray{Origin: r3.Vec{X: x, Y: y, Z: 5}, Dir: r3.Vec{Z: -1}},
		surface.View{Right: r3.Vec{X: 1}, Up: r3.Vec{Y: 1}},
	)
	if err != nil {
		t.Fatal(err)
	}
}

func TestNewRequiresUV(t *testing.T) {
	m := mesh.Plane(1, 1, 1, 1)
	m.UV = nil
	if _, err := New(m, d3.Transform{}, Config{}); !errors.Is(err, ErrGeometryUnavailable) {
		t.Errorf("got %v, want ErrGeometryUnavailable", err)
	}
}

func TestPlacementLifecycle(t *testing.T) {
	c := planeCarver(t, Config{})
	f := testFont(t)

	in := c.Add(f, "GO")
	if in.State() != Unplaced {
		t.Fatalf("fresh inscription state %v, want Unplaced", in.State())
	}
	if _, ok := in.Hit(); ok {
		t.Error("fresh inscription reports a hit")
	}
	// Parameter edits before placement must not synthesize geometry.
	if err := c.SetScale(in.ID(), 0.3); err != nil {
		t.Fatal(err)
	}
	if in.State() != Unplaced || in.Solid() != nil {
		t.Error("unplaced inscription changed state on edit")
	}

	placeAt(t, c, 0, 0)
	if in.State() != Mapped {
		t.Fatalf("state %v after centered placement, want Mapped (%s)", in.State(), in.Warning())
	}
	if in.Solid() == nil || !in.Solid().IsClosed() {
		t.Fatal("mapped inscription lacks a closed tool solid")
	}
	if oob, n := in.OutOfBounds(); oob || n != 0 {
		t.Errorf("mapped inscription flagged out of bounds (%d)", n)
	}

	// Edits rebuild the solid.
	old := in.Solid()
	if err := c.SetDepth(in.ID(), 0.1); err != nil {
		t.Fatal(err)
	}
	if in.State() != Mapped || in.Solid() == old {
		t.Error("depth edit did not rebuild the solid")
	}

	// Empty text demotes to Placed without a warning.
	if err := c.SetText(in.ID(), "  "); err != nil {
		t.Fatal(err)
	}
	if in.State() != Placed || in.Solid() != nil || in.Warning() != "" {
		t.Errorf("whitespace text: state %v warning %q", in.State(), in.Warning())
	}

	// Unrenderable text keeps the placement and surfaces a warning.
	if err := c.SetText(in.ID(), "a\x01b"); err != nil {
		t.Fatal(err)
	}
	if in.State() != Placed || in.Warning() == "" {
		t.Errorf("bad text: state %v warning %q", in.State(), in.Warning())
	}

	if err := c.SetText(in.ID(), "GO"); err != nil {
		t.Fatal(err)
	}
	if in.State() != Mapped {
		t.Fatalf("state %v after restoring text, want Mapped", in.State())
	}
}

func TestAutoRevert(t *testing.T) {
	c := planeCarver(t, Config{})
	f := testFont(t)
	in := c.Add(f, "GO")
	if err := c.SetScale(in.ID(), 0.3); err != nil {
		t.Fatal(err)
	}

	placeAt(t, c, 0, 0)
	if in.State() != Mapped {
		t.Fatalf("center placement state %v (%s)", in.State(), in.Warning())
	}
	centerHit, _ := in.Hit()

	// A placement whose outline runs off the surface reverts to the last
	// placement that mapped.
	placeAt(t, c, 0.99, 0)
	if in.State() != Mapped {
		t.Fatalf("state %v after edge placement, want Mapped via revert (%s)", in.State(), in.Warning())
	}
	if !in.Reverted() {
		t.Fatal("revert not flagged")
	}
	if got, _ := in.Hit(); got != centerHit {
		t.Error("hit was not restored to the last valid placement")
	}
	// The flag is durable across parameter edits.
	if err := c.SetDepth(in.ID(), 0.08); err != nil {
		t.Fatal(err)
	}
	if !in.Reverted() || in.State() != Mapped {
		t.Error("revert flag lost on parameter edit")
	}
	// An explicit valid placement clears it.
	placeAt(t, c, 0, 0.1)
	if in.Reverted() {
		t.Error("revert flag survived an explicit placement")
	}
}

func TestEditOutOfBoundsKeepsPlacement(t *testing.T) {
	c := planeCarver(t, Config{})
	f := testFont(t)
	in := c.Add(f, "GO")
	if err := c.SetScale(in.ID(), 0.3); err != nil {
		t.Fatal(err)
	}
	placeAt(t, c, 0, 0)
	if in.State() != Mapped {
		t.Fatalf("state %v (%s)", in.State(), in.Warning())
	}
	hit, _ := in.Hit()

	// A scale that cannot fit the surface fails at the same placement.
	// The placement survives, the revert warning is raised, and no solid
	// is committed.
	if err := c.SetScale(in.ID(), 10); err != nil {
		t.Fatal(err)
	}
	if in.State() != OutOfBounds {
		t.Fatalf("state %v, want OutOfBounds", in.State())
	}
	if !in.Reverted() {
		t.Error("revert warning not raised")
	}
	if got, _ := in.Hit(); got != hit {
		t.Error("placement drifted on a failed edit")
	}
	if in.Solid() != nil {
		t.Error("failed edit left a stale solid")
	}

	// Shrinking the text recovers without a new placement.
	if err := c.SetScale(in.ID(), 0.3); err != nil {
		t.Fatal(err)
	}
	if in.State() != Mapped {
		t.Errorf("state %v after recovery, want Mapped", in.State())
	}
}

func TestOutOfBoundsWithoutRevert(t *testing.T) {
	// First placement straight onto the edge has nothing to revert to.
	c := planeCarver(t, Config{})
	f := testFont(t)
	in := c.Add(f, "GO")
	if err := c.SetScale(in.ID(), 0.3); err != nil {
		t.Fatal(err)
	}
	placeAt(t, c, 0.99, 0)
	if in.State() != OutOfBounds {
		t.Fatalf("state %v, want OutOfBounds", in.State())
	}
	if oob, n := in.OutOfBounds(); !oob || n == 0 {
		t.Error("no unmapped vertex count reported")
	}
	if in.Solid() != nil {
		t.Error("out of bounds inscription carries a solid")
	}
	if in.Warning() == "" {
		t.Error("no warning for out of bounds placement")
	}
	if _, oob, n, err := c.Status(in.ID()); !oob || n == 0 || !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("status oob=%v unmapped=%d err=%v, want ErrOutOfBounds", oob, n, err)
	}

	// Same situation with revert disabled by configuration.
	c2 := planeCarver(t, Config{NoAutoRevert: true})
	in2 := c2.Add(f, "GO")
	if err := c2.SetScale(in2.ID(), 0.3); err != nil {
		t.Fatal(err)
	}
	placeAt(t, c2, 0, 0)
	if _, oob, _, err := c2.Status(in2.ID()); oob || err != nil {
		t.Errorf("status of mapped inscription: oob=%v err=%v", oob, err)
	}
	placeAt(t, c2, 0.99, 0)
	if in2.State() != OutOfBounds || in2.Reverted() {
		t.Errorf("state %v reverted %v, want OutOfBounds without revert", in2.State(), in2.Reverted())
	}
}

func TestSelectionAndRemove(t *testing.T) {
	c := planeCarver(t, Config{})
	f := testFont(t)
	a := c.Add(f, "A")
	b := c.Add(f, "B")
	if c.Selected() != b {
		t.Error("Add did not select the new inscription")
	}
	if err := c.Select(a.ID()); err != nil {
		t.Fatal(err)
	}
	if c.Selected() != a {
		t.Error("Select did not switch")
	}
	if err := c.Select(999); !errors.Is(err, ErrNoInscription) {
		t.Errorf("got %v, want ErrNoInscription", err)
	}
	if err := c.Remove(a.ID()); err != nil {
		t.Fatal(err)
	}
	if len(c.Inscriptions()) != 1 || c.Inscriptions()[0] != b {
		t.Error("remove left the wrong inscriptions")
	}
	if err := c.Remove(a.ID()); !errors.Is(err, ErrNoInscription) {
		t.Errorf("double remove: got %v, want ErrNoInscription", err)
	}
	if err := c.SetText(999, "x"); !errors.Is(err, ErrNoInscription) {
		t.Errorf("edit unknown id: got %v, want ErrNoInscription", err)
	}
}

func TestPlaceMiss(t *testing.T) {
	c := planeCarver(t, Config{})
	f := testFont(t)
	in := c.Add(f, "GO")
	err := c.Place(
		surface.Ray{Origin: r3.Vec{X: 9, Z: 5}, Dir: r3.Vec{Z: -1}},
		surface.View{Right: r3.Vec{X: 1}, Up: r3.Vec{Y: 1}},
	)
	if !errors.Is(err, ErrUnplaced) {
		t.Fatalf("got %v, want ErrUnplaced", err)
	}
	if in.State() != Unplaced {
		t.Error("missed placement changed inscription state")
	}
}

func TestCarveNothingMapped(t *testing.T) {
	c := planeCarver(t, Config{})
	f := testFont(t)
	c.Add(f, "GO") // never placed
	before := c.Base().NumTriangles()
	res, err := c.Carve()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Carved) != 0 || len(res.Skipped) != 1 {
		t.Errorf("carved %v skipped %v, want nothing carved", res.Carved, res.Skipped)
	}
	if len(res.Warnings) == 0 {
		t.Error("no warning for a no-op carve")
	}
	if c.Base().NumTriangles() != before {
		t.Error("no-op carve changed the base")
	}
}

// sphereCarver builds a carver over a unit sphere base mesh with an
// evaluation resolution suitable for tests.
func sphereCarver(t *testing.T) *Carver {
	t.Helper()
	c, err := New(mesh.UVSphere(1, 48, 24), d3.Transform{}, Config{
		CSG: csg.Config{Resolution: 0.03},
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func placeOnSphere(t *testing.T, c *Carver, from r3.Vec) {
	t.Helper()
	err := c.Place(
		surface.Ray{Origin: r3.Vec{X: 3 * from.X, Y: 3 * from.Y, Z: 3 * from.Z}, Dir: r3.Scale(-1, from)},
		surface.View{Right: r3.Vec{X: 1}, Up: r3.Vec{Z: 1}},
	)
	if err != nil {
		t.Fatal(err)
	}
}

func addSphereInscription(t *testing.T, c *Carver, txt string, from r3.Vec) *Inscription {
	t.Helper()
	f := testFont(t)
	in := c.Add(f, txt)
	placeOnSphere(t, c, from)
	if err := c.SetScale(in.ID(), 0.25); err != nil {
		t.Fatal(err)
	}
	if err := c.SetDepth(in.ID(), 0.06); err != nil {
		t.Fatal(err)
	}
	if in.State() != Mapped {
		t.Fatalf("inscription %q state %v (%s)", txt, in.State(), in.Warning())
	}
	return in
}

func TestCarveSphere(t *testing.T) {
	if testing.Short() {
		t.Skip("boolean evaluation is slow")
	}
	c := sphereCarver(t)
	in := addSphereInscription(t, c, "I", r3.Vec{Y: -1})
	before := c.Base().Copy()

	res, err := c.Carve()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Carved) != 1 || res.Carved[0] != in.ID() {
		t.Fatalf("carved %v, want inscription %d", res.Carved, in.ID())
	}
	out := c.Base()
	if out.NumTriangles() == 0 || !out.HasNormals() {
		t.Fatal("carved base missing geometry or normals")
	}
	if out.NumTriangles() == before.NumTriangles() {
		t.Error("carve did not change the base mesh")
	}
	// Engraving only removes material: nothing may poke out of the sphere.
	for _, v := range out.V {
		if r3.Norm(v) > 1+0.03 {
			t.Fatalf("vertex %v outside the original sphere", v)
		}
	}
}

func TestCarveTransformedBase(t *testing.T) {
	if testing.Short() {
		t.Skip("boolean evaluation is slow")
	}
	// A rotated sphere pushed away from the origin. Hits, tool solids and
	// the carved buffer must share one world frame, or the subtraction
	// reports success while removing nothing.
	tr := d3.ComposeTransform(r3.Vec{X: 3}, d3.Elem(1), r3.NewRotation(0.4, r3.Vec{Z: 1}))
	tr = tr.Mul(d3.Transform{}.Translate(r3.Vec{Y: 0.5}))
	center := tr.Transform(r3.Vec{})
	c, err := New(mesh.UVSphere(1, 48, 24), tr, Config{
		CSG: csg.Config{Resolution: 0.03},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Base().Bounds().Center(); r3.Norm(r3.Sub(got, center)) > 1e-6 {
		t.Fatalf("base snapshot centered at %v, want %v", got, center)
	}

	f := testFont(t)
	in := c.Add(f, "I")
	err = c.Place(
		surface.Ray{Origin: r3.Add(center, r3.Vec{Y: -3}), Dir: r3.Vec{Y: 1}},
		surface.View{Right: r3.Vec{X: 1}, Up: r3.Vec{Z: 1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	h, ok := in.Hit()
	if !ok {
		t.Fatal("no hit recorded")
	}
	if want := r3.Add(center, r3.Vec{Y: -1}); r3.Norm(r3.Sub(h.Point, want)) > 0.05 {
		t.Fatalf("hit point %v, want near %v", h.Point, want)
	}
	if err := c.SetScale(in.ID(), 0.25); err != nil {
		t.Fatal(err)
	}
	if err := c.SetDepth(in.ID(), 0.06); err != nil {
		t.Fatal(err)
	}
	if in.State() != Mapped {
		t.Fatalf("state %v (%s), want Mapped", in.State(), in.Warning())
	}
	if got := in.Solid().Bounds().Center(); r3.Norm(r3.Sub(got, h.Point)) > 0.5 {
		t.Fatalf("tool solid centered at %v, far from hit %v", got, h.Point)
	}

	before := c.Base().NumTriangles()
	res, err := c.Carve()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Carved) != 1 {
		t.Fatalf("carved %v, want one inscription", res.Carved)
	}
	if c.Base().NumTriangles() == before {
		t.Error("carve did not change the base mesh")
	}
	// Material must come off the transformed sphere, nothing added.
	minR := math.MaxFloat64
	for _, v := range c.Base().V {
		r := r3.Norm(r3.Sub(v, center))
		if r > 1+0.03 {
			t.Fatalf("vertex %v outside the transformed sphere", v)
		}
		if r < minR {
			minR = r
		}
	}
	if minR > 0.98 {
		t.Errorf("minimum radius %.3f, want a dent below 0.98", minR)
	}
}

func TestCarveOrderIndependent(t *testing.T) {
	if testing.Short() {
		t.Skip("boolean evaluation is slow")
	}
	spots := [2]r3.Vec{{Y: -1}, {Y: 1}}

	run := func(first, second int) *mesh.Mesh {
		c := sphereCarver(t)
		addSphereInscription(t, c, "A", spots[first])
		addSphereInscription(t, c, "B", spots[second])
		if _, err := c.Carve(); err != nil {
			t.Fatal(err)
		}
		return c.Base()
	}
	ab := run(0, 1)
	ba := run(1, 0)
	if ab.NumTriangles() != ba.NumTriangles() || ab.NumVertices() != ba.NumVertices() {
		t.Errorf("carve order changed the result: %d/%d triangles, %d/%d vertices",
			ab.NumTriangles(), ba.NumTriangles(), ab.NumVertices(), ba.NumVertices())
	}
	bbAB, bbBA := ab.Bounds(), ba.Bounds()
	const tol = 1e-4 // weld tolerance
	if r3.Norm(r3.Sub(bbAB.Min, bbBA.Min)) > tol || r3.Norm(r3.Sub(bbAB.Max, bbBA.Max)) > tol {
		t.Errorf("carve order changed the bounds: %+v vs %+v", bbAB, bbBA)
	}
}

func TestReset(t *testing.T) {
	c := planeCarver(t, Config{})
	f := testFont(t)
	c.Add(f, "GO")
	placeAt(t, c, 0, 0)
	pristine := c.Base().NumTriangles()

	c.Reset()
	if len(c.Inscriptions()) != 0 {
		t.Error("reset kept inscriptions")
	}
	if c.Selected() != nil {
		t.Error("reset kept a selection")
	}
	if c.Base().NumTriangles() != pristine {
		t.Error("reset changed the base mesh")
	}
}
