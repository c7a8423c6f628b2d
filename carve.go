// Package carve places text on the curved surface of a triangle mesh and
// permanently engraves it by boolean subtraction. The carver orchestrates
// the full pipeline per inscription: surface hit testing, UV mapping of the
// triangulated text outline, tool solid construction and sequential
// subtraction from the base mesh.
package carve

import (
	"fmt"

	"github.com/soypat/carve/csg"
	"github.com/soypat/carve/internal/d3"
	"github.com/soypat/carve/mesh"
	"github.com/soypat/carve/solid"
	"github.com/soypat/carve/surface"
	"github.com/soypat/carve/text"
)

// Config parametrizes a Carver. The zero value selects usable defaults.
type Config struct {
	// GridCells is the UV index resolution per axis. Zero selects 32.
	GridCells int
	// MaxEdgeFrac is the outline subdivision threshold as a fraction of
	// the text scale, keeping subdivision density resolution independent.
	// Zero selects 0.1.
	MaxEdgeFrac float64
	// SubdividePasses bounds outline refinement. Zero selects the text
	// package default.
	SubdividePasses int
	// FrontOffset floats tool front faces off the surface. Zero selects
	// the solid package default.
	FrontOffset float64
	// NoAutoRevert disables restoring the last valid placement when a
	// mapping goes out of bounds.
	NoAutoRevert bool
	// CSG configures the boolean subtraction engine.
	CSG csg.Config
}

func (c *Config) defaults() {
	if c.GridCells == 0 {
		c.GridCells = surface.DefaultCells
	}
	if c.MaxEdgeFrac == 0 {
		c.MaxEdgeFrac = 0.1
	}
}

// Carver owns the base mesh, its UV spatial index and a set of
// inscriptions. All methods must be called from a single goroutine; the
// underlying index is immutable after construction and safe for shared
// reads, but the carver's bookkeeping is not synchronized.
type Carver struct {
	cfg      Config
	pristine *mesh.Mesh // pre-carve snapshot for Reset.
	base     *mesh.Mesh // accumulating carved buffer.
	tr       d3.Transform
	idx      *surface.Index

	inscriptions []*Inscription
	selected     int
	nextID       int
}

// New creates a Carver over base with world transform tr. The base mesh
// must carry position and UV attributes; returns ErrGeometryUnavailable
// otherwise. The carver works in world space throughout: tr is baked into
// the UV index and into the base snapshots, so hits, tool solids and the
// carved buffer all share one frame. The caller's mesh is never aliased.
func New(base *mesh.Mesh, tr d3.Transform, cfg Config) (*Carver, error) {
	cfg.defaults()
	idx, err := surface.NewIndex(base, tr, cfg.GridCells)
	if err != nil {
		return nil, err
	}
	world := base.Transformed(tr)
	return &Carver{
		cfg:      cfg,
		pristine: world,
		base:     world.Copy(),
		tr:       tr,
		idx:      idx,
		selected: -1,
	}, nil
}

// Index exposes the UV spatial index for read-only diagnostics.
func (c *Carver) Index() *surface.Index { return c.idx }

// Base returns the current (possibly carved) base mesh in world space.
// Callers must treat it as read-only.
func (c *Carver) Base() *mesh.Mesh { return c.base }

// Pristine returns the pre-carve world space snapshot of the base mesh.
func (c *Carver) Pristine() *mesh.Mesh { return c.pristine }

// Status reports an inscription's lifecycle state, whether its latest
// mapping attempt ran out of bounds and how many outline vertices failed.
// An out of bounds inscription yields an error wrapping ErrOutOfBounds
// alongside the counts; an unknown id yields ErrNoInscription.
func (c *Carver) Status(id int) (s State, outOfBounds bool, unmapped int, err error) {
	in, err := c.find(id)
	if err != nil {
		return 0, false, 0, err
	}
	oob, n := in.OutOfBounds()
	if oob {
		err = fmt.Errorf("inscription %d: %w: %d outline vertices unmapped", id, ErrOutOfBounds, n)
	}
	return in.state, oob, n, err
}

// Add creates a new inscription with the given font and text, selects it
// for placement input and returns it. Scale, depth and rotation start at
// package defaults and may be edited before or after placement.
func (c *Carver) Add(f *text.Font, txt string) *Inscription {
	in := &Inscription{
		id:      c.nextID,
		font:    f,
		textStr: txt,
		scale:   1,
		depth:   0.05,
		state:   Unplaced,
	}
	c.nextID++
	c.inscriptions = append(c.inscriptions, in)
	c.selected = len(c.inscriptions) - 1
	return in
}

// Inscriptions returns the live inscription records in creation order.
func (c *Carver) Inscriptions() []*Inscription {
	return c.inscriptions
}

func (c *Carver) find(id int) (*Inscription, error) {
	for _, in := range c.inscriptions {
		if in.id == id {
			return in, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", ErrNoInscription, id)
}

// Select routes subsequent placement input to the inscription with id.
func (c *Carver) Select(id int) error {
	for i, in := range c.inscriptions {
		if in.id == id {
			c.selected = i
			return nil
		}
	}
	return fmt.Errorf("%w: id %d", ErrNoInscription, id)
}

// Selected returns the inscription receiving placement input, nil if none.
func (c *Carver) Selected() *Inscription {
	if c.selected < 0 || c.selected >= len(c.inscriptions) {
		return nil
	}
	return c.inscriptions[c.selected]
}

// Remove deletes an inscription. Already carved geometry is unaffected.
func (c *Carver) Remove(id int) error {
	for i, in := range c.inscriptions {
		if in.id == id {
			c.inscriptions = append(c.inscriptions[:i], c.inscriptions[i+1:]...)
			if c.selected >= len(c.inscriptions) {
				c.selected = len(c.inscriptions) - 1
			}
			return nil
		}
	}
	return fmt.Errorf("%w: id %d", ErrNoInscription, id)
}

// Place raycasts against the base surface and anchors the selected
// inscription at the nearest hit, then recomputes its geometry. A miss
// leaves the inscription untouched and returns ErrUnplaced.
func (c *Carver) Place(ray surface.Ray, view surface.View) error {
	hit, ok := c.idx.Raycast(ray, view)
	if !ok {
		return fmt.Errorf("%w: ray missed the surface", ErrUnplaced)
	}
	return c.PlaceHit(hit)
}

// PlaceHit anchors the selected inscription at a caller-supplied surface
// hit and recomputes its geometry. An explicit placement clears any
// standing reverted warning.
func (c *Carver) PlaceHit(hit surface.Hit) error {
	in := c.Selected()
	if in == nil {
		return ErrNoInscription
	}
	in.hit = hit
	in.hasHit = true
	in.reverted = false
	in.state = Placed
	c.rebuild(in)
	return nil
}

// SetText edits an inscription's text and recomputes its geometry.
func (c *Carver) SetText(id int, txt string) error {
	in, err := c.find(id)
	if err != nil {
		return err
	}
	in.textStr = txt
	in.invalidate()
	c.rebuild(in)
	return nil
}

// SetScale edits an inscription's linear scale and recomputes its geometry.
func (c *Carver) SetScale(id int, scale float64) error {
	in, err := c.find(id)
	if err != nil {
		return err
	}
	in.scale = scale
	in.invalidate()
	c.rebuild(in)
	return nil
}

// SetDepth edits an inscription's carve depth and recomputes its geometry.
func (c *Carver) SetDepth(id int, depth float64) error {
	in, err := c.find(id)
	if err != nil {
		return err
	}
	in.depth = depth
	in.invalidate()
	c.rebuild(in)
	return nil
}

// SetRotation edits an inscription's rotation about the surface normal in
// degrees and recomputes its geometry.
func (c *Carver) SetRotation(id int, deg float64) error {
	in, err := c.find(id)
	if err != nil {
		return err
	}
	in.rotationDeg = deg
	in.invalidate()
	c.rebuild(in)
	return nil
}

// SetFont edits an inscription's font and recomputes its geometry.
func (c *Carver) SetFont(id int, f *text.Font) error {
	in, err := c.find(id)
	if err != nil {
		return err
	}
	in.font = f
	in.invalidate()
	c.rebuild(in)
	return nil
}

// rebuild regenerates an inscription's outline and tool solid from its
// current parameters and placement. Out-of-bounds mappings trigger the
// revert policy; font failures leave the inscription placed with an empty
// outline.
func (c *Carver) rebuild(in *Inscription) {
	if !in.hasHit {
		return
	}
	in.solid = nil
	in.unmapped = 0
	o, err := text.Outline(in.font, in.textStr, in.scale)
	if err != nil {
		in.outline = nil
		in.state = Placed
		in.warning = err.Error()
		return
	}
	o.Subdivide(c.cfg.MaxEdgeFrac*in.scale, c.cfg.SubdividePasses)
	in.outline = o

	s, rep := c.buildSolid(in, o)
	if rep.OutOfBounds {
		in.unmapped = rep.Unmapped
		if !c.cfg.NoAutoRevert && in.hasLastValid {
			// Restore the last placement that mapped fully and retry once.
			// The flag stays up until the user places again, whether or
			// not the retry recovers.
			in.hit = in.lastValidHit
			in.reverted = true
			s, rep = c.buildSolid(in, o)
		}
	}
	if rep.OutOfBounds || s == nil {
		if len(o.T) == 0 {
			// Empty outline (whitespace or empty text): placed, no solid.
			in.state = Placed
			in.warning = ""
			return
		}
		if rep.OpenBoundary {
			in.state = Placed
			in.warning = "text outline boundary is broken: no tool solid built"
			return
		}
		in.state = OutOfBounds
		in.unmapped = rep.Unmapped
		in.warning = fmt.Sprintf("%d of %d outline vertices map outside the surface", rep.Unmapped, rep.Total)
		return
	}
	in.solid = s
	in.state = Mapped
	in.unmapped = 0
	in.warning = ""
	in.lastValidHit = in.hit
	in.hasLastValid = true
}

func (c *Carver) buildSolid(in *Inscription, o *text.OutlineMesh) (*mesh.Mesh, solid.Report) {
	return solid.Build(o, in.hit, c.idx, solid.Config{
		Depth:       in.depth,
		FrontOffset: c.cfg.FrontOffset,
		RotationDeg: in.rotationDeg,
	})
}

// Result reports the outcome of a Carve call.
type Result struct {
	// Carved lists inscription IDs whose solids were subtracted.
	Carved []int
	// Skipped lists inscriptions that were not in the Mapped state.
	Skipped []int
	// Warnings carries human readable notes for skipped work.
	Warnings []string
}

// Carve subtracts every Mapped inscription's solid from the base mesh,
// strictly one at a time: each subtraction mutates the accumulating
// geometry the next one reads. Inscriptions not in the Mapped state are
// skipped with a warning; with zero mapped inscriptions the carve is a
// no-op with a warning, not an error. A failed subtraction aborts the
// remaining sequence and leaves the base at its last successfully carved
// state; callers wanting whole-batch atomicity must snapshot Base first.
func (c *Carver) Carve() (Result, error) {
	var res Result
	for _, in := range c.inscriptions {
		if in.state != Mapped || in.solid == nil {
			res.Skipped = append(res.Skipped, in.id)
			res.Warnings = append(res.Warnings, fmt.Sprintf("inscription %d skipped: state %v", in.id, in.state))
			continue
		}
		out, err := csg.Subtract(c.base, in.solid, c.cfg.CSG)
		if err != nil {
			return res, fmt.Errorf("inscription %d: %w", in.id, err)
		}
		c.base = out
		res.Carved = append(res.Carved, in.id)
	}
	if len(res.Carved) == 0 {
		res.Warnings = append(res.Warnings, "no mapped inscriptions: nothing carved")
	}
	return res, nil
}

// Reset restores the pristine base mesh snapshot, discards all
// inscriptions and clears the selection.
func (c *Carver) Reset() {
	c.base = c.pristine.Copy()
	c.inscriptions = nil
	c.selected = -1
}
