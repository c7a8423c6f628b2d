package carve

import (
	"github.com/soypat/carve/mesh"
	"github.com/soypat/carve/surface"
	"github.com/soypat/carve/text"
)

// State is an inscription's position in the placement lifecycle.
type State uint8

const (
	// Unplaced inscriptions have no surface anchor yet.
	Unplaced State = iota
	// Placed inscriptions have a surface hit but no valid solid.
	Placed
	// Mapped inscriptions carry a valid closed tool solid.
	Mapped
	// OutOfBounds inscriptions failed to map and could not be reverted.
	OutOfBounds
)

func (s State) String() string {
	switch s {
	case Unplaced:
		return "unplaced"
	case Placed:
		return "placed"
	case Mapped:
		return "mapped"
	case OutOfBounds:
		return "out-of-bounds"
	}
	return "unknown"
}

// Inscription is one piece of text pinned to the base surface. Parameter
// edits invalidate its solid geometry; the carver recomputes it from the
// stored placement.
type Inscription struct {
	id          int
	textStr     string
	font        *text.Font
	scale       float64
	depth       float64
	rotationDeg float64

	state        State
	hit          surface.Hit
	lastValidHit surface.Hit
	hasHit       bool
	hasLastValid bool

	outline  *text.OutlineMesh
	solid    *mesh.Mesh
	reverted bool
	unmapped int
	warning  string
}

// ID returns the inscription's identifier within its carver.
func (in *Inscription) ID() int { return in.id }

// State returns the inscription's lifecycle state.
func (in *Inscription) State() State { return in.state }

// Text returns the inscription text.
func (in *Inscription) Text() string { return in.textStr }

// Scale returns the text's linear scale in model units.
func (in *Inscription) Scale() float64 { return in.scale }

// Depth returns the carve depth in model units.
func (in *Inscription) Depth() float64 { return in.depth }

// RotationDeg returns the outline rotation about the surface normal.
func (in *Inscription) RotationDeg() float64 { return in.rotationDeg }

// Hit returns the inscription's surface placement. ok is false for
// unplaced inscriptions.
func (in *Inscription) Hit() (h surface.Hit, ok bool) { return in.hit, in.hasHit }

// OutOfBounds reports whether the last mapping attempt failed, along with
// the number of outline vertices that did not map.
func (in *Inscription) OutOfBounds() (bool, int) {
	return in.state == OutOfBounds || in.unmapped > 0, in.unmapped
}

// Reverted reports whether the placement was automatically restored to the
// last valid hit after an out-of-bounds mapping. The flag is durable until
// the next explicit placement.
func (in *Inscription) Reverted() bool { return in.reverted }

// Warning returns a human readable description of the inscription's latest
// non-fatal problem, empty when healthy.
func (in *Inscription) Warning() string { return in.warning }

// Solid returns the inscription's tool solid, or nil when no valid solid
// exists. The mesh is owned by the inscription; callers must not mutate it.
func (in *Inscription) Solid() *mesh.Mesh { return in.solid }

// Outline returns the subdivided flat outline backing the solid, for
// diagnostics. May be nil.
func (in *Inscription) Outline() *text.OutlineMesh { return in.outline }

// invalidate drops derived geometry after a parameter edit, returning the
// inscription to Placed when it has a surface anchor.
func (in *Inscription) invalidate() {
	in.solid = nil
	in.outline = nil
	in.unmapped = 0
	in.warning = ""
	if in.hasHit {
		in.state = Placed
	} else {
		in.state = Unplaced
	}
}
