package carve

import (
	"errors"

	"github.com/soypat/carve/csg"
	"github.com/soypat/carve/surface"
	"github.com/soypat/carve/text"
)

// Error taxonomy of the carving pipeline. Index construction errors are
// fatal and non-retryable; per-inscription mapping and boolean errors are
// isolated to their inscription and surfaced as structured warnings that
// block only the carve action for that inscription.
var (
	// ErrGeometryUnavailable is returned when the base mesh lacks position
	// or UV attributes. Fatal to the whole pipeline.
	ErrGeometryUnavailable = surface.ErrNoGeometry
	// ErrOutOfBounds is returned when one or more outline vertices fail to
	// map onto the surface. Recoverable per inscription.
	ErrOutOfBounds = errors.New("carve: inscription maps outside the surface UV bounds")
	// ErrBooleanEvaluation is returned when a subtraction cannot produce a
	// valid result. The base geometry is left at its last good state.
	ErrBooleanEvaluation = csg.ErrEvaluation
	// ErrFontUnavailable is returned when glyph outlines cannot be
	// generated. The inscription keeps an empty outline.
	ErrFontUnavailable = text.ErrFontUnavailable
	// ErrNoInscription is returned for operations on an unknown or
	// unselected inscription.
	ErrNoInscription = errors.New("carve: no such inscription")
	// ErrUnplaced is returned when an operation needs a placed inscription.
	ErrUnplaced = errors.New("carve: inscription has no surface placement")
)
