// Package text turns strings into flat triangulated outlines suitable for
// projection onto a curved surface. Glyph outlines come from a TrueType
// font; triangulation honors letterform holes via nonzero winding.
package text

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/golang/freetype/truetype"
	"github.com/soypat/carve/internal/d2"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/spatial/r2"
)

const firstBasic = '!'
const lastBasic = '~'

// curveSegments is the fixed per-curve sampling density used when
// flattening quadratic bezier glyph segments.
const curveSegments = 8

// ErrFontUnavailable wraps glyph outline generation failures. Callers treat
// it as a collaborator fault: the inscription keeps an empty outline.
var ErrFontUnavailable = errors.New("text: font unavailable")

// Contour is a closed glyph outline loop. Filled contours bound ink,
// unfilled ones bound holes.
type Contour struct {
	V      []r2.Vec
	Filled bool
}

// Font parses a TrueType font and generates flattened glyph contours.
// Glyphs are cached per rune at normalized scale.
type Font struct {
	ttf truetype.Font
	gb  truetype.GlyphBuf
	// basicGlyphs is optimized array access for common ASCII glyphs.
	basicGlyphs [lastBasic - firstBasic + 1][]Contour
	otherGlyphs map[rune][]Contour
	loaded      bool
}

// LoadTTFBytes loads a TTF file blob into f. After loading, the Font is
// ready to generate text outlines.
func (f *Font) LoadTTFBytes(ttf []byte) error {
	fnt, err := truetype.Parse(ttf)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFontUnavailable, err.Error())
	}
	f.ttf = *fnt
	f.basicGlyphs = [lastBasic - firstBasic + 1][]Contour{}
	f.otherGlyphs = make(map[rune][]Contour)
	f.loaded = true
	return nil
}

func (f *Font) scale() fixed.Int26_6 {
	return fixed.Int26_6(f.ttf.FUnitsPerEm())
}

// scaleout converts font units to normalized model units in which the font
// bounding box's smaller dimension spans one unit.
func (f *Font) scaleout() float64 {
	bb := f.ttf.Bounds(f.scale())
	w := float64(bb.Max.X - bb.Min.X)
	h := float64(bb.Max.Y - bb.Min.Y)
	sz := w
	if h < w {
		sz = h
	}
	return 1 / sz
}

// TextContours lays out a single line of text and returns its closed
// contours scaled so the font's unit size spans scale model units. Kerning
// and advance width are taken into account. Whitespace-only input yields no
// contours and no error.
func (f *Font) TextContours(s string, scale float64) ([]Contour, error) {
	if !f.loaded {
		return nil, ErrFontUnavailable
	}
	var out []Contour
	fscale := f.scale()
	scaleout := f.scaleout()
	var idxPrev truetype.Index
	var xOfs int64
	for ic, c := range s {
		if !unicode.IsGraphic(c) && !unicode.IsSpace(c) {
			return nil, fmt.Errorf("%w: char %q not graphic", ErrFontUnavailable, c)
		}
		idx := f.ttf.Index(c)
		hm := f.ttf.HMetric(fscale, idx)
		if unicode.IsSpace(c) {
			if c == '\t' {
				hm.AdvanceWidth *= 4
			}
			xOfs += int64(hm.AdvanceWidth)
			continue
		}
		glyph, err := f.glyph(c)
		if err != nil {
			return nil, err
		}
		kern := f.ttf.Kern(fscale, idxPrev, idx)
		xOfs += int64(kern)
		idxPrev = idx
		if ic == 0 {
			xOfs += int64(hm.LeftSideBearing)
		}
		shift := r2.Vec{X: float64(xOfs) * scaleout}
		for _, ct := range glyph {
			v := make([]r2.Vec, len(ct.V))
			for i, p := range ct.V {
				v[i] = r2.Scale(scale, r2.Add(p, shift))
			}
			out = append(out, Contour{V: v, Filled: ct.Filled})
		}
		xOfs += int64(hm.AdvanceWidth)
	}
	return out, nil
}

// glyph returns the normalized contours for a rune, generating and caching
// them on first use.
func (f *Font) glyph(c rune) ([]Contour, error) {
	if c >= firstBasic && c <= lastBasic {
		g := f.basicGlyphs[c-firstBasic]
		if g == nil {
			var err error
			g, err = f.makeGlyph(c)
			if err != nil {
				return nil, err
			}
			f.basicGlyphs[c-firstBasic] = g
		}
		return g, nil
	}
	g, ok := f.otherGlyphs[c]
	if !ok {
		var err error
		g, err = f.makeGlyph(c)
		if err != nil {
			return nil, err
		}
		f.otherGlyphs[c] = g
	}
	return g, nil
}

func (f *Font) makeGlyph(char rune) ([]Contour, error) {
	g := &f.gb
	err := g.Load(&f.ttf, f.scale(), f.ttf.Index(char), font.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("%w: glyph %q: %s", ErrFontUnavailable, char, err.Error())
	}
	scaleout := f.scaleout()
	var contours []Contour
	start := 0
	for _, end := range g.Ends {
		ct := flattenContour(g.Points[start:end], scaleout)
		if len(ct.V) >= 3 {
			contours = append(contours, ct)
		}
		start = end
	}
	if len(contours) == 0 {
		return nil, fmt.Errorf("%w: glyph %q has no contours", ErrFontUnavailable, char)
	}
	return contours, nil
}

// flattenContour converts one TrueType point run into a closed polyline,
// sampling quadratic bezier segments at a fixed density. The winding sign
// classifies the contour as filled ink or a hole.
func flattenContour(points []truetype.Point, scale float64) Contour {
	n := len(points)
	if n < 2 {
		return Contour{}
	}
	var poly []r2.Vec
	i := 0
	for i < n {
		p0, p1, p2 := points[i], points[(i+1)%n], points[(i+2)%n]
		v0, v1, v2 := p2v(p0, scale), p2v(p1, scale), p2v(p2, scale)
		implicit0 := r2.Scale(0.5, r2.Add(v0, v1))
		implicit1 := r2.Scale(0.5, r2.Add(v1, v2))
		switch onbits(p0, p1, p2) {
		case 0b010, 0b110, 0b011, 0b111:
			// On-curve start: straight segment.
			poly = append(poly, v0)
			i++
			continue
		case 0b000:
			// implicit-off-implicit.
			poly = append(poly, implicit0)
			poly = sampleQuad(poly, implicit0, v1, implicit1)
			i++
		case 0b001:
			// on-off-implicit.
			poly = append(poly, v0)
			poly = sampleQuad(poly, v0, v1, implicit1)
			i++
		case 0b100:
			// implicit-off-on.
			poly = append(poly, implicit0)
			poly = sampleQuad(poly, implicit0, v1, v2)
			i += 2
		case 0b101:
			// on-off-on.
			poly = append(poly, v0)
			poly = sampleQuad(poly, v0, v1, v2)
			i += 2
		}
	}
	// Trapezoid winding sum: positive for the clockwise winding TrueType
	// uses for filled contours.
	sum := 0.0
	prev := poly[len(poly)-1]
	for _, v := range poly {
		sum += (v.X - prev.X) * (v.Y + prev.Y)
		prev = v
	}
	return Contour{V: poly, Filled: sum > 0}
}

// sampleQuad appends the interior samples of the quadratic bezier
// (p0, ctrl, p1) to poly, excluding both endpoints.
func sampleQuad(poly []r2.Vec, p0, ctrl, p1 r2.Vec) []r2.Vec {
	for s := 1; s < curveSegments; s++ {
		t := float64(s) / curveSegments
		omt := 1 - t
		v := r2.Add(
			r2.Add(r2.Scale(omt*omt, p0), r2.Scale(2*omt*t, ctrl)),
			r2.Scale(t*t, p1))
		poly = append(poly, v)
	}
	return poly
}

func p2v(p truetype.Point, scale float64) r2.Vec {
	return r2.Vec{
		X: float64(p.X) * scale,
		Y: float64(p.Y) * scale,
	}
}

func onbits(p0, p1, p2 truetype.Point) uint32 {
	return p0.Flags&1 |
		(p1.Flags&1)<<1 |
		(p2.Flags&1)<<2
}

// Bounds returns the bounding box of a contour set.
func Bounds(contours []Contour) (min, max r2.Vec) {
	bb := d2.Box{Min: d2.Elem(1e300), Max: d2.Elem(-1e300)}
	for _, ct := range contours {
		for _, v := range ct.V {
			bb = bb.Include(v)
		}
	}
	return bb.Min, bb.Max
}
