// Package capture implements a freehand signature surface that records
// pointer strokes onto a bounded raster and emits PNG data URLs.
//
// A Pad knows nothing about quotes or tokens. Owners subscribe with
// WithOnChange and receive the encoded image after every completed stroke,
// or an empty string when the surface is cleared.
package capture

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
)

var (
	ErrReadOnly     = errors.New("signature pad is read-only")
	ErrNoStroke     = errors.New("no stroke in progress")
	ErrInvalidSize  = errors.New("signature pad size must be positive")
	ErrStrokeActive = errors.New("stroke already in progress")
)

// MaxDimension bounds both sides of the drawing surface.
const MaxDimension = 4096

// Option configures a Pad.
type Option func(*Pad)

// WithInk sets the pen colour. The default is near-black.
func WithInk(c color.RGBA) Option {
	return func(p *Pad) { p.ink = c }
}

// WithPenWidth sets the stroke width in pixels.
func WithPenWidth(w float64) Option {
	return func(p *Pad) {
		if w > 0 {
			p.penWidth = w
		}
	}
}

// WithOnChange registers the change callback.
func WithOnChange(fn func(dataURL string)) Option {
	return func(p *Pad) { p.onChange = fn }
}

// Pad is a drawing surface. It is driven by a single input source and is not
// safe for concurrent use.
type Pad struct {
	img          *image.RGBA
	ink          color.RGBA
	penWidth     float64
	onChange     func(string)
	readOnly     bool
	hasSignature bool

	drawing bool
	lastX   float64
	lastY   float64
}

// NewPad creates a transparent surface of the given size.
func NewPad(width, height int, opts ...Option) (*Pad, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	p := &Pad{
		img:      image.NewRGBA(image.Rect(0, 0, width, height)),
		ink:      color.RGBA{R: 17, G: 24, B: 39, A: 255},
		penWidth: 2.5,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Bounds returns the surface size.
func (p *Pad) Bounds() image.Rectangle { return p.img.Bounds() }

// HasSignature reports whether the surface holds a drawn or loaded signature.
func (p *Pad) HasSignature() bool { return p.hasSignature }

// SetReadOnly blocks or allows further input.
func (p *Pad) SetReadOnly(readOnly bool) {
	p.readOnly = readOnly
	if readOnly {
		p.drawing = false
	}
}

// BeginStroke starts a stroke at (x, y) and inks a dot there.
func (p *Pad) BeginStroke(x, y float64) error {
	if p.readOnly {
		return ErrReadOnly
	}
	if p.drawing {
		return ErrStrokeActive
	}
	p.drawing = true
	p.lastX, p.lastY = x, y
	p.stamp(x, y)
	return nil
}

// LineTo extends the current stroke to (x, y).
func (p *Pad) LineTo(x, y float64) error {
	if p.readOnly {
		return ErrReadOnly
	}
	if !p.drawing {
		return ErrNoStroke
	}
	p.segment(p.lastX, p.lastY, x, y)
	p.lastX, p.lastY = x, y
	return nil
}

// EndStroke completes the stroke and notifies the owner.
func (p *Pad) EndStroke() error {
	if p.readOnly {
		return ErrReadOnly
	}
	if !p.drawing {
		return ErrNoStroke
	}
	p.drawing = false
	p.hasSignature = true
	return p.emit()
}

// Clear wipes the surface and notifies the owner with an empty data URL.
func (p *Pad) Clear() error {
	if p.readOnly {
		return ErrReadOnly
	}
	draw.Draw(p.img, p.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
	p.drawing = false
	p.hasSignature = false
	if p.onChange != nil {
		p.onChange("")
	}
	return nil
}

// Load replaces the surface content with an existing signature, for example
// to redisplay what a signer submitted. It does not notify the owner.
func (p *Pad) Load(dataURL string) error {
	src, err := Decode(dataURL)
	if err != nil {
		return err
	}
	draw.Draw(p.img, p.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
	draw.Draw(p.img, p.img.Bounds(), src, src.Bounds().Min, draw.Over)
	p.drawing = false
	p.hasSignature = inked(p.img)
	return nil
}

// Resize changes the surface size. The current raster is redrawn onto the new
// surface anchored at the top-left corner; anything beyond the new bounds is
// cropped, and a pad whose ink was all cropped no longer has a signature.
func (p *Pad) Resize(width, height int) error {
	if err := checkSize(width, height); err != nil {
		return err
	}
	next := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(next, next.Bounds(), p.img, image.Point{}, draw.Src)
	p.img = next
	p.drawing = false
	p.hasSignature = p.hasSignature && inked(p.img)
	return nil
}

// Image returns a copy of the current raster.
func (p *Pad) Image() *image.RGBA {
	out := image.NewRGBA(p.img.Bounds())
	draw.Draw(out, out.Bounds(), p.img, image.Point{}, draw.Src)
	return out
}

// DataURL encodes the surface as a PNG data URL.
func (p *Pad) DataURL() (string, error) {
	return Encode(p.img)
}

func (p *Pad) emit() error {
	if p.onChange == nil {
		return nil
	}
	url, err := p.DataURL()
	if err != nil {
		return err
	}
	p.onChange(url)
	return nil
}

func (p *Pad) segment(x0, y0, x1, y1 float64) {
	dist := math.Hypot(x1-x0, y1-y0)
	steps := int(math.Ceil(dist))
	if steps == 0 {
		p.stamp(x1, y1)
		return
	}
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		p.stamp(x0+(x1-x0)*t, y0+(y1-y0)*t)
	}
}

// stamp paints a filled disc of the pen width centred on (x, y), clipped to
// the surface.
func (p *Pad) stamp(x, y float64) {
	r := p.penWidth / 2
	b := p.img.Bounds()
	minX := max(int(math.Floor(x-r)), b.Min.X)
	maxX := min(int(math.Ceil(x+r)), b.Max.X-1)
	minY := max(int(math.Floor(y-r)), b.Min.Y)
	maxY := min(int(math.Ceil(y+r)), b.Max.Y-1)
	for py := minY; py <= maxY; py++ {
		for px := minX; px <= maxX; px++ {
			dx := float64(px) + 0.5 - x
			dy := float64(py) + 0.5 - y
			if dx*dx+dy*dy <= r*r+0.25 {
				p.img.SetRGBA(px, py, p.ink)
			}
		}
	}
}

func checkSize(width, height int) error {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return ErrInvalidSize
	}
	return nil
}
