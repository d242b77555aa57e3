// Package gif turns a frame sequence into an animated GIF.
package gif

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	gogif "image/gif"
	"io"
	"time"

	"github.com/giongto35/framegif/pkg/frame"
	"github.com/soniakeys/quant/median"
	"golang.org/x/image/draw"
)

// maxColors is the biggest color table GIF allows.
const maxColors = 256

// maxDelay is the biggest delay the GIF graphic control block can hold.
const maxDelay = 0xffff

var (
	ErrNoFrames   = errors.New("no frames to encode")
	ErrDelayRange = errors.New("frame delay out of range")
)

// EncodeError means the animation could not be produced or written.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("encode: %v", e.Err)
	}
	return fmt.Sprintf("encode [%v]: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

type Options struct {
	// Delay is applied to every frame, GIF stores it in 10ms units.
	Delay time.Duration
	// LoopCount 0 loops forever, -1 shows the animation once.
	LoopCount int
	// Optimize builds a minimal palette per frame instead of the fixed Plan9 one.
	Optimize bool
	Dither   bool
}

type Encoder struct {
	opts Options
}

func NewEncoder(opts Options) *Encoder { return &Encoder{opts: opts} }

// Encode converts frames into paletted images, the base frame sets the canvas.
func (e *Encoder) Encode(seq frame.Sequence) (*gogif.GIF, error) {
	base := seq.Base()
	if base == nil {
		return nil, &EncodeError{Err: ErrNoFrames}
	}
	delay := Centiseconds(e.opts.Delay)
	if delay < 0 || delay > maxDelay {
		return nil, &EncodeError{Err: fmt.Errorf("%w: %v is %v cs, max %v", ErrDelayRange, e.opts.Delay, delay, maxDelay)}
	}
	canvas := base.Image.Bounds().Sub(base.Image.Bounds().Min)

	g := &gogif.GIF{
		Image:     make([]*image.Paletted, 0, len(seq)),
		Delay:     make([]int, 0, len(seq)),
		LoopCount: e.opts.LoopCount,
		Config:    image.Config{Width: canvas.Dx(), Height: canvas.Dy()},
	}
	for _, f := range seq {
		g.Image = append(g.Image, e.paletted(f.Image, canvas))
		g.Delay = append(g.Delay, delay)
	}
	return g, nil
}

// Write encodes frames and writes the GIF data into w.
func (e *Encoder) Write(w io.Writer, seq frame.Sequence) error {
	g, err := e.Encode(seq)
	if err != nil {
		return err
	}
	if err = gogif.EncodeAll(w, g); err != nil {
		return &EncodeError{Err: err}
	}
	return nil
}

func (e *Encoder) paletted(img *image.NRGBA, canvas image.Rectangle) *image.Paletted {
	var src image.Image = img
	if img.Bounds() != canvas {
		fitted := image.NewNRGBA(canvas)
		draw.CatmullRom.Scale(fitted, canvas, img, img.Bounds(), draw.Src, nil)
		src = fitted
	}

	dst := image.NewPaletted(canvas, e.palette(src))
	var d draw.Drawer = draw.Src
	if e.opts.Dither {
		d = draw.FloydSteinberg
	}
	d.Draw(dst, canvas, src, canvas.Min)
	return dst
}

func (e *Encoder) palette(img image.Image) color.Palette {
	if !e.opts.Optimize {
		return palette.Plan9
	}
	if p, ok := exactPalette(img, maxColors); ok {
		return p
	}
	return median.Quantizer(maxColors).Quantize(make(color.Palette, 0, maxColors), img)
}

// exactPalette collects the distinct colors of img in first-seen order,
// it gives up once there are more than limit of them.
func exactPalette(img image.Image, limit int) (color.Palette, bool) {
	seen := make(map[color.NRGBA]struct{}, limit)
	p := make(color.Palette, 0, limit)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if _, ok := seen[c]; ok {
				continue
			}
			if len(p) == limit {
				return nil, false
			}
			seen[c] = struct{}{}
			p = append(p, c)
		}
	}
	return p, true
}

// Centiseconds rounds d to GIF delay units.
func Centiseconds(d time.Duration) int {
	return int(d.Round(10*time.Millisecond) / (10 * time.Millisecond))
}
