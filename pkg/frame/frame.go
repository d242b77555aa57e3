// Package frame loads numbered still images into an ordered sequence.
package frame

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"runtime"

	"github.com/mandykoh/prism"
	"github.com/spakin/netpbm"
)

// Frame is one decoded source image.
type Frame struct {
	// Index is the number from the file name.
	Index    int
	Path     string
	Format   netpbm.Format
	MaxValue uint16
	Image    *image.NRGBA
}

func (f *Frame) Width() int  { return f.Image.Rect.Dx() }
func (f *Frame) Height() int { return f.Image.Rect.Dy() }

func (f *Frame) String() string {
	return fmt.Sprintf("frame %d [%v %dx%d max:%d]", f.Index, f.Format, f.Width(), f.Height(), f.MaxValue)
}

// Sequence keeps frames in display order.
type Sequence []*Frame

// Base is the first frame, it defines the canvas of the animation.
func (s Sequence) Base() *Frame {
	if len(s) == 0 {
		return nil
	}
	return s[0]
}

// Appended returns every frame after the base one.
func (s Sequence) Appended() Sequence {
	if len(s) < 2 {
		return nil
	}
	return s[1:]
}

// Decode reads a PBM, PGM, PPM or PAM image.
// PAM keeps its tuple type, so alpha survives the decode.
func Decode(r io.Reader) (*Frame, error) {
	br := bufio.NewReader(r)
	var opts *netpbm.DecodeOptions
	if magic, err := br.Peek(2); err == nil && string(magic) == "P7" {
		opts = &netpbm.DecodeOptions{Target: netpbm.PAM}
	}
	img, err := netpbm.Decode(br, opts)
	if err != nil {
		return nil, err
	}
	return &Frame{
		Format:   img.Format(),
		MaxValue: img.MaxValue(),
		Image:    prism.ConvertImageToNRGBA(img, runtime.NumCPU()),
	}, nil
}
