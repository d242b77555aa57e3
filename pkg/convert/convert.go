// Package convert turns PNG images into netpbm frames.
package convert

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"

	oss "github.com/giongto35/framegif/pkg/os"
	"github.com/spakin/netpbm"
)

// Code is the process exit status of a conversion.
type Code int

const (
	OK               Code = 0
	FileNotFound     Code = 2
	PathNotFound     Code = 3
	InvalidData      Code = 13
	InvalidParameter Code = 87
)

const (
	// signature(8) + length(4) + "IHDR"(4) + width(4) + height(4) + depth(1) + color type(1)
	headerSize  = 26
	colorGray   = 0
	colorRGB    = 2
	maxValue    = 255
	outputPerm  = 0644
	ihdrTypeOff = 12
	colorOff    = 25
)

var (
	pngSignature = []byte{137, 80, 78, 71, 13, 10, 26, 10}

	ErrArgs                 = errors.New("usage: framegif convert <in.png> <out.pnm>")
	ErrBadSignature         = errors.New("not a png file")
	ErrNoHeader             = errors.New("png header is missing")
	ErrUnsupportedColorType = errors.New("unsupported png color type")
)

// Error is a failed conversion with the exit code it maps to.
type Error struct {
	Code Code
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("convert: %v", e.Err)
	}
	return fmt.Sprintf("convert [%v]: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode maps err to a process exit status, unknown errors count as bad data.
func ExitCode(err error) int {
	if err == nil {
		return int(OK)
	}
	var e *Error
	if errors.As(err, &e) {
		return int(e.Code)
	}
	return int(InvalidData)
}

// Convert reads a grayscale or RGB PNG from r and writes it into w
// as a raw PGM (P5) or PPM (P6) with max value 255.
func Convert(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	head, err := br.Peek(headerSize)
	if len(head) < len(pngSignature) || !bytes.Equal(head[:len(pngSignature)], pngSignature) {
		return &Error{Code: InvalidData, Err: ErrBadSignature}
	}
	if err != nil || string(head[ihdrTypeOff:ihdrTypeOff+4]) != "IHDR" {
		return &Error{Code: InvalidData, Err: ErrNoHeader}
	}

	var format netpbm.Format
	switch ct := head[colorOff]; ct {
	case colorGray:
		format = netpbm.PGM
	case colorRGB:
		format = netpbm.PPM
	default:
		return &Error{Code: InvalidData, Err: fmt.Errorf("%w: %v", ErrUnsupportedColorType, ct)}
	}

	img, err := png.Decode(br)
	if err != nil {
		return &Error{Code: InvalidData, Err: err}
	}
	if err = netpbm.Encode(w, img, &netpbm.EncodeOptions{Format: format, MaxValue: maxValue}); err != nil {
		return &Error{Code: PathNotFound, Err: err}
	}
	return nil
}

// File converts the PNG at src into the netpbm file dst.
// dst is replaced atomically, a failed conversion leaves it untouched.
func File(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return &Error{Code: FileNotFound, Path: src, Err: err}
	}
	defer func() { _ = in.Close() }()

	var buf bytes.Buffer
	if err = Convert(in, &buf); err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Path = src
		}
		return err
	}
	if err = oss.WriteFileAtomic(dst, buf.Bytes(), outputPerm); err != nil {
		return &Error{Code: PathNotFound, Path: dst, Err: err}
	}
	return nil
}
