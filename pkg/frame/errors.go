package frame

import "fmt"

// DecodeError means a frame file is missing, unreadable or not a valid image.
type DecodeError struct {
	Index int
	Path  string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame %d [%v]: %v", e.Index, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
