package frame

import (
	"errors"
	"fmt"
	"strings"
)

var ErrBadPattern = errors.New("pattern should have exactly one integer verb")

// Pattern names the frame files Start..Start+Count-1.
type Pattern struct {
	Format string
	Start  int
	Count  int
}

func NewPattern(format string, start, count int) (Pattern, error) {
	p := Pattern{Format: format, Start: start, Count: count}
	if err := p.validate(); err != nil {
		return Pattern{}, err
	}
	return p, nil
}

func (p Pattern) validate() error {
	if p.Count < 1 {
		return fmt.Errorf("frame count %v < 1", p.Count)
	}
	verbs := strings.Count(p.Format, "%") - 2*strings.Count(p.Format, "%%")
	if verbs != 1 {
		return fmt.Errorf("%w: %q", ErrBadPattern, p.Format)
	}
	if name := fmt.Sprintf(p.Format, p.Start); strings.Contains(name, "%!") {
		return fmt.Errorf("%w: %q", ErrBadPattern, p.Format)
	}
	return nil
}

func (p Pattern) Name(i int) string { return fmt.Sprintf(p.Format, i) }

// Numbers returns frame numbers in display order.
func (p Pattern) Numbers() []int {
	n := make([]int, p.Count)
	for i := range n {
		n[i] = p.Start + i
	}
	return n
}

// Match reports whether name, relative to the frames dir, belongs to the sequence.
func (p Pattern) Match(name string) (int, bool) {
	var i int
	if _, err := fmt.Sscanf(name, p.Format, &i); err != nil {
		return 0, false
	}
	if i < p.Start || i >= p.Start+p.Count || p.Name(i) != name {
		return 0, false
	}
	return i, true
}
