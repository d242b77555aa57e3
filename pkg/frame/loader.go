package frame

import (
	"context"
	"os"
	"path/filepath"

	"github.com/giongto35/framegif/pkg/logger"
)

type Loader struct {
	dir     string
	pattern Pattern
	log     *logger.Logger
}

func NewLoader(dir string, pattern Pattern, log *logger.Logger) *Loader {
	return &Loader{dir: dir, pattern: pattern, log: log}
}

// Load decodes all the frames one by one and stops at the first failure.
func (l *Loader) Load(ctx context.Context) (Sequence, error) {
	seq := make(Sequence, 0, l.pattern.Count)
	for _, i := range l.pattern.Numbers() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := l.read(i)
		if err != nil {
			return nil, err
		}
		l.log.Debug().Msgf("%v <- %v", f, f.Path)
		seq = append(seq, f)
	}
	return seq, nil
}

func (l *Loader) Path(i int) string { return filepath.Join(l.dir, l.pattern.Name(i)) }

func (l *Loader) read(i int) (*Frame, error) {
	path := l.Path(i)
	file, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Index: i, Path: path, Err: err}
	}
	defer func() { _ = file.Close() }()

	f, err := Decode(file)
	if err != nil {
		return nil, &DecodeError{Index: i, Path: path, Err: err}
	}
	f.Index = i
	f.Path = path
	return f, nil
}
