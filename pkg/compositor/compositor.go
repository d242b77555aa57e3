// Package compositor builds one animated GIF out of numbered frame files.
package compositor

import (
	"bytes"
	"context"
	"time"

	"github.com/giongto35/framegif/pkg/config"
	"github.com/giongto35/framegif/pkg/encoder/gif"
	"github.com/giongto35/framegif/pkg/frame"
	"github.com/giongto35/framegif/pkg/logger"
	"github.com/giongto35/framegif/pkg/monitoring"
	oss "github.com/giongto35/framegif/pkg/os"
)

const outputPerm = 0644

type Compositor struct {
	conf    config.Config
	pattern frame.Pattern
	loader  *frame.Loader
	enc     *gif.Encoder
	metrics *monitoring.Metrics
	log     *logger.Logger
}

// Result describes a published animation.
type Result struct {
	Path    string
	Frames  int
	Bytes   int64
	Elapsed time.Duration
}

func New(conf config.Config, log *logger.Logger) (*Compositor, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	pattern, err := frame.NewPattern(conf.Frames.Pattern, conf.Frames.Start, conf.Frames.Count)
	if err != nil {
		return nil, err
	}
	log = log.Extend(log.With().Str("mod", "compositor"))
	return &Compositor{
		conf:    conf,
		pattern: pattern,
		loader:  frame.NewLoader(conf.Frames.Dir, pattern, log),
		enc: gif.NewEncoder(gif.Options{
			Delay:     conf.Output.DelayDuration(),
			LoopCount: conf.Output.Loop,
			Optimize:  conf.Output.Optimize,
			Dither:    conf.Output.Dither,
		}),
		metrics: monitoring.New(conf.Metrics.Textfile),
		log:     log,
	}, nil
}

// Compose decodes every frame, encodes them and publishes the GIF.
// Nothing is written unless all the frames were decoded.
func (c *Compositor) Compose(ctx context.Context) (res Result, err error) {
	start := time.Now()
	res.Path = c.conf.Output.Path
	defer func() {
		res.Elapsed = time.Since(start)
		if merr := c.metrics.Observe(res.Frames, res.Bytes, res.Elapsed, err); merr != nil {
			c.log.Warn().Err(merr).Msgf("metrics write to %v has failed", c.metrics)
		}
	}()

	seq, err := c.loader.Load(ctx)
	if err != nil {
		return res, err
	}

	var buf bytes.Buffer
	if err = c.enc.Write(&buf, seq); err != nil {
		return res, err
	}
	if err = c.publish(ctx, buf.Bytes()); err != nil {
		return res, &gif.EncodeError{Path: c.conf.Output.Path, Err: err}
	}

	res.Frames = len(seq)
	res.Bytes = int64(buf.Len())
	c.log.Info().
		Int("frames", res.Frames).
		Int64("bytes", res.Bytes).
		Dur("took", time.Since(start)).
		Msgf("%v is ready", res.Path)
	return res, nil
}

func (c *Compositor) publish(ctx context.Context, data []byte) error {
	out := c.conf.Output
	if out.Lock {
		l, err := oss.NewFileLock(out.Path + ".lock")
		if err != nil {
			return err
		}
		if err = l.Lock(ctx); err != nil {
			return err
		}
		defer func() {
			if err := l.Unlock(); err != nil {
				c.log.Warn().Err(err).Msgf("unlock %v", l.Path())
			}
		}()
	}
	if out.Atomic {
		return oss.WriteFileAtomic(out.Path, data, outputPerm)
	}
	return oss.WriteFile(out.Path, data, outputPerm)
}
