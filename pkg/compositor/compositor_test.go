package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	gogif "image/gif"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/giongto35/framegif/pkg/config"
	"github.com/giongto35/framegif/pkg/encoder/gif"
	"github.com/giongto35/framegif/pkg/frame"
	"github.com/giongto35/framegif/pkg/logger"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hue gives frame k its own color, hues grow with k.
func hue(k int) color.RGBA {
	r, g, b := colorful.Hsv(float64(k)*18, 1, 1).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func writePPM(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	data := append([]byte("P6\n1 1\n255\n"), c.R, c.G, c.B)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func writeFrames(t *testing.T, dir string, from, to int) {
	t.Helper()
	for k := from; k <= to; k++ {
		writePPM(t, filepath.Join(dir, fmt.Sprintf("%d.pnm", k)), hue(k))
	}
}

func testConfig(t *testing.T) (config.Config, string) {
	root := t.TempDir()
	src := filepath.Join(root, "dir")
	require.NoError(t, os.Mkdir(src, 0755))
	conf := *config.Default()
	conf.Frames.Dir = src
	conf.Output.Path = filepath.Join(root, "homer.gif")
	return conf, src
}

func newCompositor(t *testing.T, conf config.Config) *Compositor {
	t.Helper()
	c, err := New(conf, logger.Nop())
	require.NoError(t, err)
	return c
}

func decode(t *testing.T, path string) *gogif.GIF {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	g, err := gogif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	return g
}

func TestComposeHueSequence(t *testing.T) {
	conf, src := testConfig(t)
	writeFrames(t, src, 1, 19)

	res, err := newCompositor(t, conf).Compose(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 19, res.Frames)
	assert.Equal(t, conf.Output.Path, res.Path)

	info, err := os.Stat(conf.Output.Path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), res.Bytes)

	g := decode(t, conf.Output.Path)
	require.Len(t, g.Image, 19)
	assert.Equal(t, 0, g.LoopCount)

	prev := -1.0
	for k, img := range g.Image {
		assert.Equal(t, 20, g.Delay[k], "frame %d delay", k+1)

		want := hue(k + 1)
		r, gg, b, _ := img.At(0, 0).RGBA()
		assert.Equal(t, []uint8{want.R, want.G, want.B}, []uint8{uint8(r >> 8), uint8(gg >> 8), uint8(b >> 8)}, "frame %d", k+1)

		c, _ := colorful.MakeColor(img.At(0, 0))
		h, _, _ := c.Hsv()
		assert.Greater(t, h, prev, "frame %d hue", k+1)
		prev = h
	}
}

func TestComposeMissingFrameKeepsPriorArtifact(t *testing.T) {
	conf, src := testConfig(t)
	writeFrames(t, src, 1, 19)
	require.NoError(t, os.Remove(filepath.Join(src, "5.pnm")))
	require.NoError(t, os.WriteFile(conf.Output.Path, []byte("previous"), 0644))

	_, err := newCompositor(t, conf).Compose(context.Background())

	var de *frame.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 5, de.Index)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	data, err := os.ReadFile(conf.Output.Path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestComposeMissingFrameNoArtifact(t *testing.T) {
	conf, src := testConfig(t)
	writeFrames(t, src, 2, 19)

	_, err := newCompositor(t, conf).Compose(context.Background())
	var de *frame.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Index)
	assert.NoFileExists(t, conf.Output.Path)

	entries, err := os.ReadDir(filepath.Dir(conf.Output.Path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the source dir should exist")
}

func TestComposeIgnoresTwentiethFrame(t *testing.T) {
	conf, src := testConfig(t)
	writeFrames(t, src, 1, 20)

	res, err := newCompositor(t, conf).Compose(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 19, res.Frames)
	assert.Len(t, decode(t, conf.Output.Path).Image, 19)
}

func TestComposeIdempotent(t *testing.T) {
	conf, src := testConfig(t)
	writeFrames(t, src, 1, 19)
	c := newCompositor(t, conf)

	_, err := c.Compose(context.Background())
	require.NoError(t, err)
	first := decode(t, conf.Output.Path)

	_, err = c.Compose(context.Background())
	require.NoError(t, err)
	second := decode(t, conf.Output.Path)

	assert.Equal(t, first.Delay, second.Delay)
	assert.Equal(t, first.LoopCount, second.LoopCount)
	require.Len(t, second.Image, len(first.Image))
	for i := range first.Image {
		assert.Equal(t, first.Image[i].Pix, second.Image[i].Pix)
		assert.Equal(t, first.Image[i].Palette, second.Image[i].Palette)
	}
}

func TestComposeUnwritableOutput(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		t.Run(fmt.Sprintf("atomic=%v", atomic), func(t *testing.T) {
			conf, src := testConfig(t)
			writeFrames(t, src, 1, 19)
			conf.Output.Path = filepath.Join(filepath.Dir(src), "no", "such", "dir", "homer.gif")
			conf.Output.Atomic = atomic

			_, err := newCompositor(t, conf).Compose(context.Background())
			var ee *gif.EncodeError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, conf.Output.Path, ee.Path)
		})
	}
}

func TestComposeWithLockAndMetrics(t *testing.T) {
	conf, src := testConfig(t)
	writeFrames(t, src, 1, 3)
	conf.Frames.Count = 3
	conf.Output.Lock = true
	conf.Output.Delay = 100
	conf.Output.Loop = 2
	conf.Metrics.Textfile = filepath.Join(t.TempDir(), "framegif.prom")

	_, err := newCompositor(t, conf).Compose(context.Background())
	require.NoError(t, err)

	g := decode(t, conf.Output.Path)
	assert.Equal(t, []int{10, 10, 10}, g.Delay)
	assert.Equal(t, 2, g.LoopCount)

	metrics, err := os.ReadFile(conf.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "framegif_frames 3")
}

func TestComposeCancelled(t *testing.T) {
	conf, src := testConfig(t)
	writeFrames(t, src, 1, 19)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newCompositor(t, conf).Compose(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, conf.Output.Path)
}

func TestNewInvalid(t *testing.T) {
	conf, _ := testConfig(t)
	conf.Frames.Pattern = "frame.pnm"
	_, err := New(conf, logger.Nop())
	assert.ErrorIs(t, err, frame.ErrBadPattern)

	conf, _ = testConfig(t)
	conf.Frames.Count = 0
	_, err = New(conf, logger.Nop())
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	conf, src := testConfig(t)
	conf.Watch.Debounce = 20 * time.Millisecond
	writeFrames(t, src, 1, 18)

	c := newCompositor(t, conf)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx) }()

	// the first compose fails without 19.pnm
	time.Sleep(100 * time.Millisecond)
	assert.NoFileExists(t, conf.Output.Path)

	writePPM(t, filepath.Join(src, "19.pnm"), hue(19))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(conf.Output.Path)
		if err != nil {
			return false
		}
		g, err := gogif.DecodeAll(bytes.NewReader(data))
		return err == nil && len(g.Image) == 19
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchMissingDir(t *testing.T) {
	conf, _ := testConfig(t)
	conf.Frames.Dir = filepath.Join(conf.Frames.Dir, "nope")
	assert.Error(t, newCompositor(t, conf).Watch(context.Background()))
}

func TestWatchSubdirPattern(t *testing.T) {
	conf, src := testConfig(t)
	conf.Watch.Debounce = 20 * time.Millisecond
	conf.Frames.Pattern = "sub/%d.pnm"
	conf.Frames.Count = 3
	sub := filepath.Join(src, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	writePPM(t, filepath.Join(sub, "1.pnm"), hue(1))
	writePPM(t, filepath.Join(sub, "2.pnm"), hue(2))

	c := newCompositor(t, conf)
	assert.Equal(t, []string{sub}, c.watchDirs())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx) }()

	time.Sleep(100 * time.Millisecond)
	assert.NoFileExists(t, conf.Output.Path)

	writePPM(t, filepath.Join(sub, "3.pnm"), hue(3))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(conf.Output.Path)
		if err != nil {
			return false
		}
		g, err := gogif.DecodeAll(bytes.NewReader(data))
		return err == nil && len(g.Image) == 3
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
