package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"
)

type Config struct {
	Frames  Frames  `fig:"frames"`
	Output  Output  `fig:"output"`
	Watch   Watch   `fig:"watch"`
	Log     Log     `fig:"log"`
	Metrics Metrics `fig:"metrics"`
}

// Frames describes where the source images live and how they are named.
type Frames struct {
	Dir     string `fig:"dir"`
	Start   int    `fig:"start"`
	Count   int    `fig:"count"`
	Pattern string `fig:"pattern"`
}

type Output struct {
	Path string `fig:"path"`
	// Delay is the display time of every frame in milliseconds.
	Delay int `fig:"delay"`
	// Loop is the number of replays, 0 means forever and -1 plays once.
	Loop     int  `fig:"loop"`
	Optimize bool `fig:"optimize"`
	Dither   bool `fig:"dither"`
	Atomic   bool `fig:"atomic"`
	Lock     bool `fig:"lock"`
}

type Watch struct {
	Enabled  bool          `fig:"enabled"`
	Debounce time.Duration `fig:"debounce"`
}

type Log struct {
	Debug   bool `fig:"debug"`
	JSON    bool `fig:"json"`
	NoColor bool `fig:"nocolor"`
}

type Metrics struct {
	Textfile string `fig:"textfile"`
}

// Default returns the configuration of the classic homer.gif run.
func Default() *Config {
	return &Config{
		Frames: Frames{Dir: "dir", Start: 1, Count: 19, Pattern: "%d.pnm"},
		Output: Output{Path: "homer.gif", Delay: 200, Loop: 0, Optimize: true, Atomic: true},
		Watch:  Watch{Debounce: 250 * time.Millisecond},
	}
}

// NewConfig builds the config from defaults, an optional config file,
// FRAMEGIF_ env vars and finally command-line args, in that order.
func NewConfig(args []string) (*Config, error) {
	// the config path has to be known before the file is read
	pre := pflag.NewFlagSet("pre", pflag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.Usage = func() {}
	pre.SetOutput(io.Discard)
	var path string
	pre.StringVarP(&path, "conf", "c", "", "")
	_ = pre.Parse(args)

	conf := Default()
	if err := LoadConfig(conf, path); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	fs := pflag.NewFlagSet("framegif", pflag.ContinueOnError)
	fs.StringVarP(&path, "conf", "c", path, "Set custom configuration file path")
	conf.WithFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// WithFlags binds conf values to fs, current values become flag defaults.
func (c *Config) WithFlags(fs *pflag.FlagSet) *Config {
	fs.StringVar(&c.Frames.Dir, "dir", c.Frames.Dir, "Directory with the source frames")
	fs.IntVar(&c.Frames.Start, "start", c.Frames.Start, "Number of the first frame")
	fs.IntVar(&c.Frames.Count, "count", c.Frames.Count, "Number of frames")
	fs.StringVar(&c.Frames.Pattern, "pattern", c.Frames.Pattern, "Frame file name pattern with one integer verb")
	fs.StringVarP(&c.Output.Path, "out", "o", c.Output.Path, "Output GIF path")
	fs.IntVar(&c.Output.Delay, "delay", c.Output.Delay, "Frame display time (ms)")
	fs.IntVar(&c.Output.Loop, "loop", c.Output.Loop, "Loop count: 0 forever, -1 once")
	fs.BoolVar(&c.Output.Optimize, "optimize", c.Output.Optimize, "Use minimal per-frame palettes")
	fs.BoolVar(&c.Output.Dither, "dither", c.Output.Dither, "Dither when colors have to be reduced")
	fs.BoolVar(&c.Output.Atomic, "atomic", c.Output.Atomic, "Publish the output with write-then-rename")
	fs.BoolVar(&c.Output.Lock, "lock", c.Output.Lock, "Hold <out>.lock while publishing")
	fs.BoolVarP(&c.Watch.Enabled, "watch", "w", c.Watch.Enabled, "Recompose when frames change")
	fs.DurationVar(&c.Watch.Debounce, "watch.debounce", c.Watch.Debounce, "Quiet period before recomposing")
	fs.BoolVar(&c.Log.Debug, "debug", c.Log.Debug, "Debug logging")
	fs.BoolVar(&c.Log.JSON, "json-log", c.Log.JSON, "JSON logging")
	fs.BoolVar(&c.Log.NoColor, "no-color", c.Log.NoColor, "Disable colored console logs")
	fs.StringVar(&c.Metrics.Textfile, "metrics.textfile", c.Metrics.Textfile, "Write prometheus metrics into this file")
	return c
}

// MaxDelay is the longest frame delay in ms a GIF can store (65535 centiseconds).
const MaxDelay = 655350

func (c *Config) Validate() error {
	var errs []error
	if c.Frames.Count < 1 {
		errs = append(errs, fmt.Errorf("frames.count should be positive, got %v", c.Frames.Count))
	}
	if c.Frames.Start < 0 {
		errs = append(errs, fmt.Errorf("frames.start should not be negative, got %v", c.Frames.Start))
	}
	if c.Output.Path == "" {
		errs = append(errs, errors.New("output.path is empty"))
	}
	if c.Output.Delay < 0 || c.Output.Delay > MaxDelay {
		errs = append(errs, fmt.Errorf("output.delay should be in [0, %v], got %v", MaxDelay, c.Output.Delay))
	}
	if c.Output.Loop < -1 || c.Output.Loop > 0xffff {
		errs = append(errs, fmt.Errorf("output.loop should be in [-1, 65535], got %v", c.Output.Loop))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce should not be negative, got %v", c.Watch.Debounce))
	}
	return errors.Join(errs...)
}

func (o Output) DelayDuration() time.Duration { return time.Duration(o.Delay) * time.Millisecond }
