package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/giongto35/framegif/pkg/compositor"
	"github.com/giongto35/framegif/pkg/config"
	"github.com/giongto35/framegif/pkg/logger"
	oss "github.com/giongto35/framegif/pkg/os"
	"github.com/spf13/pflag"
)

var Version = ""

func newLogger(conf config.Log, stderr io.Writer) *logger.Logger {
	if conf.JSON {
		return logger.New(stderr, conf.Debug)
	}
	return logger.NewConsole(conf.Debug, "framegif", conf.NoColor)
}

func run(ctx context.Context, conf *config.Config, log *logger.Logger) error {
	log.Debug().Msgf("version: %v, config: %+v", Version, *conf)

	c, err := compositor.New(*conf, log)
	if err != nil {
		return err
	}
	if conf.Watch.Enabled {
		return c.Watch(ctx)
	}
	_, err = c.Compose(ctx)
	return err
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == convertCmd {
		os.Exit(runConvert(os.Args[2:], logger.NewConsole(false, "framegif", false)))
	}

	conf, err := config.NewConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := newLogger(conf.Log, os.Stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := oss.ExpectTermination()
	go func() {
		<-done
		log.Info().Msg("shutting down")
		cancel()
	}()

	if err = run(ctx, conf, log); err != nil {
		log.Error().Err(err).Msg("failed")
		cancel()
		os.Exit(1)
	}
}
