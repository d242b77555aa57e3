package main

import (
	"github.com/giongto35/framegif/pkg/convert"
	"github.com/giongto35/framegif/pkg/logger"
)

const convertCmd = "convert"

// runConvert handles `framegif convert <in.png> <out.pnm>` and returns the exit status.
func runConvert(args []string, log *logger.Logger) int {
	if len(args) != 2 {
		log.Error().Err(convert.ErrArgs).Msgf("got %v args", len(args))
		return int(convert.InvalidParameter)
	}
	err := convert.File(args[0], args[1])
	if err != nil {
		log.Error().Err(err).Msg("conversion has failed")
	} else {
		log.Info().Msgf("%v is ready", args[1])
	}
	return convert.ExitCode(err)
}
