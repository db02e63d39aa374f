package main

import (
	"os"

	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := buildRootCmd(logger).Execute(); err != nil {
		logger.Error().Err(err).Msg("provision failed")
		os.Exit(1)
	}
}
