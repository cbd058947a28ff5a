package main

import (
	"os"

	"epos-backend/internal/pkg/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	logging.Setup(os.Getenv("APP_ENV"))
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("eposctl")
		os.Exit(1)
	}
}
