package cliconfig

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/vatplayback/archivist/pkg/log"
)

// NewLogger builds the CLI logger from cfg: raw JSON lines when LogJSON is
// set, the console writer otherwise.
func NewLogger(cfg Config, w io.Writer) (zerolog.Logger, error) {
	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), err
	}
	var l zerolog.Logger
	if cfg.LogJSON {
		l = zerolog.New(w).With().Timestamp().Logger()
	} else {
		l = log.NewConsoleLogger(w)
	}
	return l.Level(lvl), nil
}
