package commands

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenancy/internal/logger"
)

type Globals struct {
	Dev      bool
	LogLevel string
	Version  string
}

// setupLogger installs the process logger globally and as the context default.
func (g *Globals) setupLogger() (zerolog.Logger, error) {
	l, err := logger.New(logger.Config{Level: g.LogLevel, Console: g.Dev})
	if err != nil {
		return l, err
	}
	log.Logger = l
	zerolog.DefaultContextLogger = &l
	return l, nil
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
