package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/quaykit/identity-service/internal/bootstrap"
	"github.com/quaykit/identity-service/internal/logger"
)

const shutdownGrace = 15 * time.Second

// httpServer is the slice of *http.Server that Run drives; tests substitute
// a stub.
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
	Addr() string
}

type boundServer struct{ *http.Server }

func (b boundServer) Addr() string { return b.Server.Addr }

// serverBuilder produces the server plus its resource cleanup. Production
// wraps bootstrap.NewServer; tests inject failures here.
type serverBuilder func() (httpServer, func(), error)

// Run owns the process lifecycle: serve until a signal or a listener error,
// then drain within shutdownGrace. The return value is the process exit code.
func Run(build serverBuilder, sigCh <-chan os.Signal, lg zerolog.Logger) int {
	srv, cleanup, err := build()
	if err != nil {
		lg.Error().Err(err).Msg("bootstrap failed")
		return 1
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", srv.Addr()).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		lg.Info().Str("signal", sig.String()).Msg("shutting down")

	case err := <-errCh:
		// listener died on its own; report non-zero so the orchestrator restarts
		lg.Error().Err(err).Msg("http server failed")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		lg.Error().Err(err).Msg("drain timed out; closing connections")
		_ = srv.Close()
	}

	lg.Info().Msg("stopped")
	return 0
}

func main() {
	logger.Init()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	os.Exit(Run(func() (httpServer, func(), error) {
		srv, cleanup, err := bootstrap.NewServer()
		if err != nil {
			return nil, nil, err
		}
		return boundServer{srv}, cleanup, nil
	}, sigCh, zlog.Logger))
}
