package main

//
//  @title           cryptopulse API
//  @version         1.0
//  @description     Crypto broker ELT pipeline dashboard: trading analytics over continuously refreshed derivations.
//  @termsOfService  https://github.com/guttosm/cryptopulse
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/cryptopulse
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        dashboard
//  @tag.description Read-only crypto trading analytics
//
//  @tag.name        health
//  @tag.description Liveness and readiness checks

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/guttosm/cryptopulse/docs" // swagger docs
	"github.com/guttosm/cryptopulse/internal/logger"
)

var shutdownTimeout = 10 * time.Second

// startServer binds the listening socket and serves router in a separate
// goroutine. Binding happens before it returns, so a busy port is reported to
// the caller; server.Addr holds the bound address (useful with port "0").
func startServer(router http.Handler, port string) (*http.Server, error) {
	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, fmt.Errorf("listen on port %s: %w", port, err)
	}
	server := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// the websocket stream hijacks its connection, so this only bounds JSON responses
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Error().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	return server, nil
}

// gracefulShutdown blocks until SIGINT/SIGTERM is received or ctx is done,
// then drains the server for up to shutdownTimeout and runs cleanup.
//
// cleanup runs even when draining times out.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.L().Info().Str("signal", sig.String()).Msg("shutting down server")
	case <-ctx.Done():
		logger.L().Info().Msg("context done, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		logger.L().Error().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited")
	return err
}

// main is the entry point of the cryptopulse CLI. See newRootCmd for the
// subcommands.
func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
