// Package httpserver defines the lifecycle contract shared by Merak's HTTP servers.
package httpserver

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Server defines the interface for HTTP servers in Merak.
type Server interface {
	// Start binds the listener and begins serving in a background goroutine.
	Start() error

	// Shutdown gracefully stops the server and releases resources.
	Shutdown() error

	// Addr returns the address the server is bound to.
	Addr() string
}

// Run starts srv, calls ready once it is listening, and blocks until ctx is done
// or SIGINT/SIGTERM arrives, then shuts it down.
func Run(ctx context.Context, srv Server, ready func(addr string)) error {
	if err := srv.Start(); err != nil {
		return err
	}
	if ready != nil {
		ready(srv.Addr())
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	return srv.Shutdown()
}
