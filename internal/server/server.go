package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	shutdownTimeoutConstant     = 10 * time.Second
	readHeaderTimeoutConstant   = 10 * time.Second
	networkConstant             = "tcp"
	addressLogFieldConstant     = "address"
	listeningMessageConstant    = "Acknowledgement server listening"
	shuttingDownMessageConstant = "Acknowledgement server shutting down"
)

// Server serves a handler until its context ends.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer binds handler to address.
func NewServer(address string, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		httpServer: &http.Server{Addr: address, Handler: handler, ReadHeaderTimeout: readHeaderTimeoutConstant},
		logger:     logger,
	}
}

// Run listens and serves until executionContext is cancelled, then shuts down gracefully.
// ready, when not nil, receives the bound address once the listener is open.
func (server *Server) Run(executionContext context.Context, ready chan<- string) error {
	listener, listenError := net.Listen(networkConstant, server.httpServer.Addr)
	if listenError != nil {
		return listenError
	}
	boundAddress := listener.Addr().String()
	server.logger.Info(listeningMessageConstant, zap.String(addressLogFieldConstant, boundAddress))
	if ready != nil {
		ready <- boundAddress
	}

	serveErrors := make(chan error, 1)
	go func() {
		serveErrors <- server.httpServer.Serve(listener)
	}()

	select {
	case serveError := <-serveErrors:
		if errors.Is(serveError, http.ErrServerClosed) {
			return nil
		}
		return serveError
	case <-executionContext.Done():
	}

	server.logger.Info(shuttingDownMessageConstant, zap.String(addressLogFieldConstant, boundAddress))
	shutdownContext, cancel := context.WithTimeout(context.WithoutCancel(executionContext), shutdownTimeoutConstant)
	defer cancel()
	if shutdownError := server.httpServer.Shutdown(shutdownContext); shutdownError != nil {
		return shutdownError
	}
	if serveError := <-serveErrors; serveError != nil && !errors.Is(serveError, http.ErrServerClosed) {
		return serveError
	}
	return nil
}
