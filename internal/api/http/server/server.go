package server

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPServer wraps an http.Server with address and lifecycle methods.
type HTTPServer struct {
	server   *http.Server
	certFile string
	keyFile  string
}

// NewHTTPServer creates an HTTPServer serving the given handler on addr.
// When certFile and keyFile are both set the server uses TLS.
func NewHTTPServer(handler http.Handler, addr, certFile, keyFile string) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		certFile: certFile,
		keyFile:  keyFile,
	}
}

// Start starts serving on the configured address. It blocks until the
// server stops and returns nil on graceful shutdown.
func (s *HTTPServer) Start() error {
	var err error
	if s.certFile != "" && s.keyFile != "" {
		err = s.server.ListenAndServeTLS(s.certFile, s.keyFile)
	} else {
		err = s.server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully stops the server, waiting for in-flight requests up to
// the context deadline.
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Address returns the configured listen address.
func (s *HTTPServer) Address() string {
	return s.server.Addr
}
