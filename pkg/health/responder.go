package health

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/core-tools/hsu-bot/pkg/errors"
	"github.com/core-tools/hsu-bot/pkg/logging"
)

const (
	DefaultPort  = 8080
	LivenessPath = "/health"
	livenessBody = "OK"
)

type ResponderOptions struct {
	// Host to bind, empty means all interfaces
	Host string
	// Port to bind, 0 picks an ephemeral port
	Port int
}

// Responder answers liveness probes on its own goroutine. Its state only
// reflects whether the listener is up, not whether the bot is healthy.
type Responder struct {
	options   ResponderOptions
	logger    logging.Logger
	server    *http.Server
	listener  net.Listener
	listening bool
	done      chan struct{}
	mutex     sync.Mutex
}

func NewResponder(options ResponderOptions, logger logging.Logger) *Responder {
	return &Responder{
		options: options,
		logger:  logger,
		server: &http.Server{
			Handler:           Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		done: make(chan struct{}),
	}
}

// Handler returns the stateless liveness handler: GET /health answers 200 "OK",
// everything else 404 with an empty body. The raw request target must equal
// LivenessPath, so a query string or absolute-form target does not match.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.RequestURI != LivenessPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(livenessBody))
	})
}

// Start binds the listener and serves in the background. A bind failure is
// returned and logged; the responder is then permanently unavailable.
func (r *Responder) Start() error {
	address := net.JoinHostPort(r.options.Host, strconv.Itoa(r.options.Port))

	listener, err := net.Listen("tcp", address)
	if err != nil {
		r.logger.Errorf("Health responder failed to bind, address: %s, error: %v", address, err)
		close(r.done)
		return errors.NewNetworkError("failed to bind health responder", err).WithContext("address", address)
	}

	r.mutex.Lock()
	r.listener = listener
	r.listening = true
	r.mutex.Unlock()

	r.logger.Infof("Health responder listening, address: %s, path: %s", listener.Addr().String(), LivenessPath)

	go r.serve(listener)
	return nil
}

func (r *Responder) serve(listener net.Listener) {
	defer close(r.done)

	err := r.server.Serve(listener)

	r.mutex.Lock()
	r.listening = false
	r.mutex.Unlock()

	if err != nil && err != http.ErrServerClosed {
		r.logger.Errorf("Health responder stopped unexpectedly, error: %v", err)
		return
	}
	r.logger.Debugf("Health responder stopped")
}

// Listening reports whether the responder is currently accepting probes
func (r *Responder) Listening() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.listening
}

// Addr returns the bound address, or nil before a successful Start
func (r *Responder) Addr() net.Addr {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Done is closed once the serving goroutine has exited or binding failed
func (r *Responder) Done() <-chan struct{} {
	return r.done
}

// Shutdown stops the server and joins the serving goroutine
func (r *Responder) Shutdown(ctx context.Context) error {
	r.mutex.Lock()
	started := r.listener != nil
	r.mutex.Unlock()

	if !started {
		return nil
	}

	r.logger.Infof("Stopping health responder...")

	if err := r.server.Shutdown(ctx); err != nil {
		_ = r.server.Close()
		return errors.NewCancelledError("health responder shutdown interrupted", err)
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		return errors.NewCancelledError("health responder did not stop in time", ctx.Err())
	}

	r.logger.Infof("Health responder stopped")
	return nil
}
