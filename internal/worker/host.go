// Package worker implements the offline cache worker: a request interceptor
// with an install/activate lifecycle that serves cached shell assets
// cache-first and mirrors fetched responses into a structured record store.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/colonyops/tasklet/internal/core/logging"
)

// Handler receives the lifecycle and interception events. The host waits for
// each call to return before moving on.
type Handler interface {
	OnInstall(ctx context.Context) error
	OnActivate(ctx context.Context) error
	OnFetch(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Drainer is implemented by handlers with background work to finish before shutdown.
type Drainer interface {
	Drain(ctx context.Context) error
}

// State is the lifecycle state of a registered worker.
type State int

const (
	StateParsed State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActivated
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "parsed"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	case StateRedundant:
		return "redundant"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Host runs a Handler through its lifecycle and routes requests to it once
// it controls the page. Host implements http.RoundTripper so an http.Client
// can use it as its transport.
type Host struct {
	handler Handler
	network http.RoundTripper
	scope   *Scope
	log     zerolog.Logger

	mu    sync.RWMutex
	state State
}

var _ http.RoundTripper = (*Host)(nil)

// NewHost creates a host. Requests the worker does not control go to network
// (http.DefaultTransport when nil).
func NewHost(handler Handler, scope *Scope, network http.RoundTripper, log zerolog.Logger) *Host {
	if network == nil {
		network = http.DefaultTransport
	}
	return &Host{
		handler: handler,
		network: network,
		scope:   scope,
		log:     log,
	}
}

// State returns the current lifecycle state.
func (h *Host) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

func (h *Host) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
	h.log.Debug().Str("state", s.String()).Msg("worker state changed")
}

// Register installs then activates the worker, waiting for each phase to
// finish. A handler error leaves the worker redundant.
func (h *Host) Register(ctx context.Context) error {
	h.setState(StateInstalling)
	if err := h.handler.OnInstall(ctx); err != nil {
		h.setState(StateRedundant)
		return fmt.Errorf("install worker: %w", err)
	}
	h.setState(StateInstalled)

	h.setState(StateActivating)
	if err := h.handler.OnActivate(ctx); err != nil {
		h.setState(StateRedundant)
		return fmt.Errorf("activate worker: %w", err)
	}
	h.setState(StateActivated)

	h.log.Info().Msg("worker activated")
	return nil
}

// Controls reports whether req would be intercepted by the worker.
func (h *Host) Controls(req *http.Request) bool {
	return h.State() == StateActivated && (h.scope == nil || h.scope.Controls(req.URL))
}

// Fetch sends req through the worker when it controls the request and
// straight to the network otherwise.
func (h *Host) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	if !h.Controls(req) {
		return h.network.RoundTrip(req.WithContext(ctx))
	}
	return h.handler.OnFetch(logging.WithURL(ctx, req.URL.String()), req)
}

// RoundTrip implements http.RoundTripper.
func (h *Host) RoundTrip(req *http.Request) (*http.Response, error) {
	return h.Fetch(req.Context(), req)
}

// Close waits for the handler's background work to finish.
func (h *Host) Close(ctx context.Context) error {
	if d, ok := h.handler.(Drainer); ok {
		return d.Drain(ctx)
	}
	return nil
}
