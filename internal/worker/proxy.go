package worker

import (
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/tasklet/internal/core/logging"
)

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Proxy serves browser requests by replaying them against the origin
// through the host, so pages behind it are controlled by the worker.
type Proxy struct {
	host   *Host
	origin *url.URL
	log    zerolog.Logger
}

// NewProxy creates a proxy forwarding to origin.
func NewProxy(host *Host, origin *url.URL, log zerolog.Logger) *Proxy {
	return &Proxy{
		host:   host,
		origin: origin,
		log:    log,
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := *p.origin
	target.Path = r.URL.Path
	target.RawPath = r.URL.RawPath
	target.RawQuery = r.URL.RawQuery

	id := uuid.NewString()
	ctx := logging.WithRequestID(r.Context(), id)

	out, err := http.NewRequestWithContext(ctx, r.Method, target.String(), r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out.Header = r.Header.Clone()
	out.ContentLength = r.ContentLength
	for _, h := range hopHeaders {
		out.Header.Del(h)
	}

	resp, err := p.host.Fetch(ctx, out)
	if err != nil {
		p.log.Error().Ctx(ctx).Err(err).Str("url", target.String()).Msg("proxy fetch failed")
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		w.Header().Del(h)
	}
	w.Header().Set("X-Request-Id", id)
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		p.log.Debug().Ctx(ctx).Err(err).Msg("proxy copy interrupted")
	}
}
