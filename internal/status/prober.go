// Package status reports whether the network is reachable.
package status

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the probe period used when none is configured.
const DefaultInterval = 5 * time.Second

// Prober checks a URL on a fixed interval and reports online/offline
// transitions.
type Prober struct {
	url      string
	interval time.Duration
	client   *http.Client
	log      zerolog.Logger
}

// NewProber creates a prober for url. client may be nil.
func NewProber(url string, interval time.Duration, client *http.Client, log zerolog.Logger) *Prober {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if client == nil {
		client = &http.Client{Timeout: interval}
	}
	return &Prober{
		url:      url,
		interval: interval,
		client:   client,
		log:      log,
	}
}

// Probe performs a single HEAD request. Any response, whatever its status,
// means the network is reachable.
func (p *Prober) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		p.log.Debug().Err(err).Msg("build probe request")
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// Run probes until ctx is cancelled, calling onChange with the first result
// and then on every transition. It blocks.
func (p *Prober) Run(ctx context.Context, onChange func(online bool)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	online := p.Probe(ctx)
	if ctx.Err() != nil {
		return
	}
	onChange(online)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			next := p.Probe(ctx)
			if ctx.Err() != nil {
				return
			}
			if next != online {
				online = next
				p.log.Info().Bool("online", online).Msg("network status changed")
				onChange(online)
			}
		}
	}
}
