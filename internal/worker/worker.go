package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/tasklet/internal/core/cache"
)

// DefaultOfflineMessage is the body of the synthesized offline response.
const DefaultOfflineMessage = "오프라인 상태입니다."

// Options configures a Worker.
type Options struct {
	// Version names the current cache generation, e.g. "todo-pwa-v1".
	Version string
	// Origin is the base URL the assets are resolved against.
	Origin *url.URL
	// Assets are the shell paths precached on install.
	Assets []string
	// OfflineMessage replaces DefaultOfflineMessage when set.
	OfflineMessage string
	// RecordFallback makes network failures consult the record store
	// before answering with the offline message.
	RecordFallback bool
	// FetchTimeout bounds each network fetch. Zero means no timeout.
	FetchTimeout time.Duration
}

// Worker is the cache-first request Handler.
type Worker struct {
	opts    Options
	buckets cache.Buckets
	records cache.Records
	client  *http.Client
	queue   *Queue
	metrics *Metrics
	log     zerolog.Logger
}

var (
	_ Handler = (*Worker)(nil)
	_ Drainer = (*Worker)(nil)
)

// New creates a worker. network performs the real fetches
// (http.DefaultTransport when nil); metrics may be nil.
func New(opts Options, buckets cache.Buckets, records cache.Records, network http.RoundTripper, queue *Queue, metrics *Metrics, log zerolog.Logger) *Worker {
	if network == nil {
		network = http.DefaultTransport
	}
	if opts.OfflineMessage == "" {
		opts.OfflineMessage = DefaultOfflineMessage
	}
	return &Worker{
		opts:    opts,
		buckets: buckets,
		records: records,
		client:  &http.Client{Transport: network, Timeout: opts.FetchTimeout},
		queue:   queue,
		metrics: metrics,
		log:     log.With().Str("version", opts.Version).Logger(),
	}
}

// OnInstall precaches every asset into the current bucket. Assets are
// fetched independently: one failure is logged and the rest still land.
// Failures never fail the install.
func (w *Worker) OnInstall(ctx context.Context) error {
	bucket, err := w.buckets.Open(ctx, w.opts.Version)
	if err != nil {
		w.log.Error().Err(err).Msg("install: opening cache bucket failed")
		return nil
	}

	w.log.Info().Int("assets", len(w.opts.Assets)).Msg("install: caching assets")

	var wg sync.WaitGroup
	for _, asset := range w.opts.Assets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := w.precache(ctx, bucket, asset)
			w.metrics.installAsset(err)
			if err != nil {
				w.log.Error().Err(err).Str("asset", asset).Msg("install: caching asset failed")
			}
		}()
	}
	wg.Wait()

	return nil
}

func (w *Worker) precache(ctx context.Context, bucket cache.Cache, asset string) error {
	u, err := w.resolve(asset)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetch %s: unexpected status %d", u, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", u, err)
	}

	return bucket.Put(ctx, cache.Entry{
		URL:    u.String(),
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	})
}

// OnActivate deletes every cache bucket except the current version.
func (w *Worker) OnActivate(ctx context.Context) error {
	names, err := w.buckets.Keys(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("activate: listing cache buckets failed")
		return nil
	}

	for _, name := range names {
		if name == w.opts.Version {
			continue
		}

		w.log.Info().Str("bucket", name).Msg("activate: deleting old cache")
		if _, err := w.buckets.Delete(ctx, name); err != nil {
			w.log.Error().Err(err).Str("bucket", name).Msg("activate: deleting cache failed")
			continue
		}
		w.metrics.bucketEvicted()
	}

	return nil
}

// OnFetch answers from the cache when possible and from the network
// otherwise. Network failures produce the offline response, never an error.
func (w *Worker) OnFetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	key := req.URL.String()

	if req.Method == http.MethodGet {
		entry, err := w.buckets.Match(ctx, key)
		if err == nil {
			w.metrics.cacheLookup(true)
			return entry.Response(req), nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			w.log.Warn().Ctx(ctx).Err(err).Msg("fetch: cache lookup failed")
		}
	}
	w.metrics.cacheLookup(false)

	resp, err := w.client.Do(req.WithContext(ctx))
	if err != nil {
		w.metrics.networkError()
		w.log.Error().Ctx(ctx).Err(err).Msg("fetch: network request failed")
		return w.offline(ctx, req), nil
	}

	if resp.StatusCode != http.StatusOK || !w.sameOrigin(req, resp) {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		w.metrics.networkError()
		w.log.Error().Ctx(ctx).Err(err).Msg("fetch: reading response failed")
		return w.offline(ctx, req), nil
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := cache.Entry{
		URL:    key,
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   bytes.Clone(body),
	}
	w.queue.Go("record "+key, func(ctx context.Context) error {
		err := w.records.Put(ctx, entry)
		w.metrics.recordWrite(err)
		return err
	})

	return resp, nil
}

// Drain waits for pending record writes.
func (w *Worker) Drain(ctx context.Context) error {
	return w.queue.Wait(ctx)
}

func (w *Worker) offline(ctx context.Context, req *http.Request) *http.Response {
	if w.opts.RecordFallback {
		entry, err := w.records.Get(ctx, req.URL.String())
		if err == nil {
			w.metrics.offlineReply("record")
			return entry.Response(req)
		}
		if !errors.Is(err, cache.ErrMiss) {
			w.log.Warn().Err(err).Str("url", req.URL.String()).Msg("fetch: record lookup failed")
		}
	}

	w.metrics.offlineReply("placeholder")
	return cache.Entry{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		Body:   []byte(w.opts.OfflineMessage),
	}.Response(req)
}

// sameOrigin reports whether the final response URL, after redirects, is on
// the worker's origin.
func (w *Worker) sameOrigin(req *http.Request, resp *http.Response) bool {
	final := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	return SameOrigin(final, w.opts.Origin)
}

func (w *Worker) resolve(asset string) (*url.URL, error) {
	ref, err := url.Parse(asset)
	if err != nil {
		return nil, fmt.Errorf("parse asset %q: %w", asset, err)
	}
	return w.opts.Origin.ResolveReference(ref), nil
}
