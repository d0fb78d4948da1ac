// Package tasklet wires the task store and the offline cache worker into
// the application the commands and the TUI consume.
package tasklet

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/colonyops/tasklet/internal/core/config"
	"github.com/colonyops/tasklet/internal/core/logging"
	"github.com/colonyops/tasklet/internal/data/db"
	"github.com/colonyops/tasklet/internal/data/stores"
	"github.com/colonyops/tasklet/internal/render"
	"github.com/colonyops/tasklet/internal/tasks"
	"github.com/colonyops/tasklet/internal/worker"
)

// App is the central entry point for all tasklet operations.
// Commands and TUI consume App instead of cherry-picking raw dependencies.
type App struct {
	Config *config.Config
	Origin *url.URL

	DB        *db.DB
	RecordsDB *db.DB

	View  *render.List
	Tasks *tasks.Manager

	Buckets *stores.BucketStore
	Records *stores.RecordStore
	Metrics *worker.Metrics
	Worker  *worker.Worker
	Host    *worker.Host
}

// NewApp constructs an App from opened databases. The task manager is not
// loaded yet; call Load before reading tasks.
func NewApp(cfg *config.Config, database, recordsDB *db.DB) (*App, error) {
	origin, err := cfg.OriginURL()
	if err != nil {
		return nil, err
	}

	scope, err := worker.NewScope(origin, cfg.Worker.Scope)
	if err != nil {
		return nil, fmt.Errorf("worker scope: %w", err)
	}

	var (
		view    = render.NewList()
		buckets = stores.NewBucketStore(database)
		records = stores.NewRecordStore(recordsDB)
		metrics = worker.NewMetrics()
		queue   = worker.NewQueue(cfg.Worker.QueueWorkers, logging.Component("queue"))
	)

	w := worker.New(worker.Options{
		Version:        cfg.Worker.Version,
		Origin:         origin,
		Assets:         cfg.Worker.Assets,
		OfflineMessage: cfg.Worker.OfflineMessage,
		RecordFallback: cfg.Worker.RecordFallback,
		FetchTimeout:   cfg.Worker.FetchTimeout,
	}, buckets, records, nil, queue, metrics, logging.Component("worker"))

	return &App{
		Config:    cfg,
		Origin:    origin,
		DB:        database,
		RecordsDB: recordsDB,
		View:      view,
		Tasks:     tasks.NewManager(stores.NewKVStore(database), view, logging.Component("tasks")),
		Buckets:   buckets,
		Records:   records,
		Metrics:   metrics,
		Worker:    w,
		Host:      worker.NewHost(w, scope, nil, logging.Component("host")),
	}, nil
}

// Load reads the stored tasks into the manager.
func (a *App) Load(ctx context.Context) error {
	return a.Tasks.Load(ctx)
}

// Client returns an HTTP client whose requests go through the worker host.
func (a *App) Client() *http.Client {
	return &http.Client{Transport: a.Host}
}

// Resolve turns a URL or origin-relative path into an absolute URL.
func (a *App) Resolve(raw string) (*url.URL, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", raw, err)
	}
	return a.Origin.ResolveReference(ref), nil
}

// Close waits for pending worker writes.
func (a *App) Close(ctx context.Context) error {
	return a.Host.Close(ctx)
}
