package tasklet

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasklet/internal/core/config"
	"github.com/colonyops/tasklet/internal/data/db"
	"github.com/colonyops/tasklet/internal/web"
	"github.com/colonyops/tasklet/internal/worker"
)

func newTestApp(t *testing.T, origin string) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Worker.Origin = origin

	database, err := db.Open(cfg.DataDir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	recordsDB, err := db.OpenRecords(cfg.DataDir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = recordsDB.Close() })

	app, err := NewApp(&cfg, database, recordsDB)
	require.NoError(t, err)
	require.NoError(t, app.Load(context.Background()))
	return app
}

func TestApp_PageLoadGoesThroughWorker(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(web.Handler())
	t.Cleanup(srv.Close)

	app := newTestApp(t, srv.URL+"/")
	require.NoError(t, app.Host.Register(ctx))
	assert.Equal(t, worker.StateActivated, app.Host.State())

	keys, err := app.Buckets.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"todo-pwa-v1"}, keys)

	m, err := web.LoadManifest(ctx, app.Client(), app.Origin)
	require.NoError(t, err)
	assert.Equal(t, "Todo", m.Name)

	srv.Close()

	resp, err := app.Client().Get(srv.URL + "/styles.css")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), ".offline-banner", "shell assets survive the origin going away")

	resp, err = app.Client().Get(srv.URL + "/api/todos")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "오프라인 상태입니다.", string(body))

	require.NoError(t, app.Close(ctx))
}

func TestApp_TasksIndependentOfWorker(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t, "http://127.0.0.1:1/")

	_, ok, err := app.Tasks.Add(ctx, "offline task")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, app.View.Rows(), 1)
	assert.Equal(t, worker.StateParsed, app.Host.State())
}

func TestApp_Resolve(t *testing.T) {
	app := newTestApp(t, "http://127.0.0.1:8080/app/")

	u, err := app.Resolve("./manifest.json")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/app/manifest.json", u.String())

	u, err = app.Resolve("https://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x", u.String())
}
