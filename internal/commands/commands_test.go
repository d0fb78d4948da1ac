package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasklet/internal/core/config"
	"github.com/colonyops/tasklet/internal/core/task"
	"github.com/colonyops/tasklet/internal/data/db"
	"github.com/colonyops/tasklet/internal/data/stores"
	"github.com/colonyops/tasklet/internal/tasklet"
	"github.com/colonyops/tasklet/internal/web"
)

func newTestApp(t *testing.T, origin string) *tasklet.App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	if origin != "" {
		cfg.Worker.Origin = origin
	}

	database, err := db.Open(cfg.DataDir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	recordsDB, err := db.OpenRecords(cfg.DataDir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = recordsDB.Close() })

	app, err := tasklet.NewApp(&cfg, database, recordsDB)
	require.NoError(t, err)
	require.NoError(t, app.Load(context.Background()))
	return app
}

// run builds a fresh command tree so flag destinations start from defaults.
func run(t *testing.T, app *tasklet.App, prompt func() (string, error), args ...string) (string, error) {
	t.Helper()
	out, _, err := runWithStderr(t, app, prompt, args...)
	return out, err
}

func runWithStderr(t *testing.T, app *tasklet.App, prompt func() (string, error), args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	flags := &Flags{DataDir: app.Config.DataDir, Config: app.Config}

	root := &cli.Command{
		Name:           "tasklet",
		Writer:         &out,
		ErrWriter:      &errOut,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}

	add := NewAddCmd(flags, app)
	add.prompt = prompt
	if prompt == nil {
		add.prompt = func() (string, error) { return "", errors.New("no prompt in tests") }
	}

	root = add.Register(root)
	root = NewToggleCmd(flags, app).Register(root)
	root = NewRmCmd(flags, app).Register(root)
	root = NewLsCmd(flags, app).Register(root)
	root = NewCacheCmd(flags, app).Register(root)
	root = NewConfigValidateCmd(flags).Register(root)

	err := root.Run(context.Background(), append([]string{"tasklet"}, args...))
	return out.String(), errOut.String(), err
}

func addTask(t *testing.T, app *tasklet.App, args ...string) int64 {
	t.Helper()
	out, err := run(t, app, nil, append([]string{"add"}, args...)...)
	require.NoError(t, err)
	id, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	require.NoError(t, err)
	return id
}

func listJSON(t *testing.T, app *tasklet.App) []task.Task {
	t.Helper()
	out, err := run(t, app, nil, "ls", "--json")
	require.NoError(t, err)

	var got []task.Task
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	return got
}

func TestAdd(t *testing.T) {
	app := newTestApp(t, "")

	id := addTask(t, app, "buy", "milk")

	got := listJSON(t, app)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "buy milk", got[0].Text)
	assert.False(t, got[0].Completed)
}

func TestAdd_WhitespaceIsNoop(t *testing.T) {
	app := newTestApp(t, "")

	out, stderr, err := runWithStderr(t, app, nil, "add", "   ")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, "Nothing added: task text is empty\n", stderr)
	assert.Empty(t, app.Tasks.Tasks())
}

func TestAdd_Prompt(t *testing.T) {
	app := newTestApp(t, "")

	out, err := run(t, app, func() (string, error) { return "  water plants ", nil }, "add")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	got := app.Tasks.Tasks()
	require.Len(t, got, 1)
	assert.Equal(t, "water plants", got[0].Text)
}

func TestAdd_PromptError(t *testing.T) {
	app := newTestApp(t, "")

	_, err := run(t, app, nil, "add")
	require.Error(t, err)
	assert.Empty(t, app.Tasks.Tasks())
}

func TestLs(t *testing.T) {
	app := newTestApp(t, "")

	first := addTask(t, app, "first")
	second := addTask(t, app, "second")

	out, err := run(t, app, nil, "ls")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], strconv.FormatInt(first, 10))
	assert.Contains(t, lines[0], "first")
	assert.Contains(t, lines[1], strconv.FormatInt(second, 10))
	assert.Contains(t, lines[1], "second")
}

func TestLs_Empty(t *testing.T) {
	app := newTestApp(t, "")

	out, stderr, err := runWithStderr(t, app, nil, "ls")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, "No tasks found\n", stderr)
}

func TestLs_JSONEmptyIsArray(t *testing.T) {
	app := newTestApp(t, "")

	out, err := run(t, app, nil, "ls", "--json")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestToggle(t *testing.T) {
	app := newTestApp(t, "")
	id := addTask(t, app, "walk dog")

	out, err := run(t, app, nil, "toggle", strconv.FormatInt(id, 10))
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(id, 10)+" completed\n", out)
	assert.True(t, listJSON(t, app)[0].Completed)

	out, err = run(t, app, nil, "toggle", strconv.FormatInt(id, 10))
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(id, 10)+" open\n", out)
	assert.False(t, listJSON(t, app)[0].Completed)
}

func TestToggle_Errors(t *testing.T) {
	app := newTestApp(t, "")
	addTask(t, app, "keep me")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown id", args: []string{"toggle", "42"}, want: "task 42 not found"},
		{name: "invalid id", args: []string{"toggle", "abc"}, want: `invalid task id "abc"`},
		{name: "missing id", args: []string{"toggle"}, want: "expected exactly one task id"},
		{name: "rm unknown id", args: []string{"rm", "42"}, want: "task 42 not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, app, nil, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			got := listJSON(t, app)
			require.Len(t, got, 1)
			assert.False(t, got[0].Completed)
		})
	}
}

func TestRm(t *testing.T) {
	app := newTestApp(t, "")

	a := addTask(t, app, "a")
	b := addTask(t, app, "b")
	c := addTask(t, app, "c")

	out, err := run(t, app, nil, "rm", strconv.FormatInt(b, 10))
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(b, 10)+" deleted\n", out)

	got := listJSON(t, app)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].ID)
	assert.Equal(t, c, got[1].ID)
}

func TestAddToggleDelete_LeavesEmptyStorage(t *testing.T) {
	app := newTestApp(t, "")

	id := addTask(t, app, "buy milk")
	_, err := run(t, app, nil, "toggle", strconv.FormatInt(id, 10))
	require.NoError(t, err)
	_, err = run(t, app, nil, "rm", strconv.FormatInt(id, 10))
	require.NoError(t, err)

	raw, err := stores.NewKVStore(app.DB).GetRaw(context.Background(), "todos")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw.Value))

	var stored []task.Task
	require.NoError(t, json.Unmarshal(raw.Value, &stored))
	assert.NotNil(t, stored)
	assert.Empty(t, stored)
}

func newOrigin(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(web.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestCache_InstallShowList(t *testing.T) {
	srv := newOrigin(t)
	app := newTestApp(t, srv.URL+"/")

	out, err := run(t, app, nil, "cache", "install")
	require.NoError(t, err)
	assert.Equal(t, "todo-pwa-v1: 5 of 5 assets cached\n", out)

	out, err = run(t, app, nil, "cache", "show", "./manifest.json")
	require.NoError(t, err)
	assert.Contains(t, out, srv.URL+"/manifest.json")
	assert.Contains(t, out, "Source:       cache")
	assert.Contains(t, out, "Status:       200")
	assert.Contains(t, out, `"name"`)

	out, err = run(t, app, nil, "cache", "ls", "--json")
	require.NoError(t, err)

	var listing struct {
		Buckets []bucketInfo `json:"buckets"`
		Records []recordInfo `json:"records"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listing))
	require.Len(t, listing.Buckets, 1)
	assert.Equal(t, bucketInfo{Name: "todo-pwa-v1", Entries: 5, Current: true}, listing.Buckets[0])
	assert.Empty(t, listing.Records)

	out, err = run(t, app, nil, "cache", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "BUCKET")
	assert.Contains(t, out, "todo-pwa-v1")
}

func TestCache_ShowMiss(t *testing.T) {
	srv := newOrigin(t)
	app := newTestApp(t, srv.URL+"/")

	_, err := run(t, app, nil, "cache", "show", "./nope.js")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not cached")
}

func TestCache_Activate(t *testing.T) {
	ctx := context.Background()
	srv := newOrigin(t)
	app := newTestApp(t, srv.URL+"/")

	_, err := app.Buckets.Open(ctx, "todo-pwa-v0")
	require.NoError(t, err)
	_, err = app.Buckets.Open(ctx, "todo-pwa-v1")
	require.NoError(t, err)

	out, err := run(t, app, nil, "cache", "activate")
	require.NoError(t, err)
	assert.Equal(t, "todo-pwa-v1\n", out)
}

func TestCache_FetchServesFromCacheWhenOffline(t *testing.T) {
	srv := newOrigin(t)
	app := newTestApp(t, srv.URL+"/")

	_, err := run(t, app, nil, "cache", "install")
	require.NoError(t, err)

	srv.Close()

	out, err := run(t, app, nil, "cache", "fetch", "./app.js")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "200 "), out)
	assert.Contains(t, out, "offline")

	out, err = run(t, app, nil, "cache", "fetch", "./data.json")
	require.NoError(t, err)
	assert.Contains(t, out, "오프라인 상태입니다.")
}

func TestConfigValidate(t *testing.T) {
	app := newTestApp(t, "")

	out, err := run(t, app, nil, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	app.Config.Worker.Assets = append(app.Config.Worker.Assets, "http://elsewhere.example/x.js")

	out, err = run(t, app, nil, "config", "validate", "--format", "json")
	require.Error(t, err)

	var report validationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[0].Field, "worker.assets")
	assert.Contains(t, report.Errors[0].Message, "not on origin")
}
