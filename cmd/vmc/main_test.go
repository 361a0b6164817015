package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jongio/vmc/api"
	"github.com/jongio/vmc/cliout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTarget is a minimal control plane for driving the CLI end to end.
type fakeTarget struct {
	mu      sync.Mutex
	app     api.App
	puts    []api.App
	uploads int
	deleted bool
	auth    []string
	server  *httptest.Server
}

func newFakeTarget(t *testing.T) *fakeTarget {
	t.Helper()
	ft := &fakeTarget{app: api.App{
		Name:      "foo",
		URIs:      []string{"foo.vcap.me"},
		Instances: 1,
		State:     api.StateStopped,
		Env:       []string{"EXISTING=1"},
	}}
	ft.server = httptest.NewServer(ft)
	t.Cleanup(ft.server.Close)
	return ft
}

func (ft *fakeTarget) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.auth = append(ft.auth, r.Header.Get("AUTHORIZATION"))

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/users/user@example.com/tokens":
		_, _ = w.Write([]byte(`{"token":"04085b0849221261"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/info":
		_, _ = w.Write([]byte(`{"name":"vcap","build":2222,"version":"0.999","description":"VMware's Cloud Application Platform","user":"user@example.com"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/apps":
		_ = json.NewEncoder(w).Encode([]api.App{ft.app})
	case r.Method == http.MethodDelete && r.URL.Path == "/apps/foo":
		ft.deleted = true
	case r.Method == http.MethodGet && r.URL.Path == "/apps/foo":
		_ = json.NewEncoder(w).Encode(ft.app)
	case r.Method == http.MethodPut && r.URL.Path == "/apps/foo":
		var app api.App
		if err := json.NewDecoder(r.Body).Decode(&app); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		ft.puts = append(ft.puts, app)
		ft.app = app
	case r.Method == http.MethodPost && r.URL.Path == "/apps/foo/application":
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		ft.uploads++
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"description":"not found"}`))
	}
}

type harness struct {
	target     *fakeTarget
	configPath string
	tokenPath  string
	cacheDir   string
	out        *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		target:     newFakeTarget(t),
		configPath: filepath.Join(dir, "config.yaml"),
		tokenPath:  filepath.Join(dir, "tokens.json"),
		out:        &bytes.Buffer{},
	}
	h.cacheDir = filepath.Join(dir, "cache")
	cfg := "target: " + h.target.server.URL + "\ntoken_file: " + h.tokenPath + "\ncache_dir: " + h.cacheDir + "\nretry: 0\n"
	require.NoError(t, os.WriteFile(h.configPath, []byte(cfg), 0o644))

	cliout.SetOutput(h.out)
	t.Cleanup(func() {
		cliout.SetOutput(nil)
		_ = cliout.SetFormat("default")
	})
	return h
}

func (h *harness) run(args ...string) error {
	root, s := newRootCommand()
	root.SetArgs(append([]string{"--config", h.configPath, "--no-color"}, args...))
	root.SetIn(strings.NewReader(""))
	root.SetOut(h.out)
	root.SetErr(h.out)
	return execute(context.Background(), root, s)
}

func TestLoginSavesTokenForTarget(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("login", "user@example.com", "--passwd", "secret"))
	assert.Contains(t, h.out.String(), "Successfully logged into")

	data, err := os.ReadFile(h.tokenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "04085b0849221261")

	require.NoError(t, h.run("info"))
	assert.Contains(t, h.out.String(), "VMware's Cloud Application Platform")
	assert.Equal(t, "04085b0849221261", h.target.auth[len(h.target.auth)-1])
}

func TestLogoutForgetsToken(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("login", "user@example.com", "--passwd", "secret"))
	require.NoError(t, h.run("logout"))

	data, err := os.ReadFile(h.tokenPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "04085b0849221261")
}

func TestEnvAddValidKey(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("env-add", "foo", "VALID_KEY55=BAR"))
	require.Len(t, h.target.puts, 1)
	assert.Equal(t, []string{"EXISTING=1", "VALID_KEY55=BAR"}, h.target.puts[0].Env)
}

func TestEnvAddSeparateKeyAndValue(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("env-add", "foo", "KEY", "a=b"))
	require.Len(t, h.target.puts, 1)
	assert.Contains(t, h.target.puts[0].Env, "KEY=a=b")
}

func TestEnvAddInvalidKeyIsReportedWithoutPut(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"VMC_HOGE=BAR", "VCAP_ and VMC_ reserved by system."},
		{"VCAP_HOGE=BAR", "VCAP_ and VMC_ reserved by system."},
		{"USING.PERIOD=BAR", "USING.PERIOD is invalid key. You can use alphabets and numbers and underscore(_)."},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.run("env-add", "foo", tt.token))
			assert.Contains(t, h.out.String(), tt.want)
			assert.Empty(t, h.target.puts)
		})
	}
}

func TestEnvDel(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("env-del", "foo", "EXISTING"))
	require.Len(t, h.target.puts, 1)
	assert.Empty(t, h.target.puts[0].Env)
}

func TestEnvListJSON(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("env", "foo", "--output", "json"))
	assert.Contains(t, h.out.String(), `"key": "EXISTING"`)
	assert.Contains(t, h.out.String(), `"value": "1"`)
}

func TestUnknownAppFails(t *testing.T) {
	h := newHarness(t)

	err := h.run("env", "missing")
	require.Error(t, err)
	assert.Equal(t, "Application 'missing' could not be found", err.Error())
}

func TestOpenWithoutBrowser(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("open", "foo", "--browser", "none"))
	assert.Contains(t, h.out.String(), "http://foo.vcap.me")
}

func TestOpenRejectsUnknownBrowser(t *testing.T) {
	h := newHarness(t)

	err := h.run("open", "foo", "--browser", "lynx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --browser")
}

func TestTargetVerifiesAndSaves(t *testing.T) {
	h := newHarness(t)
	other := newFakeTarget(t)

	require.NoError(t, h.run("target", other.server.URL))
	data, err := os.ReadFile(h.configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), other.server.URL)
	assert.Contains(t, string(data), h.tokenPath)
}

func TestTargetRejectsUnreachableHost(t *testing.T) {
	h := newHarness(t)
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	err := h.run("target", url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is not valid")
}

func TestOutputFlagValidated(t *testing.T) {
	h := newHarness(t)

	err := h.run("info", "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestUpdateUploadsAndCachesDigests(t *testing.T) {
	h := newHarness(t)
	appDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "server.js"), []byte("console.log('hi')"), 0o644))

	require.NoError(t, h.run("update", "foo", "--path", appDir))
	assert.Equal(t, 1, h.target.uploads)
	assert.Len(t, h.target.puts, 1)

	_, err := os.Stat(filepath.Join(h.cacheDir, "fingerprints.json"))
	assert.NoError(t, err)
}

func TestAppsListsTable(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("apps"))
	out := h.out.String()
	assert.Contains(t, out, "foo")
	assert.Contains(t, out, "foo.vcap.me")
}

func TestDeleteApp(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("delete", "foo"))
	assert.True(t, h.target.deleted)

	err := h.run("delete", "missing")
	require.Error(t, err)
	assert.Equal(t, "Application 'missing' could not be found", err.Error())
}

func TestEnvAddFromFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "app.env")
	require.NoError(t, os.WriteFile(path, []byte("DB_HOST=db\nDB_PORT=5432\n"), 0o600))

	require.NoError(t, h.run("env-add", "foo", "--from-file", path))
	require.Len(t, h.target.puts, 1)
	assert.Equal(t, []string{"EXISTING=1", "DB_HOST=db", "DB_PORT=5432"}, h.target.puts[0].Env)

	h.out.Reset()
	require.NoError(t, h.run("env", "foo", "--prefix", "db_", "--output", "json"))
	assert.Contains(t, h.out.String(), "DB_HOST")
	assert.NotContains(t, h.out.String(), "EXISTING")
}

func TestMetricsFileWrittenOnExit(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "metrics", "vmc.prom")

	require.NoError(t, h.run("info", "--metrics-file", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "# TYPE vmc_http_requests_total counter")
	assert.Contains(t, out, `vmc_http_requests_total{code="200",method="GET"}`)
	assert.NotContains(t, out, "go_goroutines", "only request metrics are written")
}

func TestMetricsFileWrittenWhenCommandFails(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "vmc.prom")

	require.Error(t, h.run("env", "missing", "--metrics-file", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `vmc_http_requests_total{code="404",method="GET"}`)
}

func TestNoMetricsFileByDefault(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("info"))
	entries, err := os.ReadDir(filepath.Dir(h.configPath))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".prom")
	}
}
