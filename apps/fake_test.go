package apps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jongio/vmc/api"
	"github.com/jongio/vmc/httpclient"
	"github.com/jongio/vmc/testutil"
	"github.com/stretchr/testify/require"
)

// controlPlane is an in-memory control plane serving a single app.
type controlPlane struct {
	t *testing.T

	mu        sync.Mutex
	app       *api.App
	known     []api.Resource
	requests  []string
	puts      []api.App
	resources [][]api.Resource
	uploads   int
}

func newControlPlane(t *testing.T, app *api.App) (*controlPlane, *api.Client) {
	t.Helper()
	cp := &controlPlane{t: t, app: app}
	server := httptest.NewServer(cp)
	t.Cleanup(server.Close)

	hc := httpclient.NewClient(&httpclient.MockTokenProvider{Token: "04085b0849221261"}, false, 5*time.Second)
	client, err := api.NewClient(server.URL, hc, 0)
	require.NoError(t, err)
	return cp, client
}

func (cp *controlPlane) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	cp.requests = append(cp.requests, key)

	appPath := ""
	if cp.app != nil {
		appPath = "/apps/" + cp.app.Name
	}

	switch {
	case r.Method == http.MethodGet && cp.app != nil && r.URL.Path == appPath:
		_ = json.NewEncoder(w).Encode(cp.app)

	case r.Method == http.MethodGet && len(r.URL.Path) > len("/apps/"):
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":301,"description":"Application not found"}`))

	case r.Method == http.MethodPost && r.URL.Path == "/apps":
		var app api.App
		if err := json.NewDecoder(r.Body).Decode(&app); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		cp.app = &app
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodPut && r.URL.Path == appPath:
		var app api.App
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &app); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		cp.puts = append(cp.puts, app)

	case r.Method == http.MethodPost && r.URL.Path == "/resources":
		var sent []api.Resource
		_ = json.NewDecoder(r.Body).Decode(&sent)
		cp.resources = append(cp.resources, sent)
		_ = json.NewEncoder(w).Encode(nonNilResources(cp.known))

	case r.Method == http.MethodPost && r.URL.Path == appPath+"/application":
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		cp.uploads++

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprintf(w, `{"description":"unexpected %s"}`, key)
	}
}

func nonNilResources(r []api.Resource) []api.Resource {
	if r == nil {
		return []api.Resource{}
	}
	return r
}

func (cp *controlPlane) count(method, path string) int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	n := 0
	for _, r := range cp.requests {
		if r == method+" "+path {
			n++
		}
	}
	return n
}

// recordingDisplay captures every message in order.
type recordingDisplay struct {
	infos     []string
	errors    []string
	successes []string
}

func (d *recordingDisplay) Info(msg string)    { d.infos = append(d.infos, msg) }
func (d *recordingDisplay) Success(msg string) { d.successes = append(d.successes, msg) }
func (d *recordingDisplay) Error(msg string)   { d.errors = append(d.errors, msg) }

// recordingRestarter counts restarts without touching the control plane.
type recordingRestarter struct {
	restarted []string
}

func (r *recordingRestarter) Restart(_ context.Context, app *api.App) error {
	r.restarted = append(r.restarted, app.Name)
	return nil
}

func sampleApp() *api.App {
	return &api.App{
		Name:      "foo",
		Staging:   api.Staging{Model: "nodejs/1.0"},
		URIs:      []string{"foo.vcap.me"},
		Instances: 1,
		Resources: api.AppResources{Memory: 64},
		State:     api.StateStarted,
		Services:  []string{},
		Env:       []string{},
	}
}

// nodeAppWithInternalLinks mirrors an npm app whose node_modules/.bin links
// stay inside the root.
func nodeAppWithInternalLinks(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "node_npm")
	testutil.WriteFiles(t, root, map[string]string{
		"app.js":                           "require('express')",
		"package.json":                     `{"name":"foo"}`,
		"node_modules/express/bin/express": "#!/usr/bin/env node",
	})
	testutil.Symlink(t, "../express/bin/express", root, "node_modules/.bin/express")
	return root
}

// appWithExternalLink has a link pointing one level above its root.
func appWithExternalLink(t *testing.T) string {
	t.Helper()
	parent := t.TempDir()
	testutil.WriteFile(t, parent, "secret.txt", "top secret")
	root := filepath.Join(parent, "app_with_external_link")
	testutil.WriteFile(t, root, "app.js", "console.log('hi')")
	testutil.Symlink(t, "../secret.txt", root, "secret.txt")
	return root
}
