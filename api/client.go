// Package api is a client for the vmc control plane REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/jongio/vmc/httpclient"
	"github.com/jongio/vmc/logutil"
	"github.com/jongio/vmc/urlutil"
)

// Endpoint paths relative to the target.
const (
	InfoPath      = "/info"
	AppsPath      = "/apps"
	ResourcesPath = "/resources"
	UsersPath     = "/users"
)

// Client talks to a single target.
type Client struct {
	target string
	http   *httpclient.Client
	retry  int
	log    *logutil.ComponentLogger
}

// NewClient creates a client for target. target is normalized; a bare host
// such as "api.vcap.me" becomes "http://api.vcap.me".
func NewClient(target string, hc *httpclient.Client, retry int) (*Client, error) {
	normalized, err := urlutil.NormalizeTarget(target)
	if err != nil {
		return nil, err
	}
	return &Client{
		target: normalized,
		http:   hc,
		retry:  retry,
		log:    logutil.NewLogger("api").WithTarget(normalized),
	}, nil
}

// Target returns the normalized target URL.
func (c *Client) Target() string {
	return c.target
}

func (c *Client) endpoint(path string) string {
	return c.target + path
}

func appPath(name string) string {
	return AppsPath + "/" + url.PathEscape(name)
}

// doJSON sends body as JSON and decodes a 2xx response into out.
// Only idempotent methods are retried.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any, skipAuth bool) error {
	opts := httpclient.RequestOptions{
		Method:   method,
		URL:      c.endpoint(path),
		Scope:    c.target,
		SkipAuth: skipAuth,
	}
	if method == http.MethodGet || method == http.MethodPut {
		opts.Retry = c.retry
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s request: %w", method, path, err)
		}
		opts.Body = data
		opts.ContentType = "application/json"
	}
	return c.do(ctx, opts, out)
}

func (c *Client) do(ctx context.Context, opts httpclient.RequestOptions, out any) error {
	start := time.Now()
	resp, err := c.http.Execute(ctx, opts)
	if err != nil {
		return fmt.Errorf("%s %s: %w", opts.Method, opts.URL, err)
	}
	c.log.Since("request", start, "method", opts.Method, "url", opts.URL, "status", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newHTTPError(resp.StatusCode, resp.Body)
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", opts.Method, opts.URL, err)
	}
	return nil
}

// Login exchanges credentials for an auth token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	path := UsersPath + "/" + url.PathEscape(email) + "/tokens"
	if err := c.doJSON(ctx, http.MethodPost, path, map[string]string{"password": password}, &resp, true); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("login response for %s did not include a token", email)
	}
	return resp.Token, nil
}

// Info returns information about the target.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.doJSON(ctx, http.MethodGet, InfoPath, nil, &info, false); err != nil {
		return nil, err
	}
	return &info, nil
}

// Apps lists the user's applications.
func (c *Client) Apps(ctx context.Context) ([]App, error) {
	var apps []App
	if err := c.doJSON(ctx, http.MethodGet, AppsPath, nil, &apps, false); err != nil {
		return nil, err
	}
	return apps, nil
}

// App fetches a single application. A missing app yields an error matching ErrNotFound.
func (c *Client) App(ctx context.Context, name string) (*App, error) {
	var app App
	if err := c.doJSON(ctx, http.MethodGet, appPath(name), nil, &app, false); err != nil {
		return nil, err
	}
	return &app, nil
}

// CreateApp registers a new application.
func (c *Client) CreateApp(ctx context.Context, app *App) error {
	return c.doJSON(ctx, http.MethodPost, AppsPath, app, nil, false)
}

// UpdateApp replaces the application record.
func (c *Client) UpdateApp(ctx context.Context, app *App) error {
	return c.doJSON(ctx, http.MethodPut, appPath(app.Name), app, nil, false)
}

// DeleteApp removes an application.
func (c *Client) DeleteApp(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodDelete, appPath(name), nil, nil, false)
}

// CheckResources returns the subset of resources the server already holds.
func (c *Client) CheckResources(ctx context.Context, resources []Resource) ([]Resource, error) {
	if resources == nil {
		resources = []Resource{}
	}
	var known []Resource
	if err := c.doJSON(ctx, http.MethodPost, ResourcesPath, resources, &known, false); err != nil {
		return nil, err
	}
	return known, nil
}

// UploadApp uploads the application bits. archive holds the files the server
// does not have; resources lists the files it should take from its cache.
// A nil archive uploads only the resource list.
func (c *Client) UploadApp(ctx context.Context, name string, archive []byte, resources []Resource) error {
	if resources == nil {
		resources = []Resource{}
	}
	resourcesJSON, err := json.Marshal(resources)
	if err != nil {
		return fmt.Errorf("encoding resources: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("_method", "put"); err != nil {
		return err
	}
	if err := w.WriteField("resources", string(resourcesJSON)); err != nil {
		return err
	}
	if archive != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="application"; filename="application.zip"`)
		h.Set("Content-Type", "application/zip")
		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := part.Write(archive); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	return c.do(ctx, httpclient.RequestOptions{
		Method:      http.MethodPost,
		URL:         c.endpoint(appPath(name) + "/application"),
		Scope:       c.target,
		Body:        buf.Bytes(),
		ContentType: w.FormDataContentType(),
		Retry:       c.retry,
	}, nil)
}
