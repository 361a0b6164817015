package apps

import (
	"context"
	"fmt"

	"github.com/jongio/vmc/api"
	"github.com/jongio/vmc/bundle"
	"github.com/jongio/vmc/env"
	"github.com/jongio/vmc/keyvault"
	"github.com/jongio/vmc/logutil"
)

// Display receives user-facing messages.
type Display interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
}

// Client is the subset of the control plane API the commands use.
type Client interface {
	App(ctx context.Context, name string) (*api.App, error)
	CreateApp(ctx context.Context, app *api.App) error
	UpdateApp(ctx context.Context, app *api.App) error
	CheckResources(ctx context.Context, resources []api.Resource) ([]api.Resource, error)
	UploadApp(ctx context.Context, name string, archive []byte, resources []api.Resource) error
}

// Restarter restarts an application whose record or bits changed.
type Restarter interface {
	Restart(ctx context.Context, app *api.App) error
}

// SecretResolver replaces secret references in environment values.
type SecretResolver interface {
	ResolvePairs(ctx context.Context, pairs []env.EnvPair) ([]env.EnvPair, []keyvault.Warning, error)
}

// Options describe the application being deployed.
type Options struct {
	// Path is the bundle root. Defaults to the working directory.
	Path string

	URIs      []string
	Instances int
	Memory    int
	Model     string

	// ResourceCheckLimit is the bundle size above which the server is asked
	// which files it already caches.
	ResourceCheckLimit int64
}

// NotFoundError reports an application missing on the target.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Application '%s' could not be found", e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return api.ErrNotFound
}

// Command runs application commands against one target.
type Command struct {
	client    Client
	options   Options
	display   Display
	restarter Restarter
	secrets   SecretResolver
	sums      bundle.SumCache
	log       *logutil.ComponentLogger
}

// NewCommand creates a Command. Restarts stop and start the app through
// client unless WithRestarter replaces that.
func NewCommand(client Client, options Options, display Display) *Command {
	if options.Path == "" {
		options.Path = "."
	}
	if options.Instances == 0 {
		options.Instances = 1
	}
	return &Command{
		client:    client,
		options:   options,
		display:   display,
		restarter: &StopStartRestarter{Client: client},
		log:       logutil.NewLogger("apps"),
	}
}

// WithRestarter replaces the restart strategy.
func (c *Command) WithRestarter(r Restarter) *Command {
	c.restarter = r
	return c
}

// WithSecretResolver enables secret resolution for env values.
func (c *Command) WithSecretResolver(r SecretResolver) *Command {
	c.secrets = r
	return c
}

// WithDigestCache reuses file digests from sums when fingerprinting.
func (c *Command) WithDigestCache(sums bundle.SumCache) *Command {
	c.sums = sums
	return c
}

func (c *Command) app(ctx context.Context, name string) (*api.App, error) {
	app, err := c.client.App(ctx, name)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, &NotFoundError{Name: name}
		}
		return nil, err
	}
	return app, nil
}

func (c *Command) restartIfStarted(ctx context.Context, app *api.App) error {
	if app.State != api.StateStarted || c.restarter == nil {
		return nil
	}
	return c.restarter.Restart(ctx, app)
}
