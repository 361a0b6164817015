package apps

import (
	"context"
	"fmt"

	"github.com/jongio/vmc/api"
	"github.com/jongio/vmc/bundle"
	"github.com/jongio/vmc/security"
)

// Update uploads the bundle at Options.Path as the new bits of app name and
// commits the app record. Links reaching outside the bundle root abort the
// update before any bits leave the machine.
func (c *Command) Update(ctx context.Context, name string) error {
	app, err := c.app(ctx, name)
	if err != nil {
		return err
	}
	if err := security.CheckLinks(c.options.Path); err != nil {
		return err
	}
	return c.update(ctx, app)
}

// Push creates app name if it does not exist yet and uploads its bits.
func (c *Command) Push(ctx context.Context, name string) error {
	if err := security.CheckLinks(c.options.Path); err != nil {
		return err
	}

	app, err := c.client.App(ctx, name)
	switch {
	case err == nil:
		c.display.Info(fmt.Sprintf("Application '%s' exists, updating", name))
		return c.update(ctx, app)
	case !api.IsNotFound(err):
		return err
	}

	c.display.Info(fmt.Sprintf("Creating Application '%s'", name))
	app = &api.App{
		Name:      name,
		Staging:   api.Staging{Model: c.options.Model},
		URIs:      nonNil(c.options.URIs),
		Instances: c.options.Instances,
		Resources: api.AppResources{Memory: c.options.Memory},
		State:     api.StateStopped,
		Services:  []string{},
		Env:       []string{},
	}
	if err := c.client.CreateApp(ctx, app); err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	c.display.Success("OK")

	return c.update(ctx, app)
}

// update uploads the bits of app, commits its record and restarts it when
// it was running. Containment must already have been checked.
func (c *Command) update(ctx context.Context, app *api.App) error {
	log := c.log.WithApp(app.Name).WithOperation("update")

	if err := c.upload(ctx, app.Name); err != nil {
		return err
	}

	if err := c.client.UpdateApp(ctx, app); err != nil {
		return fmt.Errorf("updating %s: %w", app.Name, err)
	}
	log.Debug("app record committed", "state", app.State)

	if err := c.restartIfStarted(ctx, app); err != nil {
		return err
	}
	c.display.Success(fmt.Sprintf("Application '%s' updated", app.Name))
	return nil
}

// upload skips files the server already has when the bundle is large
// enough to make that worthwhile, and sends the rest.
func (c *Command) upload(ctx context.Context, name string) error {
	log := c.log.WithApp(name).WithOperation("upload")
	root := c.options.Path

	c.display.Info("Uploading Application:")

	entries, err := bundle.Scan(root)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}
	resources, err := bundle.FingerprintsCached(entries, c.sums)
	if err != nil {
		return err
	}

	var known []api.Resource
	if total := bundle.TotalSize(entries); total > c.options.ResourceCheckLimit {
		known, err = c.client.CheckResources(ctx, resources)
		if err != nil {
			return fmt.Errorf("checking resources: %w", err)
		}
		c.display.Info("  Checking for available resources: OK")
		log.Debug("resources matched", "total", len(resources), "cached", len(known))
	}

	archive, err := bundle.Pack(entries, known)
	if err != nil {
		return err
	}
	c.display.Info("  Packing application: OK")

	if err := c.client.UploadApp(ctx, name, archive, known); err != nil {
		return fmt.Errorf("uploading %s: %w", name, err)
	}
	c.display.Info(fmt.Sprintf("  Uploading (%s): OK", formatSize(int64(len(archive)))))
	return nil
}

func formatSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%dB", n)
	case n < 1024*1024:
		return fmt.Sprintf("%dK", n/1024)
	default:
		return fmt.Sprintf("%.1fM", float64(n)/(1024*1024))
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
