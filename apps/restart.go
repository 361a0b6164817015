package apps

import (
	"context"
	"fmt"

	"github.com/jongio/vmc/api"
)

// StopStartRestarter restarts an app by writing STOPPED and then STARTED.
type StopStartRestarter struct {
	Client Client
}

// Restart implements Restarter.
func (r *StopStartRestarter) Restart(ctx context.Context, app *api.App) error {
	stopped := *app
	stopped.State = api.StateStopped
	if err := r.Client.UpdateApp(ctx, &stopped); err != nil {
		return fmt.Errorf("stopping %s: %w", app.Name, err)
	}

	started := *app
	started.State = api.StateStarted
	if err := r.Client.UpdateApp(ctx, &started); err != nil {
		return fmt.Errorf("starting %s: %w", app.Name, err)
	}
	return nil
}
