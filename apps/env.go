package apps

import (
	"context"
	"fmt"

	"github.com/jongio/vmc/env"
)

// EnvironmentAdd sets key=value on app name. An invalid key is reported
// through Display and nothing is sent. An existing key is replaced.
func (c *Command) EnvironmentAdd(ctx context.Context, name, key, value string) error {
	pair, err := env.ValidateEnvKey(key, value)
	if err != nil {
		c.display.Error(err.Error())
		return nil
	}
	return c.addPair(ctx, name, pair)
}

// EnvironmentAddToken is EnvironmentAdd for a single "KEY=VALUE" token.
func (c *Command) EnvironmentAddToken(ctx context.Context, name, token string) error {
	pair, err := env.ValidateEnvToken(token)
	if err != nil {
		c.display.Error(err.Error())
		return nil
	}
	return c.addPair(ctx, name, pair)
}

// EnvironmentLoad sets every variable from the dotenv file at path on app
// name in a single update. Invalid keys are reported and skipped.
func (c *Command) EnvironmentLoad(ctx context.Context, name, path string) error {
	loaded, err := env.LoadFile(path)
	if err != nil {
		return err
	}

	pairs := make([]env.EnvPair, 0, len(loaded))
	for _, p := range loaded {
		if err := p.Validate(); err != nil {
			c.display.Error(err.Error())
			continue
		}
		pairs = append(pairs, p)
	}
	if len(pairs) == 0 {
		c.display.Info(fmt.Sprintf("No valid Environment Variables in %s", path))
		return nil
	}
	return c.addPairs(ctx, name, pairs...)
}

func (c *Command) addPair(ctx context.Context, name string, pair env.EnvPair) error {
	return c.addPairs(ctx, name, pair)
}

func (c *Command) addPairs(ctx context.Context, name string, pairs ...env.EnvPair) error {
	log := c.log.WithApp(name).WithOperation("env-add")

	if c.secrets != nil {
		resolved, warnings, err := c.secrets.ResolvePairs(ctx, pairs)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			c.display.Error(fmt.Sprintf("Could not resolve secret for %s: %v", w.Key, w.Err))
		}
		pairs = resolved
	}

	app, err := c.app(ctx, name)
	if err != nil {
		return err
	}

	for _, pair := range pairs {
		if _, exists := env.Lookup(app.Env, pair.Key); exists {
			c.display.Info(fmt.Sprintf("Updating Environment Variable [%s]", pair.Key))
		} else {
			c.display.Info(fmt.Sprintf("Adding Environment Variable [%s]", pair.Key))
		}
		app.Env = env.Upsert(app.Env, pair)
	}
	if err := c.client.UpdateApp(ctx, app); err != nil {
		return fmt.Errorf("updating %s: %w", name, err)
	}
	log.Debug("environment updated", "count", len(pairs))
	c.display.Success("OK")

	return c.restartIfStarted(ctx, app)
}

// EnvironmentDel removes key from app name. A key that is not set is
// reported through Display and nothing is sent.
func (c *Command) EnvironmentDel(ctx context.Context, name, key string) error {
	app, err := c.app(ctx, name)
	if err != nil {
		return err
	}

	remaining, found := env.Remove(app.Env, key)
	if !found {
		c.display.Error(fmt.Sprintf("Environment Variable [%s] is not set", key))
		return nil
	}

	c.display.Info(fmt.Sprintf("Deleting Environment Variable [%s]", key))
	app.Env = remaining
	if err := c.client.UpdateApp(ctx, app); err != nil {
		return fmt.Errorf("updating %s: %w", name, err)
	}
	c.display.Success("OK")

	return c.restartIfStarted(ctx, app)
}

// EnvironmentList returns the environment of app name.
func (c *Command) EnvironmentList(ctx context.Context, name string) ([]env.EnvPair, error) {
	app, err := c.app(ctx, name)
	if err != nil {
		return nil, err
	}
	return env.FromSlice(app.Env), nil
}
