package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jongio/vmc/api"
	"github.com/jongio/vmc/apps"
	"github.com/jongio/vmc/browser"
	"github.com/jongio/vmc/cache"
	"github.com/jongio/vmc/cliout"
	"github.com/jongio/vmc/env"
	"github.com/jongio/vmc/keyvault"
	"github.com/jongio/vmc/urlutil"
	"github.com/spf13/cobra"
)

const digestCacheVersion = "1"

func (s *session) command(options apps.Options) *apps.Command {
	options.ResourceCheckLimit = s.cfg.ResourceCheckLimit
	return apps.NewCommand(s.client, options, cliout.Display{})
}

// deploy runs fn with file digests cached under CacheDir when one is set.
func (s *session) deploy(ctx context.Context, options apps.Options, fn func(context.Context, *apps.Command) error) error {
	c := s.command(options)
	if s.cfg.CacheDir == "" {
		return fn(ctx, c)
	}

	sums := cache.NewManager(cache.Options{Dir: s.cfg.CacheDir, Version: digestCacheVersion}).Digests("fingerprints")
	err := fn(ctx, c.WithDigestCache(sums))
	if flushErr := sums.Flush(); flushErr != nil {
		cliout.Warning("Could not save digest cache: %v", flushErr)
	}
	return err
}

func newInfoCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show information about the target and the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := s.client.Info(cmd.Context())
			if err != nil {
				return err
			}
			return cliout.Print(info, func() {
				cliout.Header(info.Description)
				cliout.Label("Target", s.client.Target())
				cliout.Label("Version", fmt.Sprint(info.Version))
				cliout.Label("Build", fmt.Sprint(info.Build))
				if info.User != "" {
					cliout.Label("User", info.User)
				}
				if info.Usage != nil && info.Limits != nil {
					cliout.Label("Memory", fmt.Sprintf("%dM of %dM", info.Usage.Memory, info.Limits.Memory))
					cliout.Label("Apps", fmt.Sprintf("%d of %d", info.Usage.Apps, info.Limits.Apps))
				}
			})
		},
	}
}

func newPushCommand(s *session) *cobra.Command {
	var options apps.Options
	cmd := &cobra.Command{
		Use:   "push <name>",
		Short: "Create an application if needed and upload its bits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.deploy(cmd.Context(), options, func(ctx context.Context, c *apps.Command) error {
				return c.Push(ctx, args[0])
			})
		},
	}
	cmd.Flags().StringVar(&options.Path, "path", ".", "Application directory")
	cmd.Flags().StringSliceVar(&options.URIs, "url", nil, "Application URL (repeatable)")
	cmd.Flags().IntVar(&options.Instances, "instances", 1, "Number of instances")
	cmd.Flags().IntVar(&options.Memory, "mem", 64, "Memory per instance in MB")
	cmd.Flags().StringVar(&options.Model, "model", "", "Staging framework, for example nodejs/1.0")
	return cmd
}

func newUpdateCommand(s *session) *cobra.Command {
	var options apps.Options
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Upload new bits for an existing application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.deploy(cmd.Context(), options, func(ctx context.Context, c *apps.Command) error {
				return c.Update(ctx, args[0])
			})
		},
	}
	cmd.Flags().StringVar(&options.Path, "path", ".", "Application directory")
	return cmd
}

func newEnvCommand(s *session) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "env <name>",
		Short: "List the environment variables of an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := s.command(apps.Options{}).EnvironmentList(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if prefix != "" {
				pairs = env.FromSlice(env.FilterByPrefixSlice(env.ToSlice(pairs), prefix))
			}
			return cliout.Print(pairs, func() {
				if len(pairs) == 0 {
					cliout.Info("No Environment Variables")
					return
				}
				rows := make([]cliout.TableRow, 0, len(pairs))
				for _, p := range pairs {
					rows = append(rows, cliout.TableRow{"Variable": p.Key, "Value": p.Value})
				}
				cliout.Table([]string{"Variable", "Value"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only show variables whose name starts with this prefix (case-insensitive)")
	return cmd
}

func newEnvAddCommand(s *session) *cobra.Command {
	var (
		resolveSecrets bool
		fromFile       string
	)
	cmd := &cobra.Command{
		Use:   "env-add <name> <KEY=VALUE | KEY VALUE>",
		Short: "Add or replace an environment variable",
		Args: func(cmd *cobra.Command, args []string) error {
			if fromFile != "" {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.RangeArgs(2, 3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c := s.command(apps.Options{})
			if resolveSecrets {
				resolver, err := keyvault.NewResolver()
				if err != nil {
					return err
				}
				c.WithSecretResolver(resolver)
			}
			if fromFile != "" {
				return c.EnvironmentLoad(cmd.Context(), args[0], fromFile)
			}
			if len(args) == 3 {
				return c.EnvironmentAdd(cmd.Context(), args[0], args[1], args[2])
			}
			return c.EnvironmentAddToken(cmd.Context(), args[0], args[1])
		},
	}
	cmd.Flags().BoolVar(&resolveSecrets, "resolve-secrets", false, "Resolve Azure Key Vault references before sending the value")
	cmd.Flags().StringVarP(&fromFile, "from-file", "f", "", "Read KEY=VALUE lines from a dotenv file")
	return cmd
}

func newEnvDelCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "env-del <name> <KEY>",
		Short: "Delete an environment variable",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.command(apps.Options{}).EnvironmentDel(cmd.Context(), args[0], args[1])
		},
	}
}

func newOpenCommand(s *session) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "open <name>",
		Short: "Open an application's first URL in the browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !browser.IsValid(target) {
				return fmt.Errorf("invalid --browser %q (valid: %s)", target, browser.FormatValidTargets())
			}
			app, err := s.client.App(cmd.Context(), args[0])
			if err != nil {
				if api.IsNotFound(err) {
					return &apps.NotFoundError{Name: args[0]}
				}
				return err
			}
			if len(app.URIs) == 0 {
				return fmt.Errorf("application '%s' has no URLs", app.Name)
			}
			u, err := urlutil.AppURL(app.URIs[0])
			if err != nil {
				return err
			}
			cliout.Info("Opening %s", u)
			return browser.Launch(browser.LaunchOptions{URL: u, Target: browser.Target(target)})
		},
	}
	cmd.Flags().StringVar(&target, "browser", string(browser.TargetDefault), "Browser target: "+browser.FormatValidTargets())
	return cmd
}

func newAppsCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "apps",
		Short: "List applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := s.client.Apps(cmd.Context())
			if err != nil {
				return err
			}
			return cliout.Print(list, func() {
				if len(list) == 0 {
					cliout.Info("No Applications")
					return
				}
				rows := make([]cliout.TableRow, 0, len(list))
				for _, app := range list {
					rows = append(rows, cliout.TableRow{
						"Application": app.Name,
						"#":           fmt.Sprint(app.Instances),
						"Health":      cliout.Status(app.State),
						"URLS":        strings.Join(app.URIs, ", "),
					})
				}
				cliout.Table([]string{"Application", "#", "Health", "URLS"}, rows)
			})
		},
	}
}

func newDeleteCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.client.DeleteApp(cmd.Context(), args[0]); err != nil {
				if api.IsNotFound(err) {
					return &apps.NotFoundError{Name: args[0]}
				}
				return err
			}
			cliout.Success("Application '%s' deleted", args[0])
			return nil
		},
	}
}
