package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jongio/vmc/api"
	"github.com/jongio/vmc/cliout"
	"github.com/jongio/vmc/config"
	"github.com/jongio/vmc/fileutil"
	"github.com/jongio/vmc/httpclient"
	"github.com/jongio/vmc/logutil"
	"github.com/jongio/vmc/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const breakerTimeout = 30 * time.Second

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	target     string
	output     string
	metrics    string
	debug      bool
	noColor    bool
}

func (o *globalOptions) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.configPath, "config", config.DefaultPath(), "Path to the vmc config file")
	fs.StringVarP(&o.target, "target", "t", "", "Control plane target URL (overrides config)")
	fs.StringVarP(&o.output, "output", "o", "", "Output format: default or json")
	fs.StringVar(&o.metrics, "metrics-file", "", "Write request metrics in Prometheus text format to this file on exit")
	fs.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&o.noColor, "no-color", false, "Disable colored output")
}

// session carries what a command needs once configuration is resolved.
type session struct {
	opts   *globalOptions
	cfg    *config.Config
	tokens *config.TokenStore
	http   *httpclient.Client
	client *api.Client
}

// newRootCommand builds the command tree. The returned session is filled
// in by the root's pre-run hook.
func newRootCommand() (*cobra.Command, *session) {
	opts := &globalOptions{}
	s := &session{opts: opts}
	info := version.New("vmc")

	root := &cobra.Command{
		Use:           "vmc",
		Short:         "Deploy and manage applications on a vmc cloud",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.setup(cmd, info)
		},
	}
	opts.register(root.PersistentFlags())

	root.AddCommand(
		newTargetCommand(s),
		newLoginCommand(s),
		newLogoutCommand(s),
		newInfoCommand(s),
		newAppsCommand(s),
		newDeleteCommand(s),
		newPushCommand(s),
		newUpdateCommand(s),
		newEnvCommand(s),
		newEnvAddCommand(s),
		newEnvDelCommand(s),
		newOpenCommand(s),
		version.NewCommand(info),
	)
	return root, s
}

// execute runs root and then writes request metrics when configured, also
// for commands that failed.
func execute(ctx context.Context, root *cobra.Command, s *session) error {
	err := root.ExecuteContext(ctx)
	if mErr := s.writeMetrics(); mErr != nil {
		if err == nil {
			return mErr
		}
		logutil.Warn("failed to write metrics", "error", mErr)
	}
	return err
}

func (s *session) writeMetrics() error {
	if s.cfg == nil || s.cfg.MetricsFile == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := httpclient.WriteMetrics(&buf, prometheus.DefaultGatherer); err != nil {
		return err
	}
	if err := fileutil.EnsureDir(filepath.Dir(s.cfg.MetricsFile)); err != nil {
		return err
	}
	if err := fileutil.AtomicWriteFile(s.cfg.MetricsFile, buf.Bytes(), fileutil.FilePermission); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", s.cfg.MetricsFile, err)
	}
	return nil
}

// setup loads config, applies flag overrides, and builds the API client.
func (s *session) setup(cmd *cobra.Command, info *version.Info) error {
	cfg, err := config.Load(s.opts.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("target") {
		cfg.Target = s.opts.target
	}
	if flags.Changed("output") {
		cfg.Output = s.opts.output
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = s.opts.metrics
	}
	if flags.Changed("debug") {
		cfg.Debug = s.opts.debug
	}

	logutil.SetupLogger(cfg.Debug, false)
	if err := cliout.SetFormat(cfg.Output); err != nil {
		return err
	}
	if s.opts.noColor {
		cliout.NoColor()
	}

	s.cfg = cfg
	s.tokens = config.NewTokenStore(cfg.TokenFile)

	hc := httpclient.NewClient(s.tokens, cfg.Debug, cfg.Timeout).
		WithRateLimit(cfg.RateLimit).
		WithHeader(httpclient.ProxyUserHeader, cfg.ProxyUser).
		WithHeader("User-Agent", info.UserAgent())
	if cfg.CircuitBreakerFailures > 0 {
		hc.WithCircuitBreaker(cfg.CircuitBreakerFailures, breakerTimeout)
	}

	s.http = hc

	client, err := api.NewClient(cfg.Target, hc, cfg.Retry)
	if err != nil {
		return fmt.Errorf("invalid target: %w", err)
	}
	s.client = client
	logutil.Debug("session ready", "target", client.Target())
	return nil
}
