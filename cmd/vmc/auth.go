package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jongio/vmc/api"
	"github.com/jongio/vmc/cliout"
	"github.com/jongio/vmc/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newTargetCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "target [url]",
		Short: "Show or set the control plane target",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cliout.Print(map[string]string{"target": s.client.Target()}, func() {
					cliout.Label("Target", s.client.Target())
				})
			}

			client, err := api.NewClient(args[0], s.http, s.cfg.Retry)
			if err != nil {
				return fmt.Errorf("invalid target: %w", err)
			}
			if _, err := client.Info(cmd.Context()); err != nil {
				return fmt.Errorf("host is not valid: '%s': %w", client.Target(), err)
			}

			target := client.Target()
			if err := config.SaveTarget(s.opts.configPath, target); err != nil {
				return err
			}
			cliout.Success("Successfully targeted to [%s]", target)
			return nil
		},
	}
}

func newLoginCommand(s *session) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Log in to the current target",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())

			email := ""
			if len(args) == 1 {
				email = args[0]
			} else {
				var err error
				if email, err = prompt(in, cmd.OutOrStdout(), "Email: "); err != nil {
					return err
				}
			}
			if email == "" {
				return errors.New("email is required")
			}

			if !cmd.Flags().Changed("passwd") {
				var err error
				if password, err = readPassword(in, cmd.OutOrStdout()); err != nil {
					return err
				}
			}

			token, err := s.client.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := s.tokens.Save(s.client.Target(), token); err != nil {
				return err
			}
			cliout.Success("Successfully logged into [%s]", s.client.Target())
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "passwd", "", "Password (prompted when omitted)")
	return cmd
}

func newLogoutCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the token for the current target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.tokens.Delete(s.client.Target()); err != nil {
				return err
			}
			cliout.Success("Successfully logged out of [%s]", s.client.Target())
			return nil
		},
	}
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	_, _ = fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo from a terminal and falls back to a plain
// line read otherwise.
func readPassword(in *bufio.Reader, out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(in, out, "Password: ")
	}
	_, _ = fmt.Fprint(out, "Password: ")
	b, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}
