// SPDX-License-Identifier: ice License 1.0

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ice-blockchain/wallkit/log"
	"github.com/ice-blockchain/wallkit/storage"
	"github.com/ice-blockchain/wallkit/wallkit"
)

const (
	defaultApplicationYAMLKey = "wallkit"
	defaultStateFile          = ".wallkit/state.json"
)

type (
	app struct {
		applicationYAMLKey string
		stateFile          string
		redis              bool
	}
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

func newRootCommand() *cobra.Command {
	a := new(app)
	root := &cobra.Command{
		Use:           "wallkit",
		Short:         "Wallkit session from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.applicationYAMLKey, "config-key", defaultApplicationYAMLKey, "application.yaml key of the session config")
	root.PersistentFlags().StringVar(&a.stateFile, "state", defaultStateFile, "file that keeps the credentials between runs")
	root.PersistentFlags().BoolVar(&a.redis, "redis", false, "keep the credentials in the configured redis instead of the state file")
	root.AddCommand(a.loginCommand(), a.whoamiCommand(), a.logoutCommand(), a.refreshCommand(), a.accessCommand(), a.resourceCommand())

	return root
}

func (a *app) loginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, out io.Writer, w *wallkit.Wallkit, _ []string) error {
			usr, err := w.Login(ctx, map[string]any{"email": email, "password": password})
			if err != nil {
				return errors.Wrap(err, "login failed")
			}

			return printJSON(out, usr)
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")    //nolint:errcheck // It exists.
	_ = cmd.MarkFlagRequired("password") //nolint:errcheck // It exists.

	return cmd
}

func (a *app) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed in user",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, out io.Writer, w *wallkit.Wallkit, _ []string) error {
			usr, err := w.CheckAuth(ctx)
			if err != nil {
				if errors.Is(err, wallkit.ErrUnauthorized) {
					return errors.New("not signed in")
				}

				return errors.Wrap(err, "failed to check auth")
			}

			return printJSON(out, usr)
		}),
	}
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credentials",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, _ io.Writer, w *wallkit.Wallkit, _ []string) error {
			return errors.Wrap(w.Logout(ctx, true), "logout failed")
		}),
	}
}

func (a *app) refreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored refresh token for a new token",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, out io.Writer, w *wallkit.Wallkit, _ []string) error {
			if _, err := w.RefreshToken(ctx, nil); err != nil {
				return errors.Wrap(err, "refresh failed")
			}

			return printJSON(out, w.Token())
		}),
	}
}

func (a *app) accessCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "access <content-key>",
		Short: "Check whether the signed in user can access a content key",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, out io.Writer, w *wallkit.Wallkit, args []string) error {
			raw, err := w.CheckAccess(ctx, args[0])
			if err != nil {
				return errors.Wrapf(err, "failed to check access to %v", args[0])
			}

			return printJSON(out, raw)
		}),
	}
}

func (a *app) resourceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resource",
		Short: "Print the configured resource",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, out io.Writer, w *wallkit.Wallkit, _ []string) error {
			res, err := w.GetResource(ctx)
			if err != nil {
				return errors.Wrap(err, "failed to get resource")
			}

			return printJSON(out, res)
		}),
	}
}

// run wraps fn with the lifecycle of the session: built from config, initialized, and closed once fn returns.
func (a *app) run(fn func(context.Context, io.Writer, *wallkit.Wallkit, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		backend, closer := a.backend(ctx)
		w, err := wallkit.New(a.applicationYAMLKey, wallkit.WithLocalBackend(backend))
		if err != nil {
			return multierror.Append(errors.Wrap(err, "failed to build session"), closeAll(closer)).ErrorOrNil()
		}
		defer func() {
			err = multierror.Append(err, w.Close(context.WithoutCancel(ctx)), closeAll(closer)).ErrorOrNil()
		}()
		if _, err = w.Init(ctx); err != nil {
			return errors.Wrap(err, "failed to init session")
		}

		return fn(ctx, cmd.OutOrStdout(), w, args)
	}
}

func (a *app) backend(ctx context.Context) (storage.Backend, io.Closer) {
	if a.redis {
		backend, client := storage.MustConnectBackend(ctx, a.applicationYAMLKey)

		return backend, client
	}
	stateFile := a.stateFile
	if !filepath.IsAbs(stateFile) {
		if home, err := os.UserHomeDir(); err == nil && stateFile == defaultStateFile {
			stateFile = filepath.Join(home, stateFile)
		}
	}

	return storage.NewFileBackend(stateFile), nil
}

func closeAll(closer io.Closer) error {
	if closer == nil {
		return nil
	}

	return errors.Wrap(closer.Close(), "failed to close storage")
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode output")
	}
	_, err = out.Write(append(data, '\n'))

	return errors.Wrap(err, "failed to write output")
}
