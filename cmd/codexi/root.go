package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Bhumit267/CodeXi/internal/client/session"
)

const defaultAPIURL = "http://localhost:8080"

type globalOptions struct {
	apiURL      string
	sessionFile string
	verbose     bool
}

// NewRootCmd creates the root command and its subcommands.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "codexi",
		Short:        "CodeXi command-line client",
		SilenceUsage: true,
	}

	apiURL := os.Getenv("CODEXI_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", apiURL, "API base URL (env CODEXI_API_URL)")
	cmd.PersistentFlags().StringVar(&opts.sessionFile, "session-file", "", "token file path (defaults to the user config dir)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log session activity to stderr")

	cmd.AddCommand(
		newSignupCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newRefreshCmd(opts),
		newSolveCmd(opts),
	)
	return cmd
}

// controller builds a session controller for one invocation.
func (o *globalOptions) controller(stderr io.Writer) (*session.Controller, error) {
	var (
		store session.TokenStore
		err   error
	)
	if o.sessionFile != "" {
		store = session.NewFileStore(o.sessionFile)
	} else if store, err = session.DefaultFileStore(); err != nil {
		return nil, err
	}

	log := zerolog.Nop()
	if o.verbose {
		log = zerolog.New(zerolog.ConsoleWriter{Out: stderr}).With().Timestamp().Logger()
	}
	return session.NewController(session.NewAPI(o.apiURL), store, log), nil
}

// restored returns a controller whose persisted session has been restored.
// It fails when no session is stored.
func (o *globalOptions) restored(cmd *cobra.Command) (*session.Controller, error) {
	c, err := o.controller(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	if err := c.Bootstrap(cmd.Context()); err != nil {
		return nil, describe(err)
	}
	if c.State() != session.StateAuthenticated {
		return nil, errors.New("not signed in, run `codexi login` first")
	}
	return c, nil
}

// describe turns API failures into messages fit for a terminal.
func describe(err error) error {
	var apiErr *session.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.RetryAfter > 0:
		return fmt.Errorf("%s (retry in %s)", apiErr.Message, apiErr.RetryAfter)
	case errors.As(err, &apiErr):
		return errors.New(apiErr.Message)
	case errors.Is(err, session.ErrUnavailable):
		return errors.New("the CodeXi API is unreachable, try again later")
	case errors.Is(err, session.ErrUnauthorized):
		return errors.New("session expired, run `codexi login` again")
	case errors.Is(err, context.Canceled):
		return errors.New("cancelled")
	}
	return err
}
