package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Bhumit267/CodeXi/internal/client/session"
	"github.com/Bhumit267/CodeXi/internal/core/domain"
)

func newSignupCmd(opts *globalOptions) *cobra.Command {
	p := session.SignupParams{}

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.controller(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			user, err := c.SignUp(cmd.Context(), p)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! You are signed in.\n", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&p.Username, "username", "", "username (3-20 letters, digits or underscores)")
	cmd.Flags().StringVar(&p.Email, "email", "", "email address")
	cmd.Flags().StringVar(&p.Password, "password", "", "password")
	cmd.Flags().StringVar(&p.FullName, "fullname", "", "full name")
	for _, f := range []string{"username", "email", "password", "fullname"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a username and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.controller(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			user, err := c.SignIn(cmd.Context(), username, password)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.controller(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := c.Bootstrap(cmd.Context()); err != nil {
				// Sign out locally even when the server is unreachable.
				cmd.PrintErrln("warning:", describe(err))
			}
			if err := c.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.restored(cmd)
			if err != nil {
				return err
			}
			user, _ := c.CurrentIdentity()
			printUser(cmd, user)
			return nil
		},
	}
}

func newRefreshCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rotate the stored token pair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.restored(cmd)
			if err != nil {
				return err
			}
			if _, err := c.Refresh(cmd.Context()); err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session refreshed.")
			return nil
		},
	}
}

func newSolveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "solve <slug>",
		Short: "Toggle a problem's solved mark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.restored(cmd)
			if err != nil {
				return err
			}
			solved, err := c.SolveProblem(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Solved problems (%d): %s\n", len(solved), strings.Join(solved, ", "))
			return nil
		},
	}
}

func printUser(cmd *cobra.Command, u *domain.User) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %s\n", "id", u.ID)
	fmt.Fprintf(out, "%-10s %s\n", "username", u.Username)
	fmt.Fprintf(out, "%-10s %s\n", "email", u.Email)
	fmt.Fprintf(out, "%-10s %s\n", "name", u.FullName)
	if u.Provider != "" {
		fmt.Fprintf(out, "%-10s %s\n", "provider", u.Provider)
	}
	fmt.Fprintf(out, "%-10s %d\n", "solved", len(u.SolvedProblems))
}
