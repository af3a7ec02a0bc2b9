package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/24vibes/vibes/apps/container"
	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/user"
)

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	deps   *container.Container // opened on first use
}

func (cli *commandLine) services(ctx context.Context) (*container.Container, error) {
	if cli.deps == nil {
		deps, err := container.New(ctx, cli.conf, cli.logger)
		if err != nil {
			return nil, errors.Wrap(err, "setting up dependencies")
		}
		cli.deps = deps
	}
	return cli.deps, nil
}

func (cli *commandLine) close() error {
	if cli.deps == nil {
		return nil
	}
	return cli.deps.Close()
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         cli.conf.AppName + " administration commands",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(
		cli.migrateCmd(),
		cli.reseedCmd(),
		cli.setAdminCmd(),
		cli.usersCmd(),
		cli.digestCmd(),
	)
	return root
}

func (cli *commandLine) reseedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reseed",
		Short: "Replace the stored colleagues with the bundled roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cli.services(cmd.Context())
			if err != nil {
				return err
			}
			n, err := deps.ColleagueSvc.Reseed(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Reseeded %d colleagues\n", n)
			return nil
		},
	}
}

func (cli *commandLine) setAdminCmd() *cobra.Command {
	var (
		email  string
		revoke bool
	)
	cmd := &cobra.Command{
		Use:   "setadmin",
		Short: "Grant (or revoke) admin rights to a signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cli.services(cmd.Context())
			if err != nil {
				return err
			}
			usr, err := deps.UserSvc.BootstrapAdmin(cmd.Context(), email, !revoke)
			if err != nil {
				return err
			}
			if usr.IsAdmin {
				cmd.Printf("%s is now an admin\n", usr.Email)
			} else {
				cmd.Printf("%s is no longer an admin\n", usr.Email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email the user signed in with")
	cmd.Flags().BoolVar(&revoke, "revoke", false, "revoke admin rights instead of granting them")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (cli *commandLine) usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the signed in users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cli.services(cmd.Context())
			if err != nil {
				return err
			}
			accounts, err := deps.UserSvc.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}
			return printAccounts(cmd.OutOrStdout(), accounts)
		},
	}
}

func printAccounts(w io.Writer, accounts []user.Account) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "EMAIL\tNAME\tADMIN\tACTIVE")
	for _, acc := range accounts {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%t\n", acc.Email, acc.Name(), acc.IsAdmin, acc.IsActive)
	}
	return tw.Flush()
}

func (cli *commandLine) digestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Post this month's leaderboard digest to Slack now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cli.services(cmd.Context())
			if err != nil {
				return err
			}
			if !deps.MessengerSvc.Enabled() {
				return errSlackDisabled
			}
			if err = deps.MessengerSvc.PostDigest(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("Digest posted")
			return nil
		},
	}
}
