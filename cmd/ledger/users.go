package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
)

func loginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Log in, creating the account on first use",
		Long: `Find the account for an email address, creating it (with the default
categories) the first time. Deactivated accounts cannot log in.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l, closeFn, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			userID, err := l.Users.Login(ctx, args[0])
			if err != nil {
				return err
			}
			if _, err := l.Session(ctx, userID); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess("Logged in as "+args[0]))
			fmt.Fprintf(out, "export LEDGER_USER_ID=%s\n", userID)
			return nil
		},
	}
}

func userCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the current account",
	}

	cmd.AddCommand(deactivateUserCmd(a))
	cmd.AddCommand(userSummaryCmd(a))
	cmd.AddCommand(deleteUserCmd(a))
	cmd.AddCommand(resumeDeletionsCmd(a))

	return cmd
}

func deactivateUserCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate the account; its data is kept but it can no longer log in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			userID, err := a.requireUser()
			if err != nil {
				return err
			}

			if !yes {
				ok, err := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).Confirm(ctx, "Deactivate this account?")
				if err != nil || !ok {
					return err
				}
			}

			l, closeFn, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := l.Users.Deactivate(ctx, userID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Account deactivated"))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func userSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show how much data the account holds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			l, closeFn, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			user, err := l.Users.Get(ctx, userID)
			if err != nil {
				return err
			}
			summary, err := l.Users.DataSummary(ctx, userID)
			if err != nil {
				return err
			}

			status := "active"
			switch {
			case user.PendingDeletion():
				status = "deletion pending"
			case !user.IsActive:
				status = "deactivated"
			}
			content := fmt.Sprintf("Email:              %s\nStatus:             %s\nTransactions:       %d\nCustom categories:  %d",
				user.Email, status, summary.Transactions, summary.Categories)
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(cli.ChartIcon+" Account", content))
			return nil
		},
	}
}

func deleteUserCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the account with all its transactions and custom categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.requireUser()
			if err != nil {
				return err
			}

			interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := interrupts.HandleInterrupts(cmd.Context(), "ledger user resume")
			out := cmd.OutOrStdout()

			l, closeFn, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			summary, err := l.Users.DataSummary(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf(
				"This deletes %d transaction(s) and %d custom categor(ies). It cannot be undone.",
				summary.Transactions, summary.Categories)))

			if !yes {
				ok, err := cli.NewPrompter(cmd.InOrStdin(), out).Confirm(ctx, "Delete this account?")
				if err != nil || !ok {
					return err
				}
			}

			deleted, err := l.Users.DeleteCascade(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf(
				"Deleted account: %d transaction(s), %d categor(ies)", deleted.Transactions, deleted.Categories)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func resumeDeletionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Finish account deletions that were interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			l, closeFn, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			completed, err := l.Users.ResumeDeletions(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("Completed %d pending deletion(s)", completed)))
			return err
		},
	}
}
