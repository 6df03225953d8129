package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

func categoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "Manage income and expense categories",
	}

	cmd.AddCommand(listCategoriesCmd(a))
	cmd.AddCommand(addCategoryCmd(a))
	cmd.AddCommand(renameCategoryCmd(a))
	cmd.AddCommand(deleteCategoryCmd(a))
	cmd.AddCommand(otherCategoriesCmd(a))

	return cmd
}

func listCategoriesCmd(a *app) *cobra.Command {
	var txnType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories with their transaction counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			types := model.TransactionTypes
			if txnType != "" {
				t, err := parseTypeArg(txnType)
				if err != nil {
					return err
				}
				types = []model.TransactionType{t}
			}

			session, closeFn, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			var rows [][]string
			for _, t := range types {
				categories, err := session.Categories.ListByType(ctx, t)
				if err != nil {
					return err
				}
				for _, c := range categories {
					refs, err := session.Categories.CountTransactions(ctx, t, c.Name)
					if err != nil {
						return err
					}
					marker := ""
					if session.Categories.IsDefault(c.Name) {
						marker = "default"
					}
					rows = append(rows, []string{string(t), c.Name, formatCount(refs), marker})
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable([]string{"TYPE", "NAME", "TRANSACTIONS", ""}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&txnType, "type", "", "only Expense or Income")
	return cmd
}

func addCategoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <type> <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := parseTypeArg(args[0])
			if err != nil {
				return err
			}
			session, closeFn, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := session.Categories.Upsert(ctx, t, args[1], "")
			if err != nil {
				return err
			}
			if result.Created {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created %s category %q", t, args[1])))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("%s category %q already exists", t, args[1])))
			}
			return nil
		},
	}
}

func renameCategoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <type> <old> <new>",
		Short: "Rename a category and relink its transactions",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := parseTypeArg(args[0])
			if err != nil {
				return err
			}
			session, closeFn, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := session.Categories.Upsert(ctx, t, args[2], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Renamed %q to %q, relinked %d transaction(s)", args[1], args[2], result.Relinked)))
			return nil
		},
	}
}

func deleteCategoryCmd(a *app) *cobra.Command {
	var (
		strategyName string
		target       string
	)

	cmd := &cobra.Command{
		Use:   "delete <type> <name>",
		Short: "Delete a category",
		Long: `Delete a category. Transactions still filed under it are handled by
--strategy: Block refuses, Reassign moves them to --to, Cascade deletes them.
Without --strategy you are asked when the category is in use.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := parseTypeArg(args[0])
			if err != nil {
				return err
			}
			name := args[1]

			session, closeFn, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			strategy := model.StrategyBlock
			switch {
			case strategyName != "":
				parsed, ok := model.ParseDeleteStrategy(strategyName)
				if !ok {
					return fmt.Errorf("%w: --strategy must be Block, Reassign or Cascade", common.ErrInvalidArgument)
				}
				strategy = parsed
			default:
				refs, err := session.Categories.CountTransactions(ctx, t, name)
				if err != nil {
					return err
				}
				if refs > 0 {
					others, err := session.Categories.OtherCategories(ctx, t, name)
					if err != nil {
						return err
					}
					prompter := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
					if strategy, target, err = prompter.ChooseDeleteStrategy(ctx, name, refs, others); err != nil {
						return err
					}
				}
			}

			result, err := session.Categories.DeleteSafe(ctx, t, name, strategy, target)
			if err != nil {
				return err
			}

			msg := fmt.Sprintf("Deleted %s category %q", t, name)
			switch {
			case result.Reassigned > 0:
				msg += fmt.Sprintf(", moved %d transaction(s) to %q", result.Reassigned, target)
			case result.Cascaded > 0:
				msg += fmt.Sprintf(", deleted %d transaction(s)", result.Cascaded)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
			return nil
		},
	}

	cmd.Flags().StringVar(&strategyName, "strategy", "", "Block, Reassign or Cascade")
	cmd.Flags().StringVar(&target, "to", "", "category to reassign transactions to")
	return cmd
}

func otherCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "others <type> <name>",
		Short: "List the categories a deleted category's transactions could move to",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := parseTypeArg(args[0])
			if err != nil {
				return err
			}
			session, closeFn, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			others, err := session.Categories.OtherCategories(ctx, t, args[1])
			if err != nil {
				return err
			}
			for _, c := range others {
				fmt.Fprintln(cmd.OutOrStdout(), c.Name)
			}
			return nil
		},
	}
}
