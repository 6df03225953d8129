package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

func transactionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Record and query transactions",
	}

	cmd.AddCommand(addTransactionCmd(a))
	cmd.AddCommand(editTransactionCmd(a))
	cmd.AddCommand(deleteTransactionCmd(a))
	cmd.AddCommand(showTransactionCmd(a))
	cmd.AddCommand(listTransactionsCmd(a))
	cmd.AddCommand(summaryCmd(a))
	cmd.AddCommand(importCmd(a))

	return cmd
}

// transactionFlags are the fields accepted by add and edit.
type transactionFlags struct {
	txnType     string
	category    string
	date        string
	description string
	amount      float64
}

func (f *transactionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.txnType, "type", "", "Expense or Income")
	cmd.Flags().StringVar(&f.category, "category", "", "category name")
	cmd.Flags().Float64Var(&f.amount, "amount", 0, "amount, greater than zero")
	cmd.Flags().StringVar(&f.date, "date", "", "date, YYYY-MM-DD or RFC 3339 (default now)")
	cmd.Flags().StringVar(&f.description, "description", "", "free-form description")
}

func parseDate(raw string) (time.Time, error) {
	bound, err := model.ParseDateBound(raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: --date: %w", common.ErrInvalidArgument, err)
	}
	return bound.Time, nil
}

func addTransactionCmd(a *app) *cobra.Command {
	var f transactionFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			t, err := parseTypeArg(f.txnType)
			if err != nil {
				return err
			}
			date := time.Now()
			if f.date != "" {
				if date, err = parseDate(f.date); err != nil {
					return err
				}
			}

			session, closeFn, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			id, err := session.Transactions.Add(ctx, model.Transaction{
				Type:        t,
				Category:    f.category,
				Amount:      f.amount,
				Date:        date,
				Description: f.description,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Recorded transaction "+id))
			return nil
		},
	}

	f.register(cmd)
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func editTransactionCmd(a *app) *cobra.Command {
	var f transactionFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a transaction; only the flags given are updated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()
			var update model.TransactionUpdate

			if flags.Changed("type") {
				t, err := parseTypeArg(f.txnType)
				if err != nil {
					return err
				}
				update.Type = &t
			}
			if flags.Changed("category") {
				update.Category = &f.category
			}
			if flags.Changed("amount") {
				update.Amount = &f.amount
			}
			if flags.Changed("date") {
				date, err := parseDate(f.date)
				if err != nil {
					return err
				}
				update.Date = &date
			}
			if flags.Changed("description") {
				update.Description = &f.description
			}
			if update.IsEmpty() {
				return fmt.Errorf("%w: nothing to change; pass at least one field flag", common.ErrInvalidArgument)
			}

			session, closeFn, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			changed, err := session.Transactions.Update(ctx, args[0], update)
			if err != nil {
				return err
			}
			if !changed {
				return fmt.Errorf("transaction %q: %w", args[0], common.ErrNotFound)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Updated transaction "+args[0]))
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func deleteTransactionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, closeFn, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			removed, err := session.Transactions.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("transaction %q: %w", args[0], common.ErrNotFound)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted transaction "+args[0]))
			return nil
		},
	}
}

func showTransactionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, closeFn, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			txn, err := session.Transactions.Get(ctx, args[0])
			if err != nil {
				return err
			}
			content := fmt.Sprintf("Date:         %s\nType:         %s\nCategory:     %s\nAmount:       %s\nDescription:  %s\nRecorded:     %s\nModified:     %s",
				formatDate(txn.Date), txn.Type, txn.Category, cli.FormatAmount(txn.Type, txn.Amount),
				txn.Description, formatDate(txn.CreatedAt), formatDate(txn.LastModified))
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Transaction "+txn.ID, content))
			return nil
		},
	}
}

func listTransactionsCmd(a *app) *cobra.Command {
	var (
		f      filterFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			filter, err := f.build()
			if err != nil {
				return err
			}
			session, closeFn, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			txns, err := session.Transactions.Query(ctx, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, txns)
			}
			if len(txns) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No transactions match."))
				return nil
			}

			rows := make([][]string, 0, len(txns))
			for _, txn := range txns {
				rows = append(rows, []string{
					txn.ID, formatDate(txn.Date), string(txn.Type), txn.Category,
					cli.FormatAmount(txn.Type, txn.Amount), txn.Description,
				})
			}
			fmt.Fprintln(out, cli.RenderTable([]string{"ID", "DATE", "TYPE", "CATEGORY", "AMOUNT", "DESCRIPTION"}, rows))
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func summaryCmd(a *app) *cobra.Command {
	var (
		f      filterFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Total income and expenses per category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			filter, err := f.build()
			if err != nil {
				return err
			}
			session, closeFn, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			summary, err := session.Transactions.Summarize(ctx, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, summary)
			}

			var rows [][]string
			for _, t := range model.TransactionTypes {
				names := make([]string, 0, len(summary.ByCategory[t]))
				for name := range summary.ByCategory[t] {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					total := summary.ByCategory[t][name]
					rows = append(rows, []string{string(t), name, fmt.Sprint(total.Count), cli.FormatAmount(t, total.Amount)})
				}
			}
			fmt.Fprintln(out, cli.RenderTable([]string{"TYPE", "CATEGORY", "COUNT", "TOTAL"}, rows))
			fmt.Fprintf(out, "\nIncome %.2f  Expenses %.2f  Net %.2f  (%d transactions)\n",
				summary.TotalIncome, summary.TotalExpenses, summary.Net, summary.Count)
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
