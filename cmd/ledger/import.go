package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/ofx"
)

func importCmd(a *app) *cobra.Command {
	var categories ofx.Categories

	cmd := &cobra.Command{
		Use:   "import <file.ofx|file.qfx>...",
		Short: "Import transactions from OFX/QFX bank statements",
		Long: `Import every line of one or more OFX/QFX statements. Debits become
expenses filed under --expense-category and credits become income filed under
--income-category.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, closeFn, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			importer := ofx.NewImporter(session.Transactions, categories)

			for _, path := range args {
				var bar *progressbar.ProgressBar
				importer.Progress = func(done, total int) {
					if bar == nil {
						bar = cli.NewProgressBar(out, total, "Importing "+path)
					}
					if err := bar.Set(done); err != nil {
						slog.Warn("Failed to update progress bar", "error", err)
					}
				}

				result, err := importFile(cmd, importer, path)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s: %d expense(s), %d income", path, result.Expenses, result.Incomes)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&categories.Expense, "expense-category", ofx.DefaultImportCategories.Expense, "category for imported debits")
	cmd.Flags().StringVar(&categories.Income, "income-category", ofx.DefaultImportCategories.Income, "category for imported credits")
	return cmd
}

func importFile(cmd *cobra.Command, importer *ofx.Importer, path string) (ofx.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ofx.ImportResult{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return importer.Import(cmd.Context(), f)
}
