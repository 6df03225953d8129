package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// Adder stores one transaction and returns its identity.
type Adder interface {
	Add(ctx context.Context, txn model.Transaction) (string, error)
}

// Categories names the category each imported type is filed under.
type Categories struct {
	Expense string
	Income  string
}

func (c Categories) forType(t model.TransactionType) string {
	if t == model.TransactionTypeIncome {
		return c.Income
	}
	return c.Expense
}

// DefaultImportCategories files debits under Others and credits under Salary.
var DefaultImportCategories = Categories{Expense: "Others", Income: "Salary"}

// ImportResult counts what an import stored.
type ImportResult struct {
	IDs      []string
	Expenses int
	Incomes  int
}

// Importer parses statements and adds each line through an Adder.
type Importer struct {
	parser     *Parser
	adder      Adder
	categories Categories
	// Progress, when set, is called after each line with the running and total counts.
	Progress func(done, total int)
}

// NewImporter creates an importer. Blank category names fall back to DefaultImportCategories.
func NewImporter(adder Adder, categories Categories) *Importer {
	if strings.TrimSpace(categories.Expense) == "" {
		categories.Expense = DefaultImportCategories.Expense
	}
	if strings.TrimSpace(categories.Income) == "" {
		categories.Income = DefaultImportCategories.Income
	}
	return &Importer{parser: NewParser(), adder: adder, categories: categories}
}

// Import adds every statement line in reader. It stops at the first failed
// add and reports what was stored before it.
func (im *Importer) Import(ctx context.Context, reader io.Reader) (ImportResult, error) {
	var result ImportResult

	entries, err := im.parser.Parse(ctx, reader)
	if err != nil {
		return result, err
	}

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		id, err := im.adder.Add(ctx, model.Transaction{
			Type:        entry.Type,
			Category:    im.categories.forType(entry.Type),
			Amount:      entry.Amount,
			Date:        entry.Date,
			Description: entry.Description,
		})
		if err != nil {
			return result, fmt.Errorf("failed to import %s (%s): %w", entry.FITID, entry.Description, err)
		}

		result.IDs = append(result.IDs, id)
		if entry.Type == model.TransactionTypeIncome {
			result.Incomes++
		} else {
			result.Expenses++
		}
		if im.Progress != nil {
			im.Progress(i+1, len(entries))
		}
	}

	slog.Info("Imported statement", "expenses", result.Expenses, "incomes", result.Incomes)
	return result, nil
}
