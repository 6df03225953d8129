package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/database"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// openLedger connects to the configured store. The returned func closes it.
func (a *app) openLedger(ctx context.Context) (*ledger.Ledger, func(), error) {
	store, err := database.Connect(ctx, a.cfg.Database, a.cfg.Collections)
	if err != nil {
		return nil, nil, err
	}
	return ledger.New(store, a.cfg.Categories.Defaults()), func() { _ = store.Close() }, nil
}

// openSession connects and binds the stores to the configured user.
func (a *app) openSession(ctx context.Context) (*ledger.Session, func(), error) {
	userID, err := a.requireUser()
	if err != nil {
		return nil, nil, err
	}
	l, closeFn, err := a.openLedger(ctx)
	if err != nil {
		return nil, nil, err
	}
	session, err := l.Session(ctx, userID)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return session, closeFn, nil
}

func (a *app) requireUser() (string, error) {
	if a.cfg.UserID == "" {
		return "", common.NewUserError(
			"No user selected; run 'ledger login <email>' then pass --user or set LEDGER_USER_ID",
			common.ErrMissingConfig)
	}
	return a.cfg.UserID, nil
}

func parseTypeArg(raw string) (model.TransactionType, error) {
	t, ok := model.ParseTransactionType(raw)
	if !ok {
		return "", fmt.Errorf("%w: type must be Expense or Income, got %q", common.ErrInvalidArgument, raw)
	}
	return t, nil
}

// filterFlags are the transaction filters shared by list and summary.
type filterFlags struct {
	txnType  string
	category string
	from     string
	to       string
	search   string
	min      float64
	max      float64
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.txnType, "type", "", "only Expense or Income")
	cmd.Flags().StringVar(&f.category, "category", "", "only this category")
	cmd.Flags().Float64Var(&f.min, "min", 0, "minimum amount (0 means no minimum)")
	cmd.Flags().Float64Var(&f.max, "max", 0, "maximum amount (0 means no maximum)")
	cmd.Flags().StringVar(&f.from, "from", "", "start date, YYYY-MM-DD for the whole day or an RFC 3339 time")
	cmd.Flags().StringVar(&f.to, "to", "", "end date, YYYY-MM-DD for the whole day or an RFC 3339 time")
	cmd.Flags().StringVar(&f.search, "search", "", "text the description must contain")
}

func (f *filterFlags) build() (*model.TransactionFilter, error) {
	filter := &model.TransactionFilter{
		Category:   f.category,
		SearchText: f.search,
		MinAmount:  f.min,
		MaxAmount:  f.max,
	}
	if f.txnType != "" {
		t, err := parseTypeArg(f.txnType)
		if err != nil {
			return nil, err
		}
		filter.Type = t
	}
	var err error
	if filter.StartDate, err = parseBound("from", f.from); err != nil {
		return nil, err
	}
	if filter.EndDate, err = parseBound("to", f.to); err != nil {
		return nil, err
	}
	return filter, nil
}

func parseBound(name, raw string) (*model.DateBound, error) {
	if raw == "" {
		return nil, nil
	}
	bound, err := model.ParseDateBound(raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: --%s: %w", common.ErrInvalidArgument, name, err)
	}
	return &bound, nil
}

func formatDate(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func formatCount(n int64) string {
	return strconv.FormatInt(n, 10)
}
