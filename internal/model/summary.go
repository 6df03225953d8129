package model

// DataSummary is what an account deletion would remove, shown to the user beforehand.
type DataSummary struct {
	Transactions int64 `json:"transactions"`
	Categories   int64 `json:"categories"`
}

// DeletionSummary counts the documents removed by an account deletion.
type DeletionSummary struct {
	User         int64 `json:"user"`
	Transactions int64 `json:"transactions"`
	Categories   int64 `json:"categories"`
}

// CategoryTotal aggregates the transactions of one category.
type CategoryTotal struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// TransactionSummary aggregates a filtered set of transactions.
type TransactionSummary struct {
	ByCategory    map[TransactionType]map[string]CategoryTotal `json:"by_category"`
	TotalIncome   float64                                      `json:"total_income"`
	TotalExpenses float64                                      `json:"total_expenses"`
	Net           float64                                      `json:"net"`
	Count         int                                          `json:"count"`
}
