package types

import (
	"github.com/shopspring/decimal"
)

// FinanceType separates income from expense entries.
type FinanceType string

const (
	FinanceIncome  FinanceType = "income"
	FinanceExpense FinanceType = "expense"
)

func (t FinanceType) Valid() bool {
	return t == FinanceIncome || t == FinanceExpense
}

// Finance is one ledger entry.
type Finance struct {
	ID          int             `json:"id" db:"id"`
	Type        FinanceType     `json:"type" db:"type"`
	Category    string          `json:"category" db:"category"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Date        string          `json:"date" db:"date"`
	Description *string         `json:"description" db:"description"`
	Attachment  *string         `json:"attachment" db:"attachment"`
}

// FinancePatch carries the fields of a partial update. Nil fields are left unchanged.
type FinancePatch struct {
	Type        *FinanceType
	Category    *string
	Amount      *decimal.Decimal
	Date        *string
	Description *string
	Attachment  *string
}

// Empty reports whether the patch changes nothing.
func (p FinancePatch) Empty() bool {
	return p.Type == nil && p.Category == nil && p.Amount == nil &&
		p.Date == nil && p.Description == nil && p.Attachment == nil
}

// MonthlySummary totals one calendar month of the ledger.
type MonthlySummary struct {
	Month   string          `json:"month" db:"month"`
	Income  decimal.Decimal `json:"income" db:"income"`
	Expense decimal.Decimal `json:"expense" db:"expense"`
	Balance decimal.Decimal `json:"balance" db:"balance"`
}
