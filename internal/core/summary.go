package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by expense category.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// ExpenseOverview is a compact expense summary for a specific year+month.
type ExpenseOverview struct {
	Year       int
	Month      int // 1-12
	Total      decimal.Decimal
	ByCategory []CategoryAmount
}
