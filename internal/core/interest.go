// This file implements the Strategy Pattern for interest accrual. Each
// interest method (none, simple-daily, simple-monthly, flat) has its own
// calculator that encapsulates the accrual arithmetic for that method.
//
// Accrued interest is advisory and display-only: it is never persisted, so
// accrual must depend only on its inputs and recomputation is idempotent.
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MethodNone          InterestMethod = "none"
	MethodSimpleDaily   InterestMethod = "simple-daily"
	MethodSimpleMonthly InterestMethod = "simple-monthly"
	MethodFlat          InterestMethod = "flat"
)

// InterestMethod selects how interest accrues on an obligation's balance.
type InterestMethod string

// Valid reports whether the method has a registered calculator.
func (m InterestMethod) Valid() bool {
	_, ok := interestStrategies[m]
	return ok
}

var (
	hundred     = decimal.NewFromInt(100)
	daysInYear  = decimal.NewFromInt(365)
	daysInMonth = decimal.NewFromInt(30)
)

// InterestCalculator is the strategy interface for accruing interest on an
// outstanding balance as of a reference date.
type InterestCalculator interface {
	// Accrue returns the unrounded interest owed on balance at rate
	// (percent) between originDate and asOfDate.
	Accrue(balance, rate decimal.Decimal, originDate, asOfDate time.Time) decimal.Decimal
}

// NoneCalculator accrues nothing.
type NoneCalculator struct{}

func (NoneCalculator) Accrue(_, _ decimal.Decimal, _, _ time.Time) decimal.Decimal {
	return decimal.Zero
}

// SimpleDailyCalculator accrues balance * rate/100 * elapsedDays/365.
type SimpleDailyCalculator struct{}

func (SimpleDailyCalculator) Accrue(balance, rate decimal.Decimal, originDate, asOfDate time.Time) decimal.Decimal {
	days := DaysBetween(originDate, asOfDate)
	if days <= 0 {
		return decimal.Zero
	}
	fraction := decimal.NewFromInt(int64(days)).Div(daysInYear)
	return balance.Mul(rate).Div(hundred).Mul(fraction)
}

// SimpleMonthlyCalculator accrues balance * rate/100 * (months + extraDays/30).
type SimpleMonthlyCalculator struct{}

func (SimpleMonthlyCalculator) Accrue(balance, rate decimal.Decimal, originDate, asOfDate time.Time) decimal.Decimal {
	months, extraDays := MonthsBetween(originDate, asOfDate)
	if months <= 0 && extraDays <= 0 {
		return decimal.Zero
	}
	periods := decimal.NewFromInt(int64(months)).
		Add(decimal.NewFromInt(int64(extraDays)).Div(daysInMonth))
	return balance.Mul(rate).Div(hundred).Mul(periods)
}

// FlatCalculator accrues a one-time balance * rate/100, independent of time.
type FlatCalculator struct{}

func (FlatCalculator) Accrue(balance, rate decimal.Decimal, _, _ time.Time) decimal.Decimal {
	return balance.Mul(rate).Div(hundred)
}

// interestStrategies maps interest methods to their calculators. Unknown or
// malformed method values fall back to no interest rather than erroring.
var interestStrategies = map[InterestMethod]InterestCalculator{
	MethodNone:          NoneCalculator{},
	MethodSimpleDaily:   SimpleDailyCalculator{},
	MethodSimpleMonthly: SimpleMonthlyCalculator{},
	MethodFlat:          FlatCalculator{},
}

// AccrueInterest computes the interest owed on balance as of asOfDate,
// rounded to 2 decimal places (half-up). The result is never negative:
// non-positive balances and rates, unknown methods, and asOfDate before
// originDate all yield zero.
func AccrueInterest(balance, rate decimal.Decimal, method InterestMethod, originDate, asOfDate time.Time) decimal.Decimal {
	if balance.LessThanOrEqual(decimal.Zero) || rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	calc, ok := interestStrategies[method]
	if !ok {
		return decimal.Zero
	}
	interest := calc.Accrue(balance, rate, originDate, asOfDate)
	if interest.IsNegative() {
		return decimal.Zero
	}
	return RoundMoney(interest)
}

// DaysBetween returns the number of whole calendar days from a to b, with
// both dates truncated to UTC midnight. Negative spans clamp to zero.
//
// The single day-count convention used everywhere in this package: a payment
// recorded on the origin date accrues nothing, and partial days never count.
func DaysBetween(a, b time.Time) int {
	a = truncateDay(a)
	b = truncateDay(b)
	if !b.After(a) {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

// MonthsBetween returns whole calendar months from a to b plus the days left
// over past the last whole month boundary. Negative spans clamp to (0, 0).
func MonthsBetween(a, b time.Time) (months, extraDays int) {
	a = truncateDay(a)
	b = truncateDay(b)
	if !b.After(a) {
		return 0, 0
	}
	months = (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	if months < 0 {
		return 0, DaysBetween(a, b)
	}
	boundary := a.AddDate(0, months, 0)
	extraDays = DaysBetween(boundary, b)
	return months, extraDays
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
