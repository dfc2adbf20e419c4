package usage

// BudgetReader reads token budget counters.
type BudgetReader interface {
	DailyUsed() int64
	DailyLimit() int64
	RemainingDaily() int64
	MonthlyUsed() int64
	MonthlyLimit() int64
	RemainingMonthly() int64
}
