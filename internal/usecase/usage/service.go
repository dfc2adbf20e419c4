// Package usage reports embedding token consumption against the configured
// budgets.
package usage

import (
	"context"
	"time"
)

// Window is one budget period's usage. Limit 0 means unlimited (Remaining -1).
type Window struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
	Exhausted bool  `json:"exhausted"`
	ResetsAt  int64 `json:"resets_at"` // unix milliseconds
}

// Report is the usage snapshot served over HTTP.
type Report struct {
	Provider string `json:"provider"`
	Daily    Window `json:"daily"`
	Monthly  Window `json:"monthly"`
}

// Service handles usage reporting.
type Service struct {
	br       BudgetReader
	provider string
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader, provider string) *Service {
	return &Service{br: br, provider: provider}
}

// GetReport builds the current usage snapshot.
func (s *Service) GetReport(_ context.Context) Report {
	now := time.Now().UTC()
	dayEnd := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	monthEnd := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)

	report := Report{
		Provider: s.provider,
		Daily:    Window{Remaining: -1, ResetsAt: dayEnd.UnixMilli()},
		Monthly:  Window{Remaining: -1, ResetsAt: monthEnd.UnixMilli()},
	}
	if s.br == nil {
		return report
	}

	report.Daily.Used = s.br.DailyUsed()
	report.Daily.Limit = s.br.DailyLimit()
	report.Daily.Remaining = s.br.RemainingDaily()
	report.Daily.Exhausted = report.Daily.Limit > 0 && report.Daily.Remaining <= 0

	report.Monthly.Used = s.br.MonthlyUsed()
	report.Monthly.Limit = s.br.MonthlyLimit()
	report.Monthly.Remaining = s.br.RemainingMonthly()
	report.Monthly.Exhausted = report.Monthly.Limit > 0 && report.Monthly.Remaining <= 0

	return report
}
