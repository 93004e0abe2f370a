// Package budget derives per-trip budget reports from stored expenses.
// It is pure computation: no I/O, no clock, and it never panics on
// malformed rows coming out of the database.
package budget

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wanderplan/wanderplan-go/internal/domain"
)

// Defaults applied to expenses without a category.
const (
	OtherCategoryName  = "Other"
	OtherCategoryColor = "#607D8B"
	OtherCategoryIcon  = "misc"
)

// Window is the trip context a report is computed against.
type Window struct {
	StartDate     time.Time
	EndDate       time.Time
	TotalBudget   *float64
	EstimatedCost *float64
}

// ParseAmount coerces a stored amount into a float64. The column is
// numeric but rows can surface as JSON numbers, integers or numeric
// strings depending on how they were written. Anything unparseable
// (including nil) counts as 0 so a single bad row never poisons a
// report. Negative values pass through unchanged.
func ParseAmount(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Compute builds a budget report for a trip window over its expenses.
// Breakdown entries appear in the order their category is first seen.
func Compute(window Window, expenses []domain.Expense) (*domain.BudgetReport, error) {
	if window.StartDate.IsZero() || window.EndDate.IsZero() {
		return nil, &domain.ErrValidation{Field: "dates", Message: "trip start and end dates are required"}
	}

	var (
		grand   float64
		order   []string
		entries = make(map[string]*domain.BreakdownEntry)
	)
	for _, exp := range expenses {
		amount := ParseAmount(exp.Amount)
		grand += amount

		name, color, icon := OtherCategoryName, OtherCategoryColor, OtherCategoryIcon
		if exp.Category != nil && exp.Category.Name != "" {
			name = exp.Category.Name
			if exp.Category.Color != "" {
				color = exp.Category.Color
			}
			if exp.Category.Icon != "" {
				icon = exp.Category.Icon
			}
		}

		entry, ok := entries[name]
		if !ok {
			entry = &domain.BreakdownEntry{CategoryName: name, Color: color, Icon: icon}
			entries[name] = entry
			order = append(order, name)
		}
		entry.Total += amount
		entry.Count++
		entry.Items = append(entry.Items, exp)
	}

	days := dayCount(window.StartDate, window.EndDate)
	avg := 0.0
	if days > 0 {
		avg = grand / float64(days)
	}

	estimated := grand
	if window.EstimatedCost != nil {
		estimated = *window.EstimatedCost
	}

	report := &domain.BudgetReport{
		GrandTotal:    grand,
		TotalBudget:   window.TotalBudget,
		EstimatedCost: estimated,
		Days:          days,
		AvgCostPerDay: avg,
		IsOverBudget:  window.TotalBudget != nil && grand > *window.TotalBudget,
		Breakdown:     make([]domain.BreakdownEntry, 0, len(order)),
	}
	for _, name := range order {
		report.Breakdown = append(report.Breakdown, *entries[name])
	}
	return report, nil
}

// dayCount is inclusive of both endpoints: a trip starting and ending
// on the same day counts as 1. Windows ending before they start clamp
// to 0 rather than going negative.
func dayCount(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(math.Ceil(end.Sub(start).Hours()/24)) + 1
}
