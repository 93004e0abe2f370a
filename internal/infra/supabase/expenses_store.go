package supabase

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wanderplan/wanderplan-go/internal/domain"
)

// ============================================================
// Expenses — expenses + expense_categories tables
// ============================================================

// expenseRow embeds the category via a PostgREST resource join:
// select=*,category:expense_categories(*).
// Amount stays untyped; the budget aggregator coerces it.
type expenseRow struct {
	ID         string       `json:"id"`
	TripID     string       `json:"trip_id"`
	Title      string       `json:"title"`
	Amount     any          `json:"amount"`
	Currency   string       `json:"currency"`
	Category   *categoryRow `json:"category"`
	OccurredOn string       `json:"occurred_on"`
	CreatedAt  string       `json:"created_at"`
}

type categoryRow struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func (r expenseRow) toDomain() domain.Expense {
	e := domain.Expense{
		ID:         r.ID,
		TripID:     r.TripID,
		Title:      r.Title,
		Amount:     r.Amount,
		Currency:   r.Currency,
		OccurredOn: r.OccurredOn,
		CreatedAt:  parseDate(r.CreatedAt),
	}
	if r.Category != nil {
		e.Category = &domain.ExpenseCategory{
			ID:    r.Category.ID,
			Name:  r.Category.Name,
			Color: r.Category.Color,
			Icon:  r.Category.Icon,
		}
	}
	return e
}

func (c *Client) CreateExpense(ctx context.Context, expense *domain.Expense) (*domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateExpense")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", expense.TripID))

	data := map[string]any{
		"id":          uuid.NewString(),
		"trip_id":     expense.TripID,
		"title":       expense.Title,
		"amount":      expense.Amount,
		"currency":    expense.Currency,
		"occurred_on": expense.OccurredOn,
	}
	if expense.Category != nil {
		data["category_id"] = expense.Category.ID
	}

	body, err := c.doPost(ctx, "expenses", data)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/expenses", Err: err}
	}

	rows, err := decodeRows[expenseRow](body, "expense")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("supabase returned no representation for created expense")
	}
	created := rows[0].toDomain()
	if created.Category == nil {
		created.Category = expense.Category
	}
	return &created, nil
}

func (c *Client) ListExpenses(ctx context.Context, tripID string) ([]domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListExpenses")
	defer span.End()
	span.SetAttributes(attribute.String("trip.id", tripID))

	path := fmt.Sprintf("expenses?trip_id=eq.%s&select=*,category:expense_categories(*)&order=created_at.asc", tripID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/expenses", Err: err}
	}
	if empty(body) {
		return []domain.Expense{}, nil
	}

	rows, err := decodeRows[expenseRow](body, "expenses")
	if err != nil {
		return nil, err
	}
	expenses := make([]domain.Expense, 0, len(rows))
	for _, r := range rows {
		expenses = append(expenses, r.toDomain())
	}
	return expenses, nil
}

func (c *Client) GetExpense(ctx context.Context, expenseID string) (*domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetExpense")
	defer span.End()
	span.SetAttributes(attribute.String("expense.id", expenseID))

	path := fmt.Sprintf("expenses?id=eq.%s&select=*,category:expense_categories(*)&limit=1", expenseID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/expenses", Err: err}
	}
	if empty(body) {
		return nil, &domain.ErrNotFound{Resource: "expense", ID: expenseID}
	}

	rows, err := decodeRows[expenseRow](body, "expense")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "expense", ID: expenseID}
	}
	expense := rows[0].toDomain()
	return &expense, nil
}

func (c *Client) DeleteExpense(ctx context.Context, expenseID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteExpense")
	defer span.End()
	span.SetAttributes(attribute.String("expense.id", expenseID))

	if err := c.doDelete(ctx, fmt.Sprintf("expenses?id=eq.%s", expenseID)); err != nil {
		return &domain.ErrExternalService{Service: "supabase/expenses", Err: err}
	}
	return nil
}

func (c *Client) GetCategory(ctx context.Context, categoryID string) (*domain.ExpenseCategory, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCategory")
	defer span.End()

	path := fmt.Sprintf("expense_categories?id=eq.%s&limit=1", categoryID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/expense_categories", Err: err}
	}
	if empty(body) {
		return nil, &domain.ErrNotFound{Resource: "category", ID: categoryID}
	}

	rows, err := decodeRows[categoryRow](body, "category")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "category", ID: categoryID}
	}
	return &domain.ExpenseCategory{
		ID:    rows[0].ID,
		Name:  rows[0].Name,
		Color: rows[0].Color,
		Icon:  rows[0].Icon,
	}, nil
}
