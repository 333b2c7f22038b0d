package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

func (c *Client) ApplicationsTrend(ctx context.Context, token string, q ReportQuery) ([]TrendPoint, error) {
	var out []TrendPoint
	req := authed(http.MethodGet, "/reports/applications-trend", token, nil)
	req.Query = q.values()
	err := c.Do(ctx, req, &out)
	return out, err
}

func (c *Client) CostByDepartment(ctx context.Context, token string, q ReportQuery) ([]DepartmentCost, error) {
	var out []DepartmentCost
	req := authed(http.MethodGet, "/reports/cost-by-department", token, nil)
	req.Query = q.values()
	err := c.Do(ctx, req, &out)
	return out, err
}

func (c *Client) AssetStatusDistribution(ctx context.Context, token string) ([]StatusCount, error) {
	var out []StatusCount
	err := c.Do(ctx, authed(http.MethodGet, "/reports/asset-status-distribution", token, nil), &out)
	return out, err
}

// CopilotQuery asks the analytics assistant a natural-language question.
func (c *Client) CopilotQuery(ctx context.Context, token, question string) (CopilotResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return CopilotResult{}, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	var out CopilotResult
	err := c.Do(ctx, authed(http.MethodPost, "/copilot/query", token, map[string]string{"question": question}), &out)
	return out, err
}

// TotalCost sums a cost-by-department report.
func TotalCost(rows []DepartmentCost) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Cost)
	}
	return total
}
