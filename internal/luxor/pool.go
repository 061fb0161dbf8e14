package luxor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// API paths.
const (
	pathWorkspace          = "/v2/workspace"
	pathGroups             = "/v2/workspace/groups"
	pathSubaccounts        = "/v2/pool/subaccounts"
	pathWorkers            = "/v2/pool/workers/"
	pathRevenue            = "/v2/pool/revenue/"
	pathHashrateEfficiency = "/v2/pool/hashrate-efficiency/"
	pathSummary            = "/v2/pool/summary/"
	pathTransactions       = "/v2/pool/transactions/"
)

// GetWorkspace retrieves the workspace owning the API key.
func (c *Client) GetWorkspace(ctx context.Context) (*Workspace, error) {
	var result Workspace
	if err := c.do(ctx, "workspace", http.MethodGet, pathWorkspace, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListSubaccounts retrieves one page of subaccounts.
func (c *Client) ListSubaccounts(ctx context.Context, params Params) (*SubaccountList, error) {
	var result SubaccountList
	if err := c.do(ctx, "subaccounts", http.MethodGet, pathSubaccounts, params, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListAllSubaccounts walks every page until the upstream stops advertising a next page.
func (c *Client) ListAllSubaccounts(ctx context.Context, params Params) ([]Subaccount, error) {
	p := params.Clone()
	p["page_size"] = strconv.Itoa(DefaultPageSize)

	all := make([]Subaccount, 0)
	for page := 1; page <= MaxPages; page++ {
		p["page_number"] = strconv.Itoa(page)

		list, err := c.ListSubaccounts(ctx, p)
		if err != nil {
			return nil, err
		}
		all = append(all, list.Subaccounts...)

		if !list.Pagination.HasNext() {
			return all, nil
		}
	}

	return nil, &SchemaError{
		Endpoint: "subaccounts",
		Reason:   fmt.Sprintf("pagination did not terminate after %d pages", MaxPages),
	}
}

// CreateSubaccount creates a subaccount, optionally inside a group.
func (c *Client) CreateSubaccount(ctx context.Context, req CreateSubaccountRequest) (*Subaccount, error) {
	var result createdSubaccount
	if err := c.do(ctx, "subaccounts", http.MethodPost, pathSubaccounts, nil, req, &result); err != nil {
		return nil, err
	}
	return &result.Subaccount, nil
}

// CreateGroup creates a subaccount group.
func (c *Client) CreateGroup(ctx context.Context, req GroupRequest) (*Group, error) {
	var result Group
	if err := c.do(ctx, "groups", http.MethodPost, pathGroups, nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateGroup renames a subaccount group.
func (c *Client) UpdateGroup(ctx context.Context, id string, req GroupRequest) (*Group, error) {
	var result Group
	if err := c.do(ctx, "groups", http.MethodPut, pathGroups+"/"+url.PathEscape(id), nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteGroup removes a subaccount group.
func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	return c.do(ctx, "groups", http.MethodDelete, pathGroups+"/"+url.PathEscape(id), nil, nil, nil)
}

// GetWorkers retrieves workers and status totals. Filter with subaccount_names, status, page_number, page_size.
func (c *Client) GetWorkers(ctx context.Context, currency Currency, params Params) (*WorkersPage, error) {
	var result WorkersPage
	if err := c.do(ctx, "workers", http.MethodGet, currencyPath(pathWorkers, currency), params, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRevenue retrieves daily revenue. Requires start_date and end_date (YYYY-MM-DD).
func (c *Client) GetRevenue(ctx context.Context, currency Currency, params Params) (*RevenueReport, error) {
	var result RevenueReport
	if err := c.do(ctx, "revenue", http.MethodGet, currencyPath(pathRevenue, currency), params, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetHashrateEfficiency retrieves the hashrate/efficiency series. Requires start_date, end_date and tick_size.
func (c *Client) GetHashrateEfficiency(ctx context.Context, currency Currency, params Params) (*HashrateEfficiencySeries, error) {
	var result HashrateEfficiencySeries
	if err := c.do(ctx, "hashrate-efficiency", http.MethodGet, currencyPath(pathHashrateEfficiency, currency), params, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetSummary retrieves the hashrate/uptime summary.
func (c *Client) GetSummary(ctx context.Context, currency Currency, params Params) (*Summary, error) {
	var result Summary
	if err := c.do(ctx, "summary", http.MethodGet, currencyPath(pathSummary, currency), params, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTransactions retrieves payout and fee transactions.
func (c *Client) GetTransactions(ctx context.Context, currency Currency, params Params) (*TransactionList, error) {
	var result TransactionList
	if err := c.do(ctx, "transactions", http.MethodGet, currencyPath(pathTransactions, currency), params, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func currencyPath(prefix string, currency Currency) string {
	return prefix + url.PathEscape(string(currency))
}
