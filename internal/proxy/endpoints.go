package proxy

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"miner-hosting/internal/api"
	"miner-hosting/internal/luxor"
)

// Pool is the subset of the pool client the proxy forwards to.
type Pool interface {
	Configured() bool
	GetWorkspace(ctx context.Context) (*luxor.Workspace, error)
	ListAllSubaccounts(ctx context.Context, params luxor.Params) ([]luxor.Subaccount, error)
	CreateSubaccount(ctx context.Context, req luxor.CreateSubaccountRequest) (*luxor.Subaccount, error)
	CreateGroup(ctx context.Context, req luxor.GroupRequest) (*luxor.Group, error)
	UpdateGroup(ctx context.Context, id string, req luxor.GroupRequest) (*luxor.Group, error)
	DeleteGroup(ctx context.Context, id string) error
	GetWorkers(ctx context.Context, currency luxor.Currency, params luxor.Params) (*luxor.WorkersPage, error)
	GetRevenue(ctx context.Context, currency luxor.Currency, params luxor.Params) (*luxor.RevenueReport, error)
	GetHashrateEfficiency(ctx context.Context, currency luxor.Currency, params luxor.Params) (*luxor.HashrateEfficiencySeries, error)
	GetSummary(ctx context.Context, currency luxor.Currency, params luxor.Params) (*luxor.Summary, error)
	GetTransactions(ctx context.Context, currency luxor.Currency, params luxor.Params) (*luxor.TransactionList, error)
}

var _ Pool = (*luxor.Client)(nil)

// Logical endpoint names accepted by the proxy.
const (
	EndpointWorkspace          = "workspace"
	EndpointSubaccounts        = "subaccounts"
	EndpointGroups             = "groups"
	EndpointWorkers            = "workers"
	EndpointRevenue            = "revenue"
	EndpointHashrateEfficiency = "hashrate-efficiency"
	EndpointSummary            = "summary"
	EndpointTransactions       = "transactions"
)

// call is one validated, scoped proxy request.
type call struct {
	method   string
	currency luxor.Currency
	params   luxor.Params
}

// Endpoint describes one logical endpoint.
type Endpoint struct {
	Name             string
	Methods          []string
	RequiresCurrency bool
	AdminOnly        bool
	// Scoped endpoints are filtered by subaccount_names; tenants only see their own.
	Scoped         bool
	RequiredParams []string

	forward func(ctx context.Context, pool Pool, c call) (interface{}, error)
}

// Allows reports whether method is accepted.
func (e Endpoint) Allows(method string) bool {
	for _, m := range e.Methods {
		if m == method {
			return true
		}
	}
	return false
}

var endpoints = map[string]Endpoint{
	EndpointWorkspace: {
		Name:      EndpointWorkspace,
		Methods:   []string{http.MethodGet},
		AdminOnly: true,
		forward: func(ctx context.Context, pool Pool, _ call) (interface{}, error) {
			return pool.GetWorkspace(ctx)
		},
	},
	EndpointSubaccounts: {
		Name:      EndpointSubaccounts,
		Methods:   []string{http.MethodGet, http.MethodPost},
		AdminOnly: true,
		forward:   forwardSubaccounts,
	},
	EndpointGroups: {
		Name:      EndpointGroups,
		Methods:   []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AdminOnly: true,
		forward:   forwardGroups,
	},
	EndpointWorkers: {
		Name:             EndpointWorkers,
		Methods:          []string{http.MethodGet},
		RequiresCurrency: true,
		Scoped:           true,
		forward: func(ctx context.Context, pool Pool, c call) (interface{}, error) {
			return pool.GetWorkers(ctx, c.currency, c.params)
		},
	},
	EndpointRevenue: {
		Name:             EndpointRevenue,
		Methods:          []string{http.MethodGet},
		RequiresCurrency: true,
		Scoped:           true,
		RequiredParams:   []string{"start_date", "end_date"},
		forward: func(ctx context.Context, pool Pool, c call) (interface{}, error) {
			return pool.GetRevenue(ctx, c.currency, c.params)
		},
	},
	EndpointHashrateEfficiency: {
		Name:             EndpointHashrateEfficiency,
		Methods:          []string{http.MethodGet},
		RequiresCurrency: true,
		Scoped:           true,
		RequiredParams:   []string{"start_date", "end_date", "tick_size"},
		forward: func(ctx context.Context, pool Pool, c call) (interface{}, error) {
			return pool.GetHashrateEfficiency(ctx, c.currency, c.params)
		},
	},
	EndpointSummary: {
		Name:             EndpointSummary,
		Methods:          []string{http.MethodGet},
		RequiresCurrency: true,
		Scoped:           true,
		forward: func(ctx context.Context, pool Pool, c call) (interface{}, error) {
			return pool.GetSummary(ctx, c.currency, c.params)
		},
	},
	EndpointTransactions: {
		Name:             EndpointTransactions,
		Methods:          []string{http.MethodGet},
		RequiresCurrency: true,
		Scoped:           true,
		forward: func(ctx context.Context, pool Pool, c call) (interface{}, error) {
			return pool.GetTransactions(ctx, c.currency, c.params)
		},
	},
}

// Lookup returns the logical endpoint registered under name.
func Lookup(name string) (Endpoint, bool) {
	e, ok := endpoints[name]
	return e, ok
}

// Names returns every logical endpoint name, sorted.
func Names() []string {
	names := make([]string, 0, len(endpoints))
	for name := range endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SubaccountsData is the payload of the subaccounts listing.
type SubaccountsData struct {
	Subaccounts []luxor.Subaccount `json:"subaccounts"`
	Total       int                `json:"total"`
}

func forwardSubaccounts(ctx context.Context, pool Pool, c call) (interface{}, error) {
	if c.method == http.MethodPost {
		if c.params["name"] == "" {
			return nil, api.Validation("missing required parameter: name")
		}
		return pool.CreateSubaccount(ctx, luxor.CreateSubaccountRequest{
			Name:    c.params["name"],
			GroupID: c.params["group_id"],
		})
	}

	subs, err := pool.ListAllSubaccounts(ctx, c.params)
	if err != nil {
		return nil, err
	}
	return SubaccountsData{Subaccounts: subs, Total: len(subs)}, nil
}

func forwardGroups(ctx context.Context, pool Pool, c call) (interface{}, error) {
	id := c.params["id"]
	if c.method != http.MethodPost && id == "" {
		return nil, api.Validation("missing required parameter: id")
	}

	req := luxor.GroupRequest{Name: c.params["name"], Type: c.params["type"]}
	switch c.method {
	case http.MethodPost:
		if req.Name == "" {
			return nil, api.Validation("missing required parameter: name")
		}
		return pool.CreateGroup(ctx, req)
	case http.MethodPut, http.MethodPatch:
		return pool.UpdateGroup(ctx, id, req)
	case http.MethodDelete:
		if err := pool.DeleteGroup(ctx, id); err != nil {
			return nil, err
		}
		return map[string]string{"deleted": id}, nil
	}
	return nil, errors.New("unreachable group method " + c.method)
}
