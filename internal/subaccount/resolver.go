// Package subaccount decides which pool subaccounts an aggregation may query.
package subaccount

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"miner-hosting/internal/auth"
	"miner-hosting/internal/cache"
	"miner-hosting/internal/luxor"
	"miner-hosting/internal/observability"
	"miner-hosting/internal/proxy"
)

// ErrNotConfigured is returned for a tenant without a mapped subaccount.
var ErrNotConfigured = errors.New("subaccount not configured")

// Source records where a resolution came from.
type Source string

const (
	SourceUpstream Source = "upstream"
	SourceCache    Source = "cache"
	SourceDatabase Source = "database"
	SourceTenant   Source = "tenant"
)

const cacheKey = "all"

// Resolution is the set of subaccount names an aggregation is scoped to.
type Resolution struct {
	Names    []string
	Source   Source
	Warnings []string
}

// Lister reads a logical proxy endpoint on behalf of a session.
type Lister interface {
	Get(ctx context.Context, sessionToken, endpoint string, params luxor.Params, out interface{}) error
}

// NameStore lists subaccount names recorded against local users.
type NameStore interface {
	ListExternalSubaccountNames(ctx context.Context) ([]string, error)
}

// Resolver resolves subaccount scope for a caller.
type Resolver struct {
	lister Lister
	users  NameStore
	cache  cache.SubaccountCache
	logger *zap.Logger
}

// NewResolver creates a Resolver. c may be nil to disable caching.
func NewResolver(lister Lister, users NameStore, c cache.SubaccountCache, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		lister: lister,
		users:  users,
		cache:  c,
		logger: logger.Named("subaccount"),
	}
}

// Resolve returns the caller's subaccount scope. Privileged callers get the full
// upstream listing (or the database list when that fails); tenants get their own.
func (r *Resolver) Resolve(ctx context.Context, caller *auth.Caller, sessionToken string) (Resolution, error) {
	if !caller.IsPrivileged() {
		if caller == nil || caller.ExternalSubaccountName == "" {
			return Resolution{}, ErrNotConfigured
		}
		observability.RecordSubaccountResolution(string(SourceTenant))
		return Resolution{Names: []string{caller.ExternalSubaccountName}, Source: SourceTenant}, nil
	}

	if names, ok := r.cached(ctx); ok {
		observability.RecordSubaccountResolution(string(SourceCache))
		return Resolution{Names: names, Source: SourceCache}, nil
	}

	var data proxy.SubaccountsData
	err := r.lister.Get(ctx, sessionToken, proxy.EndpointSubaccounts, nil, &data)
	if err == nil {
		names := namesOf(data.Subaccounts)
		if len(names) > 0 {
			r.store(ctx, names)
			observability.RecordSubaccountResolution(string(SourceUpstream))
			return Resolution{Names: names, Source: SourceUpstream}, nil
		}
	}
	if errors.Is(err, context.Canceled) {
		return Resolution{}, err
	}

	var warning string
	if err != nil {
		warning = "subaccounts: " + err.Error() + "; using database subaccount list"
		r.logger.Warn("upstream subaccount listing failed", zap.Error(err))
	} else {
		warning = "subaccounts: pool returned no subaccounts; using database subaccount list"
	}
	return r.fromDatabase(ctx, warning), nil
}

func (r *Resolver) fromDatabase(ctx context.Context, warning string) Resolution {
	res := Resolution{Names: []string{}, Source: SourceDatabase, Warnings: []string{warning}}
	observability.RecordSubaccountResolution(string(SourceDatabase))

	names, err := r.users.ListExternalSubaccountNames(ctx)
	if err != nil {
		r.logger.Warn("database subaccount listing failed", zap.Error(err))
		res.Warnings = append(res.Warnings, "subaccounts: database fallback failed: "+err.Error())
		return res
	}
	res.Names = dedupe(names)
	return res
}

func (r *Resolver) cached(ctx context.Context) ([]string, bool) {
	if r.cache == nil {
		return nil, false
	}
	names, ok, err := r.cache.Get(ctx, cacheKey)
	if err != nil {
		r.logger.Warn("subaccount cache read failed", zap.Error(err))
		return nil, false
	}
	return names, ok && len(names) > 0
}

func (r *Resolver) store(ctx context.Context, names []string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey, names); err != nil {
		r.logger.Warn("subaccount cache write failed", zap.Error(err))
	}
}

func namesOf(subs []luxor.Subaccount) []string {
	names := make([]string, 0, len(subs))
	for _, s := range subs {
		names = append(names, s.Name)
	}
	return dedupe(names)
}

// dedupe drops blanks and repeats, keeping first-seen order.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
