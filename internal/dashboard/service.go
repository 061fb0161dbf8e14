// Package dashboard builds the admin dashboard snapshot by merging pool
// statistics, read through the proxy, with local database aggregates.
package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"miner-hosting/internal/auth"
	"miner-hosting/internal/domain"
	"miner-hosting/internal/luxor"
	"miner-hosting/internal/observability"
	"miner-hosting/internal/proxy"
	"miner-hosting/internal/storage"
	"miner-hosting/internal/subaccount"
)

// Unit conversions applied to pool values.
const (
	hashesPerPetahash = 1e15
	percent           = 100
)

// Defaults.
const (
	DefaultCallTimeout   = 30 * time.Second
	DefaultSeriesDays    = 7
	DefaultRevenueWindow = 30 * 24 * time.Hour
	dateLayout           = "2006-01-02"
)

// WarningNoSubaccounts is attached when no subaccount could be resolved.
const WarningNoSubaccounts = "no subaccounts configured"

// Resolver resolves the subaccount scope of an aggregation.
type Resolver interface {
	Resolve(ctx context.Context, caller *auth.Caller, sessionToken string) (subaccount.Resolution, error)
}

// Fetcher reads a logical proxy endpoint on behalf of a session.
type Fetcher interface {
	Get(ctx context.Context, sessionToken, endpoint string, params luxor.Params, out interface{}) error
}

// Stores groups the database collaborators.
type Stores struct {
	Users    storage.UserStore
	Miners   storage.MinerStore
	Spaces   storage.SpaceStore
	Payments storage.PaymentStore
}

// Config controls windows, units and timeouts.
type Config struct {
	Currency luxor.Currency
	// CallTimeout bounds every outbound call.
	CallTimeout time.Duration
	// RevenueSince starts the historical mined-revenue window.
	RevenueSince time.Time
	// ChargesNegative flips the sign of the customer balance and monthly revenue
	// when revenue-bearing payments are stored as negative amounts.
	ChargesNegative bool
}

// Stats describes builds served since start.
type Stats struct {
	Builds       int64     `json:"builds"`
	LastBuildAt  time.Time `json:"last_build_at,omitempty"`
	LastWarnings int       `json:"last_warnings"`
}

// Service builds dashboard snapshots.
type Service struct {
	resolver Resolver
	fetcher  Fetcher
	stores   Stores
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time

	builds       atomic.Int64
	mu           sync.Mutex
	lastBuildAt  time.Time
	lastWarnings int
}

// NewService creates a Service.
func NewService(resolver Resolver, fetcher Fetcher, stores Stores, cfg Config, logger *zap.Logger) *Service {
	if cfg.Currency == "" {
		cfg.Currency = luxor.CurrencyBTC
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		resolver: resolver,
		fetcher:  fetcher,
		stores:   stores,
		cfg:      cfg,
		logger:   logger.Named("dashboard"),
		now:      time.Now,
	}
}

// Stats returns build counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Builds: s.builds.Load(), LastBuildAt: s.lastBuildAt, LastWarnings: s.lastWarnings}
}

// poolResults holds the pool sub-call outcomes of one build.
type poolResults struct {
	workers Result[workerStats]
	summary Result[summaryStats]
	revenue Result[float64]
	series  Result[SeriesStats]
}

// dbResults holds the database sub-call outcomes of one build.
type dbResults struct {
	autoMiners      Result[int]
	inactiveMiners  Result[int]
	deployingMiners Result[int]
	freeSpaces      Result[domain.SpaceTotals]
	usedSpaces      Result[domain.SpaceTotals]
	customers       Result[customerStats]
	balance         Result[decimal.Decimal]
	monthlyRevenue  Result[decimal.Decimal]
}

// Build produces a snapshot for a privileged caller. Sub-call failures become
// warnings; only resolver cancellation is returned as an error.
func (s *Service) Build(ctx context.Context, caller *auth.Caller, sessionToken string) (*domain.DashboardSnapshot, error) {
	start := time.Now()
	now := s.now().UTC()

	res, err := s.resolver.Resolve(ctx, caller, sessionToken)
	if err != nil {
		return nil, err
	}

	var (
		g    errgroup.Group
		pool poolResults
		db   dbResults
	)
	names := res.Names
	if len(names) > 0 {
		s.fetchPool(&g, ctx, sessionToken, names, now, &pool)
	}
	s.fetchDatabase(&g, ctx, now, &db)
	// Goroutines never return errors; failures are carried in results.
	_ = g.Wait()

	snap := merge(names, res.Warnings, pool, db, s.cfg.ChargesNegative)
	snap.GeneratedAt = now

	s.record(snap, time.Since(start))
	return snap, nil
}

func (s *Service) fetchPool(g *errgroup.Group, ctx context.Context, token string, names []string, now time.Time, out *poolResults) {
	scope := luxor.Params{
		"currency":         string(s.cfg.Currency),
		"subaccount_names": strings.Join(names, ","),
	}

	g.Go(func() error {
		pages, err := s.workerPages(ctx, token, scope)
		if err != nil {
			out.workers = failed[workerStats](proxy.EndpointWorkers, err)
			return nil
		}
		out.workers = succeeded(workersFrom(pages))
		return nil
	})

	g.Go(func() error {
		var summary luxor.Summary
		if err := s.get(ctx, token, proxy.EndpointSummary, scope, &summary); err != nil {
			out.summary = failed[summaryStats](proxy.EndpointSummary, err)
			return nil
		}
		out.summary = succeeded(summaryFrom(&summary))
		return nil
	})

	g.Go(func() error {
		params := scope.Clone()
		params["start_date"] = s.revenueSince(now).Format(dateLayout)
		params["end_date"] = now.Format(dateLayout)

		var report luxor.RevenueReport
		if err := s.get(ctx, token, proxy.EndpointRevenue, params, &report); err != nil {
			out.revenue = failed[float64](proxy.EndpointRevenue, err)
			return nil
		}
		out.revenue = succeeded(SumRevenue(report.Revenue))
		return nil
	})

	g.Go(func() error {
		params := scope.Clone()
		params["start_date"] = now.AddDate(0, 0, -DefaultSeriesDays).Format(dateLayout)
		params["end_date"] = now.Format(dateLayout)
		params["tick_size"] = "1d"

		var series luxor.HashrateEfficiencySeries
		if err := s.get(ctx, token, proxy.EndpointHashrateEfficiency, params, &series); err != nil {
			out.series = failed[SeriesStats](proxy.EndpointHashrateEfficiency, err)
			return nil
		}
		out.series = succeeded(SeriesFrom(series.HashrateEfficiency))
		return nil
	})
}

// workerPages walks the workers listing until the pool stops advertising a next page.
func (s *Service) workerPages(ctx context.Context, token string, scope luxor.Params) ([]luxor.WorkersPage, error) {
	params := scope.Clone()
	params["page_size"] = strconv.Itoa(luxor.DefaultPageSize)

	var pages []luxor.WorkersPage
	for n := 1; n <= luxor.MaxPages; n++ {
		params["page_number"] = strconv.Itoa(n)

		var page luxor.WorkersPage
		if err := s.get(ctx, token, proxy.EndpointWorkers, params, &page); err != nil {
			return nil, err
		}
		pages = append(pages, page)

		if !page.Pagination.HasNext() {
			return pages, nil
		}
	}
	return nil, fmt.Errorf("pagination did not terminate after %d pages", luxor.MaxPages)
}

func (s *Service) get(ctx context.Context, token, endpoint string, params luxor.Params, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	if err := s.fetcher.Get(ctx, token, endpoint, params, out); err != nil {
		s.logger.Warn("pool sub-call failed", zap.String("endpoint", endpoint), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) revenueSince(now time.Time) time.Time {
	if !s.cfg.RevenueSince.IsZero() && s.cfg.RevenueSince.Before(now) {
		return s.cfg.RevenueSince
	}
	return now.Add(-DefaultRevenueWindow)
}

func (s *Service) fetchDatabase(g *errgroup.Group, ctx context.Context, now time.Time, out *dbResults) {
	countMiners := func(dst *Result[int], status domain.MinerStatus) {
		g.Go(func() error {
			*dst = dbCall(ctx, s, "miners", func(ctx context.Context) (int, error) {
				return s.stores.Miners.CountByStatus(ctx, status)
			})
			return nil
		})
	}
	countMiners(&out.autoMiners, domain.MinerStatusAuto)
	countMiners(&out.inactiveMiners, domain.MinerStatusInactive)
	countMiners(&out.deployingMiners, domain.MinerStatusDeploying)

	spaceTotals := func(dst *Result[domain.SpaceTotals], status domain.SpaceStatus) {
		g.Go(func() error {
			*dst = dbCall(ctx, s, "spaces", func(ctx context.Context) (domain.SpaceTotals, error) {
				return s.stores.Spaces.TotalsByStatus(ctx, status)
			})
			return nil
		})
	}
	spaceTotals(&out.freeSpaces, domain.SpaceStatusAvailable)
	spaceTotals(&out.usedSpaces, domain.SpaceStatusOccupied)

	g.Go(func() error {
		out.customers = dbCall(ctx, s, "customers", func(ctx context.Context) (customerStats, error) {
			total, err := s.stores.Users.CountByRole(ctx, domain.RoleClient)
			if err != nil {
				return customerStats{}, err
			}
			active, err := s.stores.Users.CountWithMinerStatus(ctx, domain.RoleClient, domain.MinerStatusAuto)
			if err != nil {
				return customerStats{}, err
			}
			return customerStats{total: total, active: active}, nil
		})
		return nil
	})

	g.Go(func() error {
		out.balance = dbCall(ctx, s, "customer balance", s.stores.Payments.Sum)
		return nil
	})

	g.Go(func() error {
		since := now.Add(-DefaultRevenueWindow)
		out.monthlyRevenue = dbCall(ctx, s, "monthly revenue", func(ctx context.Context) (decimal.Decimal, error) {
			return s.stores.Payments.SumByTypesSince(ctx, domain.RevenuePaymentTypes(), since)
		})
		return nil
	})
}

// dbCall runs one aggregate under the call timeout and wraps its outcome.
func dbCall[T any](ctx context.Context, s *Service, source string, fn func(context.Context) (T, error)) Result[T] {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	v, err := fn(ctx)
	if err != nil {
		s.logger.Warn("database aggregate failed", zap.String("aggregate", source), zap.Error(err))
		return failed[T](source, err)
	}
	return succeeded(v)
}

func (s *Service) record(snap *domain.DashboardSnapshot, elapsed time.Duration) {
	s.builds.Add(1)
	s.mu.Lock()
	s.lastBuildAt = snap.GeneratedAt
	s.lastWarnings = len(snap.Warnings)
	s.mu.Unlock()

	observability.RecordDashboardBuild(len(snap.Warnings), elapsed.Seconds())
	for _, w := range snap.Warnings {
		source, _, _ := strings.Cut(w, ":")
		observability.RecordDashboardWarning(source)
	}
}
