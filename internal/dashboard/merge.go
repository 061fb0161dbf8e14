package dashboard

import (
	"github.com/shopspring/decimal"

	"miner-hosting/internal/domain"
	"miner-hosting/internal/luxor"
)

type workerStats struct {
	active         int
	inactive       int
	activeHashrate float64 // PH/s
}

type summaryStats struct {
	hashrate5m  float64 // PH/s
	hashrate24h float64 // PH/s
	uptime24h   float64 // percent
}

type customerStats struct {
	total  int
	active int
}

// SeriesStats summarises a hashrate/efficiency series. All fields are zero for an empty series.
type SeriesStats struct {
	AverageHashrate   float64 // PH/s
	AverageEfficiency float64 // percent
	CurrentEfficiency float64 // percent, last tick
}

// ToPetahash converts H/s to PH/s.
func ToPetahash(hs float64) float64 {
	return hs / hashesPerPetahash
}

// ToPercent converts a fraction to percent.
func ToPercent(fraction float64) float64 {
	return fraction * percent
}

// workersFrom reduces every page of a workers listing. Status totals come
// from the first page; the active hashrate is summed across all pages.
func workersFrom(pages []luxor.WorkersPage) workerStats {
	if len(pages) == 0 {
		return workerStats{}
	}
	stats := workerStats{active: pages[0].TotalActive, inactive: pages[0].TotalInactive}
	var hashrate float64
	for _, page := range pages {
		for _, w := range page.Workers {
			if w.Status == luxor.WorkerStatusActive {
				hashrate += float64(w.Hashrate)
			}
		}
	}
	stats.activeHashrate = ToPetahash(hashrate)
	return stats
}

func summaryFrom(s *luxor.Summary) summaryStats {
	return summaryStats{
		hashrate5m:  ToPetahash(s.Hashrate5m.Float()),
		hashrate24h: ToPetahash(s.Hashrate24h.Float()),
		uptime24h:   ToPercent(s.Uptime24h.Float()),
	}
}

// SeriesFrom averages a hashrate/efficiency series.
func SeriesFrom(points []luxor.HashrateEfficiencyPoint) SeriesStats {
	if len(points) == 0 {
		return SeriesStats{}
	}

	var hashrate, efficiency float64
	for _, p := range points {
		hashrate += float64(p.Hashrate)
		efficiency += p.Efficiency
	}
	n := float64(len(points))

	return SeriesStats{
		AverageHashrate:   ToPetahash(hashrate / n),
		AverageEfficiency: ToPercent(efficiency / n),
		CurrentEfficiency: ToPercent(points[len(points)-1].Efficiency),
	}
}

// SumRevenue totals daily revenue with decimal arithmetic. Missing values count as zero.
func SumRevenue(records []luxor.RevenueRecord) float64 {
	total := decimal.Zero
	for _, r := range records {
		if r.Revenue == nil {
			continue
		}
		total = total.Add(decimal.NewFromFloat(*r.Revenue))
	}
	return total.InexactFloat64()
}

// merge reduces sub-call results into a snapshot. Warnings keep a fixed order:
// resolution first, then pool calls, then database aggregates.
func merge(names, resolutionWarnings []string, pool poolResults, db dbResults, chargesNegative bool) *domain.DashboardSnapshot {
	snap := &domain.DashboardSnapshot{
		Subaccounts:     append([]string{}, names...),
		SubaccountCount: len(names),
		Warnings:        append([]string{}, resolutionWarnings...),
	}
	warn := func(w string) {
		if w != "" {
			snap.Warnings = append(snap.Warnings, w)
		}
	}

	if len(names) == 0 {
		warn(WarningNoSubaccounts)
	}

	// Pool
	warn(pool.workers.Warning)
	snap.ActiveWorkers = pool.workers.Value.active
	snap.InactiveWorkers = pool.workers.Value.inactive
	snap.TotalWorkers = snap.ActiveWorkers + snap.InactiveWorkers
	snap.ActiveWorkerHashrate = pool.workers.Value.activeHashrate

	warn(pool.summary.Warning)
	snap.Hashrate5m = pool.summary.Value.hashrate5m
	snap.Hashrate24h = pool.summary.Value.hashrate24h
	snap.Uptime24h = pool.summary.Value.uptime24h

	warn(pool.revenue.Warning)
	snap.TotalMinedRevenue = pool.revenue.Value

	warn(pool.series.Warning)
	snap.AverageHashrate7d = pool.series.Value.AverageHashrate
	snap.AverageEfficiency7d = pool.series.Value.AverageEfficiency
	snap.CurrentEfficiency = pool.series.Value.CurrentEfficiency

	// Miners: active from the pool view, the rest from local lifecycle state.
	warn(db.autoMiners.Warning)
	warn(db.inactiveMiners.Warning)
	warn(db.deployingMiners.Warning)
	snap.ActiveMiners = snap.ActiveWorkers
	snap.InactiveMiners = db.inactiveMiners.Value
	snap.DeployingMiners = db.deployingMiners.Value
	// Zero unless both the pool and the local count are known.
	if pool.workers.OK && db.autoMiners.OK {
		snap.ActionRequiredMiners = snap.ActiveWorkers - db.autoMiners.Value
	}

	// Spaces
	warn(db.freeSpaces.Warning)
	warn(db.usedSpaces.Warning)
	snap.FreeSpaces = db.freeSpaces.Value.Count
	snap.FreeCapacityKW = db.freeSpaces.Value.CapacityKW
	snap.UsedSpaces = db.usedSpaces.Value.Count
	snap.UsedCapacityKW = db.usedSpaces.Value.CapacityKW

	// Customers
	warn(db.customers.Warning)
	snap.TotalCustomers = db.customers.Value.total
	snap.ActiveCustomers = db.customers.Value.active
	snap.InactiveCustomers = snap.TotalCustomers - snap.ActiveCustomers

	// Financial
	// Financial: both ledger sums follow the storage sign convention.
	warn(db.balance.Warning)
	warn(db.monthlyRevenue.Warning)
	balance, monthly := db.balance.Value, db.monthlyRevenue.Value
	if chargesNegative {
		balance, monthly = balance.Neg(), monthly.Neg()
	}
	snap.CustomerBalance = balance.InexactFloat64()
	snap.MonthlyRevenue = monthly.InexactFloat64()

	return snap
}
