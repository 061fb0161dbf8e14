package domain

import "time"

// DashboardSnapshot is the merged admin-dashboard view built for one request.
// Pool hashrates are in PH/s and uptime/efficiency in percent.
type DashboardSnapshot struct {
	// Miners
	ActiveMiners         int `json:"activeMiners"`
	InactiveMiners       int `json:"inactiveMiners"`
	DeployingMiners      int `json:"deployingMiners"`
	ActionRequiredMiners int `json:"actionRequiredMiners"` // pool active workers minus AUTO miners, may be negative

	// Spaces
	FreeSpaces     int     `json:"freeSpaces"`
	UsedSpaces     int     `json:"usedSpaces"`
	FreeCapacityKW float64 `json:"freeCapacityKw"`
	UsedCapacityKW float64 `json:"usedCapacityKw"`

	// Customers
	TotalCustomers    int `json:"totalCustomers"`
	ActiveCustomers   int `json:"activeCustomers"`
	InactiveCustomers int `json:"inactiveCustomers"`

	// Pool
	Hashrate5m           float64 `json:"hashrate5m"`
	Hashrate24h          float64 `json:"hashrate24h"`
	Uptime24h            float64 `json:"uptime24h"`
	AverageHashrate7d    float64 `json:"averageHashrate7d"`
	AverageEfficiency7d  float64 `json:"averageEfficiency7d"`
	CurrentEfficiency    float64 `json:"currentEfficiency"`
	ActiveWorkers        int     `json:"activeWorkers"`
	InactiveWorkers      int     `json:"inactiveWorkers"`
	TotalWorkers         int     `json:"totalWorkers"`
	ActiveWorkerHashrate float64 `json:"activeWorkerHashrate"`
	SubaccountCount      int     `json:"subaccountCount"`

	// Financial
	CustomerBalance   float64 `json:"customerBalance"`
	MonthlyRevenue    float64 `json:"monthlyRevenue"`
	TotalMinedRevenue float64 `json:"totalMinedRevenue"`

	Subaccounts []string  `json:"subaccounts"`
	Warnings    []string  `json:"warnings"`
	GeneratedAt time.Time `json:"generatedAt"`
}
