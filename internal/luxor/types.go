package luxor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Currency is a pool currency code used in API paths.
type Currency string

const (
	CurrencyBTC     Currency = "BTC"
	CurrencyLTCDOGE Currency = "LTC_DOGE"
	CurrencySC      Currency = "SC"
	CurrencyZEC     Currency = "ZEC"
	CurrencyZEN     Currency = "ZEN"
)

// ErrUnknownCurrency is returned by ParseCurrency for unsupported codes.
var ErrUnknownCurrency = errors.New("unknown currency")

// ParseCurrency normalizes and validates a currency code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CurrencyBTC, CurrencyLTCDOGE, CurrencySC, CurrencyZEC, CurrencyZEN:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, s)
}

// Params holds query-string parameters. Empty values are never sent.
type Params map[string]string

// Clone returns a copy that is safe to mutate.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Encode renders the non-empty parameters as a sorted query string.
func (p Params) Encode() string {
	values := url.Values{}
	for k, v := range p {
		if k == "" || strings.TrimSpace(v) == "" {
			continue
		}
		values.Set(k, v)
	}
	return values.Encode()
}

// ParamsFromValues flattens url.Values, joining repeated keys with commas.
func ParamsFromValues(values url.Values, skip ...string) Params {
	skipped := make(map[string]bool, len(skip))
	for _, k := range skip {
		skipped[k] = true
	}

	p := make(Params, len(values))
	for k, vs := range values {
		if skipped[k] {
			continue
		}
		var kept []string
		for _, v := range vs {
			if strings.TrimSpace(v) != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			p[k] = strings.Join(kept, ",")
		}
	}
	return p
}

// Number decodes a JSON number or a numeric string. Hashrates arrive in both forms.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}

	text := string(b)
	if b[0] == '"' {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return fmt.Errorf("number: %w", err)
		}
		text = strings.TrimSpace(unquoted)
		if text == "" {
			*n = 0
			return nil
		}
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("number %q: %w", text, err)
	}
	*n = Number(v)
	return nil
}

// Float returns the value, treating a nil pointer as zero.
func (n *Number) Float() float64 {
	if n == nil {
		return 0
	}
	return float64(*n)
}

// Pagination is the page cursor block returned by list endpoints.
type Pagination struct {
	PageNumber      int     `json:"page_number"`
	PageSize        int     `json:"page_size"`
	ItemCount       int     `json:"item_count"`
	PreviousPageURL *string `json:"previous_page_url"`
	NextPageURL     *string `json:"next_page_url"`
}

// HasNext reports whether the upstream advertises another page.
func (p *Pagination) HasNext() bool {
	return p != nil && p.NextPageURL != nil && *p.NextPageURL != ""
}

// Site is the hosting site a subaccount belongs to.
type Site struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subaccount is one metering unit on the pool.
type Subaccount struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Site      *Site     `json:"site,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SubaccountList is one page of subaccounts.
type SubaccountList struct {
	Subaccounts []Subaccount `json:"subaccounts"`
	Pagination  *Pagination  `json:"pagination,omitempty"`
}

func (l *SubaccountList) validate() error {
	if l.Subaccounts == nil {
		return errors.New("missing subaccounts")
	}
	for i, s := range l.Subaccounts {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("subaccounts[%d]: missing name", i)
		}
	}
	return nil
}

// WorkerStatus is the pool's view of a worker.
type WorkerStatus string

const (
	WorkerStatusActive      WorkerStatus = "ACTIVE"
	WorkerStatusInactive    WorkerStatus = "INACTIVE"
	WorkerStatusUnspecified WorkerStatus = "UNSPECIFIED"
)

// Worker is one mining device as seen by the pool.
type Worker struct {
	ID             string       `json:"id"`
	SubaccountName string       `json:"subaccount_name"`
	Name           string       `json:"name"`
	Hashrate       Number       `json:"hashrate"` // H/s
	Efficiency     float64      `json:"efficiency"`
	Status         WorkerStatus `json:"status"`
	LastShareTime  *time.Time   `json:"last_share_time,omitempty"`
}

// WorkersPage is the workers listing for a set of subaccounts.
type WorkersPage struct {
	CurrencyType  string      `json:"currency_type"`
	TotalActive   int         `json:"total_active"`
	TotalInactive int         `json:"total_inactive"`
	Workers       []Worker    `json:"workers"`
	Pagination    *Pagination `json:"pagination,omitempty"`
}

func (p *WorkersPage) validate() error {
	if p.Workers == nil {
		return errors.New("missing workers")
	}
	if p.TotalActive < 0 || p.TotalInactive < 0 {
		return errors.New("negative worker totals")
	}
	for i := range p.Workers {
		w := &p.Workers[i]
		switch w.Status {
		case WorkerStatusActive, WorkerStatusInactive, WorkerStatusUnspecified:
		case "":
			w.Status = WorkerStatusUnspecified
		default:
			return fmt.Errorf("workers[%d]: unknown status %q", i, w.Status)
		}
		if w.Hashrate < 0 {
			return fmt.Errorf("workers[%d]: negative hashrate", i)
		}
	}
	return nil
}

// Summary is the pool's hashrate/uptime summary for a set of subaccounts.
// Hashrates are H/s and uptime/efficiency are fractions.
type Summary struct {
	CurrencyType  string  `json:"currency_type"`
	Hashrate5m    *Number `json:"hashrate_5m"`
	Hashrate24h   *Number `json:"hashrate_24h"`
	Uptime24h     *Number `json:"uptime_24h"`
	Efficiency5m  *Number `json:"efficiency_5m,omitempty"`
	Efficiency24h *Number `json:"efficiency_24h,omitempty"`
}

func (s *Summary) validate() error {
	if s.Hashrate24h == nil {
		return errors.New("missing hashrate_24h")
	}
	if s.Uptime24h == nil {
		return errors.New("missing uptime_24h")
	}
	if s.Hashrate5m.Float() < 0 || s.Hashrate24h.Float() < 0 {
		return errors.New("negative hashrate")
	}
	if u := s.Uptime24h.Float(); u < 0 || u > 1 {
		return fmt.Errorf("uptime_24h %v outside [0,1]", u)
	}
	return nil
}

// RevenueRecord is one day of revenue. A nil Revenue means the field was absent.
type RevenueRecord struct {
	DateTime time.Time `json:"date_time"`
	Revenue  *float64  `json:"revenue"`
}

// RevenueReport is a revenue time series.
type RevenueReport struct {
	CurrencyType string          `json:"currency_type"`
	StartDate    string          `json:"start_date,omitempty"`
	EndDate      string          `json:"end_date,omitempty"`
	Revenue      []RevenueRecord `json:"revenue"`
}

func (r *RevenueReport) validate() error {
	if r.Revenue == nil {
		return errors.New("missing revenue")
	}
	return nil
}

// HashrateEfficiencyPoint is one tick of the hashrate/efficiency series.
type HashrateEfficiencyPoint struct {
	DateTime   time.Time `json:"date_time"`
	Hashrate   Number    `json:"hashrate"`   // H/s
	Efficiency float64   `json:"efficiency"` // fraction 0..1
}

// HashrateEfficiencySeries is a hashrate/efficiency time series.
type HashrateEfficiencySeries struct {
	CurrencyType       string                    `json:"currency_type"`
	HashrateEfficiency []HashrateEfficiencyPoint `json:"hashrate_efficiency"`
	Pagination         *Pagination               `json:"pagination,omitempty"`
}

func (s *HashrateEfficiencySeries) validate() error {
	if s.HashrateEfficiency == nil {
		return errors.New("missing hashrate_efficiency")
	}
	for i, p := range s.HashrateEfficiency {
		if p.Hashrate < 0 {
			return fmt.Errorf("hashrate_efficiency[%d]: negative hashrate", i)
		}
		if p.Efficiency < 0 || p.Efficiency > 1 {
			return fmt.Errorf("hashrate_efficiency[%d]: efficiency %v outside [0,1]", i, p.Efficiency)
		}
	}
	return nil
}

// Transaction is a pool payout or fee entry.
type Transaction struct {
	CurrencyType        string    `json:"currency_type"`
	DateTime            time.Time `json:"date_time"`
	AddressName         string    `json:"address_name,omitempty"`
	SubaccountName      string    `json:"subaccount_name,omitempty"`
	TransactionCategory string    `json:"transaction_category"`
	CurrencyAmount      Number    `json:"currency_amount"`
	TransactionID       string    `json:"transaction_id,omitempty"`
}

// TransactionList is one page of transactions.
type TransactionList struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   *Pagination   `json:"pagination,omitempty"`
}

func (l *TransactionList) validate() error {
	if l.Transactions == nil {
		return errors.New("missing transactions")
	}
	return nil
}

// Workspace describes the account owning the API key.
type Workspace struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Products []string `json:"products,omitempty"`
	Groups   []Group  `json:"groups,omitempty"`
}

func (w *Workspace) validate() error {
	if strings.TrimSpace(w.ID) == "" && strings.TrimSpace(w.Name) == "" {
		return errors.New("missing workspace id and name")
	}
	return nil
}

// Group is a named collection of subaccounts inside a workspace.
type Group struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Type        string       `json:"type,omitempty"`
	Subaccounts []Subaccount `json:"subaccounts,omitempty"`
}

func (g *Group) validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return errors.New("missing group id")
	}
	return nil
}

// GroupRequest is the body for creating or renaming a group.
type GroupRequest struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// CreateSubaccountRequest is the body for creating a subaccount.
type CreateSubaccountRequest struct {
	Name    string `json:"name"`
	GroupID string `json:"group_id,omitempty"`
}

// createdSubaccount wraps the single-object create response.
type createdSubaccount struct {
	Subaccount
}

func (s *createdSubaccount) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("missing name")
	}
	return nil
}

var _ json.Unmarshaler = (*Number)(nil)
