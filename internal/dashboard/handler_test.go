package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miner-hosting/internal/api"
	"miner-hosting/internal/auth"
	"miner-hosting/internal/domain"
	"miner-hosting/internal/luxor"
	"miner-hosting/internal/proxy"
	"miner-hosting/internal/storage/memory"
	"miner-hosting/internal/subaccount"
)

// stack wires the real proxy, loopback, resolver and service against a pool URL.
type stack struct {
	dashboard *Handler
	tokens    map[string]string
	server    *httptest.Server
}

func newStack(t *testing.T, poolURL string) *stack {
	t.Helper()
	ctx := context.Background()

	stores := seedStores(t, time.Now().UTC())
	users := stores.Users

	signer, err := auth.NewSigner("dashboard-test")
	require.NoError(t, err)

	tenant := "acct_tenant"
	tokens := map[string]string{}
	for key, u := range map[string]*domain.User{
		"admin":  {Email: "admin@example.com", Role: domain.RoleAdmin},
		"client": {Email: "client@example.com", Role: domain.RoleClient, ExternalSubaccountName: &tenant},
	} {
		require.NoError(t, users.Insert(ctx, u))
		tokens[key], err = signer.Issue(u.ID, time.Hour)
		require.NoError(t, err)
	}

	authn := auth.NewAuthenticator(signer, users, "")
	pool := luxor.NewClient(poolURL, "key", luxor.WithTimeout(2*time.Second))

	mux := http.NewServeMux()
	mux.Handle(proxy.Path, proxy.NewHandler(authn, pool, luxor.CurrencyBTC, nil))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	loopback := proxy.NewLoopbackClient(server.URL, "", 5*time.Second)
	resolver := subaccount.NewResolver(loopback, users, nil, nil)
	svc := NewService(resolver, loopback, stores, Config{Currency: luxor.CurrencyBTC, CallTimeout: 5 * time.Second}, nil)

	return &stack{dashboard: NewHandler(authn, svc, nil), tokens: tokens, server: server}
}

func (s *stack) get(t *testing.T, who string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if token, ok := s.tokens[who]; ok {
		req.AddCookie(&http.Cookie{Name: auth.DefaultCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	s.dashboard.ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestHandler_UnreachablePoolStillServesSnapshot(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	s := newStack(t, deadURL)
	rec, body := s.get(t, "admin")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["timestamp"])

	data := body["data"].(map[string]interface{})
	warnings := data["warnings"].([]interface{})
	assert.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "subaccounts")

	for _, field := range []string{"hashrate5m", "hashrate24h", "uptime24h", "activeWorkers", "totalMinedRevenue", "averageHashrate7d"} {
		assert.Equal(t, float64(0), data[field], field)
	}
	assert.Equal(t, float64(0), data["actionRequiredMiners"])
	// Database aggregates are unaffected: two seeded clients plus the tenant.
	assert.Equal(t, float64(3), data["totalCustomers"])
	// The tenant's mapped subaccount is the database fallback scope.
	assert.Equal(t, []interface{}{"acct_tenant"}, data["subaccounts"])
}

func TestHandler_NonAdminForbiddenWithoutUpstreamCalls(t *testing.T) {
	var calls atomic.Int32
	pool := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer pool.Close()

	s := newStack(t, pool.URL)

	rec, body := s.get(t, "client")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, _ = s.get(t, "nobody")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Zero(t, calls.Load())
}

func TestHandler_FullSuccessHasEmptyWarnings(t *testing.T) {
	pool := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v2/pool/subaccounts":
			w.Write([]byte(`{"subaccounts":[{"id":1,"name":"acct_a"}],"pagination":{"next_page_url":null}}`))
		case strings.HasPrefix(r.URL.Path, "/v2/pool/workers/"):
			w.Write([]byte(`{"total_active":4,"total_inactive":0,"workers":[]}`))
		case strings.HasPrefix(r.URL.Path, "/v2/pool/summary/"):
			w.Write([]byte(`{"hashrate_5m":"1000000000000000","hashrate_24h":"1000000000000000","uptime_24h":0.9954}`))
		case strings.HasPrefix(r.URL.Path, "/v2/pool/revenue/"):
			w.Write([]byte(`{"revenue":[{"date_time":"2024-01-01T00:00:00Z","revenue":0.001},{"date_time":"2024-01-02T00:00:00Z","revenue":0.002},{"date_time":"2024-01-03T00:00:00Z"}]}`))
		case strings.HasPrefix(r.URL.Path, "/v2/pool/hashrate-efficiency/"):
			w.Write([]byte(`{"hashrate_efficiency":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer pool.Close()

	s := newStack(t, pool.URL)
	rec, _ := s.get(t, "admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"warnings":[]`)

	var env struct {
		Data domain.DashboardSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.InDelta(t, 1.0, env.Data.Hashrate24h, 1e-12)
	assert.InDelta(t, 99.54, env.Data.Uptime24h, 1e-9)
	assert.InDelta(t, 0.003, env.Data.TotalMinedRevenue, 1e-9)
	assert.Zero(t, env.Data.AverageHashrate7d)
	assert.Equal(t, 4, env.Data.ActiveMiners)
	assert.Equal(t, 1, env.Data.ActionRequiredMiners)
}

func TestStreamHandler_PushesSnapshots(t *testing.T) {
	resolver := stubResolver{res: subaccount.Resolution{Names: []string{"acct_a"}}}
	svc := newTestService(t, newStubFetcher(), resolver, seedStores(t, fixedNow), fixedNow)

	users := memory.NewUserStore(nil)
	admin := &domain.User{Email: "admin@example.com", Role: domain.RoleAdmin}
	client := &domain.User{Email: "client@example.com", Role: domain.RoleClient}
	require.NoError(t, users.Insert(context.Background(), admin))
	require.NoError(t, users.Insert(context.Background(), client))
	signer, _ := auth.NewSigner("stream-test")

	h := NewHandler(auth.NewAuthenticator(signer, users, ""), svc, nil)
	server := httptest.NewServer(NewStreamHandler(h, StreamConfig{Interval: 20 * time.Millisecond}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	adminToken, _ := signer.Issue(admin.ID, time.Hour)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+adminToken)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var env struct {
			api.Envelope
			Data domain.DashboardSnapshot `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&env))
		assert.True(t, env.Success)
		assert.InDelta(t, 1.0, env.Data.Hashrate24h, 1e-12)
	}

	clientToken, _ := signer.Issue(client.ID, time.Hour)
	header.Set("Authorization", "Bearer "+clientToken)
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
