package proxy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miner-hosting/internal/luxor"
)

func TestLoopbackClient_DecodesData(t *testing.T) {
	f := newFixture(t, "key")
	server := httptest.NewServer(f.handler)
	defer server.Close()

	c := NewLoopbackClient(server.URL, "", 0)

	var page luxor.WorkersPage
	err := c.Get(context.Background(), f.tokens["client"], EndpointWorkers, luxor.Params{"currency": "BTC"}, &page)
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalActive)

	calls := f.pool.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "acct_a", calls[0].URL.Query().Get("subaccount_names"))
}

func TestLoopbackClient_SurfacesStatus(t *testing.T) {
	f := newFixture(t, "key")
	server := httptest.NewServer(f.handler)
	defer server.Close()

	c := NewLoopbackClient(server.URL, "", 0)

	err := c.Get(context.Background(), f.tokens["client"], EndpointSubaccounts, nil, nil)

	var callErr *CallError
	require.True(t, errors.As(err, &callErr), "got %v", err)
	assert.Equal(t, http.StatusForbidden, callErr.StatusCode)
	assert.Equal(t, EndpointSubaccounts, callErr.Endpoint)
	assert.Contains(t, callErr.Error(), "status 403")
}

func TestLoopbackClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := NewLoopbackClient(url, "", 0).Get(context.Background(), "token", EndpointSummary, nil, nil)

	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, http.StatusBadGateway, callErr.StatusCode)
}
