package customapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"finboard-service/internal/domain/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// httptest servers listen on loopback
func newClient() *Client {
	return NewClient(Config{Timeout: 2 * time.Second, RetryCount: 0, AllowPrivateNetworks: true})
}

func TestFetch_DecodesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"rates": {"BTC": 0.000016}}, "items": [1, 2]}`))
	}))
	defer server.Close()

	data, err := newClient().Fetch(context.Background(), interfaces.CustomRequest{
		URL:     server.URL + "/v1/rates",
		Headers: map[string]string{"X-Token": "secret"},
	})
	require.NoError(t, err)

	obj, ok := data.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, obj, "data")
	assert.Len(t, obj["items"], 2)
}

func TestFetch_PostsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"q": "aapl"}`, string(body))
		_, _ = w.Write([]byte(`[{"symbol": "AAPL"}]`))
	}))
	defer server.Close()

	data, err := newClient().Fetch(context.Background(), interfaces.CustomRequest{
		URL:    server.URL,
		Method: "post",
		Body:   []byte(`{"q": "aapl"}`),
	})
	require.NoError(t, err)
	assert.Len(t, data, 1)
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newClient().Fetch(context.Background(), interfaces.CustomRequest{URL: server.URL})
	require.Error(t, err)
	assert.Equal(t, "HTTP 404: Not Found", err.Error())
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := NewClient(Config{Timeout: 2 * time.Second, RetryCount: 1, AllowPrivateNetworks: true})
	data, err := client.Fetch(context.Background(), interfaces.CustomRequest{URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, data)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_RejectsBadInput(t *testing.T) {
	client := newClient()

	_, err := client.Fetch(context.Background(), interfaces.CustomRequest{})
	assert.ErrorIs(t, err, ErrURLRequired)

	_, err = client.Fetch(context.Background(), interfaces.CustomRequest{URL: "ftp://example.com"})
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = client.Fetch(context.Background(), interfaces.CustomRequest{URL: "https://example.com", Method: "TRACE"})
	assert.ErrorIs(t, err, ErrUnsupportedOp)
}

func TestFetch_NotJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html></html>`))
	}))
	defer server.Close()

	_, err := newClient().Fetch(context.Background(), interfaces.CustomRequest{URL: server.URL})
	assert.ErrorIs(t, err, ErrNotJSON)
}

func TestClient_Check(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/text" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("denied"))
			return
		}
		_, _ = w.Write([]byte(`{"price": 1}`))
	}))
	defer server.Close()

	client := newClient()

	ok, err := client.Check(context.Background(), server.URL+"/json")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, ok.StatusCode)
	assert.Equal(t, map[string]any{"price": float64(1)}, ok.Body)

	denied, err := client.Check(context.Background(), server.URL+"/text")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, denied.StatusCode)
	assert.Equal(t, "Unauthorized", denied.Status)
	assert.Equal(t, "denied", denied.Body)
}

func TestClient_RefusesLocalDestinations(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"secret": true}`))
	}))
	defer server.Close()

	client := NewClient(Config{Timeout: 2 * time.Second, RetryCount: 2})

	_, err := client.Fetch(context.Background(), interfaces.CustomRequest{URL: server.URL + "/internal"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlockedDestination)

	_, err = client.Check(context.Background(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlockedDestination)

	assert.Equal(t, int32(0), hits.Load())
}

func TestBlockedAddress(t *testing.T) {
	tests := []struct {
		addr    string
		blocked bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"10.1.2.3", true},
		{"172.16.0.10", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"fe80::1", true},
		{"0.0.0.0", true},
		{"100.64.0.1", true},
		{"::ffff:127.0.0.1", true},
		{"fd00::1", true},
		{"93.184.216.34", false},
		{"2606:4700:4700::1111", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.blocked, blockedAddress(netip.MustParseAddr(tt.addr)))
		})
	}
}

func TestGuardDial(t *testing.T) {
	assert.ErrorIs(t, guardDial("tcp", "127.0.0.1:8080", nil), ErrBlockedDestination)
	assert.ErrorIs(t, guardDial("tcp", "not-an-address", nil), ErrBlockedDestination)
	assert.NoError(t, guardDial("tcp", "93.184.216.34:443", nil))
}
