package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Execute_InjectsToken(t *testing.T) {
	var gotAuth, gotProxy, gotType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("AUTHORIZATION")
		gotProxy = r.Header.Get(ProxyUserHeader)
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider := &MockTokenProvider{Token: "04085b0849221261"}
	client := NewClient(provider, true, 5*time.Second).WithHeader(ProxyUserHeader, "other@vcap.me")

	_, err := client.Execute(context.Background(), RequestOptions{
		Method:      "PUT",
		URL:         server.URL + "/apps/foo",
		Body:        []byte(`{"name":"foo"}`),
		ContentType: "application/json",
	})
	require.NoError(t, err)

	u, _ := url.Parse(server.URL)
	assert.Equal(t, "04085b0849221261", gotAuth)
	assert.Equal(t, "other@vcap.me", gotProxy)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{"name":"foo"}`, string(gotBody))
	assert.Equal(t, []string{u.Host}, provider.Scopes)
}

func TestClient_Execute_BodyResentOnRetry(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if len(bodies) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(nil, false, 5*time.Second)
	resp, err := client.Execute(context.Background(), RequestOptions{
		Method:   "POST",
		URL:      server.URL + "/resources",
		Body:     []byte(`[]`),
		SkipAuth: true,
		Retry:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"[]", "[]"}, bodies)
}

func TestClient_Execute_SkipAuthOmitsToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("AUTHORIZATION")
	}))
	defer server.Close()

	provider := &MockTokenProvider{Token: "secret"}
	client := NewClient(provider, false, 5*time.Second)
	_, err := client.Execute(context.Background(), RequestOptions{Method: "GET", URL: server.URL + "/info", SkipAuth: true})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
	assert.Empty(t, provider.Scopes)
}

func TestClient_Execute_TokenProviderError(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	providerErr := errors.New("not logged in")
	client := NewClient(&MockTokenProvider{Error: providerErr}, false, 5*time.Second)
	_, err := client.Execute(context.Background(), RequestOptions{Method: "GET", URL: server.URL + "/apps"})

	require.ErrorIs(t, err, providerErr)
	assert.False(t, called, "no request should be sent without a token")
}

func TestClient_Execute_CircuitBreakerOpens(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(nil, false, 5*time.Second).WithCircuitBreaker(2, time.Minute)
	opts := RequestOptions{Method: "GET", URL: server.URL + "/info", SkipAuth: true}

	for i := 0; i < 2; i++ {
		resp, err := client.Execute(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	}

	_, err := client.Execute(context.Background(), opts)
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, hits, "open breaker must not reach the server")

	u, _ := url.Parse(server.URL)
	assert.Equal(t, float64(2), testutil.ToFloat64(breakerState.WithLabelValues(u.Host)))
}

func TestClient_Execute_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := NewClient(nil, false, 5*time.Second).WithRateLimit(1)
	opts := RequestOptions{Method: "GET", URL: server.URL + "/info", SkipAuth: true}

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Execute(context.Background(), opts)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond, "third request waits for a token")
}

func TestClient_Execute_RecordsMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	counter := requestTotal.WithLabelValues("DELETE", "404")
	before := testutil.ToFloat64(counter)

	client := NewClient(nil, false, 5*time.Second)
	_, err := client.Execute(context.Background(), RequestOptions{Method: "DELETE", URL: server.URL + "/apps/foo", SkipAuth: true})
	require.NoError(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestClient_Execute_InvalidURL(t *testing.T) {
	client := NewClient(nil, false, time.Second)
	_, err := client.Execute(context.Background(), RequestOptions{Method: "GET", URL: "http://[::1", SkipAuth: true})
	require.Error(t, err)
}

func TestClient_Execute_RequestIDStableAcrossRetries(t *testing.T) {
	var ids []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get(RequestIDHeader))
		if len(ids) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(nil, false, 5*time.Second)
	resp, err := client.Execute(context.Background(), RequestOptions{Method: "GET", URL: server.URL + "/info", Retry: 1})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.Equal(t, ids[0], ids[1])
}

func TestClient_Execute_KeepsCallerRequestID(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(RequestIDHeader)
	}))
	defer server.Close()

	_, err := NewClient(nil, false, 5*time.Second).Execute(context.Background(), RequestOptions{
		Method:  "GET",
		URL:     server.URL,
		Headers: map[string]string{RequestIDHeader: "abc"},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}
