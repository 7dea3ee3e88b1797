package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/botstore/internal/catalog"
	"github.com/fjod/botstore/internal/invoice"
	"github.com/fjod/botstore/internal/metrics"
	"github.com/fjod/botstore/internal/nowpayments"
	"github.com/fjod/botstore/internal/publisher"
	"github.com/fjod/botstore/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testSiteURL = "https://bots.example.com"

// fakeProvider stands in for the NOWPayments API and counts calls.
type fakeProvider struct {
	srv    *httptest.Server
	calls  atomic.Int32
	mu     sync.Mutex
	status int
	body   string
	last   map[string]any
}

func newFakeProvider(t *testing.T) *fakeProvider {
	p := &fakeProvider{
		status: http.StatusOK,
		body:   `{"id":"4522625843","invoice_url":"https://nowpayments.io/payment/?iid=4522625843","order_id":"order_1"}`,
	}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.calls.Add(1)
		var got map[string]any
		json.NewDecoder(r.Body).Decode(&got)

		p.mu.Lock()
		p.last = got
		status, body := p.status, p.body
		p.mu.Unlock()

		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakeProvider) respond(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status, p.body = status, body
}

func (p *fakeProvider) lastRequest() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

type PublisherMock struct {
	mu     sync.Mutex
	events []publisher.PaymentEvent
	err    error
}

func (m *PublisherMock) Publish(_ context.Context, ev publisher.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *PublisherMock) Close() error { return nil }

type testEnv struct {
	router    http.Handler
	provider  *fakeProvider
	publisher *PublisherMock
	redis     *miniredis.Miniredis
	metrics   *metrics.ServerMetrics
}

type envOptions struct {
	apiKey    string
	siteURL   string
	ipnSecret string
	limiter   *ClientLimiter
	logOutput io.Writer
}

func defaultEnvOptions() envOptions {
	return envOptions{apiKey: "test-key", siteURL: testSiteURL, ipnSecret: "ipn-secret"}
}

func setupEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	logOutput := opts.logOutput
	if logOutput == nil {
		logOutput = io.Discard
	}
	log := slog.New(slog.NewTextHandler(logOutput, nil))

	repo, err := catalog.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.RunMigrations())

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	provider := newFakeProvider(t)
	np := nowpayments.NewClient(provider.srv.URL, opts.apiKey, nowpayments.WithClientLogger(log))

	reg := prometheus.NewRegistry()
	m := metrics.NewServerMetrics(reg, "test")
	pub := &PublisherMock{}

	router := NewRouter(Deps{
		Catalog:            repo,
		Carts:              storage.NewRedisStorage(client, time.Hour),
		Invoices:           invoice.NewService(np, opts.siteURL, log),
		Publisher:          pub,
		IPNSecret:          opts.ipnSecret,
		Metrics:            m,
		Gatherer:           reg,
		Limiter:            opts.limiter,
		Log:                log,
		CartTTL:            time.Hour,
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
	})

	return &testEnv{router: router, provider: provider, publisher: pub, redis: mr, metrics: m}
}

func (e *testEnv) do(t *testing.T, method, path string, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", SessionCookieName)
	return nil
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

var errPublish = errors.New("kafka: leader not available")
