package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	httpHandler "account-transfer-service/internal/adapter/http/handler"
	"account-transfer-service/internal/adapter/storage/memory"
	redisStorage "account-transfer-service/internal/adapter/storage/redis"
	"account-transfer-service/internal/core/domain"
	"account-transfer-service/internal/core/ports"
	"account-transfer-service/internal/service"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// testApp wires the real HTTP layer, middleware, service and in-memory
// account store, with miniredis standing in for Redis.
type testApp struct {
	server   *httptest.Server
	redis    *miniredis.Miniredis
	svc      *service.AccountServiceImpl
	notifier *recordingNotifier
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	store := memory.NewStore()
	notifier := &recordingNotifier{}
	log := zerolog.Nop()

	svc := service.NewAccountService(
		memory.NewAccountRepo(store),
		memory.NewOwnerRepo(store),
		memory.NewTransactor(store),
		notifier,
		service.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
		log,
	)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AccountSvc:       svc,
		IdempotencyCache: redisStorage.NewIdempotencyCache(rdb),
		HealthCheckers:   []ports.HealthChecker{memory.NewHealthCheck(), redisStorage.NewHealthCheck(rdb)},
		Mode:             "test",
		Logger:           log,
	})

	app := &testApp{
		server:   httptest.NewServer(router),
		redis:    mr,
		svc:      svc,
		notifier: notifier,
	}
	t.Cleanup(func() {
		app.server.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return app
}

type envelope struct {
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
}

type accountView struct {
	ID             string `json:"id"`
	Balance        string `json:"balance"`
	Withdrawn      string `json:"withdrawn"`
	PaidIn         string `json:"paid_in"`
	RemainingPayIn string `json:"remaining_pay_in"`
	Version        int64  `json:"version"`
}

func (a *testApp) post(t *testing.T, path string, body interface{}, headers map[string]string) (*http.Response, envelope) {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, bytes.NewReader(buf))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return a.send(t, req)
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, envelope) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	require.NoError(t, err)
	return a.send(t, req)
}

func (a *testApp) send(t *testing.T, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func (a *testApp) openAccount(t *testing.T, email, initial string) accountView {
	t.Helper()
	resp, env := a.post(t, "/api/v1/accounts", map[string]string{
		"owner_email":     email,
		"initial_balance": initial,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "error_code=%s", env.ErrorCode)

	var acc accountView
	require.NoError(t, json.Unmarshal(env.Data, &acc))
	return acc
}

func (a *testApp) account(t *testing.T, id string) accountView {
	t.Helper()
	resp, env := a.get(t, "/api/v1/accounts/"+id)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var acc accountView
	require.NoError(t, json.Unmarshal(env.Data, &acc))
	return acc
}

type notification struct {
	kind    domain.NotificationKind
	address string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (r *recordingNotifier) NotifyFundsLow(_ context.Context, address string) error {
	r.record(domain.NotificationFundsLow, address)
	return nil
}

func (r *recordingNotifier) NotifyApproachingPayInLimit(_ context.Context, address string) error {
	r.record(domain.NotificationApproachingPayInLimit, address)
	return nil
}

func (r *recordingNotifier) record(kind domain.NotificationKind, address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification{kind: kind, address: address})
}

func (r *recordingNotifier) all() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.sent...)
}
