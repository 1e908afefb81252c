package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grez-lucas/livelo-scraper/internal/scraper/loyalty"
)

// fakeRunner records requests and answers with a canned result.
type fakeRunner struct {
	mu       sync.Mutex
	requests []loyalty.Request

	result *loyalty.RunResult
	err    error
	// release, when set, blocks Run until closed.
	release chan struct{}
	started chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, req loyalty.Request) (*loyalty.RunResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeRunner) seen() []loyalty.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]loyalty.Request(nil), f.requests...)
}

func completeResult() *loyalty.RunResult {
	balance := 12345.0
	log := loyalty.Log{}
	next := log.Append(7, "Login realizado com sucesso")
	return &loyalty.RunResult{
		BalancePoints: &balance,
		BalanceStatus: loyalty.BalanceRead,
		Transactions:  []loyalty.Transaction{{Date: "10/03/2025", Operation: "Crédito", Points: 1500}},
		Log:           log,
		FinalOrder:    next,
	}
}

func newTestServer(runner loyalty.Scraper, opts ...Option) http.Handler {
	opts = append([]Option{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	return New(runner, opts...).Handler()
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/livelo/execute-rpa-livelo", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHandleStatus(t *testing.T) {
	h := newTestServer(&fakeRunner{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livelo", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, statusMessage, rec.Body.String())
}

func TestHandleExecute_MissingParameters(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"missing userName", `{"passwordCrypto":"abcd","startOrder":0}`},
		{"empty userName", `{"userName":"","passwordCrypto":"abcd","startOrder":0}`},
		{"missing passwordCrypto", `{"userName":"maria","startOrder":0}`},
		{"missing startOrder", `{"userName":"maria","passwordCrypto":"abcd"}`},
		{"not json", `userName=maria`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{result: completeResult()}
			rec := post(t, newTestServer(runner), tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, missingParams, body["error"])
			assert.Empty(t, runner.seen(), "the pipeline must not start")
		})
	}
}

func TestHandleExecute_Success(t *testing.T) {
	runner := &fakeRunner{result: completeResult()}
	rec := post(t, newTestServer(runner), `{"userName":"maria","passwordCrypto":"abcd","startOrder":7}`)

	require.Equal(t, http.StatusOK, rec.Code)
	runID := rec.Header().Get(RunIDHeader)
	require.NotEmpty(t, runID)

	reqs := runner.seen()
	require.Len(t, reqs, 1)
	assert.Equal(t, loyalty.Request{
		UserName:         "maria",
		PasswordEnvelope: "abcd",
		StartOrder:       7,
		RunID:            runID,
	}, reqs[0])

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, 12345.0, data["balancePoints"])
	assert.Equal(t, "read", data["balanceStatus"])
	assert.Equal(t, 8.0, data["finalOrder"])
	assert.Len(t, data["extrato"], 1)
	assert.Equal(t, []any{map[string]any{"order": 7.0, "message": "Login realizado com sucesso"}}, data["logs"])
}

func TestHandleExecute_ZeroStartOrderIsPresent(t *testing.T) {
	runner := &fakeRunner{result: completeResult()}
	rec := post(t, newTestServer(runner), `{"userName":"maria","passwordCrypto":"abcd","startOrder":0}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, runner.seen(), 1)
	assert.Equal(t, 0, runner.seen()[0].StartOrder)
}

func TestHandleExecute_FatalRunIsStillOK(t *testing.T) {
	log := loyalty.Log{}
	next := log.Append(0, "ERRO CRÍTICO: falha no login")
	runner := &fakeRunner{result: &loyalty.RunResult{
		BalanceStatus: loyalty.BalanceFatal,
		Transactions:  []loyalty.Transaction{},
		Log:           log,
		FinalOrder:    next,
		FailedStages:  []loyalty.Stage{loyalty.StageLogin},
	}}

	rec := post(t, newTestServer(runner), `{"userName":"maria","passwordCrypto":"abcd","startOrder":0}`)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Nil(t, data["balancePoints"])
	assert.Equal(t, []any{}, data["extrato"])
}

func TestHandleExecute_RunnerErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"invalid request", fmt.Errorf("%w: startOrder must not be negative", loyalty.ErrInvalidRequest), http.StatusBadRequest},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, newTestServer(&fakeRunner{err: tc.err}), `{"userName":"maria","passwordCrypto":"abcd","startOrder":-1}`)

			assert.Equal(t, tc.wantCode, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.err.Error(), body["error"])
		})
	}
}

func TestHandleExecute_WaitsForRunSlot(t *testing.T) {
	runner := &fakeRunner{
		result:  completeResult(),
		release: make(chan struct{}),
		started: make(chan struct{}, 2),
	}
	h := newTestServer(runner, WithMaxConcurrentRuns(1))

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- post(t, h, `{"userName":"maria","passwordCrypto":"abcd","startOrder":0}`)
	}()
	<-runner.started

	// The only slot is taken, so this request gives up when its context ends.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/livelo/execute-rpa-livelo",
		strings.NewReader(`{"userName":"joao","passwordCrypto":"abcd","startOrder":0}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Len(t, runner.seen(), 1)

	close(runner.release)
	assert.Equal(t, http.StatusOK, (<-first).Code)
}

func TestHandleExecute_ClientDisconnectDoesNotCancelRun(t *testing.T) {
	runner := &fakeRunner{
		result:  completeResult(),
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	h := newTestServer(runner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/livelo/execute-rpa-livelo",
		strings.NewReader(`{"userName":"maria","passwordCrypto":"abcd","startOrder":0}`)).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(rec, req)
	}()
	<-runner.started

	// The caller hangs up while the run is in progress.
	cancel()
	select {
	case <-done:
		t.Fatal("handler returned before the run finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.release)
	<-done

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])
}

func TestMetrics(t *testing.T) {
	res := completeResult()
	res.BalanceStatus = loyalty.BalanceUnavailable
	res.FailedStages = []loyalty.Stage{loyalty.StageReadBalance}
	h := newTestServer(&fakeRunner{result: res})

	require.Equal(t, http.StatusOK, post(t, h, `{"userName":"maria","passwordCrypto":"abcd","startOrder":0}`).Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	text, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(text), `livelo_rpa_runs_total{outcome="degraded"} 1`)
	assert.Contains(t, string(text), `livelo_rpa_stage_failures_total{stage="read_balance"} 1`)
	assert.Contains(t, string(text), `livelo_rpa_run_duration_seconds_count 1`)
	assert.Contains(t, string(text), `livelo_rpa_runs_in_flight 0`)
}
