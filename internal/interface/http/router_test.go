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
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
	"github.com/yanqian/faq-matcher/internal/infra/config"
	apperrors "github.com/yanqian/faq-matcher/pkg/errors"
)

const testSecret = "0123456789abcdef-test"

func TestRouter_AskSuccess(t *testing.T) {
	question := "How can I improve my sleep?"
	svc := &stubFAQService{
		askFn: func(ctx context.Context, req faq.Request) (faq.Response, error) {
			require.Equal(t, "I can't sleep at night", req.Query)
			return faq.Response{
				Response:        "Keep a regular schedule.",
				Confidence:      0.82,
				MatchedQuestion: &question,
				Outcome:         faq.OutcomeMatched,
			}, nil
		},
	}

	for _, path := range []string{"/api/v1/ask", "/ask"} {
		recorder := performRequest(http.MethodPost, path, `{"query":"I can't sleep at night"}`, newRouterUnderTest(t, svc, nil))
		require.Equal(t, http.StatusOK, recorder.Code, path)

		body := decodeBody(t, recorder.Body.Bytes())
		require.Equal(t, "Keep a regular schedule.", body["response"])
		require.Equal(t, testDisclaimer, body["disclaimer"])
		require.InDelta(t, 0.82, body["confidence"], 1e-9)
		require.Equal(t, question, body["matched_question"])
		require.Equal(t, "matched", body["outcome"])
	}
}

func TestRouter_AskFallbackHasNullQuestion(t *testing.T) {
	svc := &stubFAQService{
		askFn: func(ctx context.Context, req faq.Request) (faq.Response, error) {
			return faq.Response{Response: faq.DefaultFallbackMessage, Confidence: 0.1, Outcome: faq.OutcomeNoMatch}, nil
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/ask", `{"query":"xyzzy"}`, newRouterUnderTest(t, svc, nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder.Body.Bytes())
	require.Equal(t, faq.DefaultFallbackMessage, body["response"])
	require.Contains(t, body, "matched_question")
	require.Nil(t, body["matched_question"])
	require.Equal(t, "no_match", body["outcome"])
}

func TestRouter_AskRejectsMissingQuery(t *testing.T) {
	svc := &stubFAQService{}
	cases := map[string]string{
		"no field":     `{}`,
		"invalid json": `{"query":`,
		"wrong type":   `{"query":42}`,
	}
	for name, payload := range cases {
		recorder := performRequest(http.MethodPost, "/api/v1/ask", payload, newRouterUnderTest(t, svc, nil))
		require.Equal(t, http.StatusBadRequest, recorder.Code, name)

		errBody := decodeErrorBody(t, recorder.Body.Bytes())
		require.Equal(t, "invalid_request", errBody["code"], name)
		require.Equal(t, "No query provided", errBody["message"], name)
	}
	require.Zero(t, svc.calls)
}

func TestRouter_AskRejectsBlankQuery(t *testing.T) {
	svc := &stubFAQService{}

	recorder := performRequest(http.MethodPost, "/api/v1/ask", `{"query":"   "}`, newRouterUnderTest(t, svc, nil))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "Empty query provided", errBody["message"])
	require.Zero(t, svc.calls)
}

func TestRouter_AskUnavailable(t *testing.T) {
	svc := &stubFAQService{notReady: true}

	recorder := performRequest(http.MethodPost, "/api/v1/ask", `{"query":"hello"}`, newRouterUnderTest(t, svc, nil))
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	body := decodeBody(t, recorder.Body.Bytes())
	require.Equal(t, testUnavailable, body["response"])
	require.Equal(t, testDisclaimer, body["disclaimer"])
	require.Zero(t, svc.calls)
}

func TestRouter_AskServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid input", err: apperrors.Wrap(faq.CodeInvalidInput, "query cannot be empty", nil), status: http.StatusBadRequest, code: "invalid_request"},
		{name: "unavailable", err: apperrors.Wrap(faq.CodeServiceUnavailable, "faq matcher unavailable", nil), status: http.StatusServiceUnavailable},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: "ask_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubFAQService{
				askFn: func(ctx context.Context, req faq.Request) (faq.Response, error) {
					return faq.Response{}, tc.err
				},
			}
			recorder := performRequest(http.MethodPost, "/api/v1/ask", `{"query":"hello"}`, newRouterUnderTest(t, svc, nil))
			require.Equal(t, tc.status, recorder.Code)
			if tc.code != "" {
				require.Equal(t, tc.code, decodeErrorBody(t, recorder.Body.Bytes())["code"])
			}
		})
	}
}

func TestRouter_HealthAndReady(t *testing.T) {
	ready := &stubFAQService{size: 3}
	server := newRouterUnderTest(t, ready, nil)

	recorder := performRequest(http.MethodGet, "/health", "", server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "healthy", decodeBody(t, recorder.Body.Bytes())["status"])

	recorder = performRequest(http.MethodGet, "/ready", "", server)
	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder.Body.Bytes())
	require.Equal(t, "ready", body["status"])
	require.EqualValues(t, 3, body["corpusSize"])

	degraded := newRouterUnderTest(t, &stubFAQService{notReady: true}, nil)
	recorder = performRequest(http.MethodGet, "/health", "", degraded)
	require.Equal(t, http.StatusOK, recorder.Code)
	recorder = performRequest(http.MethodGet, "/ready", "", degraded)
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	server := newRouterUnderTest(t, &stubFAQService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, "req-123", rec.Header().Get(requestIDHeader))

	recorder := performRequest(http.MethodGet, "/health", "", server)
	require.NotEmpty(t, recorder.Header().Get(requestIDHeader))
}

func TestRouter_AuthRequiresValidToken(t *testing.T) {
	svc := &stubFAQService{}
	server := newRouterUnderTest(t, svc, func(cfg *config.Config) {
		cfg.HTTP.Auth = config.AuthConfig{Enabled: true, JWTSecret: testSecret, Issuer: "faq-matcher"}
	})

	recorder := performRequest(http.MethodPost, "/api/v1/ask", `{"query":"hello"}`, server)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	expired := signToken(t, jwt.RegisteredClaims{
		Subject:   "widget",
		Issuer:    "faq-matcher",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	recorder = performAuthorizedRequest("/api/v1/ask", `{"query":"hello"}`, expired, server)
	require.Equal(t, http.StatusForbidden, recorder.Code)
	require.Equal(t, "invalid_token", decodeErrorBody(t, recorder.Body.Bytes())["code"])

	valid := signToken(t, jwt.RegisteredClaims{
		Subject:   "widget",
		Issuer:    "faq-matcher",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	recorder = performAuthorizedRequest("/api/v1/ask", `{"query":"hello"}`, valid, server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 1, svc.calls)

	recorder = performRequest(http.MethodGet, "/health", "", server)
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	server := newRouterUnderTest(t, &stubFAQService{}, func(cfg *config.Config) {
		cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	})

	recorder := performRequest(http.MethodPost, "/api/v1/ask", `{"query":"hello"}`, server)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = performRequest(http.MethodPost, "/api/v1/ask", `{"query":"hello"}`, server)
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, recorder.Body.Bytes())["code"])
}

func TestIPRateLimiterForgetsIdleClients(t *testing.T) {
	limiter := newIPRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 1})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	require.True(t, limiter.allow("10.0.0.1"))
	require.False(t, limiter.allow("10.0.0.1"))

	now = now.Add(10 * time.Minute)
	require.True(t, limiter.allow("10.0.0.2"))
	require.Len(t, limiter.visitors, 1)
}

func TestCORSPolicy(t *testing.T) {
	value, ok := newCORSPolicy(nil).allowOrigin("https://a.example")
	require.True(t, ok)
	require.Equal(t, "*", value)

	policy := newCORSPolicy([]string{"https://b.example", "HTTPS://A.example/"})
	value, ok = policy.allowOrigin("https://a.example")
	require.True(t, ok)
	require.Equal(t, "https://a.example", value)

	_, ok = policy.allowOrigin("https://evil.example")
	require.False(t, ok)
	_, ok = policy.allowOrigin("")
	require.False(t, ok)
}

func TestRouter_CORSPreflight(t *testing.T) {
	server := newRouterUnderTest(t, &stubFAQService{}, func(cfg *config.Config) {
		cfg.HTTP.AllowOrigins = []string{"http://localhost:3000"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ask", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

const (
	testDisclaimer  = "Not medical advice."
	testUnavailable = "Service unavailable."
)

func performRequest(method, path, body string, server *http.Server) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func performAuthorizedRequest(path, body, token string, server *http.Server) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newRouterUnderTest(t *testing.T, svc faq.Service, mutate func(*config.Config)) *http.Server {
	t.Helper()
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		FAQ: config.FAQConfig{
			Disclaimer:         testDisclaimer,
			UnavailableMessage: testUnavailable,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}
	handler := NewHandler(svc, cfg, newTestLogger())
	return NewRouter(cfg, handler)
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

func signToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type stubFAQService struct {
	askFn    func(ctx context.Context, req faq.Request) (faq.Response, error)
	notReady bool
	size     int
	calls    int
}

func (s *stubFAQService) Ask(ctx context.Context, req faq.Request) (faq.Response, error) {
	s.calls++
	if s.askFn != nil {
		return s.askFn(ctx, req)
	}
	return faq.Response{Response: "ok", Outcome: faq.OutcomeMatched}, nil
}

func (s *stubFAQService) Ready() bool {
	return !s.notReady
}

func (s *stubFAQService) CorpusSize() int {
	return s.size
}

func decodeBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	body := decodeBody(t, raw)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error object in %s", string(raw))
	require.Equal(t, testDisclaimer, body["disclaimer"])
	return errBody
}
