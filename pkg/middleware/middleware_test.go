package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"portalgate/pkg/accounts"
)

type resolverFunc func(r *http.Request) (accounts.Account, error)

func (f resolverFunc) Resolve(r *http.Request) (accounts.Account, error) { return f(r) }

type rejection struct {
	status int
	msg    string
}

func (r rejection) Error() string   { return r.msg }
func (r rejection) StatusCode() int { return r.status }

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json response, got %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body["error"]
}

func TestRequireAccount(t *testing.T) {
	acct := accounts.Account{ID: uuid.New(), Domain: "x.bitrix24.com"}
	var seen accounts.Account
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AccountFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	log := zap.NewNop().Sugar()

	rec := httptest.NewRecorder()
	ok := resolverFunc(func(*http.Request) (accounts.Account, error) { return acct, nil })
	RequireAccount(ok, log)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent || seen.ID != acct.ID {
		t.Fatalf("expected account attached, got %d %+v", rec.Code, seen)
	}

	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"rejection", rejection{http.StatusUnauthorized, "JWT token has expired"}, http.StatusUnauthorized, "JWT token has expired"},
		{"wrapped rejection", errors.Join(errors.New("ctx"), rejection{http.StatusBadRequest, "Missing PLACEMENT"}), http.StatusBadRequest, "Missing PLACEMENT"},
		{"fault", errors.New("db down"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			h := RequireAccount(resolverFunc(func(*http.Request) (accounts.Account, error) {
				return accounts.Account{}, tc.err
			}), log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if called {
				t.Fatal("handler must not run")
			}
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if msg := decodeError(t, rec); msg != tc.msg {
				t.Fatalf("expected %q, got %q", tc.msg, msg)
			}
		})
	}
}

func TestAccountFromEmptyContext(t *testing.T) {
	if _, ok := AccountFrom(httptest.NewRequest(http.MethodGet, "/", nil).Context()); ok {
		t.Fatal("expected no account")
	}
}

func TestRecoverWritesJSON(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := chi.NewRouter()
	r.Use(RequestID())
	r.Use(Recover(zap.New(core).Sugar()))
	r.Get("/boom/{id}", func(http.ResponseWriter, *http.Request) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom/1", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "kaboom" {
		t.Fatalf("unexpected message %q", msg)
	}
	entries := logs.All()
	if len(entries) != 1 || entries[0].ContextMap()["route"] != "/boom/{id}" {
		t.Fatalf("expected one panic log with route, got %+v", entries)
	}
}

func TestRequestID(t *testing.T) {
	var got string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RequestIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc")
	h.ServeHTTP(rec, req)
	if got != "abc" || rec.Header().Get("X-Request-Id") != "abc" {
		t.Fatalf("expected propagated id, got %q", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("expected generated uuid, got %q", got)
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := CORS([]string{"https://portal.test"})(next)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://portal.test")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "https://portal.test" {
		t.Fatalf("unexpected preflight %d %v", rec.Code, rec.Header())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.test")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected response for foreign origin %d %v", rec.Code, rec.Header())
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatal("foreign origin must not get credentials")
	}
}

func TestCORSWildcardHasNoCredentials(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := CORS([]string{"*", "https://portal.test"})(next)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.test")
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatal("wildcard match must not allow credentials")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://portal.test")
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://portal.test" || rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("expected exact origin with credentials, got %v", rec.Header())
	}
}

func TestCORSNoOriginsConfigured(t *testing.T) {
	h := CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://portal.test")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected pass-through without CORS headers, got %d %v", rec.Code, rec.Header())
	}
}

func TestInstrumentRecordsStatusAndDoubleWrites(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := chi.NewRouter()
	r.Use(Instrument(zap.New(core).Sugar(), true))
	r.Get("/twice", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/twice", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected first status to win, got %d", rec.Code)
	}
	if logs.FilterMessage("double WriteHeader").Len() != 1 {
		t.Fatalf("expected double write warning, got %+v", logs.All())
	}
}
