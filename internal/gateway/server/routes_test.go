package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"codelab/internal/curriculum"
	"codelab/internal/declaration"
	"codelab/internal/gateway/handler"
	"codelab/internal/session"
)

func TestNewMuxServesRoutes(t *testing.T) {
	store := session.NewStore(session.Options{
		Fresh: func() curriculum.SessionConfig {
			return curriculum.SessionConfig{Name: "routes"}
		},
	})
	gate := declaration.NewGate()
	synchronizer := declaration.NewSynchronizer(gate, declaration.Options{})
	mux := NewMux(
		handler.NewSessionHandler(store, nil),
		handler.NewDebugHandler(synchronizer, gate),
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) },
	)

	cases := map[string]int{
		"/healthz":            http.StatusOK,
		"/api/state":          http.StatusOK,
		"/debug/declarations": http.StatusOK,
		"/metrics":            http.StatusOK,
		"/ws/analysis":        http.StatusTeapot,
	}
	for path, want := range cases {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Fatalf("%s: status = %d, want %d", path, rec.Code, want)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dispatch", strings.NewReader(`{"type":"TOGGLE_AUTORUN"}`)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"autorun":true`) {
		t.Fatalf("dispatch: %d %s", rec.Code, rec.Body.String())
	}
}
