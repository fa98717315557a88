package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"codelab/internal/gateway/handler"
	"codelab/internal/gateway/middleware"
)

func NewMux(
	sessionHandler *handler.SessionHandler,
	debugHandler *handler.DebugHandler,
	analysisWS http.HandlerFunc,
) http.Handler {
	mux := http.NewServeMux()

	// Session
	mux.HandleFunc("/api/dispatch", sessionHandler.HandleDispatch)
	mux.HandleFunc("/api/state", sessionHandler.HandleState)
	mux.HandleFunc("/ws/state", sessionHandler.HandleStateWS)

	// Editor language service
	mux.HandleFunc("/ws/analysis", analysisWS)

	// Operations
	mux.HandleFunc("/healthz", debugHandler.HandleHealth)
	mux.HandleFunc("/debug/declarations", debugHandler.HandleDeclarations)
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.CORS(mux)
}
