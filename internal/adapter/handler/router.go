package handler

import (
	"net/http"

	"github.com/rl1809/smart-pantry/internal/metrics"
)

// NewRouter wires every HTTP route, each instrumented under its pattern.
func NewRouter(httpHandler *HTTPHandler, assistantHandler *AssistantHandler) http.Handler {
	mux := http.NewServeMux()

	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"GET /health", httpHandler.HealthCheck},
		{"GET /api/pantry", httpHandler.ListItems},
		{"POST /api/pantry", httpHandler.AddItem},
		{"POST /api/pantry/command", httpHandler.Command},
		{"DELETE /api/pantry/{id}", httpHandler.DeleteItem},
		{"POST /api/google-assistant", assistantHandler.Fulfill},
	}
	for _, rt := range routes {
		mux.Handle(rt.pattern, metrics.Instrument(rt.pattern, rt.handler))
	}
	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}
