package api

import (
	"net/http"

	"chat-relay/infrastructure/ws"
)

// NewRouter wires the REST surface and the websocket entry point.
// Everything behind /api except registration and login requires a token.
func NewRouter(h *Handler, wsHandler *ws.Handler, authn *Middleware) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", h.Register)
	mux.HandleFunc("POST /api/login", h.Login)

	mux.Handle("POST /api/rooms", authn.RequireToken(http.HandlerFunc(h.CreateRoom)))
	mux.Handle("GET /api/rooms", authn.RequireToken(http.HandlerFunc(h.ListRooms)))
	mux.Handle("GET /api/rooms/{room}/messages", authn.RequireToken(http.HandlerFunc(h.History)))
	mux.Handle("GET /api/rooms/{room}/search", authn.RequireToken(http.HandlerFunc(h.Search)))

	mux.HandleFunc("GET /ws/{room}/{username}", wsHandler.ServeWS)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}
