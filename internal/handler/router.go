/*
Package handler provides the HTTP handlers and routing setup for the signaling server.

This file defines the main Router, applying logging, CORS and per-IP rate
limiting before delegating requests to the REST handlers and the WebSocket
endpoint.
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"meetsignal/internal/pkg/auth/jwt"
	"meetsignal/internal/pkg/limiter"
	"meetsignal/internal/pkg/logx"
	"meetsignal/internal/pkg/resp"
)

const (
	JoinRate    = 0.2
	JoinBurst   = 5
	SocketRate  = 1
	SocketBurst = 10
)

// Router builds the HTTP routing table. ctx bounds the rate limiters' background sweepers.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	joinLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(JoinRate), JoinBurst)
	socketLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(SocketRate), SocketBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"status":   "ok",
			"service":  "meetsignal",
			"channels": deps.Hub.ChannelCount(),
			"rooms":    deps.Hub.Registry().RoomCount(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/meetings/{id}", func(m chi.Router) {
			m.Get("/", HandleGetMeeting(deps))
			m.With(joinLimiter.Middleware).Post("/join", HandleJoinMeeting(deps))
		})

		api.Get("/rooms/{roomId}/participants", HandleListParticipants(deps))
		api.Get("/webrtc/ice-servers", HandleICEServers(deps))
	})

	r.With(socketLimiter.Middleware, jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret)).
		Get("/ws", HandleWebSocket(wsUpgrader, deps))

	return r
}
