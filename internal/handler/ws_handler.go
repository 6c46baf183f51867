/*
Package handler provides the HTTP handlers and routing setup for the signaling server.

This file upgrades /ws requests into signaling channels. Identity comes from
the optional token already placed on the request context; anonymous clients
may pass a display name in the name query parameter.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"meetsignal/internal/app/signal"
	"meetsignal/internal/pkg/auth/jwt"
	"meetsignal/internal/pkg/logx"
	"meetsignal/internal/pkg/randx"
)

// QueryGuestName carries an anonymous client's display name on the upgrade request.
const QueryGuestName = "name"

// HandleWebSocket upgrades the connection, registers the channel with the hub
// and runs its read loop until the client goes away.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		guestName := r.URL.Query().Get(QueryGuestName)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			logx.Warn("Failed to upgrade connection to WebSocket", "error", err.Error())
			return
		}

		channel := signal.NewChannel(deps.Hub, conn, randx.ChannelID(), deps.Config.PongWait)

		deps.Hub.Connect(channel, identity, guestName)

		go channel.WritePump()

		userID := ""
		if identity != nil {
			userID = identity.UserID
		}
		logx.Info("Signaling channel established", "channel_id", channel.ID(), "user_id", userID)

		channel.ReadPump(r.Context())
	}
}
