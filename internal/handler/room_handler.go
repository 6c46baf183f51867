/*
Package handler provides the HTTP handlers and routing setup for the signaling server.

This file exposes read-only room state and the ICE server list.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"meetsignal/internal/pkg/errs"
	"meetsignal/internal/pkg/resp"
)

// ParticipantView is one roster entry as served over REST.
type ParticipantView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsGuest bool   `json:"isGuest"`
}

// HandleListParticipants returns the current roster of a room in join order.
// Unknown rooms answer with an empty list.
func HandleListParticipants(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomId")
		if roomID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		roster := deps.Hub.Registry().RosterOf(roomID)

		views := make([]ParticipantView, 0, len(roster))
		for _, p := range roster {
			views = append(views, ParticipantView{ID: p.ID, Name: p.Name, IsGuest: p.IsGuest()})
		}

		resp.RespondSuccess(w, r, map[string]any{
			"roomId":       roomID,
			"participants": views,
		})
	}
}

// HandleICEServers returns the STUN/TURN servers clients should use.
func HandleICEServers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"iceServers": deps.Config.ICEServers,
		})
	}
}
