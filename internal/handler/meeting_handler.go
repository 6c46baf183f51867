/*
Package handler provides the HTTP handlers and routing setup for the signaling server.

This file serves the meeting endpoints a client calls before opening its
signaling channel: the public meeting summary and the join check that tells
a guest which room and participant id to use.
*/
package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"meetsignal/internal/app/meeting"
	"meetsignal/internal/app/participant"
	"meetsignal/internal/pkg/auth/jwt"
	"meetsignal/internal/pkg/errs"
	"meetsignal/internal/pkg/logx"
	"meetsignal/internal/pkg/req"
	"meetsignal/internal/pkg/resp"
)

// MeetingInfo is the limited view of a meeting returned to any caller.
type MeetingInfo struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Status           meeting.Status `json:"status"`
	ScheduledAt      time.Time      `json:"scheduledAt"`
	Duration         int            `json:"duration"`
	RoomID           string         `json:"roomId,omitempty"`
	ParticipantCount int            `json:"participantCount"`
}

type JoinMeetingInput struct {
	GuestName string `json:"guestName,omitempty"`
}

// JoinMeetingOutput tells the client how to enter the meeting's room.
type JoinMeetingOutput struct {
	MeetingID     string `json:"meetingId"`
	RoomID        string `json:"roomId"`
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	IsGuest       bool   `json:"isGuest"`
}

// findMeeting loads the meeting named by the {id} URL parameter, mapping
// directory failures to client errors.
func findMeeting(deps *AppDeps, r *http.Request) (meeting.Meeting, *errs.CustomError) {
	id := chi.URLParam(r, "id")
	if id == "" {
		return meeting.Meeting{}, errs.NewError(errs.ErrInvalidParams)
	}

	if deps.Directory == nil {
		return meeting.Meeting{}, errs.NewError(errs.ErrDirectoryUnavailable)
	}

	m, err := deps.Directory.Find(r.Context(), id)
	switch {
	case errors.Is(err, meeting.ErrNotFound):
		return meeting.Meeting{}, errs.NewError(errs.ErrMeetingNotFound)
	case err != nil:
		logx.Error(err, "Meeting lookup failed", "meeting_id", id)
		return meeting.Meeting{}, errs.NewError(errs.ErrDirectoryUnavailable)
	}

	return m, nil
}

// roomOf is the signaling room of a loaded meeting; meetings without an
// assigned room use their own id, as meeting.RoomFor does.
func roomOf(m meeting.Meeting) string {
	if m.RoomID == "" {
		return m.ID
	}
	return m.RoomID
}

// HandleGetMeeting returns the public summary of a meeting.
func HandleGetMeeting(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, customErr := findMeeting(deps, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		info := MeetingInfo{
			ID:          m.ID,
			Title:       m.Title,
			Status:      m.Status,
			ScheduledAt: m.ScheduledAt,
			Duration:    m.Duration,
			RoomID:      m.RoomID,
		}
		if m.RoomID != "" {
			info.ParticipantCount = len(deps.Hub.Registry().RosterOf(m.RoomID))
		}

		resp.RespondSuccess(w, r, info)
	}
}

// HandleJoinMeeting checks that the caller may join the meeting and returns the
// room and participant id to use on the signaling channel. Authenticated
// callers join as themselves; guests need a display name and get a fresh
// guest id, and may only join once the meeting has a room.
func HandleJoinMeeting(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input JoinMeetingInput
		if r.ContentLength != 0 {
			if customErr := req.BindJSON(w, r, &input); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
		}

		m, customErr := findMeeting(deps, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !m.Joinable() {
			resp.RespondError(w, r, errs.NewError(errs.ErrMeetingNotJoinable, m.Status))
			return
		}

		if identity := jwt.GetPayloadFromContext(r); identity != nil {
			p := participant.Authenticated(identity, "")
			resp.RespondSuccess(w, r, JoinMeetingOutput{
				MeetingID:     m.ID,
				RoomID:        roomOf(m),
				ParticipantID: p.ID,
				Name:          p.Name,
			})
			return
		}

		name := strings.TrimSpace(input.GuestName)
		switch {
		case name == "":
			resp.RespondError(w, r, errs.NewError(errs.ErrGuestNameRequired))
			return
		case utf8.RuneCountInString(name) > participant.MaxNameLength:
			resp.RespondError(w, r, errs.NewError(errs.ErrGuestNameTooLong, participant.MaxNameLength))
			return
		}

		if m.RoomID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMeetingHasNoRoom))
			return
		}

		p, ok := participant.Guest("", name, "", time.Now())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		logx.Info("Guest admitted to meeting", "meeting_id", m.ID, "room_id", m.RoomID, "participant_id", p.ID)

		resp.RespondSuccess(w, r, JoinMeetingOutput{
			MeetingID:     m.ID,
			RoomID:        m.RoomID,
			ParticipantID: p.ID,
			Name:          p.Name,
			IsGuest:       true,
		})
	}
}
