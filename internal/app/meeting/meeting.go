/*
Package meeting resolves meeting records owned by the scheduling service.

The signaling server only reads meetings: it needs a meeting's status and the
room id assigned when the meeting was started, so that guests who know only
the meeting id land in the same room as the authenticated host.
*/
package meeting

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a meeting.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ErrNotFound is returned when no meeting has the requested id.
var ErrNotFound = errors.New("meeting not found")

// Meeting is the read-only view of a meeting record.
type Meeting struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	RoomID      string    `json:"roomId,omitempty"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Duration    int       `json:"duration"`
}

// Joinable reports whether participants may still enter the meeting.
func (m Meeting) Joinable() bool {
	return m.Status == StatusScheduled || m.Status == StatusActive
}

// Directory looks meetings up by id.
type Directory interface {
	Find(ctx context.Context, meetingID string) (Meeting, error)
}

// RoomFor returns the signaling room for meetingID: the meeting's assigned room
// when one exists, otherwise the meeting id itself. Lookup failures fall back
// to the meeting id too, so a directory outage never blocks presence.
func RoomFor(ctx context.Context, dir Directory, meetingID string) string {
	if dir == nil {
		return meetingID
	}

	m, err := dir.Find(ctx, meetingID)
	if err != nil || m.RoomID == "" {
		return meetingID
	}

	return m.RoomID
}
