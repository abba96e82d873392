package domain

import "time"

// PresenceEntry is the derived membership record for one session in one room.
type PresenceEntry struct {
	RoomID      string    `json:"room_id"`
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id,omitempty"`
	DisplayName string    `json:"display_name"`
	Anonymous   bool      `json:"anonymous"`
	JoinedAt    time.Time `json:"joined_at"`
}

// PresenceDiff is an incremental join/leave event. Diffs are a notification
// mechanism only; consumers recompute derived views from the full snapshot.
type PresenceDiff struct {
	RoomID string          `json:"room_id"`
	Joins  []PresenceEntry `json:"joins,omitempty"`
	Leaves []PresenceEntry `json:"leaves,omitempty"`
}

// TypingDiff signals a change in one participant's typing state.
type TypingDiff struct {
	RoomID      string `json:"room_id"`
	SessionID   string `json:"session_id"`
	DisplayName string `json:"display_name"`
	Typing      bool   `json:"typing"`
}
