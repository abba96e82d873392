package domain

import "time"

// Attachment is the descriptor of an already-uploaded file. The chat core
// never touches the underlying bytes; upload happens before Send is called.
type Attachment struct {
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename"`
	SizeBytes        int64  `json:"size_bytes"`
	MimeType         string `json:"mime_type"`
	URL              string `json:"url"`
}

// Message is a persisted chat message. Immutable once stored. Messages within
// a room are totally ordered by id (ids are lexicographically time-ordered).
type Message struct {
	ID          string       `json:"id"`
	RoomID      string       `json:"room_id"`
	SenderID    string       `json:"sender_id,omitempty"` // empty for anonymous senders
	SenderName  string       `json:"sender_name"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// HistoryPage is one backward page of room history, newest first.
type HistoryPage struct {
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"next_cursor,omitempty"`
	HasMore    bool      `json:"has_more"`
}

// RoomMetadata holds read-only display fields about the business object
// (order/treaty) behind a room. Enrichment only; never written by this core.
type RoomMetadata struct {
	RoomID    string    `json:"room_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification kinds.
const (
	NotificationNewMessage = "new_message"
	NotificationMention    = "mention"
)

// NotificationEvent is a transient event routed to a user's personal channel
// independent of room membership. Not persisted by this core.
type NotificationEvent struct {
	Kind         string `json:"kind"`
	RoomID       string `json:"room_id"`
	MessageID    string `json:"message_id"`
	SenderName   string `json:"sender_name"`
	Preview      string `json:"preview"`
	TargetUserID string `json:"target_user_id"`
}

const previewLimit = 120

// PreviewOf truncates message text for notification payloads.
func PreviewOf(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit]) + "…"
}
