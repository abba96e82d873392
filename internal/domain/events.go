package domain

// WebSocket message types from client.
const (
	MsgTypeAuth        = "auth"
	MsgTypeJoinRoom    = "join_room"
	MsgTypeChatMessage = "chat_message"
	MsgTypeLoadOlder   = "load_older"
	MsgTypeTypingStart = "typing_start"
	MsgTypeTypingStop  = "typing_stop"
	MsgTypeLeaveRoom   = "leave_room"
	MsgTypePing        = "ping"
)

// WebSocket event types to client.
const (
	EvtTypeAuthResult       = "auth_result"
	EvtTypeRoomJoined       = "room_joined"
	EvtTypeMessage          = "message"
	EvtTypePresenceDiff     = "presence_diff"
	EvtTypeTypingDiff       = "typing_diff"
	EvtTypeNotification     = "notification"
	EvtTypeConnectionStatus = "connection_status"
	EvtTypeHistoryPage      = "history_page"
	EvtTypeError            = "error"
	EvtTypePong             = "pong"
)

// Connection status values.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

type AuthMessage struct {
	Type        string `json:"type"`
	Token       string `json:"token,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

type JoinRoomMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type ChatMessageIn struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

type LoadOlderMessage struct {
	Type   string `json:"type"`
	Cursor string `json:"cursor"`
	Limit  int    `json:"limit,omitempty"`
}

// Server -> Client events

type AuthResultEvent struct {
	Type     string   `json:"type"`
	Success  bool     `json:"success"`
	Identity Identity `json:"identity"`
	Message  string   `json:"message,omitempty"`
}

// RoomJoinedEvent is the initial snapshot a session receives on join. When
// the message store was unreachable, HistoryAvailable is false and Messages
// is empty; the join still succeeds and the client may retry via load_older.
type RoomJoinedEvent struct {
	Type             string          `json:"type"`
	RoomID           string          `json:"room_id"`
	Messages         []Message       `json:"messages"`
	NextCursor       string          `json:"next_cursor,omitempty"`
	HasMore          bool            `json:"has_more"`
	HistoryAvailable bool            `json:"history_available"`
	Presence         []PresenceEntry `json:"presence"`
	Metadata         *RoomMetadata   `json:"metadata,omitempty"`
}

type MessageEvent struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

type PresenceDiffEvent struct {
	Type   string          `json:"type"`
	RoomID string          `json:"room_id"`
	Joins  []PresenceEntry `json:"joins,omitempty"`
	Leaves []PresenceEntry `json:"leaves,omitempty"`
	Online int             `json:"online"`
}

type TypingDiffEvent struct {
	Type string     `json:"type"`
	Diff TypingDiff `json:"diff"`
}

type NotificationWireEvent struct {
	Type         string            `json:"type"`
	Notification NotificationEvent `json:"notification"`
}

type ConnectionStatusEvent struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type HistoryPageEvent struct {
	Type       string    `json:"type"`
	RoomID     string    `json:"room_id"`
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"next_cursor,omitempty"`
	HasMore    bool      `json:"has_more"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorEvent(code, message string) *ErrorEvent {
	return &ErrorEvent{
		Type:    EvtTypeError,
		Code:    code,
		Message: message,
	}
}
