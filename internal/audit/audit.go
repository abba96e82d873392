// Package audit writes structured audit records for room activity. Records
// go through the regular log stream tagged with a log_type so downstream
// collectors can split them off.
package audit

import (
	"github.com/rs/zerolog"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/log"
)

type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) event(action string) *zerolog.Event {
	return log.L().Info().Str(log.FieldLogType, log.LogTypeAudit).Str("action", action)
}

func (r *Recorder) RoomJoined(entry domain.PresenceEntry) {
	r.event("room_joined").
		Str(log.FieldRoomID, entry.RoomID).
		Str(log.FieldSessionID, entry.SessionID).
		Str(log.FieldDisplayName, entry.DisplayName).
		Bool("anonymous", entry.Anonymous).
		Send()
}

func (r *Recorder) RoomLeft(roomID, sessionID string) {
	r.event("room_left").
		Str(log.FieldRoomID, roomID).
		Str(log.FieldSessionID, sessionID).
		Send()
}

func (r *Recorder) MessageSent(msg domain.Message) {
	r.event("message_sent").
		Str(log.FieldRoomID, msg.RoomID).
		Str(log.FieldMessageID, msg.ID).
		Str(log.FieldDisplayName, msg.SenderName).
		Int("text_len", len(msg.Text)).
		Int("attachments", len(msg.Attachments)).
		Send()
}

func (r *Recorder) SessionDisconnected(sessionID, roomID string) {
	r.event("session_disconnected").
		Str(log.FieldSessionID, sessionID).
		Str(log.FieldRoomID, roomID).
		Send()
}
