// Package notify routes transient notification events to personal channels.
// Dispatch is fire-and-forget: it runs after a message is already committed
// and broadcast, and no failure here reaches the sender.
package notify

import (
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/hub"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/log"
)

type Dispatcher struct {
	hub      *hub.Hub
	exporter EventExporter
}

func NewDispatcher(h *hub.Hub, exporter EventExporter) *Dispatcher {
	if exporter == nil {
		exporter = NopExporter{}
	}
	return &Dispatcher{hub: h, exporter: exporter}
}

// Dispatch fans out notifications for a committed message. Mentioned users
// get a mention event on every connection; other users present in the room
// get a new_message event on connections not currently viewing the room.
// A mention supersedes new_message for the same user. Anonymous identities
// are never targets; the sender never notifies itself.
func (d *Dispatcher) Dispatch(msg domain.Message, members, mentioned []domain.PresenceEntry) {
	preview := domain.PreviewOf(msg.Text)

	mentionTargets := make(map[string]struct{})
	for _, m := range mentioned {
		if m.Anonymous || m.UserID == "" || m.UserID == msg.SenderID {
			continue
		}
		if _, dup := mentionTargets[m.UserID]; dup {
			continue
		}
		mentionTargets[m.UserID] = struct{}{}

		event := domain.NotificationEvent{
			Kind:         domain.NotificationMention,
			RoomID:       msg.RoomID,
			MessageID:    msg.ID,
			SenderName:   msg.SenderName,
			Preview:      preview,
			TargetUserID: m.UserID,
		}
		if err := d.hub.SendToUser(m.UserID, &domain.NotificationWireEvent{
			Type:         domain.EvtTypeNotification,
			Notification: event,
		}); err != nil {
			log.L().Warn().Err(err).Str(log.FieldUserID, m.UserID).Msg("mention notification failed")
		}
		d.exporter.Export(event)
	}

	seen := make(map[string]struct{})
	for _, m := range members {
		if m.Anonymous || m.UserID == "" || m.UserID == msg.SenderID {
			continue
		}
		if _, isMention := mentionTargets[m.UserID]; isMention {
			continue
		}
		if _, dup := seen[m.UserID]; dup {
			continue
		}
		seen[m.UserID] = struct{}{}

		event := domain.NotificationEvent{
			Kind:         domain.NotificationNewMessage,
			RoomID:       msg.RoomID,
			MessageID:    msg.ID,
			SenderName:   msg.SenderName,
			Preview:      preview,
			TargetUserID: m.UserID,
		}
		if err := d.hub.SendToUserExceptRoom(m.UserID, msg.RoomID, &domain.NotificationWireEvent{
			Type:         domain.EvtTypeNotification,
			Notification: event,
		}); err != nil {
			log.L().Warn().Err(err).Str(log.FieldUserID, m.UserID).Msg("new-message notification failed")
		}
		d.exporter.Export(event)
	}
}
