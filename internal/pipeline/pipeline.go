package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/config"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/hub"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/mention"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/notify"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/presence"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/repository"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/log"
)

const numStripes = 64

// Pipeline is the single ingestion path for outgoing messages:
// validate, persist, broadcast, notify. A message becomes visible to the room
// only after the store accepted it, and per-room ordering is pinned by a
// stripe lock held from id assignment through broadcast enqueue.
type Pipeline struct {
	repo       repository.MessageRepository
	hub        *hub.Hub
	registry   *presence.Registry
	dispatcher *notify.Dispatcher

	maxTextLength int
	sendTimeout   time.Duration

	stripes [numStripes]sync.Mutex
}

func New(repo repository.MessageRepository, h *hub.Hub, registry *presence.Registry, dispatcher *notify.Dispatcher, cfg config.ChatConfig) *Pipeline {
	return &Pipeline{
		repo:          repo,
		hub:           h,
		registry:      registry,
		dispatcher:    dispatcher,
		maxTextLength: cfg.MaxTextLength,
		sendTimeout:   cfg.SendTimeout,
	}
}

func (p *Pipeline) stripeFor(roomID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(roomID))
	return &p.stripes[h.Sum32()%numStripes]
}

// Send runs one message through the pipeline on behalf of a session. The
// returned message carries the store-assigned id and timestamp. Every error
// is recoverable for the session; on error nothing was broadcast.
func (p *Pipeline) Send(ctx context.Context, session *domain.Session, text string, attachment *domain.Attachment) (*domain.Message, error) {
	if !session.IsJoined() {
		return nil, domain.ErrNotConnected
	}
	roomID := session.RoomID()

	if strings.TrimSpace(text) == "" && attachment == nil {
		return nil, domain.ErrEmptyMessage
	}
	if len([]rune(text)) > p.maxTextLength {
		return nil, fmt.Errorf("%w: %d runes, max %d", domain.ErrMessageTooLong, len([]rune(text)), p.maxTextLength)
	}

	identity := session.Identity()
	msg := domain.Message{
		RoomID:     roomID,
		SenderID:   identity.UserID,
		SenderName: identity.DisplayName,
		Text:       text,
	}
	if identity.Anonymous {
		msg.SenderID = ""
	}
	if attachment != nil {
		msg.Attachments = []domain.Attachment{*attachment}
	}

	// The stripe lock spans id assignment, persist and broadcast enqueue, so
	// two sends to the same room cannot interleave: broadcast order equals id
	// order equals persist order.
	stripe := p.stripeFor(roomID)
	stripe.Lock()

	now := time.Now().UTC()
	msg.ID = repository.NewMessageID(now)
	msg.CreatedAt = now

	persistCtx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	err := p.repo.Insert(persistCtx, msg)
	cancel()
	if err != nil {
		stripe.Unlock()
		if errors.Is(err, context.DeadlineExceeded) {
			log.Ctx(ctx).Error().Err(err).Str(log.FieldRoomID, roomID).Msg("message persist timed out")
			return nil, fmt.Errorf("%w: persisting message", domain.ErrTimeout)
		}
		log.Ctx(ctx).Error().Err(err).Str(log.FieldRoomID, roomID).Msg("message persist failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	broadcastErr := p.hub.BroadcastToRoom(roomID, &domain.MessageEvent{
		Type:    domain.EvtTypeMessage,
		Message: msg,
	}, "")
	stripe.Unlock()

	if broadcastErr != nil {
		// The message is durable; only the fan-out failed. The sender still
		// gets a success, and readers recover the message from history.
		log.Ctx(ctx).Error().Err(broadcastErr).Str(log.FieldMessageID, msg.ID).Msg("broadcast enqueue failed")
	}

	log.Ctx(ctx).Info().
		Str(log.FieldMessageID, msg.ID).
		Str(log.FieldRoomID, roomID).
		Str(log.FieldDisplayName, msg.SenderName).
		Msg("message committed")

	go p.notifyFor(msg)

	return &msg, nil
}

// notifyFor resolves notification targets from the room's current presence
// and hands off to the dispatcher. Runs outside the stripe lock.
func (p *Pipeline) notifyFor(msg domain.Message) {
	members := p.registry.List(msg.RoomID)

	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.DisplayName)
	}

	var mentioned []domain.PresenceEntry
	for _, name := range mention.Extract(msg.Text, names) {
		for _, m := range members {
			if strings.EqualFold(m.DisplayName, name) {
				mentioned = append(mentioned, m)
			}
		}
	}

	p.dispatcher.Dispatch(msg, members, mentioned)
}
