package service

import (
	"context"
	"sync"
	"time"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/audit"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/config"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/history"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/hub"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/identity"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/metadata"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/pipeline"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/presence"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/typing"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/log"
)

// chatService coordinates the session lifecycle: auth, join, send, paginate,
// typing, leave. Per-connection handlers run on the connection's read pump,
// so calls for one session never race each other.
type chatService struct {
	hub      *hub.Hub
	registry *presence.Registry
	typing   *typing.Coordinator
	pipeline *pipeline.Pipeline
	loader   *history.Loader
	resolver *identity.Resolver
	metadata metadata.Provider
	audit    *audit.Recorder
	presCfg  config.PresenceConfig

	// A session with no frame for this long is considered stalled and stops
	// refreshing presence. Derived from the websocket pong deadline so that
	// the regular pong cadence always counts as liveness.
	stallAfter time.Duration

	// One presence watcher per room with live sessions, refcounted.
	wmu      sync.Mutex
	watchers map[string]*roomWatcher

	cancel context.CancelFunc
}

type roomWatcher struct {
	refs   int
	cancel func()
}

func NewChatService(
	h *hub.Hub,
	registry *presence.Registry,
	typingCoord *typing.Coordinator,
	pipe *pipeline.Pipeline,
	loader *history.Loader,
	resolver *identity.Resolver,
	meta metadata.Provider,
	auditor *audit.Recorder,
	presCfg config.PresenceConfig,
	wsCfg config.WebSocketConfig,
) ChatService {
	return &chatService{
		hub:        h,
		registry:   registry,
		typing:     typingCoord,
		pipeline:   pipe,
		loader:     loader,
		resolver:   resolver,
		metadata:   meta,
		audit:      auditor,
		presCfg:    presCfg,
		stallAfter: wsCfg.PongWait,
		watchers:   make(map[string]*roomWatcher),
	}
}

// HandleAuth resolves the identity and never rejects the connection: a bad
// or missing token downgrades to anonymous.
func (s *chatService) HandleAuth(ctx context.Context, c *hub.Client, token, displayName string) error {
	id := s.resolver.Resolve(token, displayName)
	c.Session.Authenticate(id)
	s.hub.BindUser(c, id.UserID)

	if err := c.SendEvent(&domain.AuthResultEvent{
		Type:     domain.EvtTypeAuthResult,
		Success:  true,
		Identity: id,
	}); err != nil {
		return err
	}

	if c.Session.StatusTransition(domain.StatusConnected) {
		c.SendEvent(&domain.ConnectionStatusEvent{
			Type:   domain.EvtTypeConnectionStatus,
			Status: domain.StatusConnected,
		})
	}
	return nil
}

// HandleJoinRoom subscribes the session to a room and replies with the
// snapshot: newest history page, presence list and metadata. When the store
// is unreachable the join still succeeds with history_available=false.
func (s *chatService) HandleJoinRoom(ctx context.Context, c *hub.Client, roomID string) error {
	if !c.Session.IsAuthenticated() {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeUnauthorized, "Not authenticated"))
	}
	if roomID == "" {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "room_id is required"))
	}
	if c.Session.IsInRoom() {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Session already joined a room"))
	}
	if !c.Session.Join(roomID) {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Session already left"))
	}

	s.hub.JoinRoom(c, roomID)
	s.watchRoom(roomID)

	entry := c.Session.PresenceEntry()
	s.registry.Register(entry)
	s.startHeartbeat(c)
	s.audit.RoomJoined(entry)

	event := &domain.RoomJoinedEvent{
		Type:             domain.EvtTypeRoomJoined,
		RoomID:           roomID,
		Messages:         []domain.Message{},
		HistoryAvailable: true,
		Presence:         s.registry.List(roomID),
	}

	page, err := s.loader.Load(ctx, roomID, "", 0)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("join proceeds without history")
		event.HistoryAvailable = false
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeRoomUnavailable, "History temporarily unavailable, retry with load_older"))
	} else {
		event.Messages = page.Messages
		event.NextCursor = page.NextCursor
		event.HasMore = page.HasMore
	}

	if meta, err := s.metadata.Get(ctx, roomID); err == nil && meta != nil {
		event.Metadata = meta
	}

	return c.SendEvent(event)
}

func (s *chatService) HandleChatMessage(ctx context.Context, c *hub.Client, text string, attachment *domain.Attachment) error {
	msg, err := s.pipeline.Send(ctx, c.Session, text, attachment)
	if err != nil {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrorCode(err), err.Error()))
	}

	// An explicit send is also a typing stop.
	s.typing.Stop(msg.RoomID, c.Session.ID)
	s.audit.MessageSent(*msg)
	return nil
}

// HandleLoadOlder serves backward pagination. A load racing another load on
// the same session is dropped silently.
func (s *chatService) HandleLoadOlder(ctx context.Context, c *hub.Client, cursor string, limit int) error {
	if !c.Session.IsJoined() {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeNotConnected, "Not in a room"))
	}
	if !c.Session.TryBeginLoadOlder() {
		return nil
	}
	defer c.Session.EndLoadOlder()

	roomID := c.Session.RoomID()
	page, err := s.loader.Load(ctx, roomID, cursor, limit)
	if err != nil {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrorCode(err), err.Error()))
	}

	return c.SendEvent(&domain.HistoryPageEvent{
		Type:       domain.EvtTypeHistoryPage,
		RoomID:     roomID,
		Messages:   page.Messages,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}

func (s *chatService) HandleTypingStart(c *hub.Client) error {
	if !c.Session.IsJoined() {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeNotConnected, "Not in a room"))
	}
	s.typing.Start(c.Session.RoomID(), c.Session.ID, c.Session.Identity().DisplayName)
	return nil
}

func (s *chatService) HandleTypingStop(c *hub.Client) error {
	if !c.Session.IsJoined() {
		return nil
	}
	s.typing.Stop(c.Session.RoomID(), c.Session.ID)
	return nil
}

// HandleLeaveRoom is the explicit, terminal leave.
func (s *chatService) HandleLeaveRoom(ctx context.Context, c *hub.Client) error {
	roomID, ok := s.teardown(c)
	if !ok {
		return nil
	}
	s.audit.RoomLeft(roomID, c.Session.ID)
	return nil
}

// HandleDisconnect runs when the connection dies without a leave. Presence
// is cleared immediately; the registry TTL would cover it regardless.
func (s *chatService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	roomID, ok := s.teardown(c)
	if !ok {
		return nil
	}
	s.audit.SessionDisconnected(c.Session.ID, roomID)
	return nil
}

// teardown runs the shared leave path exactly once per session.
func (s *chatService) teardown(c *hub.Client) (string, bool) {
	roomID, transitioned := c.Session.Leave()
	if !transitioned {
		return "", false
	}
	if roomID == "" {
		return "", false
	}

	s.typing.Stop(roomID, c.Session.ID)
	s.registry.Unregister(roomID, c.Session.ID)
	s.hub.LeaveRoom(c, roomID)
	s.unwatchRoom(roomID)
	if s.hub.RoomClientCount(roomID) == 0 {
		log.L().Debug().Str(log.FieldRoomID, roomID).Msg("room drained")
	}
	return roomID, true
}

// startHeartbeat refreshes the presence deadline on every beat while the
// session is joined. Refresh is not tied to client traffic: an idle but
// connected session stays present, and a dead connection is torn down by the
// read pump, which clears presence immediately.
func (s *chatService) startHeartbeat(c *hub.Client) {
	ctx, cancel := context.WithCancel(context.Background())
	c.Session.SetHeartbeatStop(cancel)

	roomID := c.Session.RoomID()
	go func() {
		ticker := time.NewTicker(s.presCfg.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !s.heartbeatTick(c, roomID) {
					return
				}
			}
		}
	}()
}

// heartbeatTick drives one beat of the session lifecycle. A session that has
// produced no frame within the pong deadline is marked disconnected and stops
// refreshing, so the registry TTL clears its entry; a later pong revives it
// and the entry is restored. Returns false once the session left for good.
func (s *chatService) heartbeatTick(c *hub.Client, roomID string) bool {
	switch c.Session.State() {
	case domain.StateLeft:
		return false
	case domain.StateDisconnected:
		// Waiting for a pong to revive the session via Touch.
		return true
	}

	if s.stallAfter > 0 && time.Since(c.Session.LastActive()) > s.stallAfter {
		if c.Session.MarkDisconnected() && c.Session.StatusTransition(domain.StatusDisconnected) {
			c.SendEvent(&domain.ConnectionStatusEvent{
				Type:   domain.EvtTypeConnectionStatus,
				Status: domain.StatusDisconnected,
			})
		}
		return true
	}

	if c.Session.StatusTransition(domain.StatusConnected) {
		c.SendEvent(&domain.ConnectionStatusEvent{
			Type:   domain.EvtTypeConnectionStatus,
			Status: domain.StatusConnected,
		})
	}

	if !s.registry.Heartbeat(roomID, c.Session.ID) && c.Session.IsJoined() {
		// Swept during a stall; the session recovered, restore its entry.
		s.registry.Register(c.Session.PresenceEntry())
	}
	return true
}

// watchRoom fans the registry's diff stream for a room out to the room's
// broadcast channel. One watcher per room, refcounted by joined sessions.
func (s *chatService) watchRoom(roomID string) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	if w, ok := s.watchers[roomID]; ok {
		w.refs++
		return
	}

	ch, cancel := s.registry.Watch(roomID)
	s.watchers[roomID] = &roomWatcher{refs: 1, cancel: cancel}

	go func() {
		for diff := range ch {
			s.hub.BroadcastToRoom(roomID, &domain.PresenceDiffEvent{
				Type:   domain.EvtTypePresenceDiff,
				RoomID: roomID,
				Joins:  diff.Joins,
				Leaves: diff.Leaves,
				Online: s.registry.Count(roomID),
			}, "")
		}
	}()
}

func (s *chatService) unwatchRoom(roomID string) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	w, ok := s.watchers[roomID]
	if !ok {
		return
	}
	w.refs--
	if w.refs > 0 {
		return
	}
	delete(s.watchers, roomID)
	w.cancel()
}

// Start launches the background sweepers.
func (s *chatService) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.registry.Run(ctx)
	go s.typing.Run(ctx)

	log.L().Info().Msg("chat service started")
	return nil
}

func (s *chatService) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}
