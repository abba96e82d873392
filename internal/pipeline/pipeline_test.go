package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/config"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/hub"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/notify"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/presence"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/repository"
)

type failingRepo struct {
	repository.MessageRepository
	err error
}

func (r *failingRepo) Insert(ctx context.Context, msg domain.Message) error {
	if r.err != nil {
		return r.err
	}
	return r.MessageRepository.Insert(ctx, msg)
}

type fixture struct {
	hub      *hub.Hub
	registry *presence.Registry
	repo     repository.MessageRepository
	pipeline *Pipeline
}

func newFixture(t *testing.T, repo repository.MessageRepository) *fixture {
	t.Helper()
	if repo == nil {
		repo = repository.NewMemoryMessageRepository()
	}

	wsCfg := config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 8192,
	}
	h := hub.NewHub(wsCfg)
	go h.Run()

	registry := presence.NewRegistry(time.Minute, time.Minute)
	dispatcher := notify.NewDispatcher(h, notify.NopExporter{})
	chatCfg := config.ChatConfig{
		MaxTextLength:   100,
		HistoryPageSize: 50,
		SendTimeout:     time.Second,
		LoadTimeout:     time.Second,
	}

	return &fixture{
		hub:      h,
		registry: registry,
		repo:     repo,
		pipeline: New(repo, h, registry, dispatcher, chatCfg),
	}
}

// joinedClient builds a client whose session is authenticated and joined,
// subscribed to the room's broadcast channel. No real socket is attached;
// events are read straight from the send buffer.
func (f *fixture) joinedClient(t *testing.T, id, roomID string, identity domain.Identity) *hub.Client {
	t.Helper()
	c := hub.NewClient(id, f.hub, nil, config.WebSocketConfig{})
	c.Session.Authenticate(identity)
	require.True(t, c.Session.Join(roomID))
	f.hub.JoinRoom(c, roomID)
	f.hub.BindUser(c, identity.UserID)
	f.registry.Register(c.Session.PresenceEntry())
	return c
}

func recvEvent(t *testing.T, c *hub.Client, v interface{}) {
	t.Helper()
	select {
	case data := <-c.Send:
		require.NoError(t, json.Unmarshal(data, v))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func assertNoEvent(t *testing.T, c *hub.Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected event: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	f := newFixture(t, nil)
	c := f.joinedClient(t, "c1", "42", domain.Identity{UserID: "u1", DisplayName: "ana"})

	_, err := f.pipeline.Send(context.Background(), c.Session, "   ", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	assertNoEvent(t, c)
}

func TestSendAllowsAttachmentOnlyMessage(t *testing.T) {
	f := newFixture(t, nil)
	c := f.joinedClient(t, "c1", "42", domain.Identity{UserID: "u1", DisplayName: "ana"})

	att := &domain.Attachment{Filename: "a.pdf", OriginalFilename: "laudo.pdf", SizeBytes: 10, MimeType: "application/pdf", URL: "/files/a.pdf"}
	msg, err := f.pipeline.Send(context.Background(), c.Session, "", att)
	require.NoError(t, err)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "laudo.pdf", msg.Attachments[0].OriginalFilename)
}

func TestSendRejectsOverlongMessage(t *testing.T) {
	f := newFixture(t, nil)
	c := f.joinedClient(t, "c1", "42", domain.Identity{UserID: "u1", DisplayName: "ana"})

	_, err := f.pipeline.Send(context.Background(), c.Session, strings.Repeat("x", 101), nil)
	assert.ErrorIs(t, err, domain.ErrMessageTooLong)
	assertNoEvent(t, c)
}

func TestSendRequiresJoinedSession(t *testing.T) {
	f := newFixture(t, nil)
	c := hub.NewClient("c1", f.hub, nil, config.WebSocketConfig{})
	c.Session.Authenticate(domain.Identity{UserID: "u1", DisplayName: "ana"})

	_, err := f.pipeline.Send(context.Background(), c.Session, "hello", nil)
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestSendPersistFailureBroadcastsNothing(t *testing.T) {
	repo := &failingRepo{
		MessageRepository: repository.NewMemoryMessageRepository(),
		err:               errors.New("write refused"),
	}
	f := newFixture(t, repo)
	sender := f.joinedClient(t, "c1", "42", domain.Identity{UserID: "u1", DisplayName: "ana"})
	reader := f.joinedClient(t, "c2", "42", domain.Identity{UserID: "u2", DisplayName: "bruno"})

	_, err := f.pipeline.Send(context.Background(), sender.Session, "hello", nil)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assertNoEvent(t, sender)
	assertNoEvent(t, reader)
}

func TestSendBroadcastsToAllRoomMembersIncludingSender(t *testing.T) {
	f := newFixture(t, nil)
	sender := f.joinedClient(t, "c1", "42", domain.Identity{UserID: "u1", DisplayName: "ana"})
	reader := f.joinedClient(t, "c2", "42", domain.Identity{UserID: "u2", DisplayName: "bruno"})
	outsider := f.joinedClient(t, "c3", "7", domain.Identity{UserID: "u3", DisplayName: "carla"})

	sent, err := f.pipeline.Send(context.Background(), sender.Session, "hello", nil)
	require.NoError(t, err)
	require.NotEmpty(t, sent.ID)

	for _, c := range []*hub.Client{sender, reader} {
		var ev domain.MessageEvent
		recvEvent(t, c, &ev)
		assert.Equal(t, domain.EvtTypeMessage, ev.Type)
		assert.Equal(t, sent.ID, ev.Message.ID)
		assert.Equal(t, "hello", ev.Message.Text)
		assert.Equal(t, "ana", ev.Message.SenderName)
	}
	assertNoEvent(t, outsider)
}

func TestSendIsDurableBeforeVisible(t *testing.T) {
	f := newFixture(t, nil)
	sender := f.joinedClient(t, "c1", "42", domain.Identity{UserID: "u1", DisplayName: "ana"})

	sent, err := f.pipeline.Send(context.Background(), sender.Session, "hello", nil)
	require.NoError(t, err)

	var ev domain.MessageEvent
	recvEvent(t, sender, &ev)

	// The broadcast message must already be readable from the store.
	page, err := f.repo.Page(context.Background(), "42", "", 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, sent.ID, page[0].ID)
}

func TestSendsToSameRoomKeepSubmissionOrder(t *testing.T) {
	f := newFixture(t, nil)
	sender := f.joinedClient(t, "c1", "42", domain.Identity{UserID: "u1", DisplayName: "ana"})
	reader := f.joinedClient(t, "c2", "42", domain.Identity{UserID: "u2", DisplayName: "bruno"})

	const n = 20
	for i := 0; i < n; i++ {
		_, err := f.pipeline.Send(context.Background(), sender.Session, strings.Repeat("a", i+1), nil)
		require.NoError(t, err)
	}

	var lastID string
	for i := 0; i < n; i++ {
		var ev domain.MessageEvent
		recvEvent(t, reader, &ev)
		assert.Len(t, ev.Message.Text, i+1, "events must arrive in submission order")
		assert.Greater(t, ev.Message.ID, lastID)
		lastID = ev.Message.ID
	}
}

func TestAnonymousSenderHasNoSenderID(t *testing.T) {
	f := newFixture(t, nil)
	sender := f.joinedClient(t, "c1", "42", domain.Identity{DisplayName: "visitante-ab12cd34", Anonymous: true})

	sent, err := f.pipeline.Send(context.Background(), sender.Session, "oi", nil)
	require.NoError(t, err)
	assert.Empty(t, sent.SenderID)
	assert.Equal(t, "visitante-ab12cd34", sent.SenderName)
}

func TestMentionNotificationReachesTargetUser(t *testing.T) {
	f := newFixture(t, nil)
	sender := f.joinedClient(t, "c1", "42", domain.Identity{UserID: "u-ana", DisplayName: "ana"})
	target := f.joinedClient(t, "c2", "42", domain.Identity{UserID: "u-bruno", DisplayName: "bruno"})

	sent, err := f.pipeline.Send(context.Background(), sender.Session, "@bruno confere isso", nil)
	require.NoError(t, err)

	// The target reads two events in either order: the room broadcast and
	// the mention notification.
	var sawMention bool
	for i := 0; i < 2; i++ {
		var ev domain.NotificationWireEvent
		recvEvent(t, target, &ev)
		if ev.Type != domain.EvtTypeNotification {
			continue
		}
		assert.Equal(t, domain.NotificationMention, ev.Notification.Kind)
		assert.Equal(t, sent.ID, ev.Notification.MessageID)
		assert.Equal(t, "u-bruno", ev.Notification.TargetUserID)
		sawMention = true
	}
	assert.True(t, sawMention, "mention notification not delivered")

	// Sender only gets the room broadcast, never a self notification.
	var ev domain.MessageEvent
	recvEvent(t, sender, &ev)
	assertNoEvent(t, sender)
}
