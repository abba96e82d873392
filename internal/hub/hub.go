package hub

import (
	"encoding/json"
	"sync"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/config"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/log"
)

// Hub is the broadcast fabric shared by all sessions: per-room channels for
// in-room events and per-user personal channels for notifications. A single
// run loop drains the event queue, so events submitted for the same room are
// delivered in submission order.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client            // clientID -> client
	rooms   map[string]map[string]*Client // roomID -> clientID -> client
	users   map[string]map[string]*Client // userID -> clientID -> client

	register   chan *Client
	unregister chan *Client
	events     chan *event
	config     config.WebSocketConfig
}

type event struct {
	roomID   string // fan out to a room when set
	userID   string // fan out to a user's personal channel when set
	skipRoom string // for user events: skip connections currently viewing this room
	payload  []byte
	exclude  string // client ID to exclude
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		users:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan *event, 512),
		config:     cfg,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.L().Debug().Str(log.FieldClientID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for roomID, members := range h.rooms {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.rooms, roomID)
					}
				}
				for userID, conns := range h.users {
					delete(conns, client.ID)
					if len(conns) == 0 {
						delete(h.users, userID)
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			log.L().Debug().Str(log.FieldClientID, client.ID).Msg("client unregistered")

		case ev := <-h.events:
			h.deliver(ev)
		}
	}
}

func (h *Hub) deliver(ev *event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var targets map[string]*Client
	if ev.roomID != "" {
		targets = h.rooms[ev.roomID]
	} else {
		targets = h.users[ev.userID]
	}

	for clientID, client := range targets {
		if clientID == ev.exclude {
			continue
		}
		if ev.skipRoom != "" && client.Session.RoomID() == ev.skipRoom {
			continue
		}
		select {
		case client.Send <- ev.payload:
		default:
			// Slow consumer: drop the connection rather than block the fabric.
			go h.Unregister(client)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// JoinRoom subscribes a client to a room's broadcast channel.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
	log.L().Info().Str(log.FieldClientID, client.ID).Str(log.FieldRoomID, roomID).Msg("client joined room")
}

// LeaveRoom unsubscribes a client from a room's broadcast channel.
func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[roomID]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	log.L().Info().Str(log.FieldClientID, client.ID).Str(log.FieldRoomID, roomID).Msg("client left room")
}

// BindUser subscribes a client to its user's personal channel. Anonymous
// sessions are never bound.
func (h *Hub) BindUser(client *Client, userID string) {
	if userID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[string]*Client)
	}
	h.users[userID][client.ID] = client
}

// BroadcastToRoom queues an event for every client subscribed to the room.
// Events queued for the same room are delivered in call order.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.events <- &event{roomID: roomID, payload: data, exclude: exclude}
	return nil
}

// SendToUser queues an event for every connection of a user.
func (h *Hub) SendToUser(userID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.events <- &event{userID: userID, payload: data}
	return nil
}

// SendToUserExceptRoom queues an event for a user's connections that are not
// currently viewing the given room (new-message notification suppression).
func (h *Hub) SendToUserExceptRoom(userID, roomID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.events <- &event{userID: userID, skipRoom: roomID, payload: data}
	return nil
}

// RoomClientCount reports how many clients are subscribed to a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
