package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/config"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/hub"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/service"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	hub     *hub.Hub
	service service.ChatService
	wsCfg   config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, svc service.ChatService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
		wsCfg:   wsCfg,
	}
}

func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.L().Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleMessage, h.handleClose)
}

func (h *WSHandler) handleClose(client *hub.Client) {
	if err := h.service.HandleDisconnect(context.Background(), client); err != nil {
		log.L().Warn().Err(err).Str(log.FieldClientID, client.ID).Msg("disconnect cleanup failed")
	}
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid message format"))
		return
	}

	ctx := log.WithLogger(context.Background(),
		log.L().With().Str(log.FieldClientID, client.ID).Logger())

	switch base.Type {
	case domain.MsgTypeAuth:
		var msg domain.AuthMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid auth message"))
			return
		}
		if err := h.service.HandleAuth(ctx, client, msg.Token, msg.DisplayName); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("auth failed")
		}

	case domain.MsgTypeJoinRoom:
		var msg domain.JoinRoomMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid join_room message"))
			return
		}
		if err := h.service.HandleJoinRoom(ctx, client, msg.RoomID); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, msg.RoomID).Msg("join room failed")
		}

	case domain.MsgTypeChatMessage:
		var msg domain.ChatMessageIn
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid chat_message"))
			return
		}
		if err := h.service.HandleChatMessage(ctx, client, msg.Text, msg.Attachment); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("chat message failed")
		}

	case domain.MsgTypeLoadOlder:
		var msg domain.LoadOlderMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid load_older message"))
			return
		}
		if err := h.service.HandleLoadOlder(ctx, client, msg.Cursor, msg.Limit); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("load older failed")
		}

	case domain.MsgTypeTypingStart:
		h.service.HandleTypingStart(client)

	case domain.MsgTypeTypingStop:
		h.service.HandleTypingStop(client)

	case domain.MsgTypeLeaveRoom:
		if err := h.service.HandleLeaveRoom(ctx, client); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("leave room failed")
		}

	case domain.MsgTypePing:
		client.SendEvent(map[string]string{"type": domain.EvtTypePong})

	default:
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Unknown message type"))
	}
}
