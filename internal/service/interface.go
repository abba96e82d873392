package service

import (
	"context"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/hub"
)

type ChatService interface {
	HandleAuth(ctx context.Context, client *hub.Client, token, displayName string) error
	HandleJoinRoom(ctx context.Context, client *hub.Client, roomID string) error
	HandleChatMessage(ctx context.Context, client *hub.Client, text string, attachment *domain.Attachment) error
	HandleLoadOlder(ctx context.Context, client *hub.Client, cursor string, limit int) error
	HandleTypingStart(client *hub.Client) error
	HandleTypingStop(client *hub.Client) error
	HandleLeaveRoom(ctx context.Context, client *hub.Client) error
	HandleDisconnect(ctx context.Context, client *hub.Client) error
	Start(ctx context.Context) error
	Stop() error
}
