package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/config"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
)

// CassandraMessageRepository stores messages in a table partitioned by room
// and clustered by message id descending, so backward pages are a single
// range scan.
type CassandraMessageRepository struct {
	session *gocql.Session
}

func NewCassandraMessageRepository(cfg config.CassandraConfig) (*CassandraMessageRepository, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = parseConsistency(cfg.Consistency)
	cluster.ConnectTimeout = cfg.ConnectTimeout
	cluster.Timeout = cfg.Timeout
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create cassandra session: %w", err)
	}

	return &CassandraMessageRepository{session: session}, nil
}

func (r *CassandraMessageRepository) Insert(ctx context.Context, msg domain.Message) error {
	var attachments string
	if len(msg.Attachments) > 0 {
		data, err := json.Marshal(msg.Attachments)
		if err != nil {
			return fmt.Errorf("failed to encode attachments: %w", err)
		}
		attachments = string(data)
	}

	query := `INSERT INTO messages_by_room (room_id, message_id, sender_id, sender_name, text, attachments, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	if err := r.session.Query(query,
		msg.RoomID, msg.ID, msg.SenderID, msg.SenderName, msg.Text, attachments, msg.CreatedAt,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (r *CassandraMessageRepository) Page(ctx context.Context, roomID, before string, limit int) ([]domain.Message, error) {
	var query string
	var args []interface{}

	if before == "" {
		query = `SELECT message_id, sender_id, sender_name, text, attachments, created_at
				 FROM messages_by_room
				 WHERE room_id = ?
				 ORDER BY message_id DESC
				 LIMIT ?`
		args = []interface{}{roomID, limit}
	} else {
		query = `SELECT message_id, sender_id, sender_name, text, attachments, created_at
				 FROM messages_by_room
				 WHERE room_id = ? AND message_id < ?
				 ORDER BY message_id DESC
				 LIMIT ?`
		args = []interface{}{roomID, before, limit}
	}

	iter := r.session.Query(query, args...).WithContext(ctx).Iter()

	var messages []domain.Message
	var msg domain.Message
	var attachments string

	for iter.Scan(&msg.ID, &msg.SenderID, &msg.SenderName, &msg.Text, &attachments, &msg.CreatedAt) {
		msg.RoomID = roomID
		if attachments != "" {
			if err := json.Unmarshal([]byte(attachments), &msg.Attachments); err != nil {
				iter.Close()
				return nil, fmt.Errorf("failed to decode attachments: %w", err)
			}
		}
		messages = append(messages, msg)
		msg = domain.Message{}
		attachments = ""
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

func (r *CassandraMessageRepository) Close() {
	if r.session != nil {
		r.session.Close()
	}
}

func parseConsistency(s string) gocql.Consistency {
	switch strings.ToUpper(s) {
	case "ANY":
		return gocql.Any
	case "ONE":
		return gocql.One
	case "TWO":
		return gocql.Two
	case "QUORUM":
		return gocql.Quorum
	case "ALL":
		return gocql.All
	case "LOCAL_QUORUM":
		return gocql.LocalQuorum
	case "EACH_QUORUM":
		return gocql.EachQuorum
	case "LOCAL_ONE":
		return gocql.LocalOne
	default:
		return gocql.LocalQuorum
	}
}
