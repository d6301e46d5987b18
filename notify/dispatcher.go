package notify

import (
	"context"
	"log"
	"time"

	"lancehub/apperr"
	"lancehub/models"
	"lancehub/mq"
	"lancehub/rdx"
	"lancehub/utils"
)

// Store is the slice of the document store the dispatcher needs.
type Store interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
	GetConversationByKey(ctx context.Context, key string) (*models.Conversation, error)
	InsertConversation(ctx context.Context, c *models.Conversation) error
	TouchConversation(ctx context.Context, conversationID, preview string, at time.Time) error
	InsertMessage(ctx context.Context, msg *models.Message) error
	InsertPortfolioEntry(ctx context.Context, entry *models.PortfolioEntry) error
}

// Events receives fire-and-forget signals for the live hub and the unread
// counters. Both are best-effort by contract.
type Events interface {
	Emit(ctx context.Context, event, userID string, data map[string]any)
	IncrUnread(ctx context.Context, userID string)
}

// RedisEvents is the production Events sink.
type RedisEvents struct{}

func (RedisEvents) Emit(ctx context.Context, event, userID string, data map[string]any) {
	mq.Emit(ctx, event, userID, data)
}

func (RedisEvents) IncrUnread(ctx context.Context, userID string) {
	if err := rdx.IncrUnread(ctx, userID); err != nil {
		log.Printf("notify: unread counter for %s: %v", userID, err)
	}
}

type Dispatcher struct {
	store  Store
	events Events
}

func NewDispatcher(store Store, events Events) *Dispatcher {
	return &Dispatcher{store: store, events: events}
}

// Notify persists a notification and publishes a live event. The error return
// is for the executor's logging only; callers on a primary path must never
// propagate it.
func (d *Dispatcher) Notify(ctx context.Context, userID, ntype, title, message string, data map[string]any) (*models.Notification, error) {
	n := &models.Notification{
		NotificationID: utils.GenerateRandomString(16),
		UserID:         userID,
		Type:           ntype,
		Title:          title,
		Message:        message,
		Data:           data,
		CreatedAt:      time.Now(),
	}

	if err := d.store.InsertNotification(ctx, n); err != nil {
		return nil, err
	}

	d.events.IncrUnread(ctx, userID)
	d.events.Emit(ctx, "notification", userID, map[string]any{
		"notificationid": n.NotificationID,
		"type":           ntype,
		"title":          title,
	})

	return n, nil
}

// SendSystemMessage appends a message with the reserved system sender to the
// conversation identified by key, creating it on first use.
func (d *Dispatcher) SendSystemMessage(ctx context.Context, key string, participants []string, content, messageType string, metadata map[string]any) (*models.Message, error) {
	conv, err := d.getOrCreateConversation(ctx, key, participants)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &models.Message{
		MessageID:      utils.GenerateRandomString(16),
		ConversationID: conv.ConversationID,
		SenderID:       models.SystemSenderID,
		Content:        content,
		MessageType:    messageType,
		Metadata:       metadata,
		CreatedAt:      now,
	}

	if err := d.store.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := d.store.TouchConversation(ctx, conv.ConversationID, content, now); err != nil {
		log.Printf("notify: touch conversation %s: %v", conv.ConversationID, err)
	}

	for _, uid := range participants {
		d.events.Emit(ctx, "message", uid, map[string]any{
			"conversationId": conv.ConversationID,
			"messageType":    messageType,
		})
	}

	return msg, nil
}

func (d *Dispatcher) getOrCreateConversation(ctx context.Context, key string, participants []string) (*models.Conversation, error) {
	conv, err := d.store.GetConversationByKey(ctx, key)
	if err == nil {
		return conv, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	conv = &models.Conversation{
		ConversationID: utils.GenerateRandomString(16),
		Key:            key,
		Participants:   participants,
		CreatedAt:      time.Now(),
	}
	if err := d.store.InsertConversation(ctx, conv); err != nil {
		// lost a create race; the other writer's conversation wins
		if existing, gerr := d.store.GetConversationByKey(ctx, key); gerr == nil {
			return existing, nil
		}
		return nil, err
	}
	return conv, nil
}
