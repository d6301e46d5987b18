package orders

import (
	"context"
	"time"

	"lancehub/apperr"
	"lancehub/models"
	"lancehub/notify"
	"lancehub/utils"
)

// Store is the document-store slice the order workflow owns transitions on.
type Store interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	InsertOrder(ctx context.Context, o *models.Order) error
	UpdateOrderIfStatus(ctx context.Context, orderID string, prev []string, fields map[string]any) (bool, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	InsertMessage(ctx context.Context, msg *models.Message) error
	TouchConversation(ctx context.Context, conversationID, preview string, at time.Time) error
}

type Workflow struct {
	store Store
}

func NewWorkflow(store Store) *Workflow {
	return &Workflow{store: store}
}

type CreateInput struct {
	SpecialistID   string  `json:"specialistId"`
	TariffID       string  `json:"tariffId"`
	Amount         float64 `json:"amount"`
	ConversationID string  `json:"conversationId"`
	Requirements   string  `json:"requirements"`
}

// Create opens a pending order for an AI-specialist product.
func (w *Workflow) Create(ctx context.Context, userID string, in CreateInput) (*models.Order, []notify.Effect, error) {
	if in.SpecialistID == "" || in.TariffID == "" {
		return nil, nil, apperr.New(apperr.KindValidation, "specialistId and tariffId are required")
	}
	if in.Amount <= 0 {
		return nil, nil, apperr.New(apperr.KindValidation, "Amount must be positive")
	}

	o := &models.Order{
		OrderID:        utils.GenerateRandomString(16),
		UserID:         userID,
		SpecialistID:   in.SpecialistID,
		TariffID:       in.TariffID,
		Amount:         in.Amount,
		Status:         models.OrderStatusPending,
		ConversationID: in.ConversationID,
		Requirements:   in.Requirements,
		CreatedAt:      time.Now(),
	}
	if err := w.store.InsertOrder(ctx, o); err != nil {
		return nil, nil, err
	}

	effects := []notify.Effect{{Notify: &notify.NotifyEffect{
		UserID:  in.SpecialistID,
		Type:    "order_created",
		Title:   "New order",
		Message: "You have a new order",
		Data:    map[string]any{"orderId": o.OrderID, "tariffId": in.TariffID},
	}}}

	return o, effects, nil
}

// CardSnapshot is the denormalized specialist/tariff data rendered inside an
// order card. The card must stay renderable even if those records change.
type CardSnapshot struct {
	Specialist map[string]any `json:"specialist"`
	Tariff     map[string]any `json:"tariff"`
}

// CreateCard posts a structured order_card message to the order's
// conversation. When the store write fails, the card payload is still
// returned without a persisted id so the UI can render it; the caller can
// tell the difference by the empty MessageID.
func (w *Workflow) CreateCard(ctx context.Context, orderID, conversationID string, snap CardSnapshot) (*models.Message, error) {
	o, err := w.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if conversationID == "" {
		conversationID = o.ConversationID
	}

	now := time.Now()
	msg := &models.Message{
		MessageID:      utils.GenerateRandomString(16),
		ConversationID: conversationID,
		SenderID:       models.SystemSenderID,
		Content:        "Order card",
		MessageType:    "order_card",
		Metadata: map[string]any{
			"orderId":    o.OrderID,
			"amount":     o.Amount,
			"status":     o.Status,
			"specialist": snap.Specialist,
			"tariff":     snap.Tariff,
		},
		CreatedAt: now,
	}

	if err := w.store.InsertMessage(ctx, msg); err != nil {
		// graceful degradation: hand back the payload unpersisted
		msg.MessageID = ""
		return msg, nil
	}
	if err := w.store.TouchConversation(ctx, conversationID, "Order card", now); err != nil {
		// preview refresh is cosmetic
		_ = err
	}

	return msg, nil
}

// validNext defines the monotonic order-status machine.
var validNext = map[string][]string{
	models.OrderStatusActive:    {models.OrderStatusPending},
	models.OrderStatusCompleted: {models.OrderStatusActive},
	models.OrderStatusCancelled: {models.OrderStatusPending, models.OrderStatusActive},
}

// UpdateStatus advances an order along pending→active→completed, with
// cancelled reachable from pending or active.
func (w *Workflow) UpdateStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	prev, ok := validNext[status]
	if !ok {
		return nil, apperr.Newf(apperr.KindValidation, "Unknown order status %q", status)
	}

	o, err := w.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, s := range prev {
		if o.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperr.Newf(apperr.KindInvalidState, "Cannot move order from %s to %s", o.Status, status)
	}

	now := time.Now()
	matched, err := w.store.UpdateOrderIfStatus(ctx, orderID, prev,
		map[string]any{"status": status, "updatedAt": now})
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, apperr.New(apperr.KindConcurrentModification, "Order changed concurrently")
	}

	o.Status = status
	o.UpdatedAt = now
	return o, nil
}
