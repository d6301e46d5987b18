package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"lancehub/apperr"
	"lancehub/models"
)

type fakeStore struct {
	orders   map[string]*models.Order
	messages []models.Message

	failMessage bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: map[string]*models.Order{}}
}

func (f *fakeStore) GetOrder(_ context.Context, orderID string) (*models.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "Order not found")
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) InsertOrder(_ context.Context, o *models.Order) error {
	cp := *o
	f.orders[o.OrderID] = &cp
	return nil
}

func (f *fakeStore) UpdateOrderIfStatus(_ context.Context, orderID string, prev []string, fields map[string]any) (bool, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return false, nil
	}
	for _, s := range prev {
		if o.Status == s {
			if next, ok := fields["status"].(string); ok {
				o.Status = next
			}
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListOrdersByUser(_ context.Context, userID string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertMessage(_ context.Context, msg *models.Message) error {
	if f.failMessage {
		return errors.New("insert failed")
	}
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeStore) TouchConversation(_ context.Context, conversationID, preview string, at time.Time) error {
	return nil
}

func TestCreateOrder(t *testing.T) {
	f := newFakeStore()
	wf := NewWorkflow(f)

	o, effects, err := wf.Create(context.Background(), "user1", CreateInput{
		SpecialistID: "spec1", TariffID: "tariff1", Amount: 50, ConversationID: "conv1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Status != models.OrderStatusPending {
		t.Fatalf("status %s", o.Status)
	}
	if len(effects) != 1 || effects[0].Notify == nil || effects[0].Notify.UserID != "spec1" {
		t.Fatalf("effects %+v", effects)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	wf := NewWorkflow(newFakeStore())

	cases := []CreateInput{
		{TariffID: "t", Amount: 50},
		{SpecialistID: "s", Amount: 50},
		{SpecialistID: "s", TariffID: "t", Amount: 0},
	}
	for i, in := range cases {
		if _, _, err := wf.Create(context.Background(), "user1", in); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("case %d: expected Validation, got %v", i, err)
		}
	}
}

func TestCreateCardPersisted(t *testing.T) {
	f := newFakeStore()
	f.orders["o1"] = &models.Order{OrderID: "o1", UserID: "user1", Status: models.OrderStatusPending, Amount: 50, ConversationID: "conv1"}
	wf := NewWorkflow(f)

	msg, err := wf.CreateCard(context.Background(), "o1", "", CardSnapshot{
		Specialist: map[string]any{"name": "Ada"},
		Tariff:     map[string]any{"name": "Basic", "price": 50},
	})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	if msg.MessageID == "" {
		t.Fatal("expected persisted message id")
	}
	if msg.ConversationID != "conv1" {
		t.Fatalf("conversation %q", msg.ConversationID)
	}
	if msg.MessageType != "order_card" || msg.SenderID != models.SystemSenderID {
		t.Fatalf("message %+v", msg)
	}
	if spec, _ := msg.Metadata["specialist"].(map[string]any); spec["name"] != "Ada" {
		t.Fatalf("snapshot %+v", msg.Metadata)
	}
}

func TestCreateCardDegradesOnStoreFailure(t *testing.T) {
	f := newFakeStore()
	f.orders["o1"] = &models.Order{OrderID: "o1", Status: models.OrderStatusPending, ConversationID: "conv1"}
	f.failMessage = true
	wf := NewWorkflow(f)

	msg, err := wf.CreateCard(context.Background(), "o1", "", CardSnapshot{})
	if err != nil {
		t.Fatalf("card must degrade, not fail: %v", err)
	}
	if msg.MessageID != "" {
		t.Fatal("unpersisted card must carry an empty message id")
	}
	if msg.MessageType != "order_card" {
		t.Fatalf("payload lost: %+v", msg)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newFakeStore()
	f.orders["o1"] = &models.Order{OrderID: "o1", Status: models.OrderStatusPending}
	wf := NewWorkflow(f)

	for _, next := range []string{models.OrderStatusActive, models.OrderStatusCompleted} {
		o, err := wf.UpdateStatus(context.Background(), "o1", next)
		if err != nil {
			t.Fatalf("to %s: %v", next, err)
		}
		if o.Status != next {
			t.Fatalf("status %s", o.Status)
		}
	}

	// completed is terminal
	if _, err := wf.UpdateStatus(context.Background(), "o1", models.OrderStatusCancelled); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
}

func TestUpdateStatusRejectsSkips(t *testing.T) {
	f := newFakeStore()
	f.orders["o1"] = &models.Order{OrderID: "o1", Status: models.OrderStatusPending}
	wf := NewWorkflow(f)

	if _, err := wf.UpdateStatus(context.Background(), "o1", models.OrderStatusCompleted); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("pending→completed: %v", err)
	}
	if _, err := wf.UpdateStatus(context.Background(), "o1", "archived"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown status: %v", err)
	}
}

func TestCancelFromPendingAndActive(t *testing.T) {
	f := newFakeStore()
	f.orders["o1"] = &models.Order{OrderID: "o1", Status: models.OrderStatusPending}
	f.orders["o2"] = &models.Order{OrderID: "o2", Status: models.OrderStatusActive}
	wf := NewWorkflow(f)

	for _, id := range []string{"o1", "o2"} {
		o, err := wf.UpdateStatus(context.Background(), id, models.OrderStatusCancelled)
		if err != nil {
			t.Fatalf("cancel %s: %v", id, err)
		}
		if o.Status != models.OrderStatusCancelled {
			t.Fatalf("status %s", o.Status)
		}
	}
}
