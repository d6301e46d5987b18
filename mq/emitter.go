package mq

import (
	"context"
	"encoding/json"
	"log"

	"lancehub/models"
	"lancehub/rdx"
)

const eventChannel = "workflow-events"

// Emit publishes a workflow event to Redis. Failures are logged, never
// returned: event delivery is best-effort by contract.
func Emit(ctx context.Context, event string, userID string, data map[string]any) {
	payload := models.WorkflowEvent{Event: event, UserID: userID, Data: data}

	buf, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Emit] marshal failed for %s: %v", event, err)
		return
	}

	if err := rdx.Conn.Publish(ctx, eventChannel, buf).Err(); err != nil {
		log.Printf("[Emit] publish failed for %s: %v", event, err)
	}
}

// Broadcaster pushes an event payload to a user's live room.
type Broadcaster interface {
	Broadcast(room string, data []byte)
}

// StartEventWorker bridges the Redis event channel into the live hub so
// connected users receive notifications as they happen.
func StartEventWorker(hub Broadcaster) {
	ctx := context.Background()
	sub := rdx.Conn.Subscribe(ctx, eventChannel)
	ch := sub.Channel()

	log.Println("[EventWorker] listening for workflow events")

	for msg := range ch {
		var event models.WorkflowEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("[EventWorker] bad payload: %v", err)
			continue
		}
		if event.UserID == "" {
			continue
		}
		hub.Broadcast(event.UserID, []byte(msg.Payload))
	}
}
