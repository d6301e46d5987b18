package notify

import (
	"context"
	"log"
	"time"

	"lancehub/models"
)

// Secondary effects get a shorter leash than primary store calls; a slow
// notification must not hold up the response.
const effectTimeout = 3 * time.Second

// Effect is one pending side effect produced by a workflow's primary
// transition. Exactly one field is set.
type Effect struct {
	Notify    *NotifyEffect
	Message   *MessageEffect
	Portfolio *models.PortfolioEntry
}

type NotifyEffect struct {
	UserID  string
	Type    string
	Title   string
	Message string
	Data    map[string]any
}

type MessageEffect struct {
	Key          string
	Participants []string
	Content      string
	MessageType  string
	Metadata     map[string]any
}

// Executor dispatches pending effects after a primary transition has
// committed. Each effect fails independently; failures are logged and
// swallowed so the caller's success is never retracted.
type Executor struct {
	d *Dispatcher
}

func NewExecutor(d *Dispatcher) *Executor {
	return &Executor{d: d}
}

func (e *Executor) Run(effects []Effect) {
	for _, eff := range effects {
		// detached context: the request may already be done
		ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)

		switch {
		case eff.Notify != nil:
			n := eff.Notify
			if _, err := e.d.Notify(ctx, n.UserID, n.Type, n.Title, n.Message, n.Data); err != nil {
				log.Printf("effect: notify %s (%s): %v", n.UserID, n.Type, err)
			}
		case eff.Message != nil:
			m := eff.Message
			if _, err := e.d.SendSystemMessage(ctx, m.Key, m.Participants, m.Content, m.MessageType, m.Metadata); err != nil {
				log.Printf("effect: system message %s: %v", m.Key, err)
			}
		case eff.Portfolio != nil:
			if err := e.d.store.InsertPortfolioEntry(ctx, eff.Portfolio); err != nil {
				log.Printf("effect: portfolio entry for %s: %v", eff.Portfolio.FreelancerID, err)
			}
		}

		cancel()
	}
}
