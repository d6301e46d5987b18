package notify

import (
	"context"
	"log"
	"net/http"

	"lancehub/models"
	"lancehub/rdx"
	"lancehub/utils"

	"github.com/julienschmidt/httprouter"
)

type readStore interface {
	ListNotifications(ctx context.Context, userID string, skip, limit int64) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID, userID string) (bool, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int64, error)
}

// UnreadCache is the counter surface the handlers read and maintain.
// RedisUnread is the production implementation.
type UnreadCache interface {
	Get(ctx context.Context, userID string) (int64, bool, error)
	Set(ctx context.Context, userID string, n int64) error
	Decr(ctx context.Context, userID string) error
}

type RedisUnread struct{}

func (RedisUnread) Get(ctx context.Context, userID string) (int64, bool, error) {
	return rdx.GetUnread(ctx, userID)
}

func (RedisUnread) Set(ctx context.Context, userID string, n int64) error {
	return rdx.SetUnread(ctx, userID, n)
}

func (RedisUnread) Decr(ctx context.Context, userID string) error {
	return rdx.DecrUnread(ctx, userID)
}

// Handlers serves the notification read/ack endpoints.
type Handlers struct {
	store  readStore
	unread UnreadCache
}

func NewHandlers(store readStore, unread UnreadCache) *Handlers {
	return &Handlers{store: store, unread: unread}
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	userID := utils.GetUserIDFromRequest(r)

	skip, limit := utils.ParsePagination(r, 20, 100)
	items, err := h.store.ListNotifications(ctx, userID, skip, limit)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if items == nil {
		items = []models.Notification{}
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"notifications": items})
}

func (h *Handlers) MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	userID := utils.GetUserIDFromRequest(r)
	notificationID := ps.ByName("id")

	marked, err := h.store.MarkNotificationRead(ctx, notificationID, userID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if marked {
		if err := h.unread.Decr(ctx, userID); err != nil {
			log.Printf("notifications: unread counter for %s: %v", userID, err)
		}
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"read": marked})
}

func (h *Handlers) UnreadCount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	userID := utils.GetUserIDFromRequest(r)

	// cached counter first; absent or unreachable cache falls back to the
	// store and reseeds
	n, ok, err := h.unread.Get(ctx, userID)
	if err != nil || !ok {
		if err != nil {
			log.Printf("notifications: unread cache for %s: %v", userID, err)
		}
		n, err = h.store.CountUnreadNotifications(ctx, userID)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		if serr := h.unread.Set(ctx, userID, n); serr != nil {
			log.Printf("notifications: unread reseed for %s: %v", userID, serr)
		}
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"count": n})
}
