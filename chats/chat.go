package chats

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"lancehub/models"
	"lancehub/mq"
	"lancehub/utils"

	"github.com/julienschmidt/httprouter"
)

type Store interface {
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	TouchConversation(ctx context.Context, conversationID, preview string, at time.Time) error
	InsertMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string, skip, limit int64) ([]models.Message, error)
}

type Handlers struct {
	store Store
}

func NewHandlers(store Store) *Handlers {
	return &Handlers{store: store}
}

// GET /api/chats
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	userID := utils.GetUserIDFromRequest(r)

	items, err := h.store.ListConversations(ctx, userID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if items == nil {
		items = []models.Conversation{}
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"conversations": items})
}

// GET /api/chats/:conversationid/messages
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	conversationID := ps.ByName("conversationid")
	userID := utils.GetUserIDFromRequest(r)

	conv, err := h.store.GetConversation(ctx, conversationID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if !isParticipant(conv, userID) {
		utils.RespondWithError(w, http.StatusForbidden, "Not a participant of this conversation")
		return
	}

	skip, limit := utils.ParsePagination(r, 50, 200)
	messages, err := h.store.ListMessages(ctx, conversationID, skip, limit)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{
		"conversationId": conversationID,
		"messages":       messages,
	})
}

// POST /api/chats/:conversationid/messages
func (h *Handlers) PostMessage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	conversationID := ps.ByName("conversationid")
	userID := utils.GetUserIDFromRequest(r)

	var in struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Content == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	conv, err := h.store.GetConversation(ctx, conversationID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if !isParticipant(conv, userID) {
		utils.RespondWithError(w, http.StatusForbidden, "Not a participant of this conversation")
		return
	}

	now := time.Now()
	msg := &models.Message{
		MessageID:      utils.GenerateRandomString(16),
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        in.Content,
		MessageType:    "text",
		CreatedAt:      now,
	}
	if err := h.store.InsertMessage(ctx, msg); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.store.TouchConversation(ctx, conversationID, in.Content, now); err != nil {
		// preview refresh only
		_ = err
	}

	for _, uid := range conv.Participants {
		if uid == userID {
			continue
		}
		mq.Emit(ctx, "message", uid, map[string]any{
			"conversationId": conversationID,
			"messageType":    "text",
		})
	}

	utils.RespondWithSuccess(w, http.StatusCreated, map[string]any{"message": msg})
}

func isParticipant(conv *models.Conversation, userID string) bool {
	for _, uid := range conv.Participants {
		if uid == userID {
			return true
		}
	}
	return false
}
