package orders

import (
	"encoding/json"
	"net/http"

	"lancehub/models"
	"lancehub/notify"
	"lancehub/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	wf       *Workflow
	store    Store
	executor *notify.Executor
}

func NewHandlers(store Store, executor *notify.Executor) *Handlers {
	return &Handlers{
		wf:       NewWorkflow(store),
		store:    store,
		executor: executor,
	}
}

// POST /api/orders. Single endpoint dispatching on the action field.
func (h *Handlers) Dispatch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	userID := utils.GetUserIDFromRequest(r)

	var req struct {
		Action         string         `json:"action"`
		OrderID        string         `json:"orderId"`
		ConversationID string         `json:"conversationId"`
		Status         string         `json:"status"`
		Specialist     map[string]any `json:"specialist"`
		Tariff         map[string]any `json:"tariff"`
		CreateInput
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch req.Action {
	case "create":
		in := req.CreateInput
		if in.ConversationID == "" {
			in.ConversationID = req.ConversationID
		}
		o, effects, err := h.wf.Create(ctx, userID, in)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		go h.executor.Run(effects)
		utils.RespondWithSuccess(w, http.StatusCreated, map[string]any{"order": o})

	case "create_card":
		msg, err := h.wf.CreateCard(ctx, req.OrderID, req.ConversationID, CardSnapshot{
			Specialist: req.Specialist,
			Tariff:     req.Tariff,
		})
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithSuccess(w, http.StatusOK, map[string]any{
			"message":   msg,
			"persisted": msg.MessageID != "",
		})

	case "list":
		items, err := h.store.ListOrdersByUser(ctx, userID)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		if items == nil {
			items = []models.Order{}
		}
		utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"orders": items})

	case "update_status":
		o, err := h.wf.UpdateStatus(ctx, req.OrderID, req.Status)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"order": o})

	default:
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown action")
	}
}
