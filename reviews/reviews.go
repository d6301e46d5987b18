package reviews

import (
	"context"
	"net/http"

	"lancehub/models"
	"lancehub/utils"

	"github.com/julienschmidt/httprouter"
)

type Store interface {
	ListReviewsByUser(ctx context.Context, revieweeID string, skip, limit int64) ([]models.Review, error)
}

type Handlers struct {
	store Store
}

func NewHandlers(store Store) *Handlers {
	return &Handlers{store: store}
}

// GET /api/users/:userid/reviews
func (h *Handlers) ListForUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	skip, limit := utils.ParsePagination(r, 20, 100)

	revs, err := h.store.ListReviewsByUser(r.Context(), ps.ByName("userid"), skip, limit)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if revs == nil {
		revs = []models.Review{}
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"reviews": revs})
}
