package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"lancehub/filemgr"
	"lancehub/models"
	"lancehub/utils"

	"github.com/julienschmidt/httprouter"
)

type Store interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	UpdateUser(ctx context.Context, userID string, fields map[string]any) error
	ListPortfolioByUser(ctx context.Context, freelancerID string, skip, limit int64) ([]models.PortfolioEntry, error)
}

type Handlers struct {
	store Store
}

func NewHandlers(store Store) *Handlers {
	return &Handlers{store: store}
}

// publicView strips fields that only the owner should see.
func publicView(u *models.User) map[string]any {
	return map[string]any{
		"userid":        u.UserID,
		"username":      u.Username,
		"role":          u.Role,
		"bio":           u.Bio,
		"skills":        u.Skills,
		"avatarUrl":     u.AvatarURL,
		"rating":        u.Rating,
		"ratingCount":   u.RatingCount,
		"totalEarnings": u.TotalEarnings,
		"memberSince":   u.CreatedAt,
	}
}

// GET /api/profile
func (h *Handlers) GetOwn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)

	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"user": user})
}

// PUT /api/profile
//
// Accepts JSON for plain field edits, or multipart/form-data when an
// avatar file is included.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	fields := map[string]any{}

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(12 << 20); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Unable to parse form")
			return
		}
		if v := r.FormValue("bio"); v != "" {
			fields["bio"] = v
		}
		if v := r.FormValue("username"); v != "" {
			fields["username"] = v
		}
		if v := r.FormValue("skills"); v != "" {
			parts := strings.Split(v, ",")
			skills := make([]string, 0, len(parts))
			for _, p := range parts {
				if s := strings.TrimSpace(p); s != "" {
					skills = append(skills, s)
				}
			}
			fields["skills"] = skills
		}
		if files := r.MultipartForm.File["avatar"]; len(files) > 0 {
			file, err := files[0].Open()
			if err != nil {
				utils.RespondWithError(w, http.StatusBadRequest, "Unable to read avatar")
				return
			}
			origName, _, err := filemgr.SaveImageWithThumb(file, files[0], filemgr.EntityUser, filemgr.PicAvatar, 200, userID)
			if err != nil {
				utils.RespondWithError(w, http.StatusBadRequest, "Avatar upload failed")
				return
			}
			fields["avatarUrl"] = "/static/uploads/user/avatar/" + origName
		}
	} else {
		var in struct {
			Username *string   `json:"username"`
			Bio      *string   `json:"bio"`
			Skills   *[]string `json:"skills"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if in.Username != nil && *in.Username != "" {
			fields["username"] = *in.Username
		}
		if in.Bio != nil {
			fields["bio"] = *in.Bio
		}
		if in.Skills != nil {
			fields["skills"] = *in.Skills
		}
	}

	if len(fields) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	fields["updatedAt"] = time.Now()

	if err := h.store.UpdateUser(r.Context(), userID, fields); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"user": user})
}

// GET /api/users/:userid
func (h *Handlers) GetPublic(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := h.store.GetUser(r.Context(), ps.ByName("userid"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"user": publicView(user)})
}

// GET /api/users/:userid/portfolio
func (h *Handlers) ListPortfolio(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	skip, limit := utils.ParsePagination(r, 20, 100)

	entries, err := h.store.ListPortfolioByUser(r.Context(), ps.ByName("userid"), skip, limit)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if entries == nil {
		entries = []models.PortfolioEntry{}
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"portfolio": entries})
}
