package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"lancehub/apperr"
	"lancehub/globals"
	"lancehub/middleware"
	"lancehub/models"
	"lancehub/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

type Store interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	InsertUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, userID string, fields map[string]any) error
}

type Handlers struct {
	store Store
}

func NewHandlers(store Store) *Handlers {
	return &Handlers{store: store}
}

// POST /api/auth/register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	var in struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"` // client, freelancer, specialist
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" || len(in.Password) < 8 {
		utils.RespondWithError(w, http.StatusBadRequest, "Username, email and a password of 8+ characters are required")
		return
	}
	role := in.Role
	if role != "client" && role != "freelancer" && role != "specialist" {
		role = "client"
	}

	if _, err := h.store.GetUserByEmail(ctx, in.Email); err == nil {
		utils.RespondWithError(w, http.StatusConflict, "Email already registered")
		return
	} else if !apperr.Is(err, apperr.KindNotFound) {
		utils.RespondWithAppError(w, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := &models.User{
		UserID:       utils.GetUUID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         []string{role},
		CreatedAt:    time.Now(),
	}
	if err := h.store.InsertUser(ctx, user); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	h.respondWithTokens(w, r, user, http.StatusCreated)
}

// POST /api/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	h.respondWithTokens(w, r, user, http.StatusOK)
}

// POST /api/auth/token/refresh
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	var in struct {
		UserID       string `json:"userId"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.RefreshToken == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.store.GetUser(ctx, in.UserID)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	if user.RefreshHash == "" || user.RefreshHash != hashToken(in.RefreshToken) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	if !user.RefreshExpiresAt.IsZero() && time.Now().After(user.RefreshExpiresAt) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Refresh token expired")
		return
	}

	h.respondWithTokens(w, r, user, http.StatusOK)
}

// POST /api/auth/logout
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	userID := utils.GetUserIDFromRequest(r)

	if err := h.store.UpdateUser(ctx, userID, map[string]any{"refreshHash": ""}); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, nil)
}

func (h *Handlers) respondWithTokens(w http.ResponseWriter, r *http.Request, user *models.User, status int) {
	access, err := generateAccessToken(user)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	refresh, err := generateRefreshToken()
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate refresh token")
		return
	}

	if err := h.store.UpdateUser(r.Context(), user.UserID, map[string]any{
		"refreshHash":      hashToken(refresh),
		"refreshExpiresAt": time.Now().Add(refreshTokenTTL),
	}); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithSuccess(w, status, map[string]any{
		"token":        access,
		"refreshToken": refresh,
		"user": map[string]any{
			"userid":   user.UserID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}

func generateAccessToken(user *models.User) (string, error) {
	claims := middleware.Claims{
		Username: user.Username,
		UserID:   user.UserID,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   user.UserID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(globals.JwtSecret)
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
