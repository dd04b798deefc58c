package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storywall/internal/auth"
	"storywall/internal/model"
)

type UserStore interface {
	GetByID(id int64) (*model.User, error)
	UpdateBio(userID int64, bio string) error
	AcceptTerms(userID int64) error
}

type UserHandler struct {
	users UserStore
}

func NewUserHandler(users UserStore) *UserHandler {
	return &UserHandler{users: users}
}

type userResponse struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	Bio           string `json:"bio"`
	Credits       int    `json:"credits"`
	TermsAccepted bool   `json:"terms_accepted"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Bio:           u.Bio,
		Credits:       u.Credits,
		TermsAccepted: u.TermsAcceptedAt.Valid,
	}
}

// GetMe returns the signed-in user's profile, including the current
// credit balance.
func (h *UserHandler) GetMe(c *gin.Context) {
	user := auth.CurrentUser(c)

	fresh, err := h.users.GetByID(user.ID)
	if err != nil {
		slog.Error("error loading user", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if fresh == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(fresh))
}

type updateBioRequest struct {
	Bio string `json:"bio"`
}

func (h *UserHandler) UpdateBio(c *gin.Context) {
	user := auth.CurrentUser(c)

	var req updateBioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.users.UpdateBio(user.ID, req.Bio); err != nil {
		slog.Error("error updating bio", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bio": req.Bio})
}

func (h *UserHandler) AcceptTerms(c *gin.Context) {
	user := auth.CurrentUser(c)

	if err := h.users.AcceptTerms(user.ID); err != nil {
		slog.Error("error accepting terms", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"terms_accepted": true})
}
