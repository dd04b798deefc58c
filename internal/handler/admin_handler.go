package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storywall/pkg/generate"
)

type MigrationStore interface {
	AddBioColumn() (bool, error)
	AddTermsAcceptedAtColumn() (bool, error)
}

type AdminHandler struct {
	migrations MigrationStore
	optimizer  *generate.Optimizer
}

func NewAdminHandler(migrations MigrationStore, optimizer *generate.Optimizer) *AdminHandler {
	return &AdminHandler{migrations: migrations, optimizer: optimizer}
}

// RequireAdminToken gates admin and debug routes behind a shared
// secret. Fails closed when no token is configured.
func RequireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Admin-Token")
		if token == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

// MigrateBio adds the users.bio column. Safe to call repeatedly.
func (h *AdminHandler) MigrateBio(c *gin.Context) {
	added, err := h.migrations.AddBioColumn()
	if err != nil {
		slog.Error("bio migration failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Migration failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"column": "bio", "added": added})
}

// MigrateTermsAcceptedAt adds the users.terms_accepted_at column. Safe
// to call repeatedly.
func (h *AdminHandler) MigrateTermsAcceptedAt(c *gin.Context) {
	added, err := h.migrations.AddTermsAcceptedAtColumn()
	if err != nil {
		slog.Error("terms_accepted_at migration failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Migration failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"column": "terms_accepted_at", "added": added})
}

type optimizePromptRequest struct {
	PromptID string `json:"prompt_id"`
	Inputs   string `json:"inputs"`
	Outputs  string `json:"outputs"`
}

// OptimizePrompt runs the prompt tuning loop for one template and
// stores the rewrite under a fresh id.
func (h *AdminHandler) OptimizePrompt(c *gin.Context) {
	var req optimizePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.PromptID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt_id is required"})
		return
	}

	result, err := h.optimizer.Run(c.Request.Context(), generate.OptimizeRequest{
		PromptID: req.PromptID,
		Inputs:   req.Inputs,
		Outputs:  req.Outputs,
	})
	if err != nil {
		slog.Error("prompt optimization failed", "error", err, "prompt_id", req.PromptID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"new_prompt_id":    result.NewPromptID,
		"critique":         result.Critique,
		"rewritten_prompt": result.Rewritten,
	})
}
