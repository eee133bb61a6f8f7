package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/stwalsh4118/michraz/internal/errors"
	"github.com/stwalsh4118/michraz/internal/middleware"
	"github.com/stwalsh4118/michraz/internal/services"
)

// EmailSignupHandler handles newsletter signups.
type EmailSignupHandler struct {
	service services.EmailSignupService
}

// NewEmailSignupHandler creates a new EmailSignupHandler instance.
func NewEmailSignupHandler(service services.EmailSignupService) *EmailSignupHandler {
	return &EmailSignupHandler{
		service: service,
	}
}

// EmailSignupRequest represents the newsletter signup body.
type EmailSignupRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
}

// Subscribe handles POST /api/v1/email-signups.
// The session, when present, ties the signup to the user. The call succeeds
// even if the signup could not be stored.
func (h *EmailSignupHandler) Subscribe(c *gin.Context) {
	var req EmailSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid email signup")
		return
	}

	result, err := h.service.Subscribe(c.Request.Context(), req.Email, middleware.SessionToken(c))
	if err != nil {
		apierrors.InternalServerError(c, "Failed to record email signup", err)
		return
	}

	c.JSON(http.StatusAccepted, result)
}
