package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/stwalsh4118/michraz/internal/errors"
	"github.com/stwalsh4118/michraz/internal/middleware"
	"github.com/stwalsh4118/michraz/internal/services"
	"github.com/stwalsh4118/michraz/internal/signup"
)

const (
	// SessionCookieMaxAge is the lifetime of the session cookie.
	SessionCookieMaxAge = 30 * 24 * time.Hour
	// TendersPath is where a verified visitor is sent.
	TendersPath = "/flow/tenders"
)

// SignupHandler handles the phone-OTP signup endpoints.
type SignupHandler struct {
	service      services.SignupService
	cookieSecure bool
}

// NewSignupHandler creates a new SignupHandler instance. cookieSecure sets
// the Secure attribute on the session cookie.
func NewSignupHandler(service services.SignupService, cookieSecure bool) *SignupHandler {
	return &SignupHandler{
		service:      service,
		cookieSecure: cookieSecure,
	}
}

// SignupFormRequest represents the signup form body.
type SignupFormRequest struct {
	FirstName   string `json:"first_name" binding:"required,max=100"`
	LastName    string `json:"last_name" binding:"required,max=100"`
	Phone       string `json:"phone" binding:"required,max=32"`
	IsReservist bool   `json:"is_reservist"`
	HasProperty bool   `json:"has_property"`
	IsCombat    bool   `json:"is_combat"`
}

func (r SignupFormRequest) form() signup.Form {
	return signup.Form{
		FirstName:   strings.TrimSpace(r.FirstName),
		LastName:    strings.TrimSpace(r.LastName),
		Phone:       strings.TrimSpace(r.Phone),
		IsReservist: r.IsReservist,
		HasProperty: r.HasProperty,
		IsCombat:    r.IsCombat,
	}
}

// CodeRequest represents the body of the code and verify endpoints.
// Non-digit characters are stripped from Code.
type CodeRequest struct {
	Code string `json:"code" binding:"max=32"`
}

// FlowIDParam represents the flow id path parameter.
type FlowIDParam struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// VerifyResponse represents a completed signup.
type VerifyResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	Redirect     string       `json:"redirect"`
	Flow         signup.State `json:"flow"`
}

// Start handles POST /api/v1/signup/flows.
// It creates a flow and requests a code for the submitted form.
func (h *SignupHandler) Start(c *gin.Context) {
	var req SignupFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid signup form")
		return
	}

	state, err := h.service.Start(c.Request.Context(), req.form())
	if err != nil {
		respondFlowError(c, err, &state)
		return
	}

	c.JSON(http.StatusCreated, state)
}

// Get handles GET /api/v1/signup/flows/:id.
func (h *SignupHandler) Get(c *gin.Context) {
	id, ok := bindFlowID(c)
	if !ok {
		return
	}

	state, err := h.service.Get(id)
	if err != nil {
		respondFlowError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, state)
}

// Submit handles POST /api/v1/signup/flows/:id/submit.
// It re-submits the form after the visitor went back from the code step.
func (h *SignupHandler) Submit(c *gin.Context) {
	id, ok := bindFlowID(c)
	if !ok {
		return
	}

	var req SignupFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid signup form")
		return
	}

	state, err := h.service.Submit(c.Request.Context(), id, req.form())
	if err != nil {
		respondFlowError(c, err, &state)
		return
	}

	c.JSON(http.StatusOK, state)
}

// SetCode handles PUT /api/v1/signup/flows/:id/code.
func (h *SignupHandler) SetCode(c *gin.Context) {
	id, ok := bindFlowID(c)
	if !ok {
		return
	}

	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid code")
		return
	}

	state, err := h.service.SetCode(id, req.Code)
	if err != nil {
		respondFlowError(c, err, &state)
		return
	}

	c.JSON(http.StatusOK, state)
}

// Verify handles POST /api/v1/signup/flows/:id/verify.
// An empty body verifies the code stored by SetCode. On success the session
// cookie is set and the tokens are returned for the page to keep.
func (h *SignupHandler) Verify(c *gin.Context) {
	id, ok := bindFlowID(c)
	if !ok {
		return
	}

	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err, "Invalid code")
		return
	}

	result, err := h.service.Verify(c.Request.Context(), id, req.Code)
	if err != nil {
		var state *signup.State
		if result != nil {
			state = &result.State
		}
		respondFlowError(c, err, state)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, result.Tokens.AccessToken,
		int(SessionCookieMaxAge.Seconds()), "/", "", h.cookieSecure, false)

	c.JSON(http.StatusOK, VerifyResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		Redirect:     TendersPath,
		Flow:         result.State,
	})
}

// Resend handles POST /api/v1/signup/flows/:id/resend.
func (h *SignupHandler) Resend(c *gin.Context) {
	id, ok := bindFlowID(c)
	if !ok {
		return
	}

	state, err := h.service.Resend(c.Request.Context(), id)
	if err != nil {
		respondFlowError(c, err, &state)
		return
	}

	c.JSON(http.StatusOK, state)
}

// Back handles POST /api/v1/signup/flows/:id/back.
func (h *SignupHandler) Back(c *gin.Context) {
	id, ok := bindFlowID(c)
	if !ok {
		return
	}

	state, err := h.service.Back(id)
	if err != nil {
		respondFlowError(c, err, &state)
		return
	}

	c.JSON(http.StatusOK, state)
}

// Abandon handles DELETE /api/v1/signup/flows/:id.
func (h *SignupHandler) Abandon(c *gin.Context) {
	id, ok := bindFlowID(c)
	if !ok {
		return
	}

	if err := h.service.Abandon(id); err != nil {
		respondFlowError(c, err, nil)
		return
	}

	c.Status(http.StatusNoContent)
}

func bindFlowID(c *gin.Context) (string, bool) {
	var param FlowIDParam
	if err := c.ShouldBindUri(&param); err != nil {
		respondBindError(c, err, "Invalid flow id")
		return "", false
	}
	return param.ID, true
}

// flowErrorStatus maps signup errors to HTTP status codes.
func flowErrorStatus(err error) int {
	switch {
	case errors.Is(err, signup.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, signup.ErrInvalidPhone),
		errors.Is(err, signup.ErrInvalidCode),
		errors.Is(err, signup.ErrIncompleteCode):
		return http.StatusBadRequest
	case errors.Is(err, signup.ErrExpiredCode),
		errors.Is(err, signup.ErrFlowClosed):
		return http.StatusGone
	case errors.Is(err, signup.ErrBusy),
		errors.Is(err, signup.ErrResendCooldown),
		errors.Is(err, signup.ErrWrongStep):
		return http.StatusConflict
	case errors.Is(err, signup.ErrRequestConnection),
		errors.Is(err, signup.ErrVerifyConnection):
		return http.StatusServiceUnavailable
	case errors.Is(err, signup.ErrRequestFailed),
		errors.Is(err, signup.ErrVerifyFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondFlowError writes the error envelope for a signup failure. Flow
// errors carry their user-facing message and, when known, the flow state.
// The form is left out of details.
func respondFlowError(c *gin.Context, err error, state *signup.State) {
	if errors.Is(err, signup.ErrFlowNotFound) {
		apierrors.NotFound(c, "Signup flow not found")
		return
	}

	fe, ok := signup.AsFlowError(err)
	if !ok {
		apierrors.InternalServerError(c, "Signup failed", err)
		return
	}

	var details map[string]interface{}
	if state != nil && state.ID != "" {
		flow := *state
		flow.Form = signup.Form{}
		details = map[string]interface{}{"flow": flow}
	}
	apierrors.Respond(c, flowErrorStatus(err), strings.ToUpper(fe.Code), fe.Message, details, err)
}
