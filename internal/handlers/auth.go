package handlers

import (
	"errors"
	"net/http"

	"auber_controller/internal/service"

	"github.com/gin-gonic/gin"
)

const errSignInFailed = "invalid credentials"

// authCredentials is the body of both sign-up and sign-in.
type authCredentials struct {
	Username string `json:"username" binding:"required" example:"lab-lead"`
	Password string `json:"password" binding:"required" example:"s3cr3t!"`
}

func (h *Handler) bindCredentials(c *gin.Context, dst *authCredentials) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if h.log != nil {
			h.log.Infow("auth_bad_request_body", "path", c.FullPath(), "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return false
	}
	return true
}

// @Summary      Sign up
// @Description  The first account becomes an operator; later accounts get the configured signup role.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      authCredentials  true  "Credentials"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/sign-up [post]
func (h *Handler) signUp(c *gin.Context) {
	var input authCredentials
	if !h.bindCredentials(c, &input) {
		return
	}

	u, err := h.services.SignUp(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		h.respondServiceError(c, "sign-up failed", "auth_sign_up_failed", err, "username", input.Username)
		return
	}

	if h.log != nil {
		h.log.Infow("auth_signed_up", "user_id", u.ID, "role", u.Role)
	}
	c.JSON(http.StatusCreated, gin.H{"id": u.ID, "username": u.Username, "role": u.Role})
}

// @Summary      Sign in
// @Description  Returns a bearer token for the protected /api/v1 routes and /ws.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      authCredentials  true  "Credentials"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/sign-in [post]
func (h *Handler) signIn(c *gin.Context) {
	var input authCredentials
	if !h.bindCredentials(c, &input) {
		return
	}

	token, err := h.services.GenerateToken(c.Request.Context(), input.Username, input.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		if h.log != nil {
			h.log.Infow("auth_sign_in_failed", "username", input.Username)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": errSignInFailed})
		return
	}
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "sign-in failed", "auth_sign_in_error", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
