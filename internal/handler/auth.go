package handler

import (
	"net/http"

	v1 "fedisync/api/v1"
	"fedisync/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	*Handler
	authService service.AuthService
}

func NewAuthHandler(handler *Handler, authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		Handler:     handler,
		authService: authService,
	}
}

// RequestLoginCode godoc
// @Summary Request a one-time login code
// @Description Sends a login code by direct message to an instance administrator
// @Tags auth
// @Accept json
// @Produce json
// @Param request body v1.RequestLoginCodeRequest true "params"
// @Success 200 {object} v1.Response
// @Router /api/v1/auth/code [post]
func (h *AuthHandler) RequestLoginCode(ctx *gin.Context) {
	var req v1.RequestLoginCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	if err := h.authService.RequestLoginCode(ctx, req.Username, req.Host); err != nil {
		h.logger.WithContext(ctx).Error("authService.RequestLoginCode error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	v1.HandleSuccess(ctx, nil)
}

// VerifyLoginCode godoc
// @Summary Exchange a login code for a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body v1.VerifyLoginCodeRequest true "params"
// @Success 200 {object} v1.VerifyLoginCodeResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) VerifyLoginCode(ctx *gin.Context) {
	var req v1.VerifyLoginCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	token, err := h.authService.VerifyLoginCode(ctx, req.Username, req.Host, req.Code)
	if err != nil {
		v1.HandleError(ctx, http.StatusUnauthorized, err, nil)
		return
	}
	v1.HandleSuccess(ctx, v1.VerifyLoginCodeResponseData{
		AccessToken: token,
	})
}
