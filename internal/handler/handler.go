package handler

import (
	"fedisync/pkg/jwt"
	"fedisync/pkg/log"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	logger *log.Logger
}

func NewHandler(logger *log.Logger) *Handler {
	return &Handler{logger: logger}
}

// GetAdminFromCtx returns the admin identity the auth middleware stored on
// the request, or nil when the request is unauthenticated.
func GetAdminFromCtx(ctx *gin.Context) *jwt.AdminClaims {
	v, exists := ctx.Get("claims")
	if !exists {
		return nil
	}
	claims, ok := v.(*jwt.AdminClaims)
	if !ok {
		return nil
	}
	return claims
}
