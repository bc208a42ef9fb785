package router

import (
	"github.com/gin-gonic/gin"
)

func InitAuthRouter(
	deps RouterDeps,
	r *gin.RouterGroup,
) {
	noAuthRouter := r.Group("/auth")
	{
		noAuthRouter.POST("/code", deps.AuthHandler.RequestLoginCode)
		noAuthRouter.POST("/login", deps.AuthHandler.VerifyLoginCode)
	}
}
