package router

import (
	"fedisync/internal/middleware"

	"github.com/gin-gonic/gin"
)

func InitInstanceRouter(
	deps RouterDeps,
	r *gin.RouterGroup,
) {
	noAuthRouter := r.Group("/instances")
	{
		noAuthRouter.POST("", deps.InstanceHandler.Register)
		noAuthRouter.GET("", deps.InstanceHandler.List)
		noAuthRouter.GET("/:host", deps.InstanceHandler.Get)
	}

	strictAuthRouter := r.Group("/instances").Use(middleware.StrictAuth(deps.JWT, deps.Logger))
	{
		strictAuthRouter.PUT("/:host", deps.InstanceHandler.Update)
		strictAuthRouter.POST("/:host/allowed", deps.InstanceHandler.Allow)
		strictAuthRouter.DELETE("/:host/allowed", deps.InstanceHandler.Unallow)
		strictAuthRouter.POST("/:host/blocked", deps.InstanceHandler.Block)
		strictAuthRouter.DELETE("/:host/blocked", deps.InstanceHandler.Unblock)
		strictAuthRouter.POST("/:host/reset", deps.InstanceHandler.ResetSubscriptions)
	}
}
