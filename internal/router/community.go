package router

import (
	"fedisync/internal/middleware"

	"github.com/gin-gonic/gin"
)

func InitCommunityRouter(
	deps RouterDeps,
	r *gin.RouterGroup,
) {
	noAuthRouter := r.Group("/communities")
	{
		noAuthRouter.POST("", deps.CommunityHandler.Add)
		noAuthRouter.GET("", deps.CommunityHandler.List)
		noAuthRouter.GET("/:host/:name/follows", deps.CommunityHandler.GetFollows)
	}

	strictAuthRouter := r.Group("/communities").Use(middleware.StrictAuth(deps.JWT, deps.Logger))
	{
		strictAuthRouter.DELETE("/:host/:name", deps.CommunityHandler.Delete)
	}
}
