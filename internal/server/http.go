package server

import (
	apiV1 "fedisync/api/v1"
	"fedisync/internal/middleware"
	"fedisync/internal/router"
	"fedisync/pkg/server/http"

	"github.com/gin-gonic/gin"
)

func NewHTTPServer(
	deps router.RouterDeps,
) *http.Server {
	if deps.Config.GetString("env") == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	s := http.NewServer(
		gin.Default(),
		deps.Logger,
		http.WithServerHost(deps.Config.GetString("http.host")),
		http.WithServerPort(deps.Config.GetInt("http.port")),
	)

	s.Use(
		middleware.CORSMiddleware(),
		middleware.ResponseLogMiddleware(deps.Logger),
		middleware.RequestLogMiddleware(deps.Logger),
	)
	s.GET("/", func(ctx *gin.Context) {
		apiV1.HandleSuccess(ctx, map[string]interface{}{
			":)": "Thank you for using fedisync!",
		})
	})

	v1 := s.Group("/api/v1")
	router.InitAuthRouter(deps, v1)
	router.InitInstanceRouter(deps, v1)
	router.InitCommunityRouter(deps, v1)

	return s
}
