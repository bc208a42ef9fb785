package router

import (
	"fedisync/internal/handler"
	"fedisync/pkg/jwt"
	"fedisync/pkg/log"

	"github.com/spf13/viper"
)

type RouterDeps struct {
	Logger           *log.Logger
	Config           *viper.Viper
	JWT              *jwt.JWT
	AuthHandler      *handler.AuthHandler
	InstanceHandler  *handler.InstanceHandler
	CommunityHandler *handler.CommunityHandler
}
