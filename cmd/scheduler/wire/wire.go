//go:build wireinject
// +build wireinject

package wire

import (
	"fedisync/internal/fediseer"
	"fedisync/internal/federation"
	"fedisync/internal/repository"
	"fedisync/internal/scheduler"
	"fedisync/internal/server"
	"fedisync/internal/service"
	"fedisync/pkg/app"
	"fedisync/pkg/jwt"
	"fedisync/pkg/log"
	"fedisync/pkg/sid"

	"github.com/google/wire"
	"github.com/spf13/viper"
)

var repositorySet = wire.NewSet(
	repository.NewDB,
	repository.NewRedis,
	repository.NewRepository,
	repository.NewTransaction,
	repository.NewCommunityFollowRepository,
)

var federationSet = wire.NewSet(
	federation.NewRegistry,
	wire.Bind(new(federation.ClientProvider), new(*federation.Registry)),
	fediseer.NewClient,
	wire.Bind(new(service.Fediseer), new(*fediseer.Client)),
)

var serviceSet = wire.NewSet(
	service.NewService,
	service.NewFollowService,
)

var serverSet = wire.NewSet(
	scheduler.NewScheduler,
	server.NewSchedulerServer,
)

// build App
func newApp(
	schedulerServer *server.SchedulerServer,
) *app.App {
	return app.NewApp(
		app.WithServer(schedulerServer),
		app.WithName("fedisync-scheduler"),
	)
}

func NewWire(*viper.Viper, *log.Logger) (*app.App, func(), error) {
	panic(wire.Build(
		repositorySet,
		federationSet,
		serviceSet,
		serverSet,
		sid.NewSid,
		jwt.NewJwt,
		newApp,
	))
}
