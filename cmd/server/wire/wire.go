//go:build wireinject
// +build wireinject

package wire

import (
	"fedisync/internal/fediseer"
	"fedisync/internal/federation"
	"fedisync/internal/handler"
	"fedisync/internal/job"
	"fedisync/internal/repository"
	"fedisync/internal/router"
	"fedisync/internal/server"
	"fedisync/internal/service"
	"fedisync/pkg/app"
	"fedisync/pkg/jwt"
	"fedisync/pkg/log"
	"fedisync/pkg/server/http"
	"fedisync/pkg/sid"

	"github.com/google/wire"
	"github.com/spf13/viper"
)

var repositorySet = wire.NewSet(
	repository.NewDB,
	repository.NewRedis,
	repository.NewRepository,
	repository.NewTransaction,
	repository.NewInstanceRepository,
	repository.NewCommunityRepository,
	repository.NewCommunityFollowRepository,
	repository.NewUserRepository,
)

var federationSet = wire.NewSet(
	federation.NewRegistry,
	wire.Bind(new(federation.ClientProvider), new(*federation.Registry)),
	federation.NewSoftwareDetector,
	wire.Bind(new(service.SoftwareDetector), new(*federation.SoftwareDetector)),
	fediseer.NewClient,
	wire.Bind(new(service.Fediseer), new(*fediseer.Client)),
)

var serviceSet = wire.NewSet(
	service.NewService,
	service.NewFollowService,
	service.NewCommunityService,
	service.NewInstanceService,
	service.NewAuthService,
)

var handlerSet = wire.NewSet(
	handler.NewHandler,
	handler.NewAuthHandler,
	handler.NewInstanceHandler,
	handler.NewCommunityHandler,
)

var jobSet = wire.NewSet(
	job.NewJob,
	job.NewCommunitySyncJob,
)

var serverSet = wire.NewSet(
	server.NewHTTPServer,
	server.NewJobServer,
)

// build App
func newApp(
	httpServer *http.Server,
	jobServer *server.JobServer,
) *app.App {
	return app.NewApp(
		app.WithServer(httpServer, jobServer),
		app.WithName("fedisync-server"),
	)
}

func NewWire(*viper.Viper, *log.Logger) (*app.App, func(), error) {
	panic(wire.Build(
		repositorySet,
		federationSet,
		serviceSet,
		handlerSet,
		jobSet,
		serverSet,
		wire.Struct(new(router.RouterDeps), "*"),
		sid.NewSid,
		jwt.NewJwt,
		newApp,
	))
}
