package main

import (
	"context"
	"flag"
	"fmt"

	"fedisync/cmd/server/wire"
	"fedisync/pkg/config"
	"fedisync/pkg/log"

	"go.uber.org/zap"
)

// @title           fedisync API
// @version         1.0.0
// @description     fedisync keeps threadiverse instances subscribed to each other's communities.
// @host      localhost:8000
// @securityDefinitions.apiKey Bearer
// @in header
// @name Authorization
func main() {
	var envConf = flag.String("conf", "config/local.yml", "config path, eg: -conf ./config/local.yml")
	flag.Parse()
	conf := config.NewConfig(*envConf)

	logger := log.NewLog(conf)

	app, cleanup, err := wire.NewWire(conf, logger)
	defer cleanup()
	if err != nil {
		panic(err)
	}
	logger.Info("server start", zap.String("host", fmt.Sprintf("http://%s:%d", conf.GetString("http.host"), conf.GetInt("http.port"))))
	if err = app.Run(context.Background()); err != nil {
		panic(err)
	}
}
