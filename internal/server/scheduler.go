package server

import (
	"context"

	"fedisync/internal/scheduler"
	"fedisync/pkg/log"
)

type SchedulerServer struct {
	scheduler *scheduler.Scheduler
	log       *log.Logger
}

func NewSchedulerServer(
	log *log.Logger,
	s *scheduler.Scheduler,
) *SchedulerServer {
	return &SchedulerServer{
		scheduler: s,
		log:       log,
	}
}

func (s *SchedulerServer) Start(ctx context.Context) error {
	s.log.Info("starting scheduler server")
	return s.scheduler.Start(ctx)
}

func (s *SchedulerServer) Stop(ctx context.Context) error {
	s.log.Info("stopping scheduler server")
	return s.scheduler.Stop(ctx)
}
