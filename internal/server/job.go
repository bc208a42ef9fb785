package server

import (
	"context"
	"time"

	"fedisync/internal/job"
	"fedisync/pkg/log"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

type JobServer struct {
	log       *log.Logger
	scheduler *gocron.Scheduler
	sync      job.CommunitySyncJob
}

func NewJobServer(
	log *log.Logger,
	sync job.CommunitySyncJob,
) *JobServer {
	return &JobServer{
		log:       log,
		scheduler: gocron.NewScheduler(time.UTC),
		sync:      sync,
	}
}

func (s *JobServer) Start(ctx context.Context) error {
	if _, err := s.scheduler.Every(1).Minute().Do(func() {
		if err := s.sync.AddNewCommunities(ctx); err != nil {
			s.log.Error("AddNewCommunities error", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(24).Hours().Do(func() {
		if err := s.sync.ClearDeletedCommunities(ctx); err != nil {
			s.log.Error("ClearDeletedCommunities error", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	s.scheduler.StartBlocking()
	return nil
}

func (s *JobServer) Stop(ctx context.Context) error {
	s.scheduler.Stop()
	s.log.Info("job server stopped")
	return nil
}
