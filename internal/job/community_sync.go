package job

import (
	"context"
	"errors"

	"fedisync/internal/federation"
	"fedisync/internal/repository"
	"fedisync/internal/service"
	"fedisync/pkg/log"

	"go.uber.org/zap"
)

// CommunitySyncJob keeps the community roster in step with the instances
// that opted into automatic discovery: new local communities on auto-add
// instances are registered, and communities deleted at their home are
// purged everywhere.
type CommunitySyncJob interface {
	AddNewCommunities(ctx context.Context) error
	ClearDeletedCommunities(ctx context.Context) error
}

func NewCommunitySyncJob(
	job *Job,
	clients federation.ClientProvider,
	instanceRepo repository.InstanceRepository,
	communityRepo repository.CommunityRepository,
	communities service.CommunityService,
	logger *log.Logger,
) CommunitySyncJob {
	return &communitySyncJob{
		Job:           job,
		clients:       clients,
		instanceRepo:  instanceRepo,
		communityRepo: communityRepo,
		communities:   communities,
		logger:        logger,
	}
}

type communitySyncJob struct {
	*Job
	clients       federation.ClientProvider
	instanceRepo  repository.InstanceRepository
	communityRepo repository.CommunityRepository
	communities   service.CommunityService
	logger        *log.Logger
}

const discoveryPageSize = 50

// AddNewCommunities walks the newest local communities of every auto-add
// instance and registers the ones not yet known. Only the first page is
// read per run: the job runs often enough that newest-first paging catches
// everything over time.
func (j *communitySyncJob) AddNewCommunities(ctx context.Context) error {
	instances, err := j.instanceRepo.ListAutoAdd(ctx)
	if err != nil {
		return err
	}
	for _, instance := range instances {
		client, err := j.clients.Get(ctx, instance)
		if err != nil {
			j.logger.Warn("auto-add client unavailable",
				zap.String("host", instance.Host), zap.Error(err))
			continue
		}
		communities, err := client.ListCommunities(ctx, federation.ListOptions{
			Type:  federation.ListingLocal,
			Sort:  "New",
			Page:  1,
			Limit: discoveryPageSize,
		})
		if err != nil {
			if errors.Is(err, federation.ErrUnsupported) {
				continue
			}
			j.logger.Warn("auto-add listing failed",
				zap.String("host", instance.Host), zap.Error(err))
			continue
		}
		for _, community := range communities {
			if community.IsDeleted || community.IsRemoved || !community.IsPublic {
				continue
			}
			known, err := j.communityRepo.GetByNameAndInstance(ctx, community.Name, instance.Id)
			if err != nil {
				return err
			}
			if known != nil {
				continue
			}
			if _, err := j.communities.Add(ctx, community.Name+"@"+instance.Host); err != nil {
				j.logger.Warn("auto-add registration failed",
					zap.String("community", community.Name),
					zap.String("host", instance.Host),
					zap.Error(err))
			}
		}
	}
	return nil
}

// ClearDeletedCommunities drops registered communities whose home instance
// reports them gone, deleted or removed.
func (j *communitySyncJob) ClearDeletedCommunities(ctx context.Context) error {
	communities, err := j.communityRepo.List(ctx)
	if err != nil {
		return err
	}
	for _, community := range communities {
		if community.Instance == nil || !community.Instance.Enabled {
			continue
		}
		client, err := j.clients.Get(ctx, community.Instance)
		if err != nil {
			continue
		}
		remote, err := client.GetCommunity(ctx, community.Name)
		switch {
		case errors.Is(err, federation.ErrNotFound):
			// fallthrough to deletion below with a nil view
		case err != nil:
			continue
		case !remote.IsDeleted && !remote.IsRemoved && remote.IsPublic:
			continue
		}
		if err := j.communities.Delete(ctx, community.Name, community.Instance.Host); err != nil {
			j.logger.Warn("deleted-community cleanup failed",
				zap.String("community", community.FullName()), zap.Error(err))
			continue
		}
		j.logger.Info("community removed after deletion at home",
			zap.String("community", community.FullName()))
	}
	return nil
}
