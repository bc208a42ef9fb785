package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	v1 "fedisync/api/v1"
	"fedisync/internal/federation"
	"fedisync/internal/model"
	"fedisync/internal/repository"
	"fedisync/pkg/log"

	"go.uber.org/zap"
)

var communityNameRe = regexp.MustCompile(`^[a-z0-9_]+$`)

type CommunityService interface {
	// Add registers "name@host", verifies the community exists on its home
	// instance and fans a WAITING follow row out to every other instance.
	Add(ctx context.Context, fullName string) (*model.Community, error)
	List(ctx context.Context, page, pageSize int) ([]*model.Community, int64, error)
	GetFollows(ctx context.Context, name, host string) (*model.Community, []*model.CommunityFollow, error)
	Delete(ctx context.Context, name, host string) error
	// SeedFollowsForInstance creates the missing follow rows pairing one
	// instance with every known community, used when an instance joins or
	// finishes setup.
	SeedFollowsForInstance(ctx context.Context, instance *model.Instance) error
}

func NewCommunityService(
	service *Service,
	clients federation.ClientProvider,
	instanceRepo repository.InstanceRepository,
	communityRepo repository.CommunityRepository,
	followRepo repository.CommunityFollowRepository,
	follows FollowService,
	logger *log.Logger,
) CommunityService {
	return &communityService{
		Service:       service,
		clients:       clients,
		instanceRepo:  instanceRepo,
		communityRepo: communityRepo,
		followRepo:    followRepo,
		follows:       follows,
		logger:        logger,
	}
}

type communityService struct {
	*Service
	clients       federation.ClientProvider
	instanceRepo  repository.InstanceRepository
	communityRepo repository.CommunityRepository
	followRepo    repository.CommunityFollowRepository
	follows       FollowService
	logger        *log.Logger
}

func splitFullName(fullName string) (name, host string, ok bool) {
	fullName = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(fullName)), "!")
	name, host, ok = strings.Cut(fullName, "@")
	if !ok || name == "" || host == "" || !communityNameRe.MatchString(name) {
		return "", "", false
	}
	return name, host, true
}

func (s *communityService) Add(ctx context.Context, fullName string) (*model.Community, error) {
	name, host, ok := splitFullName(fullName)
	if !ok {
		return nil, v1.ErrInvalidCommunityName
	}

	home, err := s.instanceRepo.GetByHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if home == nil || !home.Enabled {
		return nil, v1.ErrInstanceNotFound
	}

	// confirm the community actually exists before fanning out rows
	client, err := s.clients.Get(ctx, home)
	if err != nil {
		return nil, err
	}
	remote, err := client.GetCommunity(ctx, name)
	if err != nil {
		if errors.Is(err, federation.ErrNotFound) {
			return nil, v1.ErrCommunityNotFound
		}
		return nil, err
	}
	if remote.IsDeleted || remote.IsRemoved {
		return nil, v1.ErrCommunityNotFound
	}

	community := &model.Community{Name: name, InstanceID: home.Id}
	if err := s.tm.Transaction(ctx, func(ctx context.Context) error {
		if err := s.communityRepo.Upsert(ctx, community); err != nil {
			return err
		}
		stored, err := s.communityRepo.GetByNameAndInstance(ctx, name, home.Id)
		if err != nil {
			return err
		}
		community = stored
		return s.fanOut(ctx, community)
	}); err != nil {
		return nil, err
	}
	community.Instance = home

	// evaluate the fresh rows immediately instead of waiting for a sweep
	go func() {
		ctx := context.Background()
		if err := s.follows.ConditionalFollowAll(ctx, community.Id); err != nil {
			s.logger.Error("initial follow pass failed",
				zap.String("community", fullName), zap.Error(err))
		}
	}()

	return community, nil
}

// fanOut creates a WAITING follow row for every enabled instance other than
// the community's own. Existing rows are left untouched.
func (s *communityService) fanOut(ctx context.Context, community *model.Community) error {
	instances, err := s.instanceRepo.List(ctx, true)
	if err != nil {
		return err
	}
	for _, instance := range instances {
		if instance.Id == community.InstanceID {
			continue
		}
		follow := &model.CommunityFollow{
			InstanceID:  instance.Id,
			CommunityID: community.Id,
			Status:      model.FollowStatusWaiting,
		}
		if err := s.followRepo.Create(ctx, follow); err != nil {
			return err
		}
	}
	return nil
}

func (s *communityService) List(ctx context.Context, page, pageSize int) ([]*model.Community, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return s.communityRepo.ListWithPagination(ctx, page, pageSize)
}

func (s *communityService) GetFollows(ctx context.Context, name, host string) (*model.Community, []*model.CommunityFollow, error) {
	instance, err := s.instanceRepo.GetByHost(ctx, host)
	if err != nil {
		return nil, nil, err
	}
	if instance == nil {
		return nil, nil, v1.ErrInstanceNotFound
	}
	community, err := s.communityRepo.GetByNameAndInstance(ctx, name, instance.Id)
	if err != nil {
		return nil, nil, err
	}
	if community == nil {
		return nil, nil, v1.ErrNotFound
	}
	follows, err := s.followRepo.FindByCommunity(ctx, community.Id)
	if err != nil {
		return nil, nil, err
	}
	return community, follows, nil
}

func (s *communityService) Delete(ctx context.Context, name, host string) error {
	instance, err := s.instanceRepo.GetByHost(ctx, host)
	if err != nil {
		return err
	}
	if instance == nil {
		return v1.ErrInstanceNotFound
	}
	community, err := s.communityRepo.GetByNameAndInstance(ctx, name, instance.Id)
	if err != nil {
		return err
	}
	if community == nil {
		return v1.ErrNotFound
	}
	return s.tm.Transaction(ctx, func(ctx context.Context) error {
		if err := s.followRepo.DeleteByCommunity(ctx, community.Id); err != nil {
			return err
		}
		return s.communityRepo.Delete(ctx, community.Id)
	})
}

func (s *communityService) SeedFollowsForInstance(ctx context.Context, instance *model.Instance) error {
	communities, err := s.communityRepo.List(ctx)
	if err != nil {
		return err
	}
	for _, community := range communities {
		if community.InstanceID == instance.Id {
			continue
		}
		follow := &model.CommunityFollow{
			InstanceID:  instance.Id,
			CommunityID: community.Id,
			Status:      model.FollowStatusWaiting,
		}
		if err := s.followRepo.Create(ctx, follow); err != nil {
			return err
		}
	}
	return nil
}
