package service

import (
	"context"
	"strings"

	v1 "fedisync/api/v1"
	"fedisync/internal/federation"
	"fedisync/internal/model"
	"fedisync/internal/repository"
	"fedisync/pkg/log"

	"go.uber.org/zap"
)

// SoftwareDetector resolves what software a host runs; satisfied by the
// nodeinfo prober and by test fakes.
type SoftwareDetector interface {
	Detect(ctx context.Context, host string) (model.Software, error)
}

type InstanceService interface {
	Register(ctx context.Context, host string) (*model.Instance, error)
	Update(ctx context.Context, host string, req *v1.UpdateInstanceRequest) (*model.Instance, error)
	Get(ctx context.Context, host string) (*model.Instance, error)
	List(ctx context.Context, page, pageSize int) ([]*model.Instance, int64, error)
	Allow(ctx context.Context, host, otherHost string) error
	Unallow(ctx context.Context, host, otherHost string) error
	Block(ctx context.Context, host, otherHost string) error
	Unblock(ctx context.Context, host, otherHost string) error
	// ResetSubscriptions unwinds an instance's bot follows. A soft reset
	// keeps the rows and flips them back to WAITING; a hard reset also
	// unsubscribes everything remotely first.
	ResetSubscriptions(ctx context.Context, host string, soft bool) error
}

func NewInstanceService(
	service *Service,
	detector SoftwareDetector,
	clients federation.ClientProvider,
	instanceRepo repository.InstanceRepository,
	communityRepo repository.CommunityRepository,
	followRepo repository.CommunityFollowRepository,
	communities CommunityService,
	follows FollowService,
	logger *log.Logger,
) InstanceService {
	return &instanceService{
		Service:       service,
		detector:      detector,
		clients:       clients,
		instanceRepo:  instanceRepo,
		communityRepo: communityRepo,
		followRepo:    followRepo,
		communities:   communities,
		follows:       follows,
		logger:        logger,
	}
}

type instanceService struct {
	*Service
	detector      SoftwareDetector
	clients       federation.ClientProvider
	instanceRepo  repository.InstanceRepository
	communityRepo repository.CommunityRepository
	followRepo    repository.CommunityFollowRepository
	communities   CommunityService
	follows       FollowService
	logger        *log.Logger
}

func (s *instanceService) Register(ctx context.Context, host string) (*model.Instance, error) {
	host = strings.ToLower(strings.TrimSpace(host))

	existing, err := s.instanceRepo.GetByHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, v1.ErrInstanceAlreadyRegistered
	}

	software, err := s.detector.Detect(ctx, host)
	if err != nil {
		s.logger.WithContext(ctx).Warn("software detection failed",
			zap.String("host", host), zap.Error(err))
		return nil, v1.ErrUnknownSoftware
	}

	instance := &model.Instance{
		Host:     host,
		Enabled:  true,
		Approved: false, // an operator approves participation explicitly
		Software: software,
		Mode:     model.ModeNormal,
		NSFW:     model.NSFWBlock,
		Fediseer: model.FediseerNone,
	}
	if software.SeedOnly() {
		instance.Mode = model.ModeSeed
	}
	if err := s.instanceRepo.Create(ctx, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

func (s *instanceService) Update(ctx context.Context, host string, req *v1.UpdateInstanceRequest) (*model.Instance, error) {
	instance, err := s.instanceRepo.GetByHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, v1.ErrInstanceNotFound
	}

	wasEnabled := instance.Enabled
	hadCredentials := instance.HasCredentials()

	if req.Enabled != nil {
		instance.Enabled = *req.Enabled
	}
	if req.ClientID != nil {
		instance.ClientID = req.ClientID
	}
	if req.ClientSecret != nil {
		instance.ClientSecret = req.ClientSecret
	}
	if req.Mode != nil {
		instance.Mode = model.FederationMode(*req.Mode)
	}
	if req.NSFW != nil {
		instance.NSFW = model.NSFWPolicy(*req.NSFW)
	}
	if req.Fediseer != nil {
		instance.Fediseer = model.FediseerUsage(*req.Fediseer)
	}
	if req.CrossSoftware != nil {
		instance.CrossSoftware = *req.CrossSoftware
	}
	if req.AutoAdd != nil {
		instance.AutoAdd = *req.AutoAdd
	}

	// read-only software cannot subscribe no matter what the operator asks
	if instance.Software.SeedOnly() {
		instance.Mode = model.ModeSeed
	}

	if err := s.instanceRepo.Update(ctx, instance); err != nil {
		return nil, err
	}

	if req.ClientID != nil || req.ClientSecret != nil {
		// any cached client still holds the old login
		s.clients.Evict(instance.Host)
	}

	switch {
	case wasEnabled && !instance.Enabled:
		// leaving the network: withdraw this instance's communities from
		// everyone else and unwind its own bot subscriptions
		if err := s.tm.Transaction(ctx, func(ctx context.Context) error {
			if err := s.followRepo.DeleteByInstance(ctx, instance.Id); err != nil {
				return err
			}
			return s.communityRepo.DeleteByInstance(ctx, instance.Id)
		}); err != nil {
			return nil, err
		}
		go func() {
			if err := s.follows.UnfollowAll(context.Background(), instance); err != nil {
				s.logger.Error("unfollow sweep failed",
					zap.String("host", instance.Host), zap.Error(err))
			}
		}()
	case !wasEnabled && instance.Enabled, !hadCredentials && instance.HasCredentials():
		// (re)joining: pair it with every known community so the next
		// sweep picks the rows up
		if err := s.communities.SeedFollowsForInstance(ctx, instance); err != nil {
			return nil, err
		}
	default:
		// settings changed under settled rows: re-open them so the next
		// sweep applies the new policy
		if err := s.followRepo.ResetByInstance(ctx, instance.Id); err != nil {
			return nil, err
		}
	}

	return instance, nil
}

func (s *instanceService) Get(ctx context.Context, host string) (*model.Instance, error) {
	instance, err := s.instanceRepo.GetByHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, v1.ErrInstanceNotFound
	}
	return instance, nil
}

func (s *instanceService) List(ctx context.Context, page, pageSize int) ([]*model.Instance, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return s.instanceRepo.ListWithPagination(ctx, page, pageSize)
}

func (s *instanceService) pair(ctx context.Context, host, otherHost string) (*model.Instance, *model.Instance, error) {
	instance, err := s.instanceRepo.GetByHost(ctx, host)
	if err != nil {
		return nil, nil, err
	}
	if instance == nil {
		return nil, nil, v1.ErrInstanceNotFound
	}
	other, err := s.instanceRepo.GetByHost(ctx, otherHost)
	if err != nil {
		return nil, nil, err
	}
	if other == nil {
		return nil, nil, v1.ErrInstanceNotFound
	}
	return instance, other, nil
}

// list changes re-open both sides' settled rows so the next sweep applies
// the new policy
func (s *instanceService) resetPair(ctx context.Context, a, b *model.Instance) error {
	if err := s.followRepo.ResetByInstance(ctx, a.Id); err != nil {
		return err
	}
	return s.followRepo.ResetByInstance(ctx, b.Id)
}

func (s *instanceService) Allow(ctx context.Context, host, otherHost string) error {
	instance, other, err := s.pair(ctx, host, otherHost)
	if err != nil {
		return err
	}
	if err := s.instanceRepo.AddAllowed(ctx, instance, other); err != nil {
		return err
	}
	return s.resetPair(ctx, instance, other)
}

func (s *instanceService) Unallow(ctx context.Context, host, otherHost string) error {
	instance, other, err := s.pair(ctx, host, otherHost)
	if err != nil {
		return err
	}
	if err := s.instanceRepo.RemoveAllowed(ctx, instance, other); err != nil {
		return err
	}
	return s.resetPair(ctx, instance, other)
}

func (s *instanceService) Block(ctx context.Context, host, otherHost string) error {
	instance, other, err := s.pair(ctx, host, otherHost)
	if err != nil {
		return err
	}
	if err := s.instanceRepo.AddBlocked(ctx, instance, other); err != nil {
		return err
	}
	return s.resetPair(ctx, instance, other)
}

func (s *instanceService) Unblock(ctx context.Context, host, otherHost string) error {
	instance, other, err := s.pair(ctx, host, otherHost)
	if err != nil {
		return err
	}
	if err := s.instanceRepo.RemoveBlocked(ctx, instance, other); err != nil {
		return err
	}
	return s.resetPair(ctx, instance, other)
}

func (s *instanceService) ResetSubscriptions(ctx context.Context, host string, soft bool) error {
	instance, err := s.instanceRepo.GetByHost(ctx, host)
	if err != nil {
		return err
	}
	if instance == nil {
		return v1.ErrInstanceNotFound
	}
	if !soft {
		if err := s.follows.UnfollowAll(ctx, instance); err != nil {
			return err
		}
	}
	return s.followRepo.ResetByInstance(ctx, instance.Id)
}
