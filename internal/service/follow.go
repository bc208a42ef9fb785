package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fedisync/internal/federation"
	"fedisync/internal/model"
	"fedisync/internal/repository"
	"fedisync/pkg/log"

	"go.uber.org/zap"
)

// Fediseer is the slice of the trust registry the policy gates consume.
type Fediseer interface {
	GetCensuresGiven(ctx context.Context, host string) ([]string, error)
	GetEndorsements(ctx context.Context, host string) ([]string, error)
}

type FollowService interface {
	// ConditionalFollow evaluates one follow row against the full policy
	// chain and performs the follow/unfollow side effect of the branch it
	// lands on. The returned error is non-nil only for retryable faults.
	ConditionalFollow(ctx context.Context, follow *model.CommunityFollow) (model.FollowStatus, error)
	// ConditionalFollowAll evaluates every row of a community immediately,
	// outside the sweep, after a community is added or reset.
	ConditionalFollowAll(ctx context.Context, communityID int64) error
	// UnfollowAll walks an instance's bot subscriptions page by page and
	// unsubscribes each one, then resets the rows to WAITING.
	UnfollowAll(ctx context.Context, instance *model.Instance) error
}

func NewFollowService(
	service *Service,
	clients federation.ClientProvider,
	fediseer Fediseer,
	followRepo repository.CommunityFollowRepository,
	logger *log.Logger,
) FollowService {
	return &followService{
		Service:    service,
		clients:    clients,
		fediseer:   fediseer,
		followRepo: followRepo,
		logger:     logger,
	}
}

type followService struct {
	*Service
	clients    federation.ClientProvider
	fediseer   Fediseer
	followRepo repository.CommunityFollowRepository
	logger     *log.Logger
}

func (s *followService) ConditionalFollow(ctx context.Context, follow *model.CommunityFollow) (model.FollowStatus, error) {
	home := follow.Instance
	if home == nil || follow.Community == nil || follow.Community.Instance == nil {
		return model.FollowStatusError, fmt.Errorf("follow %d loaded without its instance joins", follow.Id)
	}
	remote := follow.Community.Instance

	// local gates: no network I/O happens until all of these pass

	if !home.Enabled || !home.Approved || !remote.Enabled || !remote.Approved {
		return model.FollowStatusNotAvailable, nil
	}
	if home.Id == remote.Id {
		return model.FollowStatusNotAvailable, nil
	}
	if len(home.Allowed) > 0 && !home.Allows(remote) {
		return model.FollowStatusNotAllowed, nil
	}
	if home.Blocks(remote) || remote.Blocks(home) {
		return model.FollowStatusNotAllowed, nil
	}
	if !home.HasCredentials() {
		return model.FollowStatusNotAvailable, nil
	}
	if home.Mode == model.ModeSeed || remote.Mode == model.ModeLeech {
		return model.FollowStatusNotAllowed, nil
	}
	if home.Software.SeedOnly() {
		s.logger.WithContext(ctx).Warn("read-only software holds an active follow role",
			zap.String("host", home.Host), zap.Int64("follow_id", follow.Id))
		return model.FollowStatusNotAvailable, nil
	}
	if home.Software != remote.Software && (!home.CrossSoftware || !remote.CrossSoftware) {
		return model.FollowStatusNotAllowed, nil
	}

	if home.Software == model.SoftwareLemmy && remote.Software == model.SoftwareLemmy {
		allowed, err := s.checkFediseer(ctx, home, remote)
		if err != nil {
			return model.FollowStatusError, err
		}
		if !allowed {
			return model.FollowStatusNotAllowed, nil
		}
	}

	// network gates: judge deletion/NSFW from the remote's own view so the
	// home's possibly stale federated copy cannot mask a removal

	remoteClient, err := s.clients.Get(ctx, remote)
	if err != nil {
		return model.FollowStatusError, err
	}
	remoteView, err := remoteClient.GetCommunity(ctx, follow.Community.Name)
	if err != nil {
		if errors.Is(err, federation.ErrNotFound) {
			return model.FollowStatusNotAllowed, nil
		}
		return model.FollowStatusError, err
	}
	if remoteView.IsDeleted || remoteView.IsRemoved || !remoteView.IsPublic {
		return model.FollowStatusNotAllowed, nil
	}
	if (remoteView.NSFW && home.NSFW == model.NSFWBlock) || (!remoteView.NSFW && home.NSFW == model.NSFWOnly) {
		return model.FollowStatusNotAllowed, nil
	}

	homeClient, err := s.clients.Get(ctx, home)
	if err != nil {
		return model.FollowStatusError, err
	}
	homeView, err := homeClient.GetCommunity(ctx, follow.Community.FullName())
	if err != nil {
		if errors.Is(err, federation.ErrNotFound) {
			return model.FollowStatusNotAllowed, nil
		}
		return model.FollowStatusError, err
	}

	if homeView.LocalSubscribers == nil {
		// dialect can't report a local count: subscribe if needed and keep
		// re-checking on later sweeps
		if homeView.Subscribed == federation.NotSubscribed {
			if err := homeClient.FollowCommunity(ctx, homeView.ID, true); err != nil {
				return model.FollowStatusError, err
			}
		}
		return model.FollowStatusWaiting, nil
	}

	botCounted := int64(0)
	if homeView.Subscribed != federation.NotSubscribed {
		botCounted = 1
	}
	if *homeView.LocalSubscribers-botCounted > 0 {
		// a human holds the subscription open, the bot can step aside
		if homeView.Subscribed == federation.Subscribed {
			if err := homeClient.FollowCommunity(ctx, homeView.ID, false); err != nil {
				return model.FollowStatusError, err
			}
		}
		return model.FollowStatusFederatedByUser, nil
	}

	if homeView.Subscribed == federation.Pending {
		// a stuck pending follow never completes on its own; drop it and
		// retry fresh next sweep
		if err := homeClient.FollowCommunity(ctx, homeView.ID, false); err != nil {
			return model.FollowStatusError, err
		}
		return model.FollowStatusWaiting, nil
	}

	if homeView.Subscribed == federation.NotSubscribed {
		if err := homeClient.FollowCommunity(ctx, homeView.ID, true); err != nil {
			return model.FollowStatusError, err
		}
	}
	return model.FollowStatusFederatedByBot, nil
}

// checkFediseer applies the home instance's trust policy. Registry outages
// degrade to "no data" for blacklist mode but fail retryably for whitelist
// mode, where missing data would deny everything until the next config
// change.
func (s *followService) checkFediseer(ctx context.Context, home, remote *model.Instance) (bool, error) {
	switch home.Fediseer {
	case model.FediseerBlacklistOnly:
		censured, err := s.fediseer.GetCensuresGiven(ctx, home.Host)
		if err != nil {
			s.logger.WithContext(ctx).Warn("fediseer censures unavailable, treating as empty",
				zap.String("host", home.Host), zap.Error(err))
			return true, nil
		}
		for _, domain := range censured {
			if domain == remote.Host {
				return false, nil
			}
		}
		return true, nil
	case model.FediseerWhitelistOnly:
		endorsements, err := s.fediseer.GetEndorsements(ctx, remote.Host)
		if err != nil {
			return false, err
		}
		for _, domain := range endorsements {
			if domain == home.Host {
				return true, nil
			}
		}
		return false, nil
	default:
		return true, nil
	}
}

func (s *followService) ConditionalFollowAll(ctx context.Context, communityID int64) error {
	follows, err := s.followRepo.FindByCommunity(ctx, communityID)
	if err != nil {
		return err
	}
	for _, follow := range follows {
		status, err := s.ConditionalFollow(ctx, follow)
		attempts := follow.AttemptCount + 1
		var reason *string
		if err != nil {
			status = model.FollowStatusError
			r := federation.Reason(err)
			reason = &r
			s.logger.WithContext(ctx).Warn("follow evaluation failed",
				zap.Int64("follow_id", follow.Id), zap.Error(err))
		}
		if updateErr := s.followRepo.UpdateOutcome(ctx, follow.Id, status, attempts, reason); updateErr != nil {
			return updateErr
		}
	}
	return nil
}

func (s *followService) UnfollowAll(ctx context.Context, instance *model.Instance) error {
	if !instance.HasCredentials() || instance.Software.SeedOnly() {
		return nil
	}
	client, err := s.clients.Get(ctx, instance)
	if err != nil {
		return err
	}
	for page := 1; ; page++ {
		communities, err := client.ListCommunities(ctx, federation.ListOptions{
			Type:  federation.ListingSubscribed,
			Page:  page,
			Limit: 50,
		})
		if err != nil {
			if errors.Is(err, federation.ErrRateLimited) {
				// the remote told us to slow down mid-walk; wait out a
				// window and resume the same page
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Minute):
				}
				page--
				continue
			}
			return err
		}
		if len(communities) == 0 {
			return nil
		}
		for _, community := range communities {
			if community.Subscribed == federation.NotSubscribed {
				continue
			}
			if err := client.FollowCommunity(ctx, community.ID, false); err != nil {
				if errors.Is(err, federation.ErrRateLimited) {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(time.Minute):
					}
					err = client.FollowCommunity(ctx, community.ID, false)
				}
				if err != nil {
					s.logger.WithContext(ctx).Warn("unfollow failed",
						zap.String("host", instance.Host),
						zap.String("community", community.Name),
						zap.Error(err))
				}
			}
		}
	}
}
