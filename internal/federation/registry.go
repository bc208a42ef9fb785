package federation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fedisync/internal/model"
	"fedisync/pkg/log"

	"golang.org/x/sync/singleflight"
)

const clientTTL = time.Hour

// ClientProvider hands out a dialect client for an instance. It exists as
// an interface so services can swap in fakes.
type ClientProvider interface {
	Get(ctx context.Context, instance *model.Instance) (Client, error)
	// Evict drops any cached client for the host so the next Get
	// reauthenticates, used after credential rotation.
	Evict(host string)
}

type cachedClient struct {
	client    Client
	expiresAt time.Time
}

// Registry caches constructed clients per instance so repeated policy
// evaluations within a sweep reuse logins, tokens and rate limit state.
// Construction is deduplicated with singleflight: N concurrent requests
// for the same host perform one authentication.
type Registry struct {
	logger *log.Logger

	mu      sync.Mutex
	clients map[string]cachedClient
	group   singleflight.Group

	// build is the dialect constructor, replaceable in tests
	build func(ctx context.Context, instance *model.Instance) (Client, error)
}

func NewRegistry(logger *log.Logger) *Registry {
	r := &Registry{
		logger:  logger,
		clients: make(map[string]cachedClient),
	}
	r.build = r.buildClient
	return r
}

// cacheKey separates credentialed clients from anonymous ones for the same
// host, so rotating an instance's client id takes effect within the TTL.
func cacheKey(instance *model.Instance) string {
	if instance.ClientID != nil && *instance.ClientID != "" {
		return instance.Host + "-" + *instance.ClientID
	}
	return instance.Host
}

func (r *Registry) Get(ctx context.Context, instance *model.Instance) (Client, error) {
	key := cacheKey(instance)

	r.mu.Lock()
	cached, ok := r.clients[key]
	r.mu.Unlock()
	if ok && time.Now().Before(cached.expiresAt) {
		return cached.client, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		r.mu.Lock()
		cached, ok := r.clients[key]
		r.mu.Unlock()
		if ok && time.Now().Before(cached.expiresAt) {
			return cached.client, nil
		}

		client, err := r.build(ctx, instance)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.clients[key] = cachedClient{client: client, expiresAt: time.Now().Add(clientTTL)}
		r.mu.Unlock()
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Client), nil
}

func (r *Registry) buildClient(ctx context.Context, instance *model.Instance) (Client, error) {
	switch instance.Software {
	case model.SoftwareLemmy:
		var username, password string
		if instance.ClientID != nil {
			username = *instance.ClientID
		}
		if instance.ClientSecret != nil {
			password = *instance.ClientSecret
		}
		return NewLemmyClient(instance.Host, username, password, r.logger), nil
	case model.SoftwareMbin:
		if instance.ClientID == nil || instance.ClientSecret == nil {
			return nil, fmt.Errorf("mbin instance %s has no oauth credentials", instance.Host)
		}
		return NewMbinClient(instance.Host, *instance.ClientID, *instance.ClientSecret, r.logger), nil
	case model.SoftwareActivityPub:
		return NewActivityPubClient(instance.Host, r.logger), nil
	default:
		return nil, fmt.Errorf("unknown software %q on %s", instance.Software, instance.Host)
	}
}

// Evict drops a host's cached clients, forcing reauthentication on the
// next Get.
func (r *Registry) Evict(host string) {
	r.mu.Lock()
	for key := range r.clients {
		if key == host || (len(key) > len(host) && key[:len(host)+1] == host+"-") {
			delete(r.clients, key)
		}
	}
	r.mu.Unlock()
}
