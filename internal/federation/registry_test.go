package federation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"fedisync/internal/model"
	"fedisync/pkg/log"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	conf := viper.New()
	conf.Set("log.log_level", "error")
	conf.Set("log.log_file_name", "/tmp/fedisync-test.log")
	return log.NewLog(conf)
}

type nullClient struct {
	host string
}

func (c *nullClient) Host() string             { return c.host }
func (c *nullClient) Software() model.Software { return model.SoftwareLemmy }
func (c *nullClient) GetUser(ctx context.Context, username string) (*User, error) {
	return nil, ErrNotFound
}
func (c *nullClient) GetCommunity(ctx context.Context, name string) (*Community, error) {
	return nil, ErrNotFound
}
func (c *nullClient) FollowCommunity(ctx context.Context, id string, follow bool) error {
	return nil
}
func (c *nullClient) ListCommunities(ctx context.Context, opts ListOptions) ([]*Community, error) {
	return nil, nil
}

func TestRegistrySingleFlight(t *testing.T) {
	registry := NewRegistry(newTestLogger())

	var builds int64
	registry.build = func(ctx context.Context, instance *model.Instance) (Client, error) {
		atomic.AddInt64(&builds, 1)
		return &nullClient{host: instance.Host}, nil
	}

	instance := &model.Instance{Host: "lemmy.example.org"}
	const callers = 32

	var wg sync.WaitGroup
	clients := make([]Client, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client, err := registry.Get(context.Background(), instance)
			require.NoError(t, err)
			clients[i] = client
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&builds))
	for _, client := range clients {
		assert.Same(t, clients[0], client)
	}
}

func TestRegistryKeySeparatesCredentials(t *testing.T) {
	registry := NewRegistry(newTestLogger())
	registry.build = func(ctx context.Context, instance *model.Instance) (Client, error) {
		return &nullClient{host: instance.Host}, nil
	}

	anonymous := &model.Instance{Host: "lemmy.example.org"}
	clientID := "bot"
	credentialed := &model.Instance{Host: "lemmy.example.org", ClientID: &clientID}

	a, err := registry.Get(context.Background(), anonymous)
	require.NoError(t, err)
	b, err := registry.Get(context.Background(), credentialed)
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	// same key returns the cached client
	a2, err := registry.Get(context.Background(), anonymous)
	require.NoError(t, err)
	assert.Same(t, a, a2)
}

func TestRegistryEvict(t *testing.T) {
	registry := NewRegistry(newTestLogger())
	registry.build = func(ctx context.Context, instance *model.Instance) (Client, error) {
		return &nullClient{host: instance.Host}, nil
	}

	instance := &model.Instance{Host: "mbin.example.org"}
	a, err := registry.Get(context.Background(), instance)
	require.NoError(t, err)

	registry.Evict("mbin.example.org")
	b, err := registry.Get(context.Background(), instance)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}
