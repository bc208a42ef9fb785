package fediseer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fedisync/pkg/log"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://fediseer.com/api/v1"
	cacheTTL       = 24 * time.Hour
	requestTimeout = 10 * time.Second
)

// Client queries the fediseer trust registry. Responses are cached in
// redis because trust lists move slowly and the sweep would otherwise
// hammer one public API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	rdb        *redis.Client
	logger     *log.Logger
}

func NewClient(rdb *redis.Client, logger *log.Logger) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		rdb:        rdb,
		logger:     logger,
	}
}

type instanceList struct {
	Instances []struct {
		Domain string `json:"domain"`
	} `json:"instances"`
}

// GetCensuresGiven lists the domains an instance has censured.
func (c *Client) GetCensuresGiven(ctx context.Context, host string) ([]string, error) {
	path := fmt.Sprintf("/censures_given/%s", url.PathEscape(host))
	return c.cachedDomains(ctx, "fediseer_censures:"+host, path)
}

// GetEndorsements lists the domains endorsing an instance.
func (c *Client) GetEndorsements(ctx context.Context, host string) ([]string, error) {
	path := fmt.Sprintf("/endorsements/%s", url.PathEscape(host))
	return c.cachedDomains(ctx, "fediseer_endorsements:"+host, path)
}

// GetGuarantees lists the domains an instance guarantees for.
func (c *Client) GetGuarantees(ctx context.Context, host string) ([]string, error) {
	path := fmt.Sprintf("/guarantees/%s", url.PathEscape(host))
	return c.cachedDomains(ctx, "fediseer_guarantees:"+host, path)
}

func (c *Client) cachedDomains(ctx context.Context, cacheKey, path string) ([]string, error) {
	cached, err := c.rdb.Get(ctx, cacheKey).Result()
	if err == nil {
		var domains []string
		if err := json.Unmarshal([]byte(cached), &domains); err == nil {
			return domains, nil
		}
	} else if err != redis.Nil {
		c.logger.Warn("fediseer cache read failed", zap.String("key", cacheKey), zap.Error(err))
	}

	domains, err := c.fetchDomains(ctx, path)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(domains); err == nil {
		if err := c.rdb.Set(ctx, cacheKey, data, cacheTTL).Err(); err != nil {
			c.logger.Warn("fediseer cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return domains, nil
}

func (c *Client) fetchDomains(ctx context.Context, path string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		// unregistered instances simply have no lists
		return []string{}, nil
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fediseer API error (status %d): %s", resp.StatusCode, string(data))
	}

	var list instanceList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, err
	}
	domains := make([]string, 0, len(list.Instances))
	for _, inst := range list.Instances {
		domains = append(domains, inst.Domain)
	}
	return domains, nil
}
