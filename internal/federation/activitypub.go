package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fedisync/internal/model"
	"fedisync/pkg/log"
)

// generic servers can be slow to page large follower collections
const apRequestTimeout = 60 * time.Second

const apMaxFollowerPages = 50

// ActivityPubClient is the read-only fallback for instances running
// software without a dedicated backend. It can inspect actors via
// WebFinger but cannot subscribe, so writes return ErrUnsupported.
type ActivityPubClient struct {
	host       string
	httpClient *http.Client
	logger     *log.Logger
}

func NewActivityPubClient(host string, logger *log.Logger) *ActivityPubClient {
	return &ActivityPubClient{
		host: host,
		httpClient: &http.Client{
			Timeout: apRequestTimeout,
		},
		logger: logger,
	}
}

func (c *ActivityPubClient) Host() string {
	return c.host
}

func (c *ActivityPubClient) Software() model.Software {
	return model.SoftwareActivityPub
}

type webfingerResponse struct {
	Subject string `json:"subject"`
	Links   []struct {
		Rel  string `json:"rel"`
		Type string `json:"type"`
		Href string `json:"href"`
	} `json:"links"`
}

type actorDocument struct {
	Type              string `json:"type"`
	PreferredUsername string `json:"preferredUsername"`
	Sensitive         bool   `json:"sensitive"`
	Followers         string `json:"followers"`
}

type followerCollection struct {
	First        json.RawMessage `json:"first"`
	Next         string          `json:"next"`
	Items        []string        `json:"items"`
	OrderedItems []string        `json:"orderedItems"`
}

func (c *ActivityPubClient) GetUser(ctx context.Context, username string) (*User, error) {
	actorURL, err := c.webfinger(ctx, username, c.host)
	if err != nil {
		return nil, err
	}
	var actor actorDocument
	if err := c.getActivityJSON(ctx, actorURL, &actor); err != nil {
		return nil, err
	}
	return &User{
		Username: actor.PreferredUsername,
		// generic actor documents carry no admin or ban flags
		IsBot: actor.Type == "Service" || actor.Type == "Application",
	}, nil
}

func (c *ActivityPubClient) GetCommunity(ctx context.Context, name string) (*Community, error) {
	local, host, federated := strings.Cut(name, "@")
	if !federated {
		host = c.host
	}
	actorURL, err := c.webfinger(ctx, local, host)
	if err != nil {
		return nil, err
	}
	var actor actorDocument
	if err := c.getActivityJSON(ctx, actorURL, &actor); err != nil {
		return nil, err
	}
	if actor.Type != "Group" {
		return nil, fmt.Errorf("%w: %s is a %s, not a group actor", ErrNotFound, name, actor.Type)
	}

	var localSubscribers *int64
	if actor.Followers != "" {
		n, err := c.countLocalFollowers(ctx, actor.Followers)
		if err != nil {
			c.logger.Sugar().Warnf("counting followers of %s: %v", name, err)
		} else {
			localSubscribers = &n
		}
	}

	return &Community{
		ID:               actorURL,
		Name:             actor.PreferredUsername,
		NSFW:             actor.Sensitive,
		LocalSubscribers: localSubscribers,
		Subscribed:       NotSubscribed,
		IsPublic:         true,
	}, nil
}

func (c *ActivityPubClient) FollowCommunity(ctx context.Context, id string, follow bool) error {
	return fmt.Errorf("%w: generic servers are read-only", ErrUnsupported)
}

func (c *ActivityPubClient) ListCommunities(ctx context.Context, opts ListOptions) ([]*Community, error) {
	return nil, fmt.Errorf("%w: generic servers are read-only", ErrUnsupported)
}

// webfinger resolves acct:name@host to the actor document URL, rejecting
// responses whose subject does not echo the queried resource.
func (c *ActivityPubClient) webfinger(ctx context.Context, name, host string) (string, error) {
	resource := fmt.Sprintf("acct:%s@%s", name, host)
	endpoint := fmt.Sprintf("https://%s/.well-known/webfinger?resource=%s", host, url.QueryEscape(resource))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/jrd+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", wrapTransport(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return "", &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	var wf webfingerResponse
	if err := json.NewDecoder(resp.Body).Decode(&wf); err != nil {
		return "", err
	}
	if !strings.EqualFold(wf.Subject, resource) {
		return "", fmt.Errorf("%w: webfinger subject %q does not match %q", ErrNotFound, wf.Subject, resource)
	}
	for _, link := range wf.Links {
		if link.Rel == "self" && strings.Contains(link.Type, "activity+json") && link.Href != "" {
			return link.Href, nil
		}
	}
	return "", fmt.Errorf("%w: no activity+json self link for %s", ErrNotFound, resource)
}

func (c *ActivityPubClient) getActivityJSON(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", `application/activity+json, application/ld+json; profile="https://www.w3.org/ns/activitystreams"`)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransport(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

// countLocalFollowers walks the followers collection and counts follower
// URLs hosted on this client's own instance. Paging is capped so a huge
// community cannot stall a sweep.
func (c *ActivityPubClient) countLocalFollowers(ctx context.Context, collectionURL string) (int64, error) {
	var count int64
	next := collectionURL
	for page := 0; next != "" && page < apMaxFollowerPages; page++ {
		var coll followerCollection
		if err := c.getActivityJSON(ctx, next, &coll); err != nil {
			return 0, err
		}
		items := coll.Items
		if len(items) == 0 {
			items = coll.OrderedItems
		}
		for _, follower := range items {
			u, err := url.Parse(follower)
			if err != nil {
				continue
			}
			if u.Host == c.host {
				count++
			}
		}
		next = coll.Next
		if next == "" && len(items) == 0 && len(coll.First) > 0 {
			// the root object points at the first page; it may be a URL
			// string or an inlined page object
			var first string
			if err := json.Unmarshal(coll.First, &first); err == nil {
				next = first
			} else {
				var inline followerCollection
				if err := json.Unmarshal(coll.First, &inline); err == nil {
					for _, follower := range append(inline.Items, inline.OrderedItems...) {
						u, err := url.Parse(follower)
						if err != nil {
							continue
						}
						if u.Host == c.host {
							count++
						}
					}
					next = inline.Next
				}
			}
		}
	}
	return count, nil
}
