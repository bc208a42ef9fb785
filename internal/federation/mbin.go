package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"fedisync/internal/model"
	"fedisync/pkg/log"
)

const mbinRequestTimeout = 10 * time.Second

// MbinClient speaks the Mbin REST API. Communities are "magazines" there;
// authentication is an OAuth2 client-credentials exchange with a token
// cached until shortly before expiry.
type MbinClient struct {
	host         string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *log.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewMbinClient(host, clientID, clientSecret string, logger *log.Logger) *MbinClient {
	return &MbinClient{
		host:         host,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: mbinRequestTimeout,
		},
		logger: logger,
	}
}

func (c *MbinClient) Host() string {
	return c.host
}

func (c *MbinClient) Software() model.Software {
	return model.SoftwareMbin
}

type mbinTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type mbinUser struct {
	Username  string `json:"username"`
	IsBot     bool   `json:"isBot"`
	IsAdmin   bool   `json:"isAdmin"`
	IsBanned  bool   `json:"isBanned"`
	IsDeleted bool   `json:"isDeleted"`
}

type mbinMagazine struct {
	MagazineID       int64   `json:"magazineId"`
	Name             string  `json:"name"`
	ApID             *string `json:"apId"`
	ApProfileID      *string `json:"apProfileId"`
	IsAdult          bool    `json:"isAdult"`
	IsUserSubscribed *bool   `json:"isUserSubscribed"`
	LocalSubscribers *int64  `json:"localSubscribers"`
}

type mbinMagazineList struct {
	Items []mbinMagazine `json:"items"`
}

// magazineActorIDs lists the actor URLs a community on the given host may
// be known by: Mbin/Kbin publish /m/{name}, Lemmy publishes /c/{name}.
func magazineActorIDs(host, name string) []string {
	return []string{
		fmt.Sprintf("https://%s/m/%s", host, name),
		fmt.Sprintf("https://%s/c/%s", host, name),
	}
}

func magazineMatchesActor(m mbinMagazine, ids []string) bool {
	for _, id := range ids {
		if (m.ApID != nil && *m.ApID == id) || (m.ApProfileID != nil && *m.ApProfileID == id) {
			return true
		}
	}
	return false
}

func mbinMagazineToCommunity(m mbinMagazine) *Community {
	subscribed := NotSubscribed
	if m.IsUserSubscribed != nil && *m.IsUserSubscribed {
		subscribed = Subscribed
	}
	return &Community{
		ID:         strconv.FormatInt(m.MagazineID, 10),
		Name:       m.Name,
		NSFW:       m.IsAdult,
		Subscribed: subscribed,
		// Mbin reports no per-instance subscriber breakdown for remote
		// magazines; leave LocalSubscribers nil so callers fall back to
		// the follow-anyway path.
		IsPublic: true,
	}
}

func (c *MbinClient) GetUser(ctx context.Context, username string) (*User, error) {
	var user mbinUser
	path := "/api/users/name/" + url.PathEscape(username)
	if err := c.request(ctx, http.MethodGet, path, nil, nil, &user); err != nil {
		return nil, err
	}
	if user.IsDeleted {
		return nil, fmt.Errorf("%w: user %s on %s is deleted", ErrNotFound, username, c.host)
	}
	return &User{
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		IsBanned: user.IsBanned,
		IsBot:    user.IsBot,
	}, nil
}

func (c *MbinClient) GetCommunity(ctx context.Context, name string) (*Community, error) {
	local, host, federated := strings.Cut(name, "@")
	if !federated || host == c.host {
		var magazine mbinMagazine
		path := "/api/magazine/name/" + url.PathEscape(local)
		if err := c.request(ctx, http.MethodGet, path, nil, nil, &magazine); err != nil {
			return nil, err
		}
		return mbinMagazineToCommunity(magazine), nil
	}

	// federated magazine: search and match on the ActivityPub id, since
	// the name endpoint only resolves local magazines. The remote may run
	// different software, so every known actor URL shape is a candidate.
	candidates := magazineActorIDs(host, local)
	query := url.Values{}
	query.Set("q", local)
	query.Set("federation", "federated")
	var list mbinMagazineList
	if err := c.request(ctx, http.MethodGet, "/api/magazines", query, nil, &list); err != nil {
		return nil, err
	}
	for _, m := range list.Items {
		if magazineMatchesActor(m, candidates) {
			return mbinMagazineToCommunity(m), nil
		}
	}
	return nil, fmt.Errorf("%w: magazine %s on %s", ErrNotFound, name, c.host)
}

func (c *MbinClient) FollowCommunity(ctx context.Context, id string, follow bool) error {
	action := "subscribe"
	if !follow {
		action = "unsubscribe"
	}
	path := fmt.Sprintf("/api/magazine/%s/%s", url.PathEscape(id), action)
	return c.request(ctx, http.MethodPut, path, nil, nil, nil)
}

func (c *MbinClient) ListCommunities(ctx context.Context, opts ListOptions) ([]*Community, error) {
	query := url.Values{}
	switch opts.Type {
	case ListingLocal:
		query.Set("federation", "local")
	case ListingSubscribed:
		query.Set("subscribed", "true")
	}
	if opts.Page > 0 {
		query.Set("p", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		query.Set("perPage", strconv.Itoa(opts.Limit))
	}
	var list mbinMagazineList
	if err := c.request(ctx, http.MethodGet, "/api/magazines", query, nil, &list); err != nil {
		return nil, err
	}
	communities := make([]*Community, 0, len(list.Items))
	for _, m := range list.Items {
		communities = append(communities, mbinMagazineToCommunity(m))
	}
	return communities, nil
}

// token returns a valid bearer token, refreshing via the client-credentials
// grant when the cached one is missing or within a minute of expiry.
func (c *MbinClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.accessToken != "" && time.Now().Add(time.Minute).Before(c.tokenExpiry) {
		token := c.accessToken
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("scope", "read magazine:subscribe")

	endpoint := fmt.Sprintf("https://%s/token", c.host)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", wrapTransport(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("mbin token exchange on %s: %w", c.host, &StatusError{Code: resp.StatusCode, Body: string(data)})
	}

	var token mbinTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	c.mu.Unlock()
	return token.AccessToken, nil
}

func (c *MbinClient) request(ctx context.Context, method, path string, query url.Values, body, result interface{}) error {
	bearer, err := c.token(ctx)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("https://%s%s", c.host, path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}
