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

	"go.uber.org/zap"
)

const lemmyRequestTimeout = 10 * time.Second

// rateBucket tracks one of Lemmy's server-side rate limit categories
// locally. `window` is the category's reset period (the *_per_second field
// of the site config, which despite its name holds seconds per window);
// `allowance` is the number of calls permitted per window.
type rateBucket struct {
	allowance int
	window    time.Duration
	remaining int
	resetAt   time.Time
}

// LemmyClient speaks the full-featured Lemmy HTTP API. It authenticates
// with a username/password exchange and self-throttles against the
// instance's published per-category rate limits.
type LemmyClient struct {
	host       string
	username   string
	password   string
	httpClient *http.Client
	logger     *log.Logger

	// initMu serializes first-use authentication so concurrent callers
	// produce a single site fetch and a single login
	initMu sync.Mutex

	mu      sync.Mutex
	jwt     string
	buckets map[string]*rateBucket
	ready   bool
}

func NewLemmyClient(host, username, password string, logger *log.Logger) *LemmyClient {
	return &LemmyClient{
		host:     host,
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: lemmyRequestTimeout,
		},
		logger: logger,
	}
}

func (c *LemmyClient) Host() string {
	return c.host
}

func (c *LemmyClient) Software() model.Software {
	return model.SoftwareLemmy
}

type lemmySiteResponse struct {
	SiteView struct {
		LocalSiteRateLimit map[string]json.Number `json:"local_site_rate_limit"`
	} `json:"site_view"`
}

type lemmyLoginResponse struct {
	JWT string `json:"jwt"`
}

type lemmyPerson struct {
	Name       string `json:"name"`
	Banned     bool   `json:"banned"`
	BotAccount bool   `json:"bot_account"`
	Admin      bool   `json:"admin"` // 0.18.x only
}

type lemmyPersonView struct {
	Person  lemmyPerson `json:"person"`
	IsAdmin *bool       `json:"is_admin"`
}

type lemmyPersonResponse struct {
	PersonView lemmyPersonView `json:"person_view"`
}

type lemmyCommunityView struct {
	Community struct {
		Id         int64  `json:"id"`
		Name       string `json:"name"`
		Deleted    bool   `json:"deleted"`
		Removed    bool   `json:"removed"`
		NSFW       bool   `json:"nsfw"`
		Visibility string `json:"visibility"`
	} `json:"community"`
	Counts struct {
		SubscribersLocal *int64 `json:"subscribers_local"`
	} `json:"counts"`
	Subscribed SubscribedType `json:"subscribed"`
}

type lemmyCommunityResponse struct {
	CommunityView lemmyCommunityView `json:"community_view"`
}

type lemmyCommunityListResponse struct {
	Communities []lemmyCommunityView `json:"communities"`
}

type lemmyResolveResponse struct {
	Community *lemmyCommunityResponse `json:"community"`
}

type lemmyErrorBody struct {
	Error string `json:"error"`
}

func lemmyViewToCommunity(cv lemmyCommunityView) *Community {
	public := true
	if cv.Community.Visibility != "" {
		public = cv.Community.Visibility == "Public"
	}
	return &Community{
		ID:               strconv.FormatInt(cv.Community.Id, 10),
		Name:             cv.Community.Name,
		IsDeleted:        cv.Community.Deleted,
		IsRemoved:        cv.Community.Removed,
		NSFW:             cv.Community.NSFW,
		LocalSubscribers: cv.Counts.SubscribersLocal,
		Subscribed:       cv.Subscribed,
		IsPublic:         public,
	}
}

func (c *LemmyClient) GetUser(ctx context.Context, username string) (*User, error) {
	if err := c.init(ctx); err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("username", username)
	var resp lemmyPersonResponse
	if err := c.request(ctx, http.MethodGet, "/user", query, nil, &resp); err != nil {
		return nil, err
	}
	isAdmin := resp.PersonView.Person.Admin
	if resp.PersonView.IsAdmin != nil {
		isAdmin = *resp.PersonView.IsAdmin
	}
	return &User{
		Username: resp.PersonView.Person.Name,
		IsAdmin:  isAdmin,
		IsBanned: resp.PersonView.Person.Banned,
		IsBot:    resp.PersonView.Person.BotAccount,
	}, nil
}

func (c *LemmyClient) GetCommunity(ctx context.Context, name string) (*Community, error) {
	if err := c.init(ctx); err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("name", name)
	var resp lemmyCommunityResponse
	if err := c.request(ctx, http.MethodGet, "/community", query, nil, &resp); err != nil {
		return nil, err
	}
	return lemmyViewToCommunity(resp.CommunityView), nil
}

func (c *LemmyClient) FollowCommunity(ctx context.Context, id string, follow bool) error {
	if err := c.init(ctx); err != nil {
		return err
	}
	communityID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		// assume an ActivityPub id, resolve it to a numeric one
		communityID, err = c.resolveCommunityID(ctx, id)
		if err != nil {
			return err
		}
	}
	body := map[string]interface{}{
		"community_id": communityID,
		"follow":       follow,
	}
	return c.request(ctx, http.MethodPost, "/community/follow", nil, body, nil)
}

func (c *LemmyClient) ListCommunities(ctx context.Context, opts ListOptions) ([]*Community, error) {
	if err := c.init(ctx); err != nil {
		return nil, err
	}
	query := url.Values{}
	if opts.Type != "" {
		query.Set("type_", string(opts.Type))
	}
	if opts.Sort != "" {
		query.Set("sort", opts.Sort)
	}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	var resp lemmyCommunityListResponse
	if err := c.request(ctx, http.MethodGet, "/community/list", query, nil, &resp); err != nil {
		return nil, err
	}
	communities := make([]*Community, 0, len(resp.Communities))
	for _, cv := range resp.Communities {
		communities = append(communities, lemmyViewToCommunity(cv))
	}
	return communities, nil
}

func (c *LemmyClient) resolveCommunityID(ctx context.Context, apID string) (int64, error) {
	query := url.Values{}
	query.Set("q", apID)
	var resp lemmyResolveResponse
	if err := c.request(ctx, http.MethodGet, "/resolve_object", query, nil, &resp); err != nil {
		return 0, err
	}
	if resp.Community == nil {
		return 0, fmt.Errorf("%w: no community behind %s", ErrNotFound, apID)
	}
	return resp.Community.CommunityView.Community.Id, nil
}

// init lazily fetches the instance's rate limit configuration and logs in.
// The whole sequence runs under initMu: with a shared cached client, N
// concurrent first requests perform exactly one site fetch and one login.
// The client becomes ready only once the login succeeded, so a transient
// login failure is retried on the next call instead of leaving the client
// unauthenticated for its cache lifetime. The site fetch itself consumes
// one call from the message bucket.
func (c *LemmyClient) init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	c.mu.Lock()
	ready := c.ready
	c.mu.Unlock()
	if ready {
		return nil
	}

	var site lemmySiteResponse
	if err := c.request(ctx, http.MethodGet, "/site", nil, nil, &site); err != nil {
		return err
	}

	c.mu.Lock()
	c.buckets = parseRateLimits(site.SiteView.LocalSiteRateLimit)
	if b := c.buckets["message"]; b != nil {
		b.remaining-- // the site call above
	}
	c.mu.Unlock()

	if c.username != "" && c.password != "" {
		var login lemmyLoginResponse
		body := map[string]interface{}{
			"username_or_email": c.username,
			"password":          c.password,
		}
		if err := c.request(ctx, http.MethodPost, "/user/login", nil, body, &login); err != nil {
			return fmt.Errorf("lemmy login on %s: %w", c.host, err)
		}
		c.mu.Lock()
		c.jwt = login.JWT
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	return nil
}

func parseRateLimits(raw map[string]json.Number) map[string]*rateBucket {
	buckets := make(map[string]*rateBucket)
	for _, key := range []string{"message", "post", "comment", "register", "search", "import_user_settings"} {
		allowanceN, ok := raw[key]
		windowN, ok2 := raw[key+"_per_second"]
		if !ok || !ok2 {
			continue
		}
		allowance, err := allowanceN.Int64()
		if err != nil {
			continue
		}
		window, err := windowN.Int64()
		if err != nil || window <= 0 {
			continue
		}
		buckets[key] = &rateBucket{
			allowance: int(allowance),
			window:    time.Duration(window) * time.Second,
			remaining: int(allowance),
			resetAt:   nextWindowReset(time.Now(), time.Duration(window)*time.Second),
		}
	}
	return buckets
}

// nextWindowReset returns the next wall-clock aligned boundary of the
// bucket's window, mirroring how Lemmy resets its own counters.
func nextWindowReset(now time.Time, window time.Duration) time.Time {
	w := int(window / time.Second)
	if w <= 0 {
		w = 1
	}
	secs := now.Hour()*3600 + now.Minute()*60 + now.Second()
	wait := w - secs%w
	return now.Truncate(time.Second).Add(time.Duration(wait) * time.Second)
}

// acquire blocks until the bucket for the operation category has a token.
func (c *LemmyClient) acquire(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	c.mu.Lock()
	b := c.buckets[key]
	if b == nil {
		c.mu.Unlock()
		return nil
	}
	for b.remaining <= 0 {
		now := time.Now()
		if !now.Before(b.resetAt) {
			b.remaining = b.allowance
			b.resetAt = nextWindowReset(now, b.window)
			break
		}
		wait := b.resetAt.Sub(now)
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		c.mu.Lock()
	}
	b.remaining--
	c.mu.Unlock()
	return nil
}

// exhaust zeroes the local bucket after the remote reported a rate limit:
// the remote is ground truth, recover pessimistically at the next boundary.
func (c *LemmyClient) exhaust(key string) {
	if key == "" {
		return
	}
	c.mu.Lock()
	if b := c.buckets[key]; b != nil {
		b.remaining = 0
		b.resetAt = nextWindowReset(time.Now(), b.window)
	}
	c.mu.Unlock()
}

func (c *LemmyClient) request(ctx context.Context, method, path string, query url.Values, body, result interface{}) error {
	key := rateLimitKey(path, method)
	if err := c.acquire(ctx, key); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("https://%s/api/v3%s", c.host, path)
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
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.Lock()
	if c.jwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.jwt)
	}
	c.mu.Unlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		var lemmyErr lemmyErrorBody
		_ = json.Unmarshal(data, &lemmyErr)
		switch {
		case lemmyErr.Error == "rate_limit_error" || resp.StatusCode == 429:
			c.exhaust(key)
			return fmt.Errorf("%w: %s %s on %s", ErrRateLimited, method, path, c.host)
		case lemmyErr.Error == "couldnt_find_community" || lemmyErr.Error == "couldnt_find_person" || resp.StatusCode == 404:
			return fmt.Errorf("%w: %s %s on %s", ErrNotFound, method, path, c.host)
		}
		if lemmyErr.Error != "" {
			c.logger.Warn("lemmy API error",
				zap.String("host", c.host),
				zap.String("path", path),
				zap.String("error", lemmyErr.Error))
		}
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// rateLimitKey maps an operation's method and path to the server-side rate
// limit category it is charged against.
func rateLimitKey(path, method string) string {
	p := strings.TrimPrefix(path, "/api/v3")
	m := method

	// explicit categories first
	if (p == "/community" || p == "/user/register" || p == "/user/login" || p == "/user/password_reset") && m == http.MethodPost {
		return "register"
	}
	if (p == "/post" || p == "/user/get_captcha") && m == http.MethodPost {
		return "post"
	}
	if p == "/comment" && m == http.MethodPost {
		return "comment"
	}
	if p == "/search" {
		return "search"
	}
	if p == "/user/export_settings" || p == "/user/import_settings" {
		return "import_user_settings"
	}

	// everything else is a generic message
	if strings.HasPrefix(p, "/site") ||
		p == "/modlog" ||
		p == "/resolve_object" ||
		strings.HasPrefix(p, "/community") ||
		p == "/federated_instances" ||
		p == "/post" ||
		strings.HasPrefix(p, "/comment") ||
		strings.HasPrefix(p, "/private_message") ||
		strings.HasPrefix(p, "/account") ||
		strings.HasPrefix(p, "/user") ||
		strings.HasPrefix(p, "/admin") ||
		strings.HasPrefix(p, "/custom_emoji") ||
		strings.HasPrefix(p, "/oauth_provider") {
		return "message"
	}
	if strings.HasPrefix(p, "/oauth/authenticate") {
		return "register"
	}
	return ""
}

// CreatePrivateMessage sends a direct message from the authenticated bot
// account, used by the login flow to deliver one-time codes.
func (c *LemmyClient) CreatePrivateMessage(ctx context.Context, recipientID int64, content string) error {
	if err := c.init(ctx); err != nil {
		return err
	}
	body := map[string]interface{}{
		"content":      content,
		"recipient_id": recipientID,
	}
	return c.request(ctx, http.MethodPost, "/private_message", nil, body, nil)
}

// ResolvePersonID resolves an ActivityPub person URL to the instance-local
// numeric id.
func (c *LemmyClient) ResolvePersonID(ctx context.Context, apID string) (int64, error) {
	if err := c.init(ctx); err != nil {
		return 0, err
	}
	query := url.Values{}
	query.Set("q", apID)
	var resp struct {
		Person *struct {
			PersonView struct {
				Person struct {
					Id int64 `json:"id"`
				} `json:"person"`
			} `json:"person_view"`
		} `json:"person"`
	}
	if err := c.request(ctx, http.MethodGet, "/resolve_object", query, nil, &resp); err != nil {
		return 0, err
	}
	if resp.Person == nil {
		return 0, fmt.Errorf("%w: no person behind %s", ErrNotFound, apID)
	}
	return resp.Person.PersonView.Person.Id, nil
}
