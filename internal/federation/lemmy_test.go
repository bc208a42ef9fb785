package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitKey(t *testing.T) {
	cases := []struct {
		path   string
		method string
		want   string
	}{
		{"/community", http.MethodPost, "register"},
		{"/user/register", http.MethodPost, "register"},
		{"/user/login", http.MethodPost, "register"},
		{"/user/password_reset", http.MethodPost, "register"},
		{"/post", http.MethodPost, "post"},
		{"/user/get_captcha", http.MethodPost, "post"},
		{"/comment", http.MethodPost, "comment"},
		{"/search", http.MethodGet, "search"},
		{"/user/export_settings", http.MethodGet, "import_user_settings"},
		{"/user/import_settings", http.MethodPost, "import_user_settings"},
		{"/site", http.MethodGet, "message"},
		{"/community", http.MethodGet, "message"},
		{"/community/follow", http.MethodPost, "message"},
		{"/community/list", http.MethodGet, "message"},
		{"/resolve_object", http.MethodGet, "message"},
		{"/private_message", http.MethodPost, "message"},
		{"/user", http.MethodGet, "message"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, rateLimitKey(tc.path, tc.method), "%s %s", tc.method, tc.path)
	}
}

func TestParseRateLimits(t *testing.T) {
	raw := map[string]json.Number{
		"message":            "180",
		"message_per_second": "60",
		"search":             "60",
		"search_per_second":  "600",
		"post":               "6",
		// post_per_second missing: bucket must be skipped
	}
	buckets := parseRateLimits(raw)

	require.Contains(t, buckets, "message")
	assert.Equal(t, 180, buckets["message"].allowance)
	assert.Equal(t, 180, buckets["message"].remaining)
	assert.Equal(t, time.Minute, buckets["message"].window)

	require.Contains(t, buckets, "search")
	assert.Equal(t, 10*time.Minute, buckets["search"].window)

	assert.NotContains(t, buckets, "post")
	assert.NotContains(t, buckets, "comment")
}

func TestNextWindowReset(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 30, 45, 0, time.UTC)

	// 60s windows reset at the next minute boundary
	assert.Equal(t,
		time.Date(2024, 3, 1, 10, 31, 0, 0, time.UTC),
		nextWindowReset(now, time.Minute))

	// a reset is always in the future, even right on a boundary
	boundary := time.Date(2024, 3, 1, 10, 31, 0, 0, time.UTC)
	assert.Equal(t,
		time.Date(2024, 3, 1, 10, 32, 0, 0, time.UTC),
		nextWindowReset(boundary, time.Minute))
}

func TestLemmyViewToCommunity(t *testing.T) {
	var cv lemmyCommunityView
	cv.Community.Id = 42
	cv.Community.Name = "linux"
	cv.Community.NSFW = true
	cv.Community.Visibility = "LocalOnly"
	cv.Subscribed = Pending

	c := lemmyViewToCommunity(cv)
	assert.Equal(t, "42", c.ID)
	assert.Equal(t, "linux", c.Name)
	assert.True(t, c.NSFW)
	assert.False(t, c.IsPublic)
	assert.Equal(t, Pending, c.Subscribed)
	assert.Nil(t, c.LocalSubscribers)

	// older servers omit visibility entirely
	cv.Community.Visibility = ""
	assert.True(t, lemmyViewToCommunity(cv).IsPublic)
}

func newLoginCountingServer(t *testing.T, loginStatus func(call int32) int) (*httptest.Server, *atomic.Int32, *atomic.Int32) {
	t.Helper()
	var siteCalls, loginCalls atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/site":
			siteCalls.Add(1)
			fmt.Fprint(w, `{"site_view":{"local_site_rate_limit":{}}}`)
		case "/api/v3/user/login":
			call := loginCalls.Add(1)
			if status := loginStatus(call); status != http.StatusOK {
				w.WriteHeader(status)
				fmt.Fprint(w, `{"error":"incorrect_login"}`)
				return
			}
			fmt.Fprint(w, `{"jwt":"token"}`)
		case "/api/v3/community":
			fmt.Fprint(w, `{"community_view":{"community":{"id":7,"name":"linux"},"counts":{},"subscribed":"NotSubscribed"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, &siteCalls, &loginCalls
}

func TestLemmyClientAuthenticatesOnce(t *testing.T) {
	server, siteCalls, loginCalls := newLoginCountingServer(t, func(int32) int { return http.StatusOK })

	client := NewLemmyClient(strings.TrimPrefix(server.URL, "https://"), "bot", "secret", newTestLogger())
	client.httpClient = server.Client()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.GetCommunity(context.Background(), "linux")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loginCalls.Load())
	assert.Equal(t, int32(1), siteCalls.Load())
}

func TestLemmyClientRetriesFailedLogin(t *testing.T) {
	server, _, loginCalls := newLoginCountingServer(t, func(call int32) int {
		if call == 1 {
			return http.StatusInternalServerError
		}
		return http.StatusOK
	})

	client := NewLemmyClient(strings.TrimPrefix(server.URL, "https://"), "bot", "secret", newTestLogger())
	client.httpClient = server.Client()

	_, err := client.GetCommunity(context.Background(), "linux")
	require.Error(t, err)

	// the failed login must not have marked the client ready
	_, err = client.GetCommunity(context.Background(), "linux")
	require.NoError(t, err)
	assert.Equal(t, int32(2), loginCalls.Load())
}
