package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	v1 "fedisync/api/v1"
	"fedisync/internal/model"
	"fedisync/pkg/log"

	"github.com/gavv/httpexpect/v2"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

func newTestLogger() *log.Logger {
	conf := viper.New()
	conf.Set("log.log_level", "error")
	conf.Set("log.log_file_name", "/tmp/fedisync-test.log")
	return log.NewLog(conf)
}

type fakeCommunityService struct {
	added []string
}

func (s *fakeCommunityService) Add(ctx context.Context, fullName string) (*model.Community, error) {
	if fullName == "missing@b.example" {
		return nil, v1.ErrCommunityNotFound
	}
	s.added = append(s.added, fullName)
	return &model.Community{
		Id:   1,
		Name: "linux",
		Instance: &model.Instance{
			Id:   2,
			Host: "b.example",
		},
	}, nil
}

func (s *fakeCommunityService) List(ctx context.Context, page, pageSize int) ([]*model.Community, int64, error) {
	return []*model.Community{
		{Id: 1, Name: "linux", Instance: &model.Instance{Host: "b.example"}},
	}, 1, nil
}

func (s *fakeCommunityService) GetFollows(ctx context.Context, name, host string) (*model.Community, []*model.CommunityFollow, error) {
	return nil, nil, v1.ErrNotFound
}

func (s *fakeCommunityService) Delete(ctx context.Context, name, host string) error {
	return nil
}

func (s *fakeCommunityService) SeedFollowsForInstance(ctx context.Context, instance *model.Instance) error {
	return nil
}

func newCommunityTestServer(t *testing.T) (*httptest.Server, *fakeCommunityService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := &fakeCommunityService{}
	h := NewCommunityHandler(NewHandler(newTestLogger()), svc)

	engine := gin.New()
	engine.POST("/api/v1/communities", h.Add)
	engine.GET("/api/v1/communities", h.List)

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)
	return server, svc
}

func TestCommunityHandlerAdd(t *testing.T) {
	server, svc := newCommunityTestServer(t)
	e := httpexpect.Default(t, server.URL)

	resp := e.POST("/api/v1/communities").
		WithJSON(map[string]string{"full_name": "linux@b.example"}).
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	resp.Value("code").IsEqual(0)
	resp.Value("data").Object().Value("full_name").IsEqual("linux@b.example")

	if len(svc.added) != 1 || svc.added[0] != "linux@b.example" {
		t.Fatalf("unexpected service calls: %v", svc.added)
	}
}

func TestCommunityHandlerAddRejectsBadBody(t *testing.T) {
	server, _ := newCommunityTestServer(t)
	e := httpexpect.Default(t, server.URL)

	e.POST("/api/v1/communities").
		WithJSON(map[string]string{}).
		Expect().
		Status(http.StatusBadRequest)
}

func TestCommunityHandlerAddUnknownCommunity(t *testing.T) {
	server, _ := newCommunityTestServer(t)
	e := httpexpect.Default(t, server.URL)

	resp := e.POST("/api/v1/communities").
		WithJSON(map[string]string{"full_name": "missing@b.example"}).
		Expect().
		Status(http.StatusInternalServerError).
		JSON().Object()
	resp.Value("message").IsEqual(v1.ErrCommunityNotFound.Error())
}

func TestCommunityHandlerList(t *testing.T) {
	server, _ := newCommunityTestServer(t)
	e := httpexpect.Default(t, server.URL)

	resp := e.GET("/api/v1/communities").
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	resp.Value("data").Object().Value("total").IsEqual(1)
	resp.Value("data").Object().Value("items").Array().Length().IsEqual(1)
}
