package handler

import (
	"net/http"

	v1 "fedisync/api/v1"
	"fedisync/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CommunityHandler struct {
	*Handler
	communityService service.CommunityService
}

func NewCommunityHandler(handler *Handler, communityService service.CommunityService) *CommunityHandler {
	return &CommunityHandler{
		Handler:          handler,
		communityService: communityService,
	}
}

// Add godoc
// @Summary Register a community for federation
// @Tags community
// @Accept json
// @Produce json
// @Param request body v1.AddCommunityRequest true "params"
// @Success 200 {object} v1.Response
// @Router /api/v1/communities [post]
func (h *CommunityHandler) Add(ctx *gin.Context) {
	var req v1.AddCommunityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	community, err := h.communityService.Add(ctx, req.FullName)
	if err != nil {
		h.logger.WithContext(ctx).Error("communityService.Add error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	v1.HandleSuccess(ctx, v1.CommunityItem{
		Id:       community.Id,
		Name:     community.Name,
		Host:     community.Instance.Host,
		FullName: community.FullName(),
	})
}

// List godoc
// @Summary List registered communities
// @Tags community
// @Produce json
// @Success 200 {object} v1.ListCommunitiesResponse
// @Router /api/v1/communities [get]
func (h *CommunityHandler) List(ctx *gin.Context) {
	var req v1.ListCommunitiesRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	communities, total, err := h.communityService.List(ctx, req.Page, req.PageSize)
	if err != nil {
		h.logger.WithContext(ctx).Error("communityService.List error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	items := make([]v1.CommunityItem, 0, len(communities))
	for _, community := range communities {
		item := v1.CommunityItem{
			Id:       community.Id,
			Name:     community.Name,
			FullName: community.FullName(),
		}
		if community.Instance != nil {
			item.Host = community.Instance.Host
		}
		items = append(items, item)
	}
	v1.HandleSuccess(ctx, v1.ListCommunitiesResponseData{Items: items, Total: total})
}

// GetFollows godoc
// @Summary Show per-instance follow status for one community
// @Tags community
// @Produce json
// @Success 200 {object} v1.GetCommunityFollowsResponse
// @Router /api/v1/communities/{host}/{name}/follows [get]
func (h *CommunityHandler) GetFollows(ctx *gin.Context) {
	community, follows, err := h.communityService.GetFollows(ctx, ctx.Param("name"), ctx.Param("host"))
	if err != nil {
		v1.HandleError(ctx, http.StatusNotFound, err, nil)
		return
	}

	items := make([]v1.FollowStatusItem, 0, len(follows))
	for _, follow := range follows {
		item := v1.FollowStatusItem{
			Status:       string(follow.Status),
			AttemptCount: follow.AttemptCount,
			ErrorReason:  follow.ErrorReason,
		}
		if follow.Instance != nil {
			item.InstanceHost = follow.Instance.Host
		}
		items = append(items, item)
	}
	v1.HandleSuccess(ctx, v1.GetCommunityFollowsResponseData{
		Community: v1.CommunityItem{
			Id:       community.Id,
			Name:     community.Name,
			Host:     ctx.Param("host"),
			FullName: community.FullName(),
		},
		Follows: items,
	})
}

// Delete godoc
// @Summary Unregister a community
// @Tags community
// @Security Bearer
// @Success 200 {object} v1.Response
// @Router /api/v1/communities/{host}/{name} [delete]
func (h *CommunityHandler) Delete(ctx *gin.Context) {
	claims := GetAdminFromCtx(ctx)
	if claims == nil {
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized, nil)
		return
	}

	if err := h.communityService.Delete(ctx, ctx.Param("name"), ctx.Param("host")); err != nil {
		h.logger.WithContext(ctx).Error("communityService.Delete error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	v1.HandleSuccess(ctx, nil)
}
