package handler

import (
	"context"
	"net/http"

	v1 "fedisync/api/v1"
	"fedisync/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type InstanceHandler struct {
	*Handler
	instanceService service.InstanceService
}

func NewInstanceHandler(handler *Handler, instanceService service.InstanceService) *InstanceHandler {
	return &InstanceHandler{
		Handler:         handler,
		instanceService: instanceService,
	}
}

// Register godoc
// @Summary Register an instance
// @Description Detects the software the host runs and registers it, pending approval
// @Tags instance
// @Accept json
// @Produce json
// @Param request body v1.RegisterInstanceRequest true "params"
// @Success 200 {object} v1.Response
// @Router /api/v1/instances [post]
func (h *InstanceHandler) Register(ctx *gin.Context) {
	var req v1.RegisterInstanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	instance, err := h.instanceService.Register(ctx, req.Host)
	if err != nil {
		h.logger.WithContext(ctx).Error("instanceService.Register error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	v1.HandleSuccess(ctx, v1.ToInstanceItem(instance))
}

// List godoc
// @Summary List registered instances
// @Tags instance
// @Produce json
// @Success 200 {object} v1.ListInstancesResponse
// @Router /api/v1/instances [get]
func (h *InstanceHandler) List(ctx *gin.Context) {
	var req v1.ListInstancesRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	instances, total, err := h.instanceService.List(ctx, req.Page, req.PageSize)
	if err != nil {
		h.logger.WithContext(ctx).Error("instanceService.List error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	items := make([]v1.InstanceItem, 0, len(instances))
	for _, instance := range instances {
		items = append(items, v1.ToInstanceItem(instance))
	}
	v1.HandleSuccess(ctx, v1.ListInstancesResponseData{Items: items, Total: total})
}

// Get godoc
// @Summary Get one instance
// @Tags instance
// @Produce json
// @Success 200 {object} v1.Response
// @Router /api/v1/instances/{host} [get]
func (h *InstanceHandler) Get(ctx *gin.Context) {
	instance, err := h.instanceService.Get(ctx, ctx.Param("host"))
	if err != nil {
		v1.HandleError(ctx, http.StatusNotFound, err, nil)
		return
	}
	v1.HandleSuccess(ctx, v1.ToInstanceItem(instance))
}

// Update godoc
// @Summary Update an instance's federation settings
// @Description Only the authenticated admin's own instance can be updated
// @Tags instance
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body v1.UpdateInstanceRequest true "params"
// @Success 200 {object} v1.Response
// @Router /api/v1/instances/{host} [put]
func (h *InstanceHandler) Update(ctx *gin.Context) {
	host := ctx.Param("host")
	claims := GetAdminFromCtx(ctx)
	if claims == nil || claims.Host != host {
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized, nil)
		return
	}

	var req v1.UpdateInstanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	instance, err := h.instanceService.Update(ctx, host, &req)
	if err != nil {
		h.logger.WithContext(ctx).Error("instanceService.Update error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	v1.HandleSuccess(ctx, v1.ToInstanceItem(instance))
}

// Allow godoc
// @Summary Add an instance to the allow-list
// @Tags instance
// @Security Bearer
// @Success 200 {object} v1.Response
// @Router /api/v1/instances/{host}/allowed [post]
func (h *InstanceHandler) Allow(ctx *gin.Context) {
	h.mutateList(ctx, h.instanceService.Allow)
}

// Unallow godoc
// @Summary Remove an instance from the allow-list
// @Tags instance
// @Security Bearer
// @Success 200 {object} v1.Response
// @Router /api/v1/instances/{host}/allowed [delete]
func (h *InstanceHandler) Unallow(ctx *gin.Context) {
	h.mutateList(ctx, h.instanceService.Unallow)
}

// Block godoc
// @Summary Add an instance to the block-list
// @Tags instance
// @Security Bearer
// @Success 200 {object} v1.Response
// @Router /api/v1/instances/{host}/blocked [post]
func (h *InstanceHandler) Block(ctx *gin.Context) {
	h.mutateList(ctx, h.instanceService.Block)
}

// Unblock godoc
// @Summary Remove an instance from the block-list
// @Tags instance
// @Security Bearer
// @Success 200 {object} v1.Response
// @Router /api/v1/instances/{host}/blocked [delete]
func (h *InstanceHandler) Unblock(ctx *gin.Context) {
	h.mutateList(ctx, h.instanceService.Unblock)
}

func (h *InstanceHandler) mutateList(ctx *gin.Context, op func(ctx context.Context, host, otherHost string) error) {
	host := ctx.Param("host")
	claims := GetAdminFromCtx(ctx)
	if claims == nil || claims.Host != host {
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized, nil)
		return
	}

	var req v1.AllowInstanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		v1.HandleError(ctx, http.StatusBadRequest, v1.ErrBadRequest, nil)
		return
	}

	if err := op(ctx, host, req.Host); err != nil {
		h.logger.WithContext(ctx).Error("instance list update error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	v1.HandleSuccess(ctx, nil)
}

// ResetSubscriptions godoc
// @Summary Reset an instance's bot subscriptions
// @Description Soft reset re-queues rows; a hard reset also unsubscribes remotely
// @Tags instance
// @Security Bearer
// @Success 200 {object} v1.Response
// @Router /api/v1/instances/{host}/reset [post]
func (h *InstanceHandler) ResetSubscriptions(ctx *gin.Context) {
	host := ctx.Param("host")
	claims := GetAdminFromCtx(ctx)
	if claims == nil || claims.Host != host {
		v1.HandleError(ctx, http.StatusUnauthorized, v1.ErrUnauthorized, nil)
		return
	}

	soft := ctx.Query("soft") == "true"
	if err := h.instanceService.ResetSubscriptions(ctx, host, soft); err != nil {
		h.logger.WithContext(ctx).Error("instanceService.ResetSubscriptions error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err, nil)
		return
	}
	v1.HandleSuccess(ctx, nil)
}
