package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/civic-os/series-backend/internal/dto"
	"github.com/civic-os/series-backend/internal/recurrence"
	"github.com/civic-os/series-backend/internal/repository"
	"github.com/civic-os/series-backend/internal/service"
	"github.com/civic-os/series-backend/internal/timerange"
	"github.com/civic-os/series-backend/pkg/response"
)

// SeriesHandler 重复系列模块 HTTP 处理器
type SeriesHandler struct {
	seriesSvc service.SeriesService
}

// NewSeriesHandler 创建 SeriesHandler
func NewSeriesHandler(seriesSvc service.SeriesService) *SeriesHandler {
	return &SeriesHandler{seriesSvc: seriesSvc}
}

// CreateSeries 创建系列
// POST /api/v1/series
func (h *SeriesHandler) CreateSeries(c *gin.Context) {
	var req dto.CreateSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.seriesSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleSeriesError(c, err)
		return
	}

	response.Created(c, resp)
}

// ListSeries 获取系列列表
// GET /api/v1/series
func (h *SeriesHandler) ListSeries(c *gin.Context) {
	var req dto.SeriesListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.seriesSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleSeriesError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetSeries 获取系列详情（含全部版本）
// GET /api/v1/series/:id
func (h *SeriesHandler) GetSeries(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "系列组ID不能为空")
		return
	}

	resp, err := h.seriesSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleSeriesError(c, err)
		return
	}

	response.OK(c, resp)
}

// ListInstances 获取系列实例列表
// GET /api/v1/series/:id/instances
func (h *SeriesHandler) ListInstances(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "系列组ID不能为空")
		return
	}

	var req dto.InstanceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.seriesSvc.ListInstances(c.Request.Context(), id, &req)
	if err != nil {
		h.handleSeriesError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// SplitSeries 从指定日期拆分系列
// POST /api/v1/series/:id/split
func (h *SeriesHandler) SplitSeries(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "系列组ID不能为空")
		return
	}

	var req dto.SplitSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.seriesSvc.Split(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleSeriesError(c, err)
		return
	}

	response.OK(c, resp)
}

// UpdateTemplate 更新系列模板
// PUT /api/v1/series/:id/template
func (h *SeriesHandler) UpdateTemplate(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "系列组ID不能为空")
		return
	}

	var req dto.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.seriesSvc.UpdateTemplate(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleSeriesError(c, err)
		return
	}

	response.OK(c, resp)
}

// DeleteSeries 删除系列
// DELETE /api/v1/series/:id?delete_entities=true
func (h *SeriesHandler) DeleteSeries(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "系列组ID不能为空")
		return
	}

	deleteEntities := c.Query("delete_entities") == "true"

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.seriesSvc.Delete(c.Request.Context(), id, deleteEntities, callerID)
	if err != nil {
		h.handleSeriesError(c, err)
		return
	}

	response.OK(c, resp)
}

// GetMembership 查询实体行的系列归属
// GET /api/v1/series/membership?entity_table=xx&entity_id=xx
func (h *SeriesHandler) GetMembership(c *gin.Context) {
	var req dto.MembershipRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.seriesSvc.GetMembership(c.Request.Context(), &req)
	if err != nil {
		h.handleSeriesError(c, err)
		return
	}

	response.OK(c, resp)
}

// EditOccurrence 单场编辑（按作用域）
// POST /api/v1/instances/:id/edit
func (h *SeriesHandler) EditOccurrence(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "实例ID不能为空")
		return
	}

	var req dto.OccurrenceEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.seriesSvc.ApplyOccurrenceEdit(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleSeriesError(c, err)
		return
	}

	response.OK(c, resp)
}

// ListChangeLogs 获取系列变更日志
// GET /api/v1/series/:id/change-logs
func (h *SeriesHandler) ListChangeLogs(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "系列组ID不能为空")
		return
	}

	var req dto.ChangeLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.seriesSvc.ListChangeLogs(c.Request.Context(), id, &req)
	if err != nil {
		h.handleSeriesError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// handleSeriesError 统一处理系列模块业务错误
// 错误码分段：21xxx 解析 / 22xxx 校验 / 23xxx 状态冲突 / 24xxx 不存在
func (h *SeriesHandler) handleSeriesError(c *gin.Context, err error) {
	switch {
	// ── 解析类 ──
	case errors.Is(err, recurrence.ErrRuleParse):
		response.BadRequest(c, 21001, "RRULE 解析失败")
	case errors.Is(err, recurrence.ErrInvalidDtstart):
		response.BadRequest(c, 21002, "起始时间无效")
	case errors.Is(err, recurrence.ErrInvalidDuration):
		response.BadRequest(c, 21003, "单次时长必须为正")
	case errors.Is(err, recurrence.ErrUnbounded):
		response.BadRequest(c, 21004, "无界 RRULE 必须指定展开上限")
	case errors.Is(err, timerange.ErrInvalidDuration):
		response.BadRequest(c, 21005, "ISO 8601 时长格式无效")
	case errors.Is(err, timerange.ErrInvalidRange), errors.Is(err, timerange.ErrInvalidRangeFormat):
		response.BadRequest(c, 21006, "时间区间格式无效")

	// ── 校验类 ──
	case errors.Is(err, service.ErrEntityNotRecurring):
		response.BadRequest(c, 22001, "该实体不支持重复系列")
	case errors.Is(err, service.ErrTemplateInvalid):
		response.ErrorWithDetails(c, 400, 22002, "模板字段校验未通过", err.Error())
	case errors.Is(err, service.ErrUnknownScope):
		response.BadRequest(c, 22003, "未知的编辑作用域")
	case errors.Is(err, service.ErrCancelAllForbidden):
		response.BadRequest(c, 22004, "取消全部场次请使用删除系列接口")
	case errors.Is(err, service.ErrIntervalInvalid), errors.Is(err, service.ErrNoCandidates):
		response.BadRequest(c, 22005, "候选区间无效")
	case errors.Is(err, repository.ErrInvalidIdentifier):
		response.BadRequest(c, 22006, "非法的表名或列名")

	// ── 状态冲突类 ──
	case errors.Is(err, service.ErrSplitDateTooEarly):
		response.Conflict(c, 23001, "拆分日期必须晚于明天")
	case errors.Is(err, service.ErrSeriesEnded):
		response.Conflict(c, 23002, "系列已终止，无当前版本")
	case errors.Is(err, service.ErrOccurrenceCancelled):
		response.Conflict(c, 23003, "该场次已取消")
	case errors.Is(err, repository.ErrCurrentVersionExists):
		response.Conflict(c, 23004, "该系列组已存在当前版本")
	case errors.Is(err, repository.ErrVersionAlreadyTerminated):
		response.Conflict(c, 23005, "该版本已被终止")
	case errors.Is(err, repository.ErrTerminateBeforeStart):
		response.Conflict(c, 23006, "终止时间早于版本起点")

	// ── 不存在类 ──
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 24001, "系列组不存在")
	case errors.Is(err, service.ErrVersionNotFound):
		response.NotFound(c, 24002, "系列版本不存在")
	case errors.Is(err, service.ErrInstanceNotFound):
		response.NotFound(c, 24003, "系列实例不存在")
	case errors.Is(err, service.ErrEntityConfigNotFound):
		response.NotFound(c, 24004, "实体配置不存在")

	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/series_handler.go
