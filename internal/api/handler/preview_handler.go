package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/civic-os/series-backend/internal/dto"
	"github.com/civic-os/series-backend/internal/service"
	"github.com/civic-os/series-backend/pkg/response"
)

// PreviewHandler 预览模块 HTTP 处理器
// 纯计算接口，不写库；错误映射复用系列模块的分段
type PreviewHandler struct {
	seriesSvc service.SeriesService
	series    *SeriesHandler
}

// NewPreviewHandler 创建 PreviewHandler
func NewPreviewHandler(seriesSvc service.SeriesService, series *SeriesHandler) *PreviewHandler {
	return &PreviewHandler{seriesSvc: seriesSvc, series: series}
}

// PreviewOccurrences 展开发生序列预览
// POST /api/v1/previews/occurrences
func (h *PreviewHandler) PreviewOccurrences(c *gin.Context) {
	var req dto.PreviewOccurrencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	intervals, err := h.seriesSvc.PreviewOccurrences(c.Request.Context(), &req)
	if err != nil {
		h.series.handleSeriesError(c, err)
		return
	}

	response.OK(c, gin.H{"list": intervals, "count": len(intervals)})
}

// PreviewConflicts 候选区间冲突预览
// POST /api/v1/previews/conflicts
func (h *PreviewHandler) PreviewConflicts(c *gin.Context) {
	var req dto.PreviewConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	conflicts, err := h.seriesSvc.PreviewConflicts(c.Request.Context(), &req)
	if err != nil {
		h.series.handleSeriesError(c, err)
		return
	}

	total := 0
	for _, conf := range conflicts {
		if conf.HasConflict {
			total++
		}
	}
	response.OK(c, gin.H{"list": conflicts, "conflict_count": total})
}
