package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/civic-os/series-backend/internal/service"
	"github.com/civic-os/series-backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportInstances 导出系列场次 Excel
// GET /api/v1/series/:id/export/instances
func (h *ExportHandler) ExportInstances(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "系列组ID不能为空")
		return
	}

	data, filename, err := h.exportSvc.ExportInstancesExcel(c.Request.Context(), id)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename)))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ExportCalendar 导出系列 iCalendar 订阅
// GET /api/v1/series/:id/feed.ics
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "系列组ID不能为空")
		return
	}

	data, filename, err := h.exportSvc.ExportCalendarICS(c.Request.Context(), id)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename)))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
}

// handleExportError 统一处理导出模块业务错误
func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 24001, "系列组不存在")
	default:
		response.InternalError(c)
	}
}
