package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/civic-os/series-backend/internal/service"
	"github.com/civic-os/series-backend/pkg/response"
)

// EntityConfigHandler 实体配置模块 HTTP 处理器（只读）
type EntityConfigHandler struct {
	configSvc service.EntityConfigService
}

// NewEntityConfigHandler 创建 EntityConfigHandler
func NewEntityConfigHandler(configSvc service.EntityConfigService) *EntityConfigHandler {
	return &EntityConfigHandler{configSvc: configSvc}
}

// ListConfigs 列出全部实体配置
// GET /api/v1/entity-configs
func (h *EntityConfigHandler) ListConfigs(c *gin.Context) {
	list, err := h.configSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetConfig 获取单个实体配置
// GET /api/v1/entity-configs/:table
func (h *EntityConfigHandler) GetConfig(c *gin.Context) {
	table := c.Param("table")
	if table == "" {
		response.BadRequest(c, 10001, "表名不能为空")
		return
	}

	cfg, err := h.configSvc.Get(c.Request.Context(), table)
	if err != nil {
		if errors.Is(err, service.ErrEntityConfigNotFound) {
			response.NotFound(c, 24004, "实体配置不存在")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, cfg)
}
