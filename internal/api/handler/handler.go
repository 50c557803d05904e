package handler

import "github.com/civic-os/series-backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Series       *SeriesHandler
	Preview      *PreviewHandler
	Export       *ExportHandler
	EntityConfig *EntityConfigHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	series := NewSeriesHandler(svc.Series)
	return &Handler{
		Series:       series,
		Preview:      NewPreviewHandler(svc.Series, series),
		Export:       NewExportHandler(svc.Export),
		EntityConfig: NewEntityConfigHandler(svc.EntityConfig),
	}
}
