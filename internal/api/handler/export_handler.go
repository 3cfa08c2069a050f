package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/service"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/response"
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

// ExportPool 导出当前顾问的学生池
// GET /api/v1/pool/export
func (h *ExportHandler) ExportPool(c *gin.Context) {
	name, ok := MustGetCounselorName(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportPool(c.Request.Context(), name)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	response.Attachment(c, xlsxContentType, filename, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportEmptyPool):
		response.NotFound(c, 20004, "名册中暂无可导出的学生")
	case errors.Is(err, service.ErrPoolDataIncomplete):
		response.NotFound(c, 20003, "学生缺少池属性或学业成绩")
	case errors.Is(err, service.ErrExportGenerateFail):
		_ = c.Error(err)
		response.InternalError(c)
	default:
		respondCommonError(c, err)
	}
}
