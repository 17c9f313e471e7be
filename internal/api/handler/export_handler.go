package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/kimeia/alientu-engine/internal/service"
	"github.com/kimeia/alientu-engine/pkg/response"
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

// ExportRegistrations 导出某活动的报名、参与者与队伍
// GET /api/v1/export/registrations?campaign_id=xxx
func (h *ExportHandler) ExportRegistrations(c *gin.Context) {
	campaignID := c.Query("campaign_id")
	if campaignID == "" {
		response.BadRequest(c, 10001, "campaign_id obbligatorio.")
		return
	}

	buf, filename, err := h.exportSvc.ExportRegistrations(c.Request.Context(), campaignID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, 22101, err.Error())
	default:
		response.InternalError(c)
	}
}
