package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kimeia/alientu-engine/internal/dto"
	"github.com/kimeia/alientu-engine/internal/service"
	"github.com/kimeia/alientu-engine/pkg/response"
)

// PublicHandler 公开报名 HTTP 处理器（无需登录，按 IP 限流）
type PublicHandler struct {
	regSvc  service.RegistrationService
	actions service.ActionDispatcher
}

// NewPublicHandler 创建 PublicHandler
func NewPublicHandler(regSvc service.RegistrationService, actions service.ActionDispatcher) *PublicHandler {
	return &PublicHandler{regSvc: regSvc, actions: actions}
}

// Submit 提交报名
// POST /api/v1/public/campaigns/:campaign/registrations
//
// 请求体按原样交给规范化器，字段别名与类型容错都在服务层处理
func (h *PublicHandler) Submit(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "Richiesta troppo grande.")
			return
		}
		response.BadRequest(c, 20001, "Impossibile leggere la richiesta.")
		return
	}

	res, err := h.regSvc.Submit(c.Request.Context(), c.Param("campaign"), raw)
	if err != nil {
		h.handleSubmitError(c, err)
		return
	}

	response.Created(c, dto.SubmitResponse{
		RegistrationID: res.RegistrationID,
		Code:           res.Code,
		Status:         string(res.Status),
		TotalMinimum:   res.Totals.Minimum.StringFixed(2),
		Donation:       res.Totals.Donation.StringFixed(2),
		TotalFinal:     res.Totals.Final.StringFixed(2),
	})

	// 提交后动作不阻塞响应
	go h.actions.Dispatch(c.Request.Context(), res.RegistrationID, res.Actions)
}

// Status 按报名编号查询状态
// GET /api/v1/public/registrations/:code
func (h *PublicHandler) Status(c *gin.Context) {
	result, err := h.regSvc.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, service.ErrRegistrationNotFound) {
			response.NotFound(c, 20101, err.Error())
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

func (h *PublicHandler) handleSubmitError(c *gin.Context, err error) {
	if writeValidationError(c, 20103, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrCampaignNotFound):
		response.NotFound(c, 20102, err.Error())
	default:
		response.InternalError(c)
	}
}
