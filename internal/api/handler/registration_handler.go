package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/kimeia/alientu-engine/internal/dto"
	"github.com/kimeia/alientu-engine/internal/service"
	"github.com/kimeia/alientu-engine/internal/workflow"
	pkgerrors "github.com/kimeia/alientu-engine/pkg/errors"
	"github.com/kimeia/alientu-engine/pkg/response"
)

// RegistrationHandler 运营后台报名管理 HTTP 处理器
type RegistrationHandler struct {
	regSvc  service.RegistrationService
	actions service.ActionDispatcher
}

// NewRegistrationHandler 创建 RegistrationHandler
func NewRegistrationHandler(regSvc service.RegistrationService, actions service.ActionDispatcher) *RegistrationHandler {
	return &RegistrationHandler{regSvc: regSvc, actions: actions}
}

// List 报名列表（筛选 + 分页）
// GET /api/v1/registrations
func (h *RegistrationHandler) List(c *gin.Context) {
	var req dto.RegistrationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi.")
		return
	}

	list, total, err := h.regSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 报名详情（含参与者与审计日志）
// GET /api/v1/registrations/:id
func (h *RegistrationHandler) Get(c *gin.Context) {
	result, err := h.regSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}
	response.OK(c, result)
}

// UpdateContact 修改负责人联系方式
// PUT /api/v1/registrations/:id/contact
func (h *RegistrationHandler) UpdateContact(c *gin.Context) {
	operator, ok := MustGetOperatorID(c)
	if !ok {
		return
	}
	var req dto.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20001, "Parametri non validi.")
		return
	}

	if err := h.regSvc.UpdateContact(c.Request.Context(), c.Param("id"), &req, operator); err != nil {
		h.handleRegistrationError(c, err)
		return
	}
	response.OK(c, nil)
}

// Transition 状态变更；成功后异步执行目标状态的动作
// POST /api/v1/registrations/:id/transition
func (h *RegistrationHandler) Transition(c *gin.Context) {
	operator, ok := MustGetOperatorID(c)
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20001, "Parametri non validi.")
		return
	}

	id := c.Param("id")
	res, err := h.regSvc.Transition(c.Request.Context(), id, workflow.Status(req.Status), req.Note, operator)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OK(c, dto.TransitionResponse{From: string(res.From), To: string(res.To)})
	go h.actions.Dispatch(c.Request.Context(), id, res.Actions)
}

// AddNote 运营备注
// POST /api/v1/registrations/:id/notes
func (h *RegistrationHandler) AddNote(c *gin.Context) {
	operator, ok := MustGetOperatorID(c)
	if !ok {
		return
	}
	var req dto.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20001, "Parametri non validi.")
		return
	}

	err := h.regSvc.AddNote(c.Request.Context(), c.Param("id"), service.NoteKind(req.Kind), req.Text, operator)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}
	response.Created(c, nil)
}

// UpdateParticipant 修改参与者
// PUT /api/v1/participants/:id
func (h *RegistrationHandler) UpdateParticipant(c *gin.Context) {
	operator, ok := MustGetOperatorID(c)
	if !ok {
		return
	}
	var req dto.UpdateParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 20001, "Parametri non validi.")
		return
	}

	if err := h.regSvc.UpdateParticipant(c.Request.Context(), c.Param("id"), &req, operator); err != nil {
		h.handleRegistrationError(c, err)
		return
	}
	response.OK(c, nil)
}

// handleRegistrationError 将 Service 层错误映射为 HTTP 响应
func (h *RegistrationHandler) handleRegistrationError(c *gin.Context, err error) {
	if writeValidationError(c, 20103, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrRegistrationNotFound):
		response.NotFound(c, 20101, err.Error())
	case errors.Is(err, service.ErrParticipantNotFound):
		response.NotFound(c, 20108, err.Error())
	case errors.Is(err, pkgerrors.ErrStaleState):
		response.Conflict(c, 20105, err.Error())
	case errors.Is(err, service.ErrRegistrationArchived):
		response.Conflict(c, 20106, err.Error())
	case errors.Is(err, service.ErrTeamLocked):
		response.Conflict(c, 21102, err.Error())
	case errors.Is(err, service.ErrEmptyNote), errors.Is(err, service.ErrInvalidNoteKind):
		response.BadRequest(c, 20107, err.Error())
	default:
		response.InternalError(c)
	}
}
