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

// TeamHandler 队伍管理 HTTP 处理器
type TeamHandler struct {
	teamSvc service.TeamService
}

// NewTeamHandler 创建 TeamHandler
func NewTeamHandler(teamSvc service.TeamService) *TeamHandler {
	return &TeamHandler{teamSvc: teamSvc}
}

// List 队伍列表
// GET /api/v1/teams?campaign_id=xxx
func (h *TeamHandler) List(c *gin.Context) {
	var req dto.TeamListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Parametri non validi.")
		return
	}

	list, err := h.teamSvc.List(c.Request.Context(), req.CampaignID)
	if err != nil {
		h.handleTeamError(c, err)
		return
	}
	response.OK(c, list)
}

// Get 队伍详情
// GET /api/v1/teams/:id
func (h *TeamHandler) Get(c *gin.Context) {
	result, err := h.teamSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleTeamError(c, err)
		return
	}
	response.OK(c, result)
}

// Create 由报名的参与者创建队伍
// POST /api/v1/teams
func (h *TeamHandler) Create(c *gin.Context) {
	operator, ok := MustGetOperatorID(c)
	if !ok {
		return
	}
	var req dto.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 21001, "Parametri non validi.")
		return
	}

	result, err := h.teamSvc.CreateFromRegistration(c.Request.Context(), &req, operator)
	if err != nil {
		h.handleTeamError(c, err)
		return
	}
	response.Created(c, result)
}

// Update 修改队伍信息
// PUT /api/v1/teams/:id
func (h *TeamHandler) Update(c *gin.Context) {
	operator, ok := MustGetOperatorID(c)
	if !ok {
		return
	}
	var req dto.UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 21001, "Parametri non validi.")
		return
	}

	if err := h.teamSvc.UpdateDetails(c.Request.Context(), c.Param("id"), &req, operator); err != nil {
		h.handleTeamError(c, err)
		return
	}
	response.OK(c, nil)
}

// Delete 删除队伍，成员回到未分配
// DELETE /api/v1/teams/:id
func (h *TeamHandler) Delete(c *gin.Context) {
	operator, ok := MustGetOperatorID(c)
	if !ok {
		return
	}
	if err := h.teamSvc.Delete(c.Request.Context(), c.Param("id"), operator); err != nil {
		h.handleTeamError(c, err)
		return
	}
	response.OK(c, nil)
}

// Transition 队伍状态变更
// POST /api/v1/teams/:id/transition
func (h *TeamHandler) Transition(c *gin.Context) {
	operator, ok := MustGetOperatorID(c)
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 21001, "Parametri non validi.")
		return
	}

	to := workflow.TeamStatus(req.Status)
	from, err := h.teamSvc.Transition(c.Request.Context(), c.Param("id"), to, req.Note, operator)
	if err != nil {
		h.handleTeamError(c, err)
		return
	}
	response.OK(c, dto.TransitionResponse{From: string(from), To: string(to)})
}

// AddMembers 添加成员
// POST /api/v1/teams/:id/members
func (h *TeamHandler) AddMembers(c *gin.Context) {
	operator, ok := MustGetOperatorID(c)
	if !ok {
		return
	}
	var req dto.TeamMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 21001, "Parametri non validi.")
		return
	}

	if err := h.teamSvc.AddMembers(c.Request.Context(), c.Param("id"), req.ParticipantIDs, operator); err != nil {
		h.handleTeamError(c, err)
		return
	}
	response.OK(c, nil)
}

// RemoveMembers 移除成员
// DELETE /api/v1/teams/:id/members
func (h *TeamHandler) RemoveMembers(c *gin.Context) {
	operator, ok := MustGetOperatorID(c)
	if !ok {
		return
	}
	var req dto.TeamMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 21001, "Parametri non validi.")
		return
	}

	if err := h.teamSvc.RemoveMembers(c.Request.Context(), c.Param("id"), req.ParticipantIDs, operator); err != nil {
		h.handleTeamError(c, err)
		return
	}
	response.OK(c, nil)
}

// MoveMembers 将成员移到另一支队伍
// POST /api/v1/teams/:id/members/move
func (h *TeamHandler) MoveMembers(c *gin.Context) {
	operator, ok := MustGetOperatorID(c)
	if !ok {
		return
	}
	var req dto.MoveMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 21001, "Parametri non validi.")
		return
	}

	err := h.teamSvc.MoveMembers(c.Request.Context(), c.Param("id"), req.TargetTeamID, req.ParticipantIDs, operator)
	if err != nil {
		h.handleTeamError(c, err)
		return
	}
	response.OK(c, nil)
}

// handleTeamError 将 Service 层错误映射为 HTTP 响应
func (h *TeamHandler) handleTeamError(c *gin.Context, err error) {
	if writeValidationError(c, 21103, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrTeamNotFound):
		response.NotFound(c, 21101, err.Error())
	case errors.Is(err, service.ErrRegistrationNotFound):
		response.NotFound(c, 20101, err.Error())
	case errors.Is(err, service.ErrParticipantNotFound):
		response.NotFound(c, 20108, err.Error())
	case errors.Is(err, service.ErrTeamLocked):
		response.Conflict(c, 21102, err.Error())
	case errors.Is(err, pkgerrors.ErrStaleState):
		response.Conflict(c, 21110, err.Error())
	case errors.Is(err, service.ErrParticipantAssigned):
		response.Conflict(c, 21107, err.Error())
	case errors.Is(err, service.ErrTeamNameRequired):
		response.BadRequest(c, 21104, err.Error())
	case errors.Is(err, service.ErrTeamFull):
		response.BadRequest(c, 21105, err.Error())
	case errors.Is(err, service.ErrCapacityBelowMembers):
		response.BadRequest(c, 21106, err.Error())
	case errors.Is(err, service.ErrNoParticipants):
		response.BadRequest(c, 21108, err.Error())
	case errors.Is(err, service.ErrParticipantNotInTeam):
		response.BadRequest(c, 21109, err.Error())
	case errors.Is(err, service.ErrSameTeam):
		response.BadRequest(c, 21111, err.Error())
	default:
		response.InternalError(c)
	}
}
