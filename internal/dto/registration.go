package dto

import "github.com/kimeia/alientu-engine/internal/model"

// ── 公开报名 ──

// SubmitResponse 提交成功响应
type SubmitResponse struct {
	RegistrationID string `json:"registration_id"`
	Code           string `json:"code"`
	Status         string `json:"status"`
	TotalMinimum   string `json:"total_minimum"`
	Donation       string `json:"donation"`
	TotalFinal     string `json:"total_final"`
}

// PublicStatusResponse 按编号查询状态（不含个人信息）
type PublicStatusResponse struct {
	Code        string `json:"code"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	StatusLabel string `json:"status_label"`
	TotalFinal  string `json:"total_final"`
	CreatedAt   string `json:"created_at"`
}

// ── 运营后台 ──

// RegistrationListRequest 列表筛选
type RegistrationListRequest struct {
	PaginationRequest
	CampaignID string `form:"campaign_id"`
	Status     string `form:"status"  binding:"omitempty,oneof=received needs_review waiting_payment confirmed cancelled archived"`
	Type       string `form:"type"    binding:"omitempty,oneof=team individual group social"`
	Search     string `form:"q"       binding:"omitempty,max=100"`
	SortBy     string `form:"sort_by" binding:"omitempty,oneof=created_at updated_at code status total_final referente"`
	Order      string `form:"order"   binding:"omitempty,oneof=asc desc"`
}

// RegistrationSummary 列表行
type RegistrationSummary struct {
	ID             string `json:"id"`
	Code           string `json:"code"`
	CampaignID     string `json:"campaign_id"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	StatusLabel    string `json:"status_label"`
	ReferenteName  string `json:"referente_name"`
	ReferenteEmail string `json:"referente_email"`
	TotalFinal     string `json:"total_final"`
	CreatedAt      string `json:"created_at"`
}

// RegistrationDetail 详情
type RegistrationDetail struct {
	RegistrationSummary
	EventID              string                `json:"event_id"`
	ReferentePhone       string                `json:"referente_phone"`
	TotalMinimum         string                `json:"total_minimum"`
	Donation             string                `json:"donation"`
	Causale              string                `json:"causale"`
	UpdatedAt            string                `json:"updated_at"`
	Participants         []ParticipantResponse `json:"participants"`
	History              []AuditEntryResponse  `json:"history"`
	AvailableTransitions []string              `json:"available_transitions"`
}

// ParticipantResponse 参与者
type ParticipantResponse struct {
	ID             string  `json:"id"`
	RegistrationID string  `json:"registration_id"`
	TeamID         *string `json:"team_id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email,omitempty"`
	Phone          string  `json:"phone,omitempty"`
	AgeBand        string  `json:"age_band"`
	AttendsSocial  bool    `json:"attends_social"`
	FoodNotes      string  `json:"food_notes,omitempty"`
}

// ParticipantsToResponse 转换参与者列表
func ParticipantsToResponse(ps []model.Participant) []ParticipantResponse {
	out := make([]ParticipantResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, ParticipantResponse{
			ID:             p.ParticipantID,
			RegistrationID: p.RegistrationID,
			TeamID:         p.TeamID,
			FirstName:      p.FirstName,
			LastName:       p.LastName,
			Email:          p.Email,
			Phone:          p.Phone,
			AgeBand:        p.AgeBand,
			AttendsSocial:  p.AttendsSocial,
			FoodNotes:      p.FoodNotes,
		})
	}
	return out
}

// TransitionRequest 状态变更
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"   binding:"max=1000"`
}

// TransitionResponse 状态变更结果
type TransitionResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NoteRequest 运营备注
type NoteRequest struct {
	Kind string `json:"kind" binding:"required,oneof=info payment contact"`
	Text string `json:"text" binding:"required,max=2000"`
}

// UpdateContactRequest 修改负责人联系方式
type UpdateContactRequest struct {
	ReferenteName  string `json:"referente_name"  binding:"required,min=2,max=200"`
	ReferenteEmail string `json:"referente_email" binding:"required,email,max=255"`
	ReferentePhone string `json:"referente_phone" binding:"required,max=50"`
}

// UpdateParticipantRequest 修改参与者
type UpdateParticipantRequest struct {
	FirstName     string `json:"first_name"     binding:"required,max=100"`
	LastName      string `json:"last_name"      binding:"required,max=100"`
	Email         string `json:"email"          binding:"omitempty,email,max=255"`
	Phone         string `json:"phone"          binding:"omitempty,max=50"`
	AgeBand       string `json:"age_band"       binding:"omitempty,oneof=A B C D"`
	AttendsSocial bool   `json:"attends_social"`
	FoodNotes     string `json:"food_notes"     binding:"max=1000"`
}
