package dto

import "github.com/kimeia/alientu-engine/internal/model"

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 50
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// ── 审计日志 ──

// AuditEntryResponse 审计日志条目（报名与队伍共用）
type AuditEntryResponse struct {
	FromStatus  *string `json:"from_status"`
	ToStatus    string  `json:"to_status"`
	Note        string  `json:"note,omitempty"`
	TriggeredBy string  `json:"triggered_by"`
	CreatedAt   string  `json:"created_at"`
}

// RegistrationLogsToResponse 转换报名日志
func RegistrationLogsToResponse(logs []model.RegistrationLog) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, AuditEntryResponse{
			FromStatus:  l.FromStatus,
			ToStatus:    l.ToStatus,
			Note:        l.Note,
			TriggeredBy: l.TriggeredBy,
			CreatedAt:   l.CreatedAt.Format(TimeLayout),
		})
	}
	return out
}

// TeamLogsToResponse 转换队伍日志
func TeamLogsToResponse(logs []model.TeamLog) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, AuditEntryResponse{
			FromStatus:  l.FromStatus,
			ToStatus:    l.ToStatus,
			Note:        l.Note,
			TriggeredBy: l.TriggeredBy,
			CreatedAt:   l.CreatedAt.Format(TimeLayout),
		})
	}
	return out
}

// TimeLayout 响应中的时间格式
const TimeLayout = "2006-01-02T15:04:05Z07:00"
