package dto

// ── 队伍 DTO ──

// TeamListRequest 队伍列表
type TeamListRequest struct {
	CampaignID string `form:"campaign_id"`
}

// CreateTeamRequest 由报名创建队伍
// Mode=all 时取该报名下全部未分配参与者，selected 时取 ParticipantIDs
type CreateTeamRequest struct {
	RegistrationID string   `json:"registration_id" binding:"required"`
	Name           string   `json:"name"            binding:"max=100"`
	Color          string   `json:"color"           binding:"max=50"`
	Capacity       int      `json:"capacity"        binding:"omitempty,min=0,max=100"`
	Mode           string   `json:"mode"            binding:"required,oneof=all selected"`
	ParticipantIDs []string `json:"participant_ids"`
}

// UpdateTeamRequest 修改队伍信息
type UpdateTeamRequest struct {
	Name           string `json:"name"            binding:"required,max=100"`
	Color          string `json:"color"           binding:"max=50"`
	Capacity       int    `json:"capacity"        binding:"omitempty,min=0,max=100"`
	BannerProvider string `json:"banner_provider" binding:"max=100"`
	BannerNotes    string `json:"banner_notes"    binding:"max=2000"`
	Notes          string `json:"notes"           binding:"max=2000"`
}

// TeamMembersRequest 添加 / 移除成员
type TeamMembersRequest struct {
	ParticipantIDs []string `json:"participant_ids" binding:"required,min=1"`
}

// MoveMembersRequest 将成员移到另一支队伍
type MoveMembersRequest struct {
	TargetTeamID   string   `json:"target_team_id"  binding:"required"`
	ParticipantIDs []string `json:"participant_ids" binding:"required,min=1"`
}

// TeamSummary 队伍列表行
type TeamSummary struct {
	ID          string `json:"id"`
	CampaignID  string `json:"campaign_id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Capacity    int    `json:"capacity"`
	Status      string `json:"status"`
	MemberCount int    `json:"member_count"`
}

// TeamDetail 队伍详情
type TeamDetail struct {
	TeamSummary
	EventID              string                `json:"event_id"`
	BannerProvider       string                `json:"banner_provider"`
	BannerNotes          string                `json:"banner_notes"`
	Notes                string                `json:"notes"`
	Members              []ParticipantResponse `json:"members"`
	History              []AuditEntryResponse  `json:"history"`
	AvailableTransitions []string              `json:"available_transitions"`
}
