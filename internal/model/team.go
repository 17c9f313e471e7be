package model

import "gorm.io/gorm"

// Team 队伍表，对应 teams
// locked 状态下除 status 外的字段与成员均不可修改
type Team struct {
	TeamID         string `gorm:"type:uuid;primaryKey"                      json:"team_id"`
	CampaignID     string `gorm:"type:varchar(64);not null;index"           json:"campaign_id"`
	EventID        string `gorm:"type:varchar(64);not null"                 json:"event_id"`
	Name           string `gorm:"type:varchar(100);not null"                json:"name"`
	Color          string `gorm:"type:varchar(50);not null;default:''"      json:"color,omitempty"`
	Capacity       int    `gorm:"type:smallint;not null;default:12"         json:"capacity"` // 2-20
	Status         string `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`   // draft | pending_review | needs_changes | approved | locked
	BannerProvider string `gorm:"type:varchar(100);not null;default:''"     json:"banner_provider,omitempty"`
	BannerNotes    string `gorm:"type:text;not null;default:''"             json:"banner_notes,omitempty"`
	Notes          string `gorm:"type:text;not null;default:''"             json:"notes,omitempty"`
	BaseModel

	// 关联
	Members []Participant `gorm:"foreignKey:TeamID;references:TeamID" json:"members,omitempty"`
}

// TableName 指定表名
func (Team) TableName() string { return "teams" }

// BeforeCreate 补齐主键
func (t *Team) BeforeCreate(_ *gorm.DB) error {
	ensureID(&t.TeamID)
	return nil
}

// TeamWithCount 队伍列表行（附成员数）
type TeamWithCount struct {
	Team
	MemberCount int `json:"member_count"`
}
