package model

import (
	"time"

	"gorm.io/gorm"
)

// RegistrationLog 报名状态日志，对应 registration_logs（纯审计日志，只追加）
// from_status 为 NULL 表示该报名的第一条记录；from == to 表示运营备注
type RegistrationLog struct {
	LogID          string    `gorm:"type:uuid;primaryKey"               json:"log_id"`
	RegistrationID string    `gorm:"type:uuid;not null;index"           json:"registration_id"`
	FromStatus     *string   `gorm:"type:varchar(20)"                   json:"from_status"`
	ToStatus       string    `gorm:"type:varchar(20);not null"          json:"to_status"`
	Note           string    `gorm:"type:text;not null;default:''"      json:"note,omitempty"`
	TriggeredBy    string    `gorm:"type:varchar(100);not null"         json:"triggered_by"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (RegistrationLog) TableName() string { return "registration_logs" }

// BeforeCreate 补齐主键
func (l *RegistrationLog) BeforeCreate(_ *gorm.DB) error {
	ensureID(&l.LogID)
	return nil
}

// TeamLog 队伍状态日志，对应 team_logs（纯审计日志，只追加）
type TeamLog struct {
	LogID       string    `gorm:"type:uuid;primaryKey"               json:"log_id"`
	TeamID      string    `gorm:"type:uuid;not null;index"           json:"team_id"`
	FromStatus  *string   `gorm:"type:varchar(20)"                   json:"from_status"`
	ToStatus    string    `gorm:"type:varchar(20);not null"          json:"to_status"`
	Note        string    `gorm:"type:text;not null;default:''"      json:"note,omitempty"`
	TriggeredBy string    `gorm:"type:varchar(100);not null"         json:"triggered_by"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (TeamLog) TableName() string { return "team_logs" }

// BeforeCreate 补齐主键
func (l *TeamLog) BeforeCreate(_ *gorm.DB) error {
	ensureID(&l.LogID)
	return nil
}
