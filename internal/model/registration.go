package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Registration 报名表，对应 registrations
// 金额字段为 NUMERIC(8,2)，total_final = total_minimum + max(0, donation)
type Registration struct {
	RegistrationID  string          `gorm:"type:uuid;primaryKey"                                json:"registration_id"`
	Code            string          `gorm:"type:varchar(40);not null;uniqueIndex"               json:"code"`
	CampaignID      string          `gorm:"type:varchar(64);not null;index"                     json:"campaign_id"`
	EventID         string          `gorm:"type:varchar(64);not null"                           json:"event_id"`
	Type            string          `gorm:"column:registration_type;type:varchar(20);not null"  json:"type"`   // team | individual | group | social
	Status          string          `gorm:"type:varchar(20);not null;default:'received';index"  json:"status"` // 见 workflow.Status
	TotalMinimum    decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"                json:"total_minimum"`
	Donation        decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"                json:"donation"`
	TotalFinal      decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"                json:"total_final"`
	ReferenteName   string          `gorm:"type:varchar(200);not null;default:''"               json:"referente_name"`
	ReferenteEmail  string          `gorm:"type:varchar(255);not null;default:''"               json:"referente_email"`
	ReferentePhone  string          `gorm:"type:varchar(50);not null;default:''"                json:"referente_phone"`
	PayloadSnapshot datatypes.JSON  `gorm:"type:jsonb"                                          json:"payload_snapshot,omitempty"` // 原始提交，仅供审计
	BaseModel

	// 关联
	Participants []Participant `gorm:"foreignKey:RegistrationID;references:RegistrationID" json:"participants,omitempty"`
}

// TableName 指定表名
func (Registration) TableName() string { return "registrations" }

// BeforeCreate 补齐主键
func (r *Registration) BeforeCreate(_ *gorm.DB) error {
	ensureID(&r.RegistrationID)
	return nil
}
