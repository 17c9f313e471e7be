package model

import "gorm.io/gorm"

// Participant 参与者表，对应 participants
// registration_id 创建后不可变；team_id 由运营人员调整
type Participant struct {
	ParticipantID  string  `gorm:"type:uuid;primaryKey"                  json:"participant_id"`
	RegistrationID string  `gorm:"type:uuid;not null;index"              json:"registration_id"`
	CampaignID     string  `gorm:"type:varchar(64);not null;index"       json:"campaign_id"`
	EventID        string  `gorm:"type:varchar(64);not null"             json:"event_id"`
	TeamID         *string `gorm:"type:uuid;index"                       json:"team_id,omitempty"`
	FirstName      string  `gorm:"type:varchar(100);not null"            json:"first_name"`
	LastName       string  `gorm:"type:varchar(100);not null"            json:"last_name"`
	Email          string  `gorm:"type:varchar(255);not null;default:''" json:"email,omitempty"`
	Phone          string  `gorm:"type:varchar(50);not null;default:''"  json:"phone,omitempty"`
	AgeBand        string  `gorm:"type:varchar(1);not null;default:''"   json:"age_band"` // A | B | C | D | 空
	AttendsSocial  bool    `gorm:"not null;default:false"                json:"attends_social"`
	FoodNotes      string  `gorm:"type:text;not null;default:''"         json:"food_notes,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Participant) TableName() string { return "participants" }

// BeforeCreate 补齐主键
func (p *Participant) BeforeCreate(_ *gorm.DB) error {
	ensureID(&p.ParticipantID)
	return nil
}

// FullName 姓名
func (p *Participant) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
