package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/kimeia/alientu-engine/internal/model"
)

// ParticipantRepository 参与者数据访问接口
type ParticipantRepository interface {
	BatchCreate(ctx context.Context, participants []model.Participant) error
	GetByID(ctx context.Context, id string) (*model.Participant, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Participant, error)
	ListByRegistration(ctx context.Context, registrationID string) ([]model.Participant, error)
	ListByTeam(ctx context.Context, teamID string) ([]model.Participant, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]model.Participant, error)
	Update(ctx context.Context, p *model.Participant) error
	AssignTeam(ctx context.Context, ids []string, teamID string) error
	UnassignTeam(ctx context.Context, ids []string) error
	ClearTeam(ctx context.Context, teamID string) error
}

type participantRepo struct {
	db *gorm.DB
}

// NewParticipantRepo 创建 ParticipantRepository 实例
func NewParticipantRepo(db *gorm.DB) ParticipantRepository {
	return &participantRepo{db: db}
}

func (r *participantRepo) BatchCreate(ctx context.Context, participants []model.Participant) error {
	if len(participants) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&participants).Error
}

func (r *participantRepo) GetByID(ctx context.Context, id string) (*model.Participant, error) {
	var p model.Participant
	err := r.db.WithContext(ctx).
		Where("participant_id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *participantRepo) GetByIDs(ctx context.Context, ids []string) ([]model.Participant, error) {
	var ps []model.Participant
	if len(ids) == 0 {
		return ps, nil
	}
	err := r.db.WithContext(ctx).
		Where("participant_id IN ?", ids).
		Find(&ps).Error
	return ps, err
}

func (r *participantRepo) ListByRegistration(ctx context.Context, registrationID string) ([]model.Participant, error) {
	var ps []model.Participant
	err := r.db.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Order("created_at ASC").
		Find(&ps).Error
	return ps, err
}

func (r *participantRepo) ListByTeam(ctx context.Context, teamID string) ([]model.Participant, error) {
	var ps []model.Participant
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("last_name ASC, first_name ASC").
		Find(&ps).Error
	return ps, err
}

func (r *participantRepo) ListByCampaign(ctx context.Context, campaignID string) ([]model.Participant, error) {
	var ps []model.Participant
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("registration_id ASC, created_at ASC").
		Find(&ps).Error
	return ps, err
}

// Update 更新个人信息字段；registration_id 与 team_id 不在此修改
func (r *participantRepo) Update(ctx context.Context, p *model.Participant) error {
	return r.db.WithContext(ctx).
		Model(&model.Participant{}).
		Where("participant_id = ?", p.ParticipantID).
		Updates(map[string]interface{}{
			"first_name":     p.FirstName,
			"last_name":      p.LastName,
			"email":          p.Email,
			"phone":          p.Phone,
			"age_band":       p.AgeBand,
			"attends_social": p.AttendsSocial,
			"food_notes":     p.FoodNotes,
		}).Error
}

func (r *participantRepo) AssignTeam(ctx context.Context, ids []string, teamID string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Participant{}).
		Where("participant_id IN ?", ids).
		Update("team_id", teamID).Error
}

func (r *participantRepo) UnassignTeam(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Participant{}).
		Where("participant_id IN ?", ids).
		Update("team_id", nil).Error
}

// ClearTeam 将该队伍的全部成员移出
func (r *participantRepo) ClearTeam(ctx context.Context, teamID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Participant{}).
		Where("team_id = ?", teamID).
		Update("team_id", nil).Error
}
