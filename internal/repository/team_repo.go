package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kimeia/alientu-engine/internal/model"
	pkgerrors "github.com/kimeia/alientu-engine/pkg/errors"
)

// TeamRepository 队伍数据访问接口
type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	GetByID(ctx context.Context, id string) (*model.Team, error)
	List(ctx context.Context, campaignID string) ([]model.TeamWithCount, error)
	Update(ctx context.Context, team *model.Team) error
	UpdateStatus(ctx context.Context, id, from, to string) error
	TouchUnless(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
	CountMembers(ctx context.Context, id string) (int64, error)
}

type teamRepo struct {
	db *gorm.DB
}

// NewTeamRepo 创建 TeamRepository 实例
func NewTeamRepo(db *gorm.DB) TeamRepository {
	return &teamRepo{db: db}
}

func (r *teamRepo) Create(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Omit("Members").Create(team).Error
}

func (r *teamRepo) GetByID(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("last_name ASC, first_name ASC")
		}).
		Where("team_id = ?", id).
		First(&team).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepo) List(ctx context.Context, campaignID string) ([]model.TeamWithCount, error) {
	var rows []model.TeamWithCount
	db := r.db.WithContext(ctx).
		Table("teams").
		Select("teams.*, (SELECT COUNT(*) FROM participants p WHERE p.team_id = teams.team_id) AS member_count")
	if campaignID != "" {
		db = db.Where("teams.campaign_id = ?", campaignID)
	}
	err := db.Order("teams.name ASC").Scan(&rows).Error
	return rows, err
}

// Update 更新队伍基本信息；status 只能通过 UpdateStatus 修改
func (r *teamRepo) Update(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).
		Model(&model.Team{}).
		Where("team_id = ?", team.TeamID).
		Updates(map[string]interface{}{
			"name":            team.Name,
			"color":           team.Color,
			"capacity":        team.Capacity,
			"banner_provider": team.BannerProvider,
			"banner_notes":    team.BannerNotes,
			"notes":           team.Notes,
		}).Error
}

// UpdateStatus 比较并交换，语义同 RegistrationRepository.UpdateStatus
func (r *teamRepo) UpdateStatus(ctx context.Context, id, from, to string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Team{}).
		Where("team_id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStaleState
	}
	return nil
}

// TouchUnless 队伍状态不为 status 时刷新 updated_at，并在事务内持有该行的写锁；
// 状态等于 status 或队伍不存在时返回 ErrStaleState
func (r *teamRepo) TouchUnless(ctx context.Context, id, status string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Team{}).
		Where("team_id = ? AND status <> ?", id, status).
		Update("updated_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStaleState
	}
	return nil
}

func (r *teamRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("team_id = ?", id).
		Delete(&model.Team{}).Error
}

func (r *teamRepo) CountMembers(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Participant{}).
		Where("team_id = ?", id).
		Count(&count).Error
	return count, err
}
