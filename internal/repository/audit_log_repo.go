package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/kimeia/alientu-engine/internal/model"
)

// RegistrationLogRepository 报名审计日志（只追加，不提供修改与删除）
type RegistrationLogRepository interface {
	Append(ctx context.Context, log *model.RegistrationLog) error
	ListByRegistration(ctx context.Context, registrationID string) ([]model.RegistrationLog, error)
}

// TeamLogRepository 队伍审计日志（只追加）
type TeamLogRepository interface {
	Append(ctx context.Context, log *model.TeamLog) error
	ListByTeam(ctx context.Context, teamID string) ([]model.TeamLog, error)
}

// ── RegistrationLog ──

type registrationLogRepo struct {
	db *gorm.DB
}

func NewRegistrationLogRepo(db *gorm.DB) RegistrationLogRepository {
	return &registrationLogRepo{db: db}
}

func (r *registrationLogRepo) Append(ctx context.Context, log *model.RegistrationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *registrationLogRepo) ListByRegistration(ctx context.Context, registrationID string) ([]model.RegistrationLog, error) {
	var logs []model.RegistrationLog
	err := r.db.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

// ── TeamLog ──

type teamLogRepo struct {
	db *gorm.DB
}

func NewTeamLogRepo(db *gorm.DB) TeamLogRepository {
	return &teamLogRepo{db: db}
}

func (r *teamLogRepo) Append(ctx context.Context, log *model.TeamLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *teamLogRepo) ListByTeam(ctx context.Context, teamID string) ([]model.TeamLog, error) {
	var logs []model.TeamLog
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
