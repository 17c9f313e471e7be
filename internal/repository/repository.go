package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Registration    RegistrationRepository
	Participant     ParticipantRepository
	Team            TeamRepository
	RegistrationLog RegistrationLogRepository
	TeamLog         TeamLogRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:              db,
		Registration:    NewRegistrationRepo(db),
		Participant:     NewParticipantRepo(db),
		Team:            NewTeamRepo(db),
		RegistrationLog: NewRegistrationLogRepo(db),
		TeamLog:         NewTeamLogRepo(db),
	}
}

// BeginTx 开启事务；未持有数据库连接时（单元测试中的 mock 聚合）返回 nil
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到 tx 的 Repository 聚合；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}
