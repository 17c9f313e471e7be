package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/kimeia/alientu-engine/internal/model"
	pkgerrors "github.com/kimeia/alientu-engine/pkg/errors"
)

// RegistrationFilter 报名列表筛选条件
type RegistrationFilter struct {
	CampaignID string
	Status     string
	Type       string
	Search     string // 匹配编号 / referente 姓名 / 邮箱
	SortBy     string // 见 registrationSortColumns
	SortDesc   bool
	Offset     int
	Limit      int
}

// registrationSortColumns 允许排序的列（白名单）
var registrationSortColumns = map[string]string{
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"code":        "code",
	"status":      "status",
	"total_final": "total_final",
	"referente":   "referente_name",
}

// RegistrationRepository 报名数据访问接口
type RegistrationRepository interface {
	Create(ctx context.Context, reg *model.Registration) error
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	GetByCode(ctx context.Context, code string) (*model.Registration, error)
	ExistsCode(ctx context.Context, code string) (bool, error)
	UpdateStatus(ctx context.Context, id, from, to string) error
	UpdateContact(ctx context.Context, id, name, email, phone string) error
	List(ctx context.Context, filter RegistrationFilter) ([]model.Registration, int64, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]model.Registration, error)
}

type registrationRepo struct {
	db *gorm.DB
}

// NewRegistrationRepo 创建 RegistrationRepository 实例
func NewRegistrationRepo(db *gorm.DB) RegistrationRepository {
	return &registrationRepo{db: db}
}

func (r *registrationRepo) Create(ctx context.Context, reg *model.Registration) error {
	// 参与者由 ParticipantRepository 在同一事务中批量写入
	return r.db.WithContext(ctx).Omit("Participants").Create(reg).Error
}

func (r *registrationRepo) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	var reg model.Registration
	err := r.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("last_name ASC")
		}).
		Where("registration_id = ?", id).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepo) GetByCode(ctx context.Context, code string) (*model.Registration, error) {
	var reg model.Registration
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepo) ExistsCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

// UpdateStatus 比较并交换：仅当当前状态仍为 from 时写入 to，否则返回 ErrStaleState
func (r *registrationRepo) UpdateStatus(ctx context.Context, id, from, to string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Where("registration_id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStaleState
	}
	return nil
}

func (r *registrationRepo) UpdateContact(ctx context.Context, id, name, email, phone string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Where("registration_id = ?", id).
		Updates(map[string]interface{}{
			"referente_name":  name,
			"referente_email": email,
			"referente_phone": phone,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *registrationRepo) List(ctx context.Context, filter RegistrationFilter) ([]model.Registration, int64, error) {
	var regs []model.Registration
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Registration{})

	if filter.CampaignID != "" {
		db = db.Where("campaign_id = ?", filter.CampaignID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		db = db.Where("registration_type = ?", filter.Type)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		db = db.Where("LOWER(code) LIKE ? OR LOWER(referente_name) LIKE ? OR LOWER(referente_email) LIKE ?", like, like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col, ok := registrationSortColumns[filter.SortBy]
	if !ok {
		col = "created_at"
	}
	order := col + " ASC"
	if filter.SortDesc || filter.SortBy == "" {
		order = col + " DESC"
	}

	if filter.Limit > 0 {
		db = db.Offset(filter.Offset).Limit(filter.Limit)
	}
	if err := db.Order(order).Find(&regs).Error; err != nil {
		return nil, 0, err
	}

	return regs, total, nil
}

func (r *registrationRepo) ListByCampaign(ctx context.Context, campaignID string) ([]model.Registration, error) {
	var regs []model.Registration
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&regs).Error
	return regs, err
}
