package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	pkgerrors "github.com/kimeia/alientu-engine/pkg/errors"
	"github.com/kimeia/alientu-engine/pkg/redis"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationLockName = "schema_migration"

// lockPollInterval 等待其他实例释放迁移锁时的轮询间隔
const lockPollInterval = time.Second

// RunMigrations 执行数据库迁移
// rdb 非空时先获取带 TTL 的互斥锁，防止多个实例同时启动时重复迁移；
// 锁被占用时轮询等待，最长等待一个 TTL 周期
func RunMigrations(db *sql.DB, rdb *redis.Client, lockTTL time.Duration, logger *zap.Logger) error {
	if rdb == nil {
		logger.Warn("Redis 不可用，迁移在无锁模式下执行（仅适用于单实例部署）")
		return migrateUp(db, logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), lockTTL+5*time.Second)
	defer cancel()

	lock, err := waitForLock(ctx, rdb, lockTTL)
	if err != nil {
		return fmt.Errorf("获取迁移锁失败: %w", err)
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			logger.Warn("释放迁移锁失败，将等待 TTL 自动过期", zap.Error(err))
		}
	}()

	return migrateUp(db, logger)
}

func waitForLock(ctx context.Context, rdb *redis.Client, ttl time.Duration) (*redis.Lock, error) {
	for {
		lock, err := rdb.AcquireLock(ctx, migrationLockName, ttl)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, pkgerrors.ErrLockNotAcquired) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

func migrateUp(db *sql.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	version, dirty, _ := m.Version()
	if dirty {
		logger.Warn("数据库迁移处于 dirty 状态", zap.Uint("version", version))
	} else {
		logger.Info("数据库迁移完成", zap.Uint("version", version))
	}

	return nil
}
