package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kimeia/alientu-engine/config"
	"github.com/kimeia/alientu-engine/internal/repository"
	"github.com/kimeia/alientu-engine/internal/workflow"
	"github.com/kimeia/alientu-engine/pkg/jwt"
	"github.com/kimeia/alientu-engine/pkg/mailer"
	"github.com/kimeia/alientu-engine/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Registration RegistrationService
	Team         TeamService
	Action       ActionDispatcher
	Export       ExportService
}

// NewService 创建 Service 聚合
// rdb 可以为 nil：此时登出不写黑名单
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	mail mailer.Mailer,
	logger *zap.Logger,
) *Service {
	actions := ActionsFromConfig(&cfg.Workflow)
	codes := workflow.NewCodeGenerator(
		workflow.NewRandomSource(time.Now().UnixNano()),
		workflow.SystemClock{},
		cfg.Workflow.CodeMaxRetries,
	)

	return &Service{
		Auth:         NewAuthService(cfg, jwtMgr, rdb, logger),
		Registration: NewRegistrationService(cfg, repo, actions, codes, logger),
		Team:         NewTeamService(repo, logger),
		Action:       NewActionDispatcher(cfg, repo, mail, logger),
		Export:       NewExportService(repo, logger),
	}
}

// ActionsFromConfig 以 workflow.actions 覆盖内置的状态 → 动作映射
func ActionsFromConfig(cfg *config.WorkflowConfig) workflow.ActionMap {
	override := make(workflow.ActionMap, len(cfg.Actions))
	for status, list := range cfg.Actions {
		actions := make([]workflow.Action, 0, len(list))
		for _, a := range list {
			actions = append(actions, workflow.Action{Type: a.Type, Template: a.Template})
		}
		override[workflow.Status(status)] = actions
	}
	return workflow.DefaultActions().Merge(override)
}

// inTx 在一个事务中执行 fn；fn 返回错误或 panic 时整体回滚。
// repo 不持有数据库连接时（mock 聚合）直接以 repo 执行。
func inTx(ctx context.Context, repo *repository.Repository, fn func(txRepo *repository.Repository) error) error {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return fmt.Errorf("提交事务失败: %w", err)
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }
