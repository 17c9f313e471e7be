package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kimeia/alientu-engine/config"
	"github.com/kimeia/alientu-engine/internal/dto"
	"github.com/kimeia/alientu-engine/pkg/jwt"
	"github.com/kimeia/alientu-engine/pkg/redis"
)

var (
	ErrInvalidCredentials = errors.New("Credenziali non valide.")
)

// dummyHash 用户名不存在时仍执行一次 bcrypt 比较，避免通过耗时区分账号是否存在
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("alientu-dummy-password"), bcrypt.MinCost)

// AuthService 运营人员认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Logout 将 jti 加入黑名单直到 Token 过期
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
}

type authService struct {
	cfg    *config.Config
	jwtMgr *jwt.Manager
	rdb    *redis.Client
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例；运营账号来自 auth.operators 配置
func NewAuthService(
	cfg *config.Config,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:    cfg,
		jwtMgr: jwtMgr,
		rdb:    rdb,
		logger: logger,
	}
}

func (s *authService) Login(_ context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查找运营账号
	var op *config.OperatorConfig
	for i := range s.cfg.Auth.Operators {
		if s.cfg.Auth.Operators[i].Username == req.Username {
			op = &s.cfg.Auth.Operators[i]
			break
		}
	}

	// 2. 验证密码 (bcrypt)
	if op == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token
	displayName := op.DisplayName
	if displayName == "" {
		displayName = op.Username
	}
	accessToken, err := s.jwtMgr.GenerateAccessToken(op.Username, displayName)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, ErrInternal
	}

	s.logger.Info("运营人员登录", zap.String("username", op.Username))

	return &dto.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.jwtMgr.AccessTokenTTL().Seconds()),
		Operator: dto.OperatorResponse{
			Username:    op.Username,
			DisplayName: displayName,
		},
	}, nil
}

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.rdb == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.BlacklistToken(ctx, jti, ttl); err != nil {
		s.logger.Error("写入 Token 黑名单失败", zap.Error(err))
		return ErrInternal
	}
	return nil
}
