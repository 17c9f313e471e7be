package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"db"`
	Redis     RedisConfig      `mapstructure:"redis"`
	Auth      AuthConfig       `mapstructure:"auth"`
	Mail      MailConfig       `mapstructure:"mail"`
	Log       LogConfig        `mapstructure:"log"`
	RateLimit RateLimitConfig  `mapstructure:"rate_limit"`
	Workflow  WorkflowConfig   `mapstructure:"workflow"`
	Campaigns []CampaignConfig `mapstructure:"campaigns"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port               int        `mapstructure:"port"`
	BaseURL            string     `mapstructure:"base_url"`
	MaxBodyBytes       int64      `mapstructure:"max_body_bytes"`
	PublicMaxBodyBytes int64      `mapstructure:"public_max_body_bytes"` // 公开报名表单
	CORS               CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（迁移锁、限流、Token 黑名单）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 运营人员认证配置
type AuthConfig struct {
	JWTSecret      string           `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration    `mapstructure:"access_token_ttl"`
	Operators      []OperatorConfig `mapstructure:"operators"`
}

// OperatorConfig 运营账号，密码以 bcrypt 哈希形式存放
type OperatorConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
	DisplayName  string `mapstructure:"display_name"`
}

// MailConfig SMTP 邮件配置；SMTPHost 为空时仅记录日志不发送
type MailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RateLimitConfig 公开报名接口限流
type RateLimitConfig struct {
	PublicLimit  int           `mapstructure:"public_limit"`
	PublicWindow time.Duration `mapstructure:"public_window"`
}

// WorkflowConfig 状态机相关配置
type WorkflowConfig struct {
	// Actions 状态 → 提交后动作列表，缺省时使用内置映射
	Actions        map[string][]ActionConfig `mapstructure:"actions"`
	CodeMaxRetries int                       `mapstructure:"code_max_retries"`
	MigrationLock  time.Duration             `mapstructure:"migration_lock_ttl"`
}

// ActionConfig 单个提交后动作
type ActionConfig struct {
	Type     string `mapstructure:"type"`
	Template string `mapstructure:"template"`
}

// CampaignConfig 报名活动配置（event_id、编号前缀、价格表在服务端解析，不信任客户端）
type CampaignConfig struct {
	ID          string `mapstructure:"id"`
	EventID     string `mapstructure:"event_id"`
	CodePrefix  string `mapstructure:"code_prefix"`
	TemplateID  string `mapstructure:"template_id"`
	PriceGame   string `mapstructure:"price_game"`
	PriceSocial string `mapstructure:"price_social"`
	EventName   string `mapstructure:"event_name"` // 邮件中显示的活动名称
	IBAN        string `mapstructure:"iban"`       // 银行转账收款账户
}

// Prices 解析价格表；未配置时使用默认价格。格式由 Validate 保证
func (c *CampaignConfig) Prices() (game, social decimal.Decimal) {
	game, err := parsePrice(c.PriceGame, DefaultPriceGame)
	if err != nil {
		game = decimal.RequireFromString(DefaultPriceGame)
	}
	social, err = parsePrice(c.PriceSocial, DefaultPriceSocial)
	if err != nil {
		social = decimal.RequireFromString(DefaultPriceSocial)
	}
	return game, social
}

// parsePrice 空字符串取默认值；拒绝格式错误、负数与超过 maxPrice 的价格
func parsePrice(s, def string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.RequireFromString(def), nil
	}
	if len(s) > 16 {
		return decimal.Zero, fmt.Errorf("价格格式错误: %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.Exponent() < -16 || d.Exponent() > 6 {
		return decimal.Zero, fmt.Errorf("价格格式错误: %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("价格不能为负数: %q", s)
	}
	if d.GreaterThan(decimal.RequireFromString(maxPrice)) {
		return decimal.Zero, fmt.Errorf("价格不能超过 %s: %q", maxPrice, s)
	}
	return d, nil
}

// Campaign 按 ID 查找活动配置
func (c *Config) Campaign(id string) (*CampaignConfig, bool) {
	for i := range c.Campaigns {
		if c.Campaigns[i].ID == id {
			return &c.Campaigns[i], true
		}
	}
	return nil, false
}

const (
	DefaultPriceGame   = "3.00"
	DefaultPriceSocial = "5.00"

	maxPrice = "9999.99"
)

var codePrefixPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.public_max_body_bytes", 64<<10)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "alientu")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Europe/Rome")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// 仅由环境变量提供的键也需要注册默认值，否则 Unmarshal 读不到
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "8h")

	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "Alientu <noreply@alientu.it>")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// 与原表单一致：每 IP 10 分钟内最多 3 次提交
	v.SetDefault("rate_limit.public_limit", 3)
	v.SetDefault("rate_limit.public_window", "10m")

	v.SetDefault("workflow.code_max_retries", 10)
	v.SetDefault("workflow.migration_lock_ttl", "60s")

	v.SetDefault("campaigns", []map[string]interface{}{
		{
			"id":           "alientu-2026",
			"event_id":     "ALIENTU_2026",
			"code_prefix":  "ALIENTU26",
			"template_id":  "alientu-26",
			"price_game":   DefaultPriceGame,
			"price_social": DefaultPriceSocial,
			"event_name":   "Alientu 2026",
		},
	})

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("ALIENTU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	for i := range cfg.Campaigns {
		cfg.Campaigns[i].CodePrefix = strings.ToUpper(strings.TrimSpace(cfg.Campaigns[i].CodePrefix))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if len(c.Campaigns) == 0 {
		return fmt.Errorf("配置校验失败: 至少需要配置一个 campaign")
	}
	seen := make(map[string]bool, len(c.Campaigns))
	for _, camp := range c.Campaigns {
		if camp.ID == "" || camp.EventID == "" {
			return fmt.Errorf("配置校验失败: campaign 缺少 id 或 event_id")
		}
		if seen[camp.ID] {
			return fmt.Errorf("配置校验失败: campaign %q 重复", camp.ID)
		}
		seen[camp.ID] = true
		if !codePrefixPattern.MatchString(camp.CodePrefix) {
			return fmt.Errorf("配置校验失败: campaign %q 的 code_prefix 只能包含大写字母和数字", camp.ID)
		}
		if _, err := parsePrice(camp.PriceGame, DefaultPriceGame); err != nil {
			return fmt.Errorf("配置校验失败: campaign %q 的 price_game: %w", camp.ID, err)
		}
		if _, err := parsePrice(camp.PriceSocial, DefaultPriceSocial); err != nil {
			return fmt.Errorf("配置校验失败: campaign %q 的 price_social: %w", camp.ID, err)
		}
	}
	if c.RateLimit.PublicLimit < 0 {
		return fmt.Errorf("配置校验失败: rate_limit.public_limit 不能为负数")
	}
	return nil
}
